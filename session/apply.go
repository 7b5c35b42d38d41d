package session

import (
	"strconv"
	"strings"

	"github.com/justapithecus/prospect/memmap"
	"github.com/justapithecus/prospect/mi"
	"github.com/justapithecus/prospect/types"
)

// apply folds one record into session state. Callers hold s.mu.
func (s *Session) apply(rec mi.Record) {
	switch r := rec.(type) {
	case mi.ResultRecord:
		s.applyResult(r)
	case mi.AsyncRecord:
		s.metrics.IncAsyncApplied()
		s.applyAsync(r)
	case mi.StreamRecord:
		s.applyStream(r)
	}
}

func (s *Session) applyResult(r mi.ResultRecord) {
	if !r.HasToken {
		// untokened acks (e.g. the interrupt's ^done) carry no
		// pending entry; only the running ack matters for state
		if r.Class == "running" && s.state == StateStopped {
			s.state = StateRunning
			return
		}
		s.metrics.IncResultsDropped()
		s.logger.Warn("untokened result dropped", map[string]any{"class": r.Class})
		return
	}
	req, ok := s.pending[r.Token]
	if !ok {
		s.metrics.IncResultsDropped()
		s.logger.Warn("result for unknown token", map[string]any{"token": r.Token, "class": r.Class})
		return
	}
	delete(s.pending, r.Token)
	s.metrics.IncResultsMatched()

	if r.Class == "running" {
		s.state = StateRunning
	}
	if r.Class == "error" {
		s.logger.Warn("command failed", map[string]any{
			"command": req.command, "msg": r.Fields.Str("msg"),
		})
		delete(s.consoleBuf, r.Token)
		return
	}

	switch req.purpose {
	case purposeMappings:
		s.applyMappings(r.Token)
	case purposeRegisterNames:
		s.applyRegisterNames(r.Fields)
	case purposeRegisterValues:
		s.applyRegisterValues(r.Fields)
	case purposeChangedRegisters:
		s.applyChangedRegisters(r.Fields)
	case purposeFrames:
		s.applyFrames(r.Fields)
	case purposeAsm:
		s.applyAsm(r.Fields)
	case purposeMemory:
		s.applyMemory(r.Fields)
	case purposePtrSize:
		s.applyPtrSize(r.Fields)
	case purposeEndian:
		s.applyEndian(r.Token)
	}
}

func (s *Session) applyAsync(r mi.AsyncRecord) {
	switch {
	case r.Kind == mi.AsyncExec && r.Class == "stopped":
		reason := r.Fields.Str("reason")
		if strings.HasPrefix(reason, "exited") {
			s.state = StateExited
			s.stopReason = reason
			s.logger.Info("inferior exited", map[string]any{"reason": reason})
			return
		}
		s.state = StateStopped
		s.stopReason = reason
		s.queueStopRefresh()
	case r.Kind == mi.AsyncExec && r.Class == "running":
		s.state = StateRunning
	case r.Kind == mi.AsyncNotify && r.Class == "thread-group-exited":
		s.state = StateExited
		s.stopReason = "thread-group-exited"
		s.logger.Info("thread group exited", nil)
	}
}

func (s *Session) applyStream(r mi.StreamRecord) {
	if r.Kind != mi.StreamConsole {
		return
	}
	// console replies to in-flight console-mode requests accumulate
	// until their ^done arrives
	for token, req := range s.pending {
		if req.purpose == purposeMappings || req.purpose == purposeEndian {
			s.consoleBuf[token] = append(s.consoleBuf[token], r.Text)
		}
	}
}

// queueStopRefresh issues the post-stop query burst: fresh mappings,
// registers, stack, and on the first stop the width and byte-order
// probes. Callers hold s.mu.
func (s *Session) queueStopRefresh() {
	s.metrics.IncStopRefreshes()

	if !s.probed {
		s.probed = true
		if !s.ptrForced {
			_, _ = s.send(mi.SizeofPointerProbe(), pendingRequest{purpose: purposePtrSize})
		}
		if token, err := s.send(mi.ShowEndian(), pendingRequest{purpose: purposeEndian}); err == nil {
			s.consoleBuf[token] = nil
		}
		_, _ = s.send(mi.SetIntelFlavor(), pendingRequest{purpose: purposeSetup})
	}
	if token, err := s.send(mi.InfoProcMappings(), pendingRequest{purpose: purposeMappings}); err == nil {
		s.consoleBuf[token] = nil
	}
	if len(s.regNames) == 0 {
		_, _ = s.send(mi.ListRegisterNames(), pendingRequest{purpose: purposeRegisterNames})
	}
	_, _ = s.send(mi.ListRegisterValues(), pendingRequest{purpose: purposeRegisterValues})
	_, _ = s.send(mi.ListChangedRegisters(), pendingRequest{purpose: purposeChangedRegisters})
	_, _ = s.send(mi.StackListFrames(), pendingRequest{purpose: purposeFrames})
	_, _ = s.send(mi.DataDisassemblePC(asmLookbehind, asmWindow), pendingRequest{purpose: purposeAsm})

	// a window below the stack pointer feeds the dereference panes
	_, _ = s.send(mi.DataReadSPBytes(0, stackWindow), pendingRequest{purpose: purposeMemory})

	if s.hexdump != nil {
		_, _ = s.send(mi.DataReadMemoryBytes(s.hexdump.Addr, 0, s.hexdump.Length),
			pendingRequest{purpose: purposeMemory, addr: s.hexdump.Addr})
	}
}

// stackWindow is how many bytes around the stack pointer each stop
// refresh pulls for the stack pane.
const stackWindow = 512

// disassembly window around $pc, in bytes
const (
	asmLookbehind = 16
	asmWindow     = 56
)

func (s *Session) applyMappings(token uint64) {
	lines := s.consoleBuf[token]
	delete(s.consoleBuf, token)
	ms, ok := memmap.ParseConsole(strings.Join(lines, ""))
	if !ok {
		s.logger.Warn("mapping listing had no header", map[string]any{"lines": len(lines)})
		return
	}
	s.table = memmap.BuildTable(ms)
	s.logger.Debug("mapping table rebuilt", map[string]any{"entries": len(s.table)})
}

func (s *Session) applyRegisterNames(fields mi.Fields) {
	list := fields.ListOf("register-names")
	names := make([]string, 0, len(list))
	for _, v := range list {
		if sc, ok := v.(mi.Scalar); ok {
			names = append(names, string(sc))
		}
	}
	s.regNames = names
}

func (s *Session) applyRegisterValues(fields mi.Fields) {
	list := fields.ListOf("register-values")
	regs := make([]Register, 0, len(list))
	for _, v := range list {
		t, ok := v.(mi.Tuple)
		if !ok {
			continue
		}
		num, err := strconv.Atoi(t.Str("number"))
		if err != nil {
			continue
		}
		reg := Register{Number: num, Value: t.Str("value")}
		if num < len(s.regNames) {
			reg.Name = s.regNames[num]
		}
		if w, err := parseWord(reg.Value); err == nil {
			reg.Word = w
			reg.HasWord = true
		}
		regs = append(regs, reg)
	}
	// changed flags from the previous reply carry over until the
	// changed-registers result arrives
	s.regs = regs
}

func (s *Session) applyChangedRegisters(fields mi.Fields) {
	changed := make(map[int]bool)
	for _, v := range fields.ListOf("changed-registers") {
		if sc, ok := v.(mi.Scalar); ok {
			if num, err := strconv.Atoi(string(sc)); err == nil {
				changed[num] = true
			}
		}
	}
	for i := range s.regs {
		s.regs[i].Changed = changed[s.regs[i].Number]
	}
}

func (s *Session) applyFrames(fields mi.Fields) {
	list := fields.ListOf("stack")
	frames := make([]Frame, 0, len(list))
	for _, v := range list {
		t, ok := v.(mi.Tuple)
		if !ok {
			continue
		}
		ft, ok := t.Get("frame")
		if ok {
			if inner, isTuple := ft.(mi.Tuple); isTuple {
				t = inner
			}
		}
		f := Frame{Func: t.Str("func"), File: t.Str("file")}
		f.Level, _ = strconv.Atoi(t.Str("level"))
		f.Line, _ = strconv.Atoi(t.Str("line"))
		f.Addr, _ = parseWord(t.Str("addr"))
		frames = append(frames, f)
	}
	s.frames = frames
}

func (s *Session) applyAsm(fields mi.Fields) {
	list := fields.ListOf("asm_insns")
	insns := make([]Instruction, 0, len(list))
	for _, v := range list {
		t, ok := v.(mi.Tuple)
		if !ok {
			continue
		}
		addr, err := parseWord(t.Str("address"))
		if err != nil {
			continue
		}
		in := Instruction{Addr: addr, Func: t.Str("func-name"), Text: t.Str("inst")}
		in.Offset, _ = strconv.Atoi(t.Str("offset"))
		insns = append(insns, in)
	}
	s.asm = insns
}

func (s *Session) applyMemory(fields mi.Fields) {
	for _, v := range fields.ListOf("memory") {
		t, ok := v.(mi.Tuple)
		if !ok {
			continue
		}
		begin, err := parseWord(t.Str("begin"))
		if err != nil {
			continue
		}
		data, err := decodeContents(t.Str("contents"))
		if err != nil {
			s.logger.Warn("memory reply undecodable", map[string]any{"begin": t.Str("begin")})
			continue
		}
		// begin is already the block's absolute address; offset only
		// restates its distance from the request start
		s.mem.insert(begin, data)
		s.metrics.AddMemoryRead(len(data))
	}
}

func (s *Session) applyPtrSize(fields mi.Fields) {
	switch fields.Str("value") {
	case "4":
		s.ptrSize = types.PtrSize32
	case "8":
		s.ptrSize = types.PtrSize64
	}
}

func (s *Session) applyEndian(token uint64) {
	text := strings.Join(s.consoleBuf[token], "")
	delete(s.consoleBuf, token)
	switch {
	case strings.Contains(text, "big endian"):
		s.endian = types.BigEndian
	case strings.Contains(text, "little endian"):
		s.endian = types.LittleEndian
	}
}

func parseWord(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		return strconv.ParseUint(rest, 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}
