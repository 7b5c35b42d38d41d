package session

import (
	"fmt"
	"strings"

	"github.com/justapithecus/prospect/memmap"
	"github.com/justapithecus/prospect/mi"
)

// overrides rewrites bare execution commands to their structured
// protocol form before transmission. Static lookup, independent of
// session state.
var overrides = map[string]string{
	"si":     mi.ExecStepInstruction(),
	"stepi":  mi.ExecStepInstruction(),
	"step":   mi.ExecStep(),
	"ni":     mi.ExecNextInstruction(),
	"nexti":  mi.ExecNextInstruction(),
	"n":      mi.ExecNext(),
	"next":   mi.ExecNext(),
	"fin":    mi.ExecFinish(),
	"finish": mi.ExecFinish(),
}

func init() {
	for _, abbrev := range prefixForms("run") {
		overrides[abbrev] = mi.ExecRun()
	}
	for _, abbrev := range prefixForms("continue") {
		overrides[abbrev] = mi.ExecContinue()
	}
}

// prefixForms lists every leading abbreviation of cmd, shortest
// first: "r", "ru", "run".
func prefixForms(cmd string) []string {
	forms := make([]string, 0, len(cmd))
	for i := 1; i <= len(cmd); i++ {
		forms = append(forms, cmd[:i])
	}
	return forms
}

// Submit runs one operator command line: variable templates are
// expanded against the current mapping table, the override table is
// consulted, and internal commands are intercepted. Expansion
// failures are reported but never abort the command.
func (s *Session) Submit(line string) []error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	expanded, errs := s.table.ExpandLine(line)
	for _, err := range errs {
		s.logger.Warn("template unresolved", map[string]any{"line": line, "err": err.Error()})
	}

	fields := strings.Fields(expanded)
	head := fields[0]

	switch head {
	case "hexdump":
		if err := s.submitHexdump(fields[1:]); err != nil {
			errs = append(errs, err)
		}
		return errs
	case "file":
		if len(fields) == 2 {
			s.targetPath = fields[1]
		}
		if _, err := s.send("-file-exec-and-symbols "+strings.Join(fields[1:], " "),
			pendingRequest{purpose: purposeUser, command: expanded}); err != nil {
			errs = append(errs, err)
		}
		return errs
	}

	if structured, ok := overrides[head]; ok && len(fields) == 1 {
		if structured == mi.ExecRun() {
			// async mode lets the interrupt reach a running target
			if _, err := s.send(mi.SetMIAsync(), pendingRequest{purpose: purposeUser, command: mi.SetMIAsync()}); err != nil {
				return append(errs, err)
			}
		}
		expanded = structured
	}

	if _, err := s.send(expanded, pendingRequest{purpose: purposeUser, command: expanded}); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// submitHexdump handles the internal `hexdump {addr} {len}` command:
// it records the request and pulls the region into the byte cache.
// With no address, or with "heap"/"stack" in place of one, the region
// comes from the mapping table.
func (s *Session) submitHexdump(args []string) error {
	addr, length, err := s.hexdumpRegion(args)
	if err != nil {
		return err
	}
	s.hexdump = &HexdumpRequest{Addr: addr, Length: length}
	_, err = s.send(mi.DataReadMemoryBytes(addr, 0, length),
		pendingRequest{purpose: purposeMemory, addr: addr})
	return err
}

// defaultHexdumpLen is the window pulled when a section shorthand
// names no explicit length.
const defaultHexdumpLen = 1024

func (s *Session) hexdumpRegion(args []string) (addr, length uint64, err error) {
	var m memmap.Mapping
	var ok bool
	switch {
	case len(args) == 0:
		m, ok = s.table.FirstHeap()
	case args[0] == "heap":
		m, ok = s.table.FirstHeap()
	case args[0] == "stack":
		m, ok = s.table.FirstStack()
	default:
		if len(args) != 2 {
			return 0, 0, fmt.Errorf("usage: hexdump {address|heap|stack} {length}")
		}
		addr, err = parseWord(args[0])
		if err != nil {
			return 0, 0, fmt.Errorf("hexdump address %q: %w", args[0], err)
		}
		length, err = parseWord(args[1])
		if err != nil {
			return 0, 0, fmt.Errorf("hexdump length %q: %w", args[1], err)
		}
		if length == 0 {
			return 0, 0, fmt.Errorf("hexdump length must be positive")
		}
		return addr, length, nil
	}
	if !ok {
		return 0, 0, fmt.Errorf("hexdump: no such mapping yet")
	}
	length = defaultHexdumpLen
	if len(args) == 2 {
		length, err = parseWord(args[1])
		if err != nil || length == 0 {
			return 0, 0, fmt.Errorf("hexdump length %q invalid", args[1])
		}
	}
	if length > m.Len() {
		length = m.Len()
	}
	return m.Start, length, nil
}

// KnownCommands lists completion candidates: the override verbs,
// common passthroughs, internal commands, and one variable template
// per mapping. Sorted lexically by the completion engine.
func (s *Session) KnownCommands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []string{
		"attach", "break", "continue", "file", "finish", "hexdump",
		"next", "nexti", "run", "step", "stepi",
	}
	out = append(out, s.table.TemplateCandidates()...)
	return out
}
