// Package session owns the debugger conversation: token assignment,
// result correlation, the execution state machine, and the state the
// dashboard renders from.
package session

import (
	"errors"
	"strconv"
	"sync"

	"github.com/justapithecus/prospect/log"
	"github.com/justapithecus/prospect/memmap"
	"github.com/justapithecus/prospect/metrics"
	"github.com/justapithecus/prospect/mi"
	"github.com/justapithecus/prospect/transport"
	"github.com/justapithecus/prospect/types"
)

// ErrSessionExited rejects commands after the terminal transition.
var ErrSessionExited = errors.New("session: debugger exited")

// ErrNotRunning rejects interrupts while the target is not executing.
var ErrNotRunning = errors.New("session: target not running")

// purpose tags a pending request with what the session does with its
// reply. User commands carry purposeUser; their replies go straight
// to the display.
type purpose int

const (
	purposeUser purpose = iota
	purposeMappings
	purposeRegisterNames
	purposeRegisterValues
	purposeChangedRegisters
	purposeFrames
	purposeAsm
	purposeMemory
	purposePtrSize
	purposeEndian
	// purposeSetup marks one-shot settings whose ack needs no handling
	purposeSetup
)

type pendingRequest struct {
	purpose purpose
	command string
	// memory reads remember their placement
	addr uint64
}

// Config carries session construction options.
type Config struct {
	Transport transport.Transport
	Logger    *log.Logger
	Metrics   *metrics.Collector
	// PtrSize overrides pointer-width detection when not auto.
	PtrSize types.PtrSize
}

// Session drives one debugger over one transport. All methods are
// safe for concurrent use.
type Session struct {
	mu sync.Mutex

	tr      transport.Transport
	logger  *log.Logger
	metrics *metrics.Collector

	nextToken uint64
	pending   map[uint64]pendingRequest

	state      ExecState
	stopReason string
	// terminal transport error, surfaced once
	fatal         error
	fatalSurfaced bool

	regNames []string
	regs     []Register
	frames   []Frame
	asm      []Instruction
	table    memmap.Table

	ptrSize    types.PtrSize
	ptrForced  bool
	endian     types.Endian
	probed     bool
	targetPath string

	mem     *MemCache
	hexdump *HexdumpRequest

	// console text accumulated while a console-reply request is
	// outstanding, keyed by the request token
	consoleBuf map[uint64][]string
}

// New builds a session over an established transport.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger, _ = log.New("")
	}
	s := &Session{
		tr:         cfg.Transport,
		logger:     logger,
		metrics:    cfg.Metrics,
		nextToken:  1,
		pending:    make(map[uint64]pendingRequest),
		mem:        &MemCache{},
		consoleBuf: make(map[uint64][]string),
		endian:     types.LittleEndian,
		ptrSize:    types.PtrSizeAuto,
	}
	if cfg.PtrSize != types.PtrSizeAuto {
		s.ptrSize = cfg.PtrSize
		s.ptrForced = true
	}
	return s
}

// Send assigns the next token, prefixes it to cmd, and writes the
// line. It never waits for the reply.
func (s *Session) Send(cmd string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(cmd, pendingRequest{purpose: purposeUser, command: cmd})
}

// send writes one tokened command. Callers hold s.mu.
func (s *Session) send(cmd string, req pendingRequest) (uint64, error) {
	if s.state == StateExited {
		return 0, ErrSessionExited
	}
	token := s.nextToken
	s.nextToken++
	if err := s.tr.WriteLine(formatCommand(token, cmd)); err != nil {
		s.fail(err)
		return 0, err
	}
	s.pending[token] = req
	s.metrics.IncCommandsSent()
	if req.purpose == purposeUser && s.state == StateNotStarted {
		s.state = StateRunning
	}
	s.logger.Debug("command sent", map[string]any{"token": token, "command": cmd})
	return token, nil
}

func formatCommand(token uint64, cmd string) string {
	return strconv.FormatUint(token, 10) + cmd
}

// Interrupt requests an out-of-band stop. Legal only while the
// target is running; it produces no result record and therefore no
// pending entry.
func (s *Session) Interrupt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateExited {
		return ErrSessionExited
	}
	if s.state != StateRunning {
		return ErrNotRunning
	}
	if err := s.tr.Interrupt(); err != nil {
		return err
	}
	s.metrics.IncInterrupts()
	s.logger.Info("interrupt requested", nil)
	return nil
}

// Poll drains every complete line the transport has buffered,
// applies them to session state in arrival order, and returns the
// records for display. It never blocks. After the session has gone
// terminal and the failure was surfaced, Poll returns nil.
func (s *Session) Poll() []mi.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []mi.Record
	for {
		line, ok := s.tr.ReadLine()
		if !ok {
			break
		}
		s.metrics.IncLinesRead()
		if mi.IsPrompt(line) {
			continue
		}
		rec, err := mi.ParseLine(line)
		if err != nil {
			s.metrics.IncParseErrors()
			s.logger.Warn("unparseable line", map[string]any{"line": line, "err": err.Error()})
			out = append(out, mi.StreamRecord{Kind: mi.StreamLog, Text: line})
			continue
		}
		out = append(out, rec)
		s.apply(rec)
	}

	if err := s.tr.Err(); err != nil && s.fatal == nil {
		s.fail(err)
	}
	if s.fatal != nil && !s.fatalSurfaced {
		s.fatalSurfaced = true
		out = append(out, mi.StreamRecord{Kind: mi.StreamLog, Text: "transport: " + s.fatal.Error()})
	}
	return out
}

// fail records the terminal transport error. Callers hold s.mu.
func (s *Session) fail(err error) {
	if s.fatal != nil {
		return
	}
	s.fatal = err
	s.state = StateExited
	s.logger.Error("transport failed", map[string]any{"err": err.Error()})
}

// Memory exposes the byte cache backing classification and hexdump.
func (s *Session) Memory() *MemCache { return s.mem }

// Snapshot copies the render-relevant state. Safe to use from the
// render loop while the session keeps applying records.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:      s.state,
		StopReason: s.stopReason,
		Registers:  make([]Register, len(s.regs)),
		Frames:     make([]Frame, len(s.frames)),
		Asm:        make([]Instruction, len(s.asm)),
		Mappings:   make(memmap.Table, len(s.table)),
		PtrSize:    s.ptrSize,
		Endian:     s.endian,
		TargetPath: s.targetPath,
	}
	copy(snap.Registers, s.regs)
	copy(snap.Frames, s.frames)
	copy(snap.Asm, s.asm)
	copy(snap.Mappings, s.table)
	if s.hexdump != nil {
		h := *s.hexdump
		snap.Hexdump = &h
	}
	return snap
}

// RequestMemory asks the debugger for length bytes at addr. The
// reply lands in the byte cache.
func (s *Session) RequestMemory(addr, length uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.send(mi.DataReadMemoryBytes(addr, 0, length),
		pendingRequest{purpose: purposeMemory, addr: addr})
	return err
}
