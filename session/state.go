package session

import (
	"github.com/justapithecus/prospect/memmap"
	"github.com/justapithecus/prospect/types"
)

// ExecState is the inferior's execution state as observed over the
// protocol.
type ExecState int

const (
	StateNotStarted ExecState = iota
	StateRunning
	StateStopped
	// StateExited is terminal. No command is accepted past it.
	StateExited
)

func (s ExecState) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "exited"
	}
}

// Register is one target register with its latest raw value. Word is
// the decoded numeric value when the register holds one.
type Register struct {
	Number  int
	Name    string
	Value   string
	Word    uint64
	HasWord bool
	Changed bool
}

// Frame is one stack frame from the current backtrace.
type Frame struct {
	Level int
	Addr  uint64
	Func  string
	File  string
	Line  int
}

// Instruction is one disassembled instruction near the program
// counter.
type Instruction struct {
	Addr   uint64
	Func   string
	Offset int
	Text   string
}

// HexdumpRequest is the most recent operator hexdump command.
type HexdumpRequest struct {
	Addr   uint64
	Length uint64
}

// Snapshot is an immutable view of session state taken for one render
// pass. Slices and maps are copies; mutating them does not touch the
// session.
type Snapshot struct {
	State      ExecState
	StopReason string

	Registers []Register
	Frames    []Frame
	Asm       []Instruction
	Mappings  memmap.Table

	PtrSize types.PtrSize
	Endian  types.Endian

	TargetPath string
	Hexdump    *HexdumpRequest
}
