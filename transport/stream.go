// Package transport carries newline-framed debugger traffic over a
// local gdb process or a TCP connection to a remote one.
package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
)

// MaxLineSize bounds a single protocol line (1 MiB). Memory read
// replies carry hex payloads inline, so lines run long.
const MaxLineSize = 1 << 20

// ErrorKind classifies transport failures.
type ErrorKind int

const (
	// ErrorClosed indicates the peer went away (EOF, process exit).
	ErrorClosed ErrorKind = iota
	// ErrorOversize indicates a line exceeding MaxLineSize.
	ErrorOversize
	// ErrorIO indicates any other read or write failure.
	ErrorIO
)

// Error represents a transport failure. Every transport error is
// fatal: the stream delivers nothing after the first one.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsClosed reports whether err is a transport error caused by the
// peer going away.
func IsClosed(err error) bool {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind == ErrorClosed
	}
	return false
}

// Transport is a full-duplex line stream to a debugger.
type Transport interface {
	// WriteLine sends one protocol line. The newline is appended.
	WriteLine(line string) error
	// ReadLine delivers the next buffered inbound line without
	// blocking. ok is false when nothing is pending.
	ReadLine() (line string, ok bool)
	// Err reports the fatal stream error, nil while healthy.
	Err() error
	// Done closes when the inbound pump has stopped.
	Done() <-chan struct{}
	// Interrupt asks the debugger to stop the running target.
	Interrupt() error
	// Close tears the transport down.
	Close() error
}

// stream pumps lines between an io.Writer and an io.Reader. Inbound
// lines are buffered so the UI thread can drain them without
// blocking on the debugger.
type stream struct {
	wmu sync.Mutex
	w   io.Writer

	lines chan string
	done  chan struct{}

	emu sync.Mutex
	err error
}

const inboundBuffer = 1024

func newStream(w io.Writer, r io.Reader) *stream {
	s := &stream{
		w:     w,
		lines: make(chan string, inboundBuffer),
		done:  make(chan struct{}),
	}
	go s.pump(r)
	return s
}

func (s *stream) pump(r io.Reader) {
	defer close(s.done)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), MaxLineSize)
	for sc.Scan() {
		s.lines <- sc.Text()
	}
	switch err := sc.Err(); {
	case err == nil:
		s.setErr(&Error{Kind: ErrorClosed, Msg: "stream closed"})
	case errors.Is(err, bufio.ErrTooLong):
		s.setErr(&Error{Kind: ErrorOversize, Msg: "line exceeds size cap", Err: err})
	default:
		s.setErr(&Error{Kind: ErrorIO, Msg: "stream read", Err: err})
	}
}

func (s *stream) WriteLine(line string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := io.WriteString(s.w, line+"\n"); err != nil {
		werr := &Error{Kind: ErrorIO, Msg: "stream write", Err: err}
		s.setErr(werr)
		return werr
	}
	return nil
}

func (s *stream) ReadLine() (string, bool) {
	select {
	case line := <-s.lines:
		return line, true
	default:
		return "", false
	}
}

func (s *stream) Err() error {
	s.emu.Lock()
	defer s.emu.Unlock()
	return s.err
}

func (s *stream) Done() <-chan struct{} { return s.done }

func (s *stream) setErr(err error) {
	s.emu.Lock()
	defer s.emu.Unlock()
	if s.err == nil {
		s.err = err
	}
}
