package transport

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// pipeTransport wires a stream over an in-process pipe pair for tests.
func pipeTransport(t *testing.T) (*stream, io.Reader, io.WriteCloser) {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	s := newStream(outW, inR)
	t.Cleanup(func() {
		_ = inW.Close()
		_ = outW.Close()
	})
	return s, outR, inW
}

func waitLine(t *testing.T, s *stream) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if line, ok := s.ReadLine(); ok {
			return line
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no line arrived")
	return ""
}

func TestStreamReadsLines(t *testing.T) {
	s, _, inW := pipeTransport(t)

	go func() {
		_, _ = io.WriteString(inW, "~\"hello\"\n(gdb)\n")
	}()

	if got := waitLine(t, s); got != `~"hello"` {
		t.Errorf("line 1 = %q", got)
	}
	if got := waitLine(t, s); got != "(gdb)" {
		t.Errorf("line 2 = %q", got)
	}
	if _, ok := s.ReadLine(); ok {
		t.Error("ReadLine reported a line with none pending")
	}
}

func TestStreamWriteAppendsNewline(t *testing.T) {
	s, outR, _ := pipeTransport(t)

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := outR.Read(buf)
		got <- string(buf[:n])
	}()

	if err := s.WriteLine("1-exec-run"); err != nil {
		t.Fatal(err)
	}
	select {
	case line := <-got:
		if line != "1-exec-run\n" {
			t.Errorf("wrote %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("write never arrived")
	}
}

func TestStreamReportsClose(t *testing.T) {
	inR, inW := io.Pipe()
	s := newStream(io.Discard, inR)

	_, _ = io.WriteString(inW, "^done\n")
	_ = inW.Close()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pump never stopped")
	}
	// the buffered line survives the close
	if got := waitLine(t, s); got != "^done" {
		t.Errorf("line = %q", got)
	}
	if !IsClosed(s.Err()) {
		t.Errorf("Err() = %v, want closed transport error", s.Err())
	}
}

func TestStreamWriteFailureIsFatal(t *testing.T) {
	outR, outW := io.Pipe()
	_ = outR.Close()
	s := newStream(outW, strings.NewReader(""))

	err := s.WriteLine("-exec-run")
	if err == nil {
		t.Fatal("write to closed pipe succeeded")
	}
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != ErrorIO {
		t.Errorf("err = %v, want transport I/O error", err)
	}
	if s.Err() == nil {
		t.Error("stream did not latch the write error")
	}
}

func TestStreamOversizeLine(t *testing.T) {
	s := newStream(io.Discard, strings.NewReader(strings.Repeat("a", MaxLineSize+10)))

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pump never stopped")
	}
	var terr *Error
	if !errors.As(s.Err(), &terr) || terr.Kind != ErrorOversize {
		t.Errorf("Err() = %v, want oversize error", s.Err())
	}
}
