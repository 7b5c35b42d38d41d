package session

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/justapithecus/prospect/log"
	"github.com/justapithecus/prospect/metrics"
	"github.com/justapithecus/prospect/mi"
	"github.com/justapithecus/prospect/types"
)

// fakeTransport is an in-memory transport the tests script directly.
type fakeTransport struct {
	written    []string
	inbound    []string
	err        error
	interrupts int
	done       chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{done: make(chan struct{})}
}

func (f *fakeTransport) WriteLine(line string) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, line)
	return nil
}

func (f *fakeTransport) ReadLine() (string, bool) {
	if len(f.inbound) == 0 {
		return "", false
	}
	line := f.inbound[0]
	f.inbound = f.inbound[1:]
	return line, true
}

func (f *fakeTransport) Err() error            { return f.err }
func (f *fakeTransport) Done() <-chan struct{} { return f.done }
func (f *fakeTransport) Interrupt() error      { f.interrupts++; return nil }
func (f *fakeTransport) Close() error          { return nil }

func (f *fakeTransport) feed(lines ...string) {
	f.inbound = append(f.inbound, lines...)
}

// tokenFor finds the token prefixing the first written command that
// contains fragment.
func (f *fakeTransport) tokenFor(t *testing.T, fragment string) string {
	t.Helper()
	for _, line := range f.written {
		if strings.Contains(line, fragment) {
			for i := 0; i < len(line); i++ {
				if line[i] < '0' || line[i] > '9' {
					return line[:i]
				}
			}
		}
	}
	t.Fatalf("no written command contains %q: %v", fragment, f.written)
	return ""
}

func newTestSession(t *testing.T) (*Session, *fakeTransport) {
	t.Helper()
	tr := newFakeTransport()
	return New(Config{Transport: tr}), tr
}

func TestSendAssignsMonotonicTokens(t *testing.T) {
	s, tr := newTestSession(t)

	t1, err := s.Send("-exec-run")
	if err != nil {
		t.Fatal(err)
	}
	t2, _ := s.Send("-exec-continue")
	if t1 != 1 || t2 != 2 {
		t.Errorf("tokens = %d, %d, want 1, 2", t1, t2)
	}
	if tr.written[0] != "1-exec-run" || tr.written[1] != "2-exec-continue" {
		t.Errorf("written = %v", tr.written)
	}
}

func TestFirstSendStartsSession(t *testing.T) {
	s, _ := newTestSession(t)
	if got := s.Snapshot().State; got != StateNotStarted {
		t.Fatalf("initial state = %v", got)
	}
	_, _ = s.Send("-exec-run")
	if got := s.Snapshot().State; got != StateRunning {
		t.Errorf("state after first send = %v, want running", got)
	}
}

func TestSubmitOverrides(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"c", "-exec-continue"},
		{"cont", "-exec-continue"},
		{"continue", "-exec-continue"},
		{"si", "-exec-step-instruction"},
		{"step", "-exec-step"},
		{"ni", "-exec-next-instruction"},
		{"next", "-exec-next"},
		{"finish", "-exec-finish"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			s, tr := newTestSession(t)
			if errs := s.Submit(tt.in); len(errs) != 0 {
				t.Fatalf("Submit errors: %v", errs)
			}
			if len(tr.written) != 1 || tr.written[0] != "1"+tt.want {
				t.Errorf("written = %v, want [1%s]", tr.written, tt.want)
			}
		})
	}
}

func TestSubmitRunEnablesAsyncFirst(t *testing.T) {
	s, tr := newTestSession(t)
	if errs := s.Submit("run"); len(errs) != 0 {
		t.Fatalf("Submit errors: %v", errs)
	}
	if len(tr.written) != 2 {
		t.Fatalf("written = %v", tr.written)
	}
	if tr.written[0] != "1-gdb-set mi-async on" || tr.written[1] != "2-exec-run" {
		t.Errorf("written = %v", tr.written)
	}
}

func TestSubmitPassthrough(t *testing.T) {
	s, tr := newTestSession(t)
	_ = s.Submit("break main")
	if len(tr.written) != 1 || tr.written[0] != "1break main" {
		t.Errorf("written = %v", tr.written)
	}
}

func TestStopBurstAndStateMachine(t *testing.T) {
	s, tr := newTestSession(t)
	_ = s.Submit("run")

	tr.feed(
		"2^running",
		"(gdb)",
		`*stopped,reason="breakpoint-hit",frame={addr="0x0000000000401136",func="main"}`,
	)
	s.Poll()

	if got := s.Snapshot().State; got != StateStopped {
		t.Fatalf("state = %v, want stopped", got)
	}
	if got := s.Snapshot().StopReason; got != "breakpoint-hit" {
		t.Errorf("stop reason = %q", got)
	}
	for _, want := range []string{
		`"info proc mappings"`,
		"-data-list-register-names",
		"-data-list-register-values x",
		"-data-list-changed-registers",
		"-stack-list-frames",
		"-data-disassemble -s $pc-",
		"-gdb-set disassembly-flavor intel",
		`"sizeof(long)"`,
		`"show endian"`,
	} {
		found := false
		for _, line := range tr.written {
			if strings.Contains(line, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("stop burst missing %s", want)
		}
	}
}

func TestStopBurstProbesOnlyOnce(t *testing.T) {
	s, tr := newTestSession(t)
	_ = s.Submit("run")
	tr.feed(`*stopped,reason="breakpoint-hit"`)
	s.Poll()
	tr.feed("99^running") // ignored token, just to flush
	tr.feed(`*stopped,reason="end-stepping-range"`)
	s.Poll()

	probes := 0
	for _, line := range tr.written {
		if strings.Contains(line, "sizeof(long)") {
			probes++
		}
	}
	if probes != 1 {
		t.Errorf("pointer probe sent %d times, want 1", probes)
	}
}

func TestMappingsRebuildFromConsole(t *testing.T) {
	s, tr := newTestSession(t)
	_ = s.Submit("run")
	tr.feed(`*stopped,reason="breakpoint-hit"`)
	s.Poll()

	token := tr.tokenFor(t, "info proc mappings")
	tr.feed(
		`~"          Start Addr           End Addr       Size     Offset  Perms  objfile\n"`,
		`~"            0x400000           0x401000     0x1000        0x0  r-xp   /bin/target\n"`,
		`~"            0x600000           0x621000    0x21000        0x0  rw-p   [heap]\n"`,
		token+"^done",
	)
	s.Poll()

	snap := s.Snapshot()
	if len(snap.Mappings) != 2 {
		t.Fatalf("mappings = %+v", snap.Mappings)
	}
	addr, err := snap.Mappings.Resolve("$PROSPECT_START_[heap]")
	if err != nil || addr != 0x600000 {
		t.Errorf("heap start = %#x, %v", addr, err)
	}
}

func TestRegistersAndFrames(t *testing.T) {
	s, tr := newTestSession(t)
	_ = s.Submit("run")
	tr.feed(`*stopped,reason="breakpoint-hit"`)
	s.Poll()

	names := tr.tokenFor(t, "-data-list-register-names")
	values := tr.tokenFor(t, "-data-list-register-values x")
	changed := tr.tokenFor(t, "-data-list-changed-registers")
	frames := tr.tokenFor(t, "-stack-list-frames")

	tr.feed(
		names+`^done,register-names=["rax","rbx","rcx"]`,
		values+`^done,register-values=[{number="0",value="0x600010"},{number="2",value="0xdead"}]`,
		changed+`^done,changed-registers=["2"]`,
		frames+`^done,stack=[frame={level="0",addr="0x0000000000401136",func="main",file="main.c",line="12"}]`,
	)
	s.Poll()

	snap := s.Snapshot()
	if len(snap.Registers) != 2 {
		t.Fatalf("registers = %+v", snap.Registers)
	}
	rax := snap.Registers[0]
	if rax.Name != "rax" || !rax.HasWord || rax.Word != 0x600010 || rax.Changed {
		t.Errorf("rax = %+v", rax)
	}
	rcx := snap.Registers[1]
	if rcx.Name != "rcx" || !rcx.Changed {
		t.Errorf("rcx = %+v", rcx)
	}
	if len(snap.Frames) != 1 {
		t.Fatalf("frames = %+v", snap.Frames)
	}
	f := snap.Frames[0]
	if f.Func != "main" || f.Addr != 0x401136 || f.Line != 12 || f.File != "main.c" {
		t.Errorf("frame = %+v", f)
	}
}

func TestDisassemblyApplied(t *testing.T) {
	s, tr := newTestSession(t)
	_ = s.Submit("run")
	tr.feed(`*stopped,reason="breakpoint-hit"`)
	s.Poll()

	token := tr.tokenFor(t, "-data-disassemble")
	tr.feed(token + `^done,asm_insns=[` +
		`{address="0x401136",func-name="main",offset="0",inst="push   rbp"},` +
		`{address="0x401137",func-name="main",offset="1",inst="mov    rbp,rsp"}]`)
	s.Poll()

	snap := s.Snapshot()
	if len(snap.Asm) != 2 {
		t.Fatalf("asm = %+v", snap.Asm)
	}
	in := snap.Asm[1]
	if in.Addr != 0x401137 || in.Func != "main" || in.Offset != 1 || in.Text != "mov    rbp,rsp" {
		t.Errorf("instruction = %+v", in)
	}
}

func TestMemoryRepliesFillCache(t *testing.T) {
	s, tr := newTestSession(t)
	if err := s.RequestMemory(0x600000, 4); err != nil {
		t.Fatal(err)
	}
	token := tr.tokenFor(t, "-data-read-memory-bytes")
	tr.feed(token + `^done,memory=[{begin="0x600000",offset="0x00",end="0x600004",contents="deadbeef"}]`)
	s.Poll()

	got, err := s.Memory().ReadMemory(0x600000, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 0xde || got[3] != 0xef {
		t.Errorf("cached bytes = %x", got)
	}
	if _, err := s.Memory().ReadMemory(0x600002, 4); err == nil {
		t.Error("read past cached segment succeeded")
	}
}

func TestMemoryBlocksKeyedAtBegin(t *testing.T) {
	s, tr := newTestSession(t)
	if err := s.RequestMemory(0x1000, 0x100); err != nil {
		t.Fatal(err)
	}
	// a range spanning an unreadable gap comes back in blocks whose
	// begin is absolute and whose offset restates begin-request
	token := tr.tokenFor(t, "-data-read-memory-bytes")
	tr.feed(token + `^done,memory=[` +
		`{begin="0x1000",offset="0x00",end="0x1004",contents="00112233"},` +
		`{begin="0x1050",offset="0x50",end="0x1054",contents="aabbccdd"}]`)
	s.Poll()

	got, err := s.Memory().ReadMemory(0x1050, 4)
	if err != nil {
		t.Fatalf("block not cached at begin: %v", err)
	}
	if got[0] != 0xaa || got[3] != 0xdd {
		t.Errorf("cached bytes = %x", got)
	}
	if _, err := s.Memory().ReadMemory(0x10a0, 4); err == nil {
		t.Error("block cached at begin+offset")
	}
}

func TestUnknownTokenDropped(t *testing.T) {
	s, tr := newTestSession(t)
	_, _ = s.Send("-exec-run")
	tr.feed(`7^done,value="42"`)
	recs := s.Poll()

	if len(recs) != 1 {
		t.Fatalf("records = %v", recs)
	}
	if got := s.Snapshot().State; got != StateRunning {
		t.Errorf("unknown token changed state to %v", got)
	}
}

func TestUntokenedResultDroppedWithWarning(t *testing.T) {
	tr := newFakeTransport()
	var buf bytes.Buffer
	base, _ := log.New("")
	col := metrics.NewCollector("", "")
	s := New(Config{Transport: tr, Logger: base.WithOutput(&buf), Metrics: col})

	tr.feed(`^done,value="42"`)
	s.Poll()

	if got := col.Snapshot().ResultsDropped; got != 1 {
		t.Errorf("ResultsDropped = %d, want 1", got)
	}
	if !strings.Contains(buf.String(), "untokened result dropped") {
		t.Errorf("warning not logged: %s", buf.String())
	}
	if got := s.Snapshot().State; got != StateNotStarted {
		t.Errorf("untokened result changed state to %v", got)
	}
}

func TestMalformedLineSurfacedAsLog(t *testing.T) {
	s, tr := newTestSession(t)
	tr.feed("^done,novalue")
	recs := s.Poll()

	if len(recs) != 1 {
		t.Fatalf("records = %v", recs)
	}
	sr, ok := recs[0].(mi.StreamRecord)
	if !ok || sr.Kind != mi.StreamLog || sr.Text != "^done,novalue" {
		t.Errorf("record = %#v", recs[0])
	}
}

func TestExitIsTerminal(t *testing.T) {
	s, tr := newTestSession(t)
	_ = s.Submit("run")
	tr.feed(`*stopped,reason="exited-normally"`)
	s.Poll()

	if got := s.Snapshot().State; got != StateExited {
		t.Fatalf("state = %v, want exited", got)
	}
	if _, err := s.Send("-exec-run"); !errors.Is(err, ErrSessionExited) {
		t.Errorf("Send after exit: %v", err)
	}
	if err := s.Interrupt(); !errors.Is(err, ErrSessionExited) {
		t.Errorf("Interrupt after exit: %v", err)
	}
}

func TestTransportFailureSurfacedOnce(t *testing.T) {
	s, tr := newTestSession(t)
	_, _ = s.Send("-exec-run")
	tr.err = errors.New("pipe closed")

	recs := s.Poll()
	if len(recs) != 1 {
		t.Fatalf("first poll records = %v", recs)
	}
	sr, ok := recs[0].(mi.StreamRecord)
	if !ok || sr.Kind != mi.StreamLog || !strings.Contains(sr.Text, "pipe closed") {
		t.Errorf("record = %#v", recs[0])
	}
	if got := s.Snapshot().State; got != StateExited {
		t.Errorf("state = %v, want exited", got)
	}
	if recs := s.Poll(); len(recs) != 0 {
		t.Errorf("second poll re-raised: %v", recs)
	}
}

func TestInterruptOnlyWhileRunning(t *testing.T) {
	s, tr := newTestSession(t)
	if err := s.Interrupt(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("interrupt before start: %v", err)
	}
	_ = s.Submit("run")
	if err := s.Interrupt(); err != nil {
		t.Errorf("interrupt while running: %v", err)
	}
	if tr.interrupts != 1 {
		t.Errorf("interrupts = %d", tr.interrupts)
	}
	tr.feed(`*stopped,reason="signal-received"`)
	s.Poll()
	if err := s.Interrupt(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("interrupt while stopped: %v", err)
	}
}

func TestContinueAckResumesRunning(t *testing.T) {
	s, tr := newTestSession(t)
	_ = s.Submit("run")
	tr.feed(`*stopped,reason="breakpoint-hit"`)
	s.Poll()

	_ = s.Submit("continue")
	token := tr.tokenFor(t, "-exec-continue")
	tr.feed(token + "^running")
	s.Poll()
	if got := s.Snapshot().State; got != StateRunning {
		t.Errorf("state = %v, want running", got)
	}
}

func TestSubmitHexdump(t *testing.T) {
	s, tr := newTestSession(t)
	if errs := s.Submit("hexdump 0x600000 256"); len(errs) != 0 {
		t.Fatalf("Submit errors: %v", errs)
	}
	snap := s.Snapshot()
	if snap.Hexdump == nil || snap.Hexdump.Addr != 0x600000 || snap.Hexdump.Length != 256 {
		t.Errorf("request = %+v", snap.Hexdump)
	}
	if tok := tr.tokenFor(t, "-data-read-memory-bytes"); tok == "" {
		t.Error("no memory read issued")
	}

	if errs := s.Submit("hexdump nonsense"); len(errs) == 0 {
		t.Error("bad hexdump accepted")
	}
	if errs := s.Submit("hexdump 0x10 0"); len(errs) == 0 {
		t.Error("zero-length hexdump accepted")
	}
}

func TestSubmitHexdumpSectionShorthand(t *testing.T) {
	s, tr := newTestSession(t)
	if errs := s.Submit("hexdump"); len(errs) == 0 {
		t.Error("heap hexdump accepted before any mapping arrived")
	}

	_ = s.Submit("run")
	tr.feed(`*stopped,reason="breakpoint-hit"`)
	s.Poll()
	token := tr.tokenFor(t, "info proc mappings")
	tr.feed(
		`~"          Start Addr           End Addr       Size     Offset  Perms  objfile\n"`,
		`~"            0x600000           0x621000    0x21000        0x0  rw-p   [heap]\n"`,
		token+"^done",
	)
	s.Poll()

	if errs := s.Submit("hexdump"); len(errs) != 0 {
		t.Fatalf("Submit errors: %v", errs)
	}
	snap := s.Snapshot()
	if snap.Hexdump == nil || snap.Hexdump.Addr != 0x600000 || snap.Hexdump.Length != 1024 {
		t.Errorf("request = %+v", snap.Hexdump)
	}

	if errs := s.Submit("hexdump heap 64"); len(errs) != 0 {
		t.Fatalf("Submit errors: %v", errs)
	}
	if got := s.Snapshot().Hexdump.Length; got != 64 {
		t.Errorf("length = %d, want 64", got)
	}

	if errs := s.Submit("hexdump stack"); len(errs) == 0 {
		t.Error("stack hexdump accepted with no stack mapping")
	}
}

func TestSubmitExpandsTemplates(t *testing.T) {
	s, tr := newTestSession(t)
	_ = s.Submit("run")
	tr.feed(`*stopped,reason="breakpoint-hit"`)
	s.Poll()

	token := tr.tokenFor(t, "info proc mappings")
	tr.feed(
		`~"          Start Addr           End Addr       Size     Offset  Perms  objfile\n"`,
		`~"            0x600000           0x621000    0x21000        0x0  rw-p   [heap]\n"`,
		token+"^done",
	)
	s.Poll()

	_ = s.Submit("hexdump $PROSPECT_START_[heap] 64")
	snap := s.Snapshot()
	if snap.Hexdump == nil || snap.Hexdump.Addr != 0x600000 {
		t.Errorf("request = %+v", snap.Hexdump)
	}

	errs := s.Submit("break *$PROSPECT_START_nosuch")
	if len(errs) != 1 {
		t.Errorf("unresolved template errors = %v", errs)
	}
}

func TestSubmitFileRecordsTarget(t *testing.T) {
	s, tr := newTestSession(t)
	_ = s.Submit("file /bin/target")
	if got := s.Snapshot().TargetPath; got != "/bin/target" {
		t.Errorf("target = %q", got)
	}
	if tr.written[0] != "1-file-exec-and-symbols /bin/target" {
		t.Errorf("written = %v", tr.written)
	}
}

func TestPtrSizeOverrideSkipsProbe(t *testing.T) {
	tr := newFakeTransport()
	s := New(Config{Transport: tr, PtrSize: types.PtrSize32})
	_ = s.Submit("run")
	tr.feed(`*stopped,reason="breakpoint-hit"`)
	s.Poll()

	for _, line := range tr.written {
		if strings.Contains(line, "sizeof(long)") {
			t.Fatalf("probe sent despite override: %v", tr.written)
		}
	}
	if got := s.Snapshot().PtrSize; got != types.PtrSize32 {
		t.Errorf("ptr size = %v", got)
	}
}
