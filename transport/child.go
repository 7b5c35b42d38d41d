package transport

import (
	"fmt"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"

	"github.com/justapithecus/prospect/iox"
)

// Child drives a locally spawned gdb over its stdio pipes.
type Child struct {
	*stream
	cmd *exec.Cmd
}

// SpawnChild starts gdb in machine-interface mode. extra is appended
// to the command line verbatim (typically the target binary).
func SpawnChild(gdbPath string, extra ...string) (*Child, error) {
	if gdbPath == "" {
		gdbPath = "gdb"
	}
	args := append([]string{"--interpreter=mi2", "--quiet", "-nx"}, extra...)
	cmd := exec.Command(gdbPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("transport: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("transport: stdout pipe: %w", err)
	}
	// gdb mirrors diagnostics onto the log stream, stderr adds nothing
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		iox.DiscardClose(stdin)
		iox.DiscardClose(stdout)
		return nil, fmt.Errorf("transport: start %s: %w", gdbPath, err)
	}

	return &Child{
		stream: newStream(stdin, stdout),
		cmd:    cmd,
	}, nil
}

// Pid reports the debugger's process id.
func (c *Child) Pid() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// Interrupt delivers SIGINT to the debugger, which forwards the stop
// to the inferior. This matches pressing Ctrl-C in a plain gdb
// session.
func (c *Child) Interrupt() error {
	if c.cmd.Process == nil {
		return &Error{Kind: ErrorClosed, Msg: "interrupt: process not running"}
	}
	if err := unix.Kill(c.cmd.Process.Pid, unix.SIGINT); err != nil {
		return &Error{Kind: ErrorIO, Msg: "interrupt", Err: err}
	}
	return nil
}

// Close shuts the debugger down: a polite quit over stdin, then
// SIGKILL if the process lingers.
func (c *Child) Close() error {
	_ = c.WriteLine("-gdb-exit")

	waited := make(chan error, 1)
	go func() { waited <- c.cmd.Wait() }()

	select {
	case err := <-waited:
		return err
	case <-time.After(2 * time.Second):
	}

	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	return <-waited
}
