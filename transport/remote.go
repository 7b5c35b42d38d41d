package transport

import (
	"fmt"
	"net"
	"time"

	"github.com/justapithecus/prospect/mi"
)

// Remote drives a gdb reached over TCP, e.g. one started with
// `gdbserver` glue that exposes the MI console on a socket.
type Remote struct {
	*stream
	conn net.Conn
}

// DialRemote connects to a debugger listening at addr (host:port).
func DialRemote(addr string) (*Remote, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return &Remote{
		stream: newStream(conn, conn),
		conn:   conn,
	}, nil
}

// Interrupt asks the remote debugger to stop the target. There is no
// process to signal across the wire, so the stop request travels in
// band; it carries no token because gdb accepts it while a run
// command is still outstanding.
func (r *Remote) Interrupt() error {
	return r.WriteLine(mi.ExecInterrupt())
}

// Close drops the connection. The pump drains and reports closed.
func (r *Remote) Close() error {
	return r.conn.Close()
}
