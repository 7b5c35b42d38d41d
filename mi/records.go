// Package mi implements the machine-interface wire codec spoken by gdb:
// line framing sigils, the recursive result grammar, and builders for the
// outbound commands the session issues.
//
// A line is one of three record kinds, discriminated by its leading sigil
// after an optional decimal token:
//
//	{token}^{class},{results}   result record (response to a sent command)
//	{token}*{class},{results}   exec async record
//	{token}+{class},{results}   status async record
//	{token}={class},{results}   notify async record
//	~"text" @"text" &"text"     console / target / log stream record
//
// Results are name=value pairs where value is recursively a C-escaped
// string constant, a {k=v,...} tuple, or an [a,b,...] list.
package mi

import "fmt"

// Record is a parsed MI line. The concrete types are ResultRecord,
// AsyncRecord and StreamRecord.
type Record interface {
	record()
}

// ResultRecord is a `^` record: the response to exactly one sent command,
// correlated by token.
type ResultRecord struct {
	// Token is the correlation token echoed from the command line.
	Token uint64
	// HasToken reports whether a token was present on the wire.
	HasToken bool
	// Class is the result class: done, running, connected, error, exit.
	Class string
	// Fields are the record's results, in wire order.
	Fields Fields
}

func (ResultRecord) record() {}

// AsyncKind discriminates the three async record streams.
type AsyncKind int

const (
	// AsyncExec reports target execution state changes (`*`).
	AsyncExec AsyncKind = iota
	// AsyncStatus reports progress of a slow operation (`+`).
	AsyncStatus
	// AsyncNotify reports debugger-side state changes (`=`).
	AsyncNotify
)

func (k AsyncKind) String() string {
	switch k {
	case AsyncExec:
		return "exec"
	case AsyncStatus:
		return "status"
	default:
		return "notify"
	}
}

// AsyncRecord is a `*`, `+` or `=` record: an unsolicited event.
type AsyncRecord struct {
	Token    uint64
	HasToken bool
	Kind     AsyncKind
	// Class is the event class, e.g. "stopped", "running",
	// "thread-group-exited".
	Class  string
	Fields Fields
}

func (AsyncRecord) record() {}

// StreamKind discriminates the three stream record channels.
type StreamKind int

const (
	// StreamConsole is gdb console output (`~`).
	StreamConsole StreamKind = iota
	// StreamTarget is target program output (`@`).
	StreamTarget
	// StreamLog is gdb internal log output (`&`). Malformed wire lines are
	// also surfaced on this channel so the operator keeps visibility.
	StreamLog
)

func (k StreamKind) String() string {
	switch k {
	case StreamConsole:
		return "console"
	case StreamTarget:
		return "target"
	default:
		return "log"
	}
}

// StreamRecord is a `~`, `@` or `&` record: free-form text output.
type StreamRecord struct {
	Kind StreamKind
	// Text is the unescaped payload.
	Text string
}

func (StreamRecord) record() {}

// Value is a node of the recursive MI value grammar. The concrete types
// are Scalar, List and Tuple.
type Value interface {
	value()
}

// Scalar is a string constant.
type Scalar string

func (Scalar) value() {}

// List is an ordered sequence of values. List elements that arrive as
// name=value results are wrapped in single-field tuples to preserve the
// name.
type List []Value

func (List) value() {}

// Tuple is an ordered mapping of names to values. Wire order is preserved;
// duplicate names keep their first occurrence on lookup.
type Tuple []Field

func (Tuple) value() {}

// Get returns the value for name.
func (t Tuple) Get(name string) (Value, bool) { return Fields(t).Get(name) }

// Str returns the scalar text for name, or "" when absent or non-scalar.
func (t Tuple) Str(name string) string { return Fields(t).Str(name) }

// Field is a single name=value result.
type Field struct {
	Name  string
	Value Value
}

// Fields is the ordered result list of a record.
type Fields []Field

// Get returns the value for name.
func (f Fields) Get(name string) (Value, bool) {
	for _, fl := range f {
		if fl.Name == name {
			return fl.Value, true
		}
	}
	return nil, false
}

// Str returns the scalar text for name, or "" when absent or non-scalar.
func (f Fields) Str(name string) string {
	v, ok := f.Get(name)
	if !ok {
		return ""
	}
	s, ok := v.(Scalar)
	if !ok {
		return ""
	}
	return string(s)
}

// ListOf returns the list value for name, or nil.
func (f Fields) ListOf(name string) List {
	v, ok := f.Get(name)
	if !ok {
		return nil
	}
	l, _ := v.(List)
	return l
}

// TupleOf returns the tuple value for name, or nil.
func (f Fields) TupleOf(name string) Tuple {
	v, ok := f.Get(name)
	if !ok {
		return nil
	}
	t, _ := v.(Tuple)
	return t
}

// ParseError reports a line that does not conform to the MI grammar.
// It is recoverable: the session surfaces the raw line as a log stream
// record and continues.
type ParseError struct {
	Line string
	Pos  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mi: parse error at %d: %s", e.Pos, e.Msg)
}
