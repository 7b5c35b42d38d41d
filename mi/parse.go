package mi

import (
	"fmt"
	"strings"
)

// Prompt is the ready marker gdb prints between outputs. It is not a
// record; callers should skip it before parsing.
const Prompt = "(gdb)"

// IsPrompt reports whether line is the gdb ready prompt.
func IsPrompt(line string) bool {
	return strings.TrimSpace(line) == Prompt
}

// ParseLine parses one framed MI line into a Record.
//
// Lines that do not carry a known sigil, or that violate the grammar,
// return a *ParseError. Callers are expected to recover by surfacing the
// raw line as a StreamRecord{Kind: StreamLog}.
func ParseLine(line string) (Record, error) {
	line = strings.TrimRight(line, "\r")
	p := &parser{s: line}

	tok, hasTok := p.token()
	if p.eof() {
		return nil, p.errf("empty record")
	}

	switch c := p.peek(); c {
	case '^':
		p.pos++
		class, fields, err := p.classAndFields()
		if err != nil {
			return nil, err
		}
		return ResultRecord{Token: tok, HasToken: hasTok, Class: class, Fields: fields}, nil
	case '*', '+', '=':
		p.pos++
		kind := AsyncExec
		if c == '+' {
			kind = AsyncStatus
		} else if c == '=' {
			kind = AsyncNotify
		}
		class, fields, err := p.classAndFields()
		if err != nil {
			return nil, err
		}
		return AsyncRecord{Token: tok, HasToken: hasTok, Kind: kind, Class: class, Fields: fields}, nil
	case '~', '@', '&':
		if hasTok {
			return nil, p.errf("stream record cannot carry a token")
		}
		p.pos++
		kind := StreamConsole
		if c == '@' {
			kind = StreamTarget
		} else if c == '&' {
			kind = StreamLog
		}
		text, err := p.cstring()
		if err != nil {
			return nil, err
		}
		return StreamRecord{Kind: kind, Text: text}, nil
	}
	return nil, p.errf("unknown sigil %q", p.peek())
}

type parser struct {
	s   string
	pos int
}

func (p *parser) eof() bool  { return p.pos >= len(p.s) }
func (p *parser) peek() byte { return p.s[p.pos] }

func (p *parser) errf(format string, args ...any) *ParseError {
	return &ParseError{Line: p.s, Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

// token consumes an optional leading decimal token.
func (p *parser) token() (uint64, bool) {
	start := p.pos
	var tok uint64
	for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
		tok = tok*10 + uint64(p.peek()-'0')
		p.pos++
	}
	return tok, p.pos > start
}

// classAndFields parses `class("," result)*`.
func (p *parser) classAndFields() (string, Fields, error) {
	start := p.pos
	for !p.eof() && p.peek() != ',' {
		p.pos++
	}
	class := p.s[start:p.pos]
	if class == "" {
		return "", nil, p.errf("missing record class")
	}

	var fields Fields
	for !p.eof() && p.peek() == ',' {
		p.pos++
		f, err := p.result()
		if err != nil {
			return "", nil, err
		}
		fields = append(fields, f)
	}
	if !p.eof() {
		return "", nil, p.errf("trailing data after fields")
	}
	return class, fields, nil
}

// result parses `name=value`.
func (p *parser) result() (Field, error) {
	start := p.pos
	for !p.eof() && p.peek() != '=' {
		p.pos++
	}
	if p.eof() {
		return Field{}, p.errf("missing '=' in result")
	}
	name := p.s[start:p.pos]
	p.pos++ // '='
	v, err := p.value()
	if err != nil {
		return Field{}, err
	}
	return Field{Name: name, Value: v}, nil
}

// value parses a const, tuple or list.
func (p *parser) value() (Value, error) {
	if p.eof() {
		return nil, p.errf("missing value")
	}
	switch p.peek() {
	case '"':
		s, err := p.cstring()
		if err != nil {
			return nil, err
		}
		return Scalar(s), nil
	case '{':
		return p.tuple()
	case '[':
		return p.list()
	}
	// Tolerate bare constants: some gdb builds emit unquoted values.
	start := p.pos
	for !p.eof() && p.peek() != ',' && p.peek() != '}' && p.peek() != ']' {
		p.pos++
	}
	return Scalar(p.s[start:p.pos]), nil
}

func (p *parser) tuple() (Value, error) {
	p.pos++ // '{'
	var t Tuple
	for {
		if p.eof() {
			return nil, p.errf("unterminated tuple")
		}
		if p.peek() == '}' {
			p.pos++
			return t, nil
		}
		f, err := p.result()
		if err != nil {
			return nil, err
		}
		t = append(t, f)
		if !p.eof() && p.peek() == ',' {
			p.pos++
		}
	}
}

func (p *parser) list() (Value, error) {
	p.pos++ // '['
	var l List
	for {
		if p.eof() {
			return nil, p.errf("unterminated list")
		}
		if p.peek() == ']' {
			p.pos++
			return l, nil
		}
		// List elements are either plain values or name=value results;
		// the latter are wrapped in a one-field tuple to keep the name.
		if p.peekResult() {
			f, err := p.result()
			if err != nil {
				return nil, err
			}
			l = append(l, Tuple{f})
		} else {
			v, err := p.value()
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		if !p.eof() && p.peek() == ',' {
			p.pos++
		}
	}
}

// peekResult reports whether the next list element looks like name=value.
func (p *parser) peekResult() bool {
	for i := p.pos; i < len(p.s); i++ {
		switch p.s[i] {
		case '=':
			return i > p.pos
		case ',', '"', '{', '[', ']', '}':
			return false
		}
	}
	return false
}

// cstring parses a double-quoted C-escaped string.
func (p *parser) cstring() (string, error) {
	if p.eof() || p.peek() != '"' {
		return "", p.errf("expected '\"'")
	}
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errf("unterminated string")
		}
		c := p.peek()
		p.pos++
		switch c {
		case '"':
			return b.String(), nil
		case '\\':
			if p.eof() {
				return "", p.errf("dangling escape")
			}
			e := p.peek()
			p.pos++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"', '\\', '\'':
				b.WriteByte(e)
			case '0', '1', '2', '3', '4', '5', '6', '7':
				// Up to three octal digits.
				v := int(e - '0')
				for n := 0; n < 2 && !p.eof() && p.peek() >= '0' && p.peek() <= '7'; n++ {
					v = v*8 + int(p.peek()-'0')
					p.pos++
				}
				b.WriteByte(byte(v))
			default:
				// Unknown escape: keep it verbatim.
				b.WriteByte('\\')
				b.WriteByte(e)
			}
		default:
			b.WriteByte(c)
		}
	}
}
