// Package deref classifies target words against the memory mapping
// table and follows pointer chains through readable memory.
package deref

import (
	"github.com/justapithecus/prospect/memmap"
	"github.com/justapithecus/prospect/types"
)

// Class is the judgement for a single word: where it points, or what
// it contains when it does not point anywhere mapped.
type Class int

const (
	// ClassUnknown marks a word that is not an address in any mapping
	// and does not look like text either.
	ClassUnknown Class = iota
	ClassHeap
	ClassStack
	ClassCode
	// ClassString is a NUL-terminated run of printable bytes.
	ClassString
	// ClassAscii is a printable run with no terminator in the probe
	// window, typically packed character data rather than a C string.
	ClassAscii
)

func (c Class) String() string {
	switch c {
	case ClassHeap:
		return "heap"
	case ClassStack:
		return "stack"
	case ClassCode:
		return "code"
	case ClassString:
		return "string"
	case ClassAscii:
		return "ascii"
	default:
		return "unknown"
	}
}

// MemoryReader reads n bytes of target memory at addr. Reads are
// best-effort: a short or failed read ends the chain being walked,
// it is not an error of the walk itself.
type MemoryReader interface {
	ReadMemory(addr uint64, n int) ([]byte, error)
}

// MaxDepth bounds every pointer chain. Cycles and self-pointers are
// also cut as soon as they are detected, so a chain holds at most
// MaxDepth links even over circular structures.
const MaxDepth = 8

// probe parameters for text detection
const (
	probeLen = 64
	minRun   = 4
)

// Link is one step of a resolved chain: the address that was read and
// the classification of the value found there.
type Link struct {
	Addr  uint64
	Value uint64
	Class Class
	// Text carries the decoded bytes for string and ascii links.
	Text string
}

// Classifier resolves words against a mapping table snapshot. The
// zero value classifies everything as unknown.
type Classifier struct {
	Table    memmap.Table
	Mem      MemoryReader
	PtrSize  types.PtrSize
	Endian   types.Endian
	ExecPath string
}

// Classify judges a single word. Mapping containment wins over text
// probing: a pointer into the heap is a heap pointer even when the
// pointee happens to be printable.
func (c *Classifier) Classify(word uint64) (Class, string) {
	m, ok := c.Table.Find(word)
	if !ok {
		return ClassUnknown, ""
	}
	switch {
	case m.IsHeap():
		return ClassHeap, ""
	case m.IsStack():
		return ClassStack, ""
	case m.IsExec(), c.ExecPath != "" && m.Path == c.ExecPath:
		return ClassCode, ""
	}
	return c.probeText(word)
}

// probeText reads a bounded window at addr and decides whether it
// holds readable text.
func (c *Classifier) probeText(addr uint64) (Class, string) {
	if c.Mem == nil {
		return ClassUnknown, ""
	}
	buf, err := c.Mem.ReadMemory(addr, probeLen)
	if err != nil || len(buf) == 0 {
		return ClassUnknown, ""
	}
	run := 0
	for run < len(buf) && printable(buf[run]) {
		run++
	}
	if run < minRun {
		return ClassUnknown, ""
	}
	if run < len(buf) && buf[run] == 0 {
		return ClassString, string(buf[:run])
	}
	return ClassAscii, string(buf[:run])
}

func printable(b byte) bool {
	return b >= 0x20 && b < 0x7f
}

// Walk follows the pointer chain rooted at word. The first link is
// the classification of word itself; each further link dereferences
// the previous address. The walk stops at MaxDepth links, at the
// first unknown or textual value, at a failed read, and at a pointer
// that references an address already on the chain.
func (c *Classifier) Walk(word uint64) []Link {
	var chain []Link
	seen := make(map[uint64]struct{})
	cur := word
	for len(chain) < MaxDepth {
		class, text := c.Classify(cur)
		chain = append(chain, Link{Addr: cur, Class: class, Text: text})
		if class == ClassUnknown || class == ClassString || class == ClassAscii {
			break
		}
		if c.Mem == nil {
			break
		}
		if _, cycle := seen[cur]; cycle {
			break
		}
		seen[cur] = struct{}{}
		next, ok := c.readPointer(cur)
		if !ok {
			break
		}
		chain[len(chain)-1].Value = next
		if next == cur {
			break
		}
		if _, cycle := seen[next]; cycle {
			break
		}
		cur = next
	}
	return chain
}

func (c *Classifier) readPointer(addr uint64) (uint64, bool) {
	n := c.PtrSize.Bytes()
	buf, err := c.Mem.ReadMemory(addr, n)
	if err != nil || len(buf) < n {
		return 0, false
	}
	v, err := c.Endian.Pointer(buf[:n])
	if err != nil {
		return 0, false
	}
	return v, true
}
