// Package memmap owns the target's memory-mapping table and the symbolic
// variable templates that resolve against it.
//
// The table is rebuilt wholesale from each `info proc mappings` console
// burst; it is never patched incrementally. Entries are kept sorted by
// start address and non-overlapping, which lets lookups binary-search.
package memmap

import (
	"sort"
	"strings"
)

// Mapping is one region of the target's virtual address space.
type Mapping struct {
	Start  uint64
	End    uint64
	Offset uint64
	// Perms is the permission string as reported, e.g. "r-xp". Empty for
	// old gdb versions that do not report permissions.
	Perms string
	// Path is the backing objfile or pseudo-path ("[heap]", "[stack]").
	// Empty for anonymous mappings.
	Path string
}

// Len returns the region length in bytes.
func (m Mapping) Len() uint64 { return m.End - m.Start }

// Contains reports whether addr falls inside the region.
func (m Mapping) Contains(addr uint64) bool { return addr >= m.Start && addr < m.End }

// IsHeap reports whether the region is the process heap.
func (m Mapping) IsHeap() bool { return strings.Contains(m.Path, "[heap]") }

// IsStack reports whether the region is the process stack.
func (m Mapping) IsStack() bool { return strings.Contains(m.Path, "[stack]") }

// IsExec reports whether the region is mapped executable.
func (m Mapping) IsExec() bool { return strings.Contains(m.Perms, "x") }

// Table is the mapping table: sorted by Start, non-overlapping.
type Table []Mapping

// BuildTable sorts ms by start address and drops entries that overlap a
// prior one, establishing the table invariant.
func BuildTable(ms []Mapping) Table {
	t := make(Table, len(ms))
	copy(t, ms)
	sort.Slice(t, func(i, j int) bool { return t[i].Start < t[j].Start })

	out := t[:0]
	var prevEnd uint64
	for _, m := range t {
		if m.End <= m.Start {
			continue
		}
		if len(out) > 0 && m.Start < prevEnd {
			continue
		}
		out = append(out, m)
		prevEnd = m.End
	}
	return out
}

// Find returns the mapping containing addr, if any.
func (t Table) Find(addr uint64) (Mapping, bool) {
	// First entry whose End exceeds addr; since entries are sorted and
	// non-overlapping it is the only candidate.
	i := sort.Search(len(t), func(i int) bool { return t[i].End > addr })
	if i < len(t) && t[i].Contains(addr) {
		return t[i], true
	}
	return Mapping{}, false
}

// FirstHeap returns the first heap mapping in table order.
func (t Table) FirstHeap() (Mapping, bool) {
	for _, m := range t {
		if m.IsHeap() {
			return m, true
		}
	}
	return Mapping{}, false
}

// FirstStack returns the first stack mapping in table order.
func (t Table) FirstStack() (Mapping, bool) {
	for _, m := range t {
		if m.IsStack() {
			return m, true
		}
	}
	return Mapping{}, false
}
