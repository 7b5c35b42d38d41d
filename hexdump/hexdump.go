// Package hexdump renders windows of target memory as classic
// addr/hex/ascii rows and searches regions for byte patterns.
package hexdump

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
)

// RowWidth is the number of bytes rendered per row.
const RowWidth = 16

// MemoryReader reads n bytes of target memory at addr.
type MemoryReader interface {
	ReadMemory(addr uint64, n int) ([]byte, error)
}

// Row is one rendered line of the dump.
type Row struct {
	Addr  uint64
	Bytes []byte
	// Hit flags the columns covered by the current search pattern.
	Hit [RowWidth]bool
}

// Ascii renders the printable projection of the row, '.' for
// everything outside the printable range.
func (r Row) Ascii() string {
	var b strings.Builder
	for _, c := range r.Bytes {
		if c >= 0x20 && c < 0x7f {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// View is a window over a contiguous region of target memory. Only
// the viewport is ever materialized; the region itself can be far
// larger than what is read per refresh.
type View struct {
	Base   uint64
	Length uint64

	// viewport, in bytes relative to Base, row aligned
	off    uint64
	height int

	pattern  []byte
	matches  []uint64
	matchIdx int
}

// New builds a view over [base, base+length) showing rows rows at a
// time, starting at the top of the region.
func New(base, length uint64, rows int) *View {
	if rows < 1 {
		rows = 1
	}
	return &View{Base: base, Length: length, height: rows, matchIdx: -1}
}

// Resize changes the viewport height in rows.
func (v *View) Resize(rows int) {
	if rows < 1 {
		rows = 1
	}
	v.height = rows
	v.clampViewport()
}

// Offset reports the viewport position in bytes relative to Base.
func (v *View) Offset() uint64 { return v.off }

// Scroll moves the viewport by delta rows, clamped to the region.
func (v *View) Scroll(delta int) {
	if delta >= 0 {
		v.off += uint64(delta) * RowWidth
	} else {
		dec := uint64(-delta) * RowWidth
		if dec > v.off {
			dec = v.off
		}
		v.off -= dec
	}
	v.clampViewport()
}

func (v *View) clampViewport() {
	span := uint64(v.height) * RowWidth
	if v.Length <= span {
		v.off = 0
		return
	}
	max := v.Length - span
	// round the last page down to a row boundary
	max -= max % RowWidth
	if v.off > max {
		v.off = max
	}
}

// Materialize reads exactly the viewport from mem and splits it into
// rows, flagging the columns covered by search matches. Nothing
// outside the viewport is read.
func (v *View) Materialize(mem MemoryReader) ([]Row, error) {
	span := uint64(v.height) * RowWidth
	if rem := v.Length - v.off; rem < span {
		span = rem
	}
	if span == 0 {
		return nil, nil
	}
	buf, err := mem.ReadMemory(v.Base+v.off, int(span))
	if err != nil {
		return nil, fmt.Errorf("hexdump: read %#x+%d: %w", v.Base+v.off, span, err)
	}
	var rows []Row
	for i := 0; i < len(buf); i += RowWidth {
		end := i + RowWidth
		if end > len(buf) {
			end = len(buf)
		}
		rows = append(rows, Row{
			Addr:  v.Base + v.off + uint64(i),
			Bytes: buf[i:end],
		})
	}
	v.markHits(rows)
	return rows, nil
}

func (v *View) markHits(rows []Row) {
	if len(v.pattern) == 0 {
		return
	}
	n := uint64(len(v.pattern))
	for _, m := range v.matches {
		for b := m; b < m+n; b++ {
			if b < v.off {
				continue
			}
			rel := b - v.off
			row := int(rel / RowWidth)
			if row >= len(rows) {
				break
			}
			rows[row].Hit[rel%RowWidth] = true
		}
	}
}

// Search scans [base, base+length) for pattern and returns every
// match offset relative to base, ascending. The region is read in
// chunks with pattern-sized overlap so matches spanning chunk
// boundaries are found exactly once. Cancelling ctx abandons the
// scan between chunks.
func Search(ctx context.Context, mem MemoryReader, base, length uint64, pattern []byte) ([]uint64, error) {
	if len(pattern) == 0 || uint64(len(pattern)) > length {
		return nil, nil
	}
	const chunk = 4096
	overlap := uint64(len(pattern) - 1)

	var offsets []uint64
	var off uint64
	for off < length {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := uint64(chunk)
		if rem := length - off; rem < n {
			n = rem
		}
		buf, err := mem.ReadMemory(base+off, int(n))
		if err != nil {
			return nil, fmt.Errorf("hexdump: search read %#x+%d: %w", base+off, n, err)
		}
		for i := indexBytes(buf, pattern, 0); i >= 0; i = indexBytes(buf, pattern, i+1) {
			// the overlap re-reads the tail of the previous chunk;
			// matches already reported there are skipped
			abs := off + uint64(i)
			if len(offsets) > 0 && offsets[len(offsets)-1] >= abs {
				continue
			}
			offsets = append(offsets, abs)
		}
		if off+n >= length {
			break
		}
		step := n - overlap
		if step == 0 {
			step = 1
		}
		off += step
	}
	return offsets, nil
}

func indexBytes(buf, pattern []byte, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i+len(pattern) <= len(buf); i++ {
		if string(buf[i:i+len(pattern)]) == string(pattern) {
			return i
		}
	}
	return -1
}

// SetMatches installs a completed search result. matchIdx resets so
// the next NextMatch lands on the first hit.
func (v *View) SetMatches(pattern []byte, offsets []uint64) {
	v.pattern = pattern
	v.matches = offsets
	v.matchIdx = -1
}

// ClearMatches drops the active pattern and its hits.
func (v *View) ClearMatches() {
	v.pattern = nil
	v.matches = nil
	v.matchIdx = -1
}

// Matches reports the active search hits, offsets relative to Base.
func (v *View) Matches() []uint64 { return v.matches }

// NextMatch advances to the following hit, wrapping, and scrolls the
// viewport so the hit is visible. It reports the selected offset.
func (v *View) NextMatch() (uint64, bool) {
	if len(v.matches) == 0 {
		return 0, false
	}
	v.matchIdx = (v.matchIdx + 1) % len(v.matches)
	m := v.matches[v.matchIdx]
	v.showOffset(m)
	return m, true
}

// PrevMatch steps back to the preceding hit, wrapping.
func (v *View) PrevMatch() (uint64, bool) {
	if len(v.matches) == 0 {
		return 0, false
	}
	if v.matchIdx <= 0 {
		v.matchIdx = len(v.matches)
	}
	v.matchIdx--
	m := v.matches[v.matchIdx]
	v.showOffset(m)
	return m, true
}

func (v *View) showOffset(m uint64) {
	span := uint64(v.height) * RowWidth
	if m >= v.off && m < v.off+span {
		return
	}
	v.off = m - m%RowWidth
	v.clampViewport()
}

// ParsePattern turns user input into search bytes. Input that reads
// as an even run of hex digits (0x prefix and spaces allowed) is
// decoded as bytes; anything else searches for the literal text.
func ParsePattern(s string) ([]byte, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, fmt.Errorf("hexdump: empty pattern")
	}
	compact := strings.ReplaceAll(strings.TrimPrefix(trimmed, "0x"), " ", "")
	if len(compact) > 0 && len(compact)%2 == 0 {
		if b, err := hex.DecodeString(compact); err == nil {
			return b, nil
		}
	}
	return []byte(trimmed), nil
}
