package hexdump

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// regionMem serves reads from a single backing slice rooted at base,
// recording every read it serves.
type regionMem struct {
	base  uint64
	data  []byte
	reads []int
}

func (m *regionMem) ReadMemory(addr uint64, n int) ([]byte, error) {
	if addr < m.base || addr+uint64(n) > m.base+uint64(len(m.data)) {
		return nil, errors.New("read outside region")
	}
	m.reads = append(m.reads, n)
	off := addr - m.base
	return m.data[off : off+uint64(n)], nil
}

func testRegion() *regionMem {
	data := make([]byte, 0x100)
	for i := range data {
		data[i] = byte(i)
	}
	copy(data[0x10:], []byte("NEEDLE"))
	copy(data[0x40:], []byte("NEEDLE"))
	return &regionMem{base: 0x600000, data: data}
}

func TestMaterializeViewportOnly(t *testing.T) {
	mem := testRegion()
	v := New(0x600000, 0x100, 4)

	rows, err := v.Materialize(mem)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if len(mem.reads) != 1 || mem.reads[0] != 4*RowWidth {
		t.Errorf("reads = %v, want one read of %d bytes", mem.reads, 4*RowWidth)
	}
	if rows[0].Addr != 0x600000 || rows[3].Addr != 0x600030 {
		t.Errorf("row addrs = %#x..%#x", rows[0].Addr, rows[3].Addr)
	}
	if rows[1].Bytes[0] != 0x4e { // 'N' of NEEDLE at offset 0x10
		t.Errorf("rows[1][0] = %#x", rows[1].Bytes[0])
	}
}

func TestMaterializeShortTail(t *testing.T) {
	mem := &regionMem{base: 0x600000, data: make([]byte, 24)}
	v := New(0x600000, 24, 4)

	rows, err := v.Materialize(mem)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if len(rows[1].Bytes) != 8 {
		t.Errorf("tail row has %d bytes, want 8", len(rows[1].Bytes))
	}
}

func TestScrollClamps(t *testing.T) {
	v := New(0x600000, 0x100, 4)
	v.Scroll(-10)
	if v.Offset() != 0 {
		t.Errorf("scrolled above region: off=%#x", v.Offset())
	}
	v.Scroll(1000)
	want := uint64(0x100 - 4*RowWidth)
	if v.Offset() != want {
		t.Errorf("off = %#x, want %#x", v.Offset(), want)
	}
}

func TestSearchOffsets(t *testing.T) {
	mem := testRegion()
	got, err := Search(context.Background(), mem, 0x600000, 0x100, []byte("NEEDLE"))
	if err != nil {
		t.Fatal(err)
	}
	want := []uint64{0x10, 0x40}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("offsets = %#v, want %#v", got, want)
	}
}

func TestSearchAcrossChunkBoundary(t *testing.T) {
	data := make([]byte, 3*4096)
	copy(data[4093:], []byte("NEEDLE")) // spans the first chunk edge
	copy(data[8000:], []byte("NEEDLE"))
	mem := &regionMem{base: 0x10000, data: data}

	got, err := Search(context.Background(), mem, 0x10000, uint64(len(data)), []byte("NEEDLE"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != 4093 || got[1] != 8000 {
		t.Errorf("offsets = %#v", got)
	}
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Search(ctx, testRegion(), 0x600000, 0x100, []byte("NEEDLE"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSearchDegeneratePatterns(t *testing.T) {
	mem := testRegion()
	if got, _ := Search(context.Background(), mem, 0x600000, 0x100, nil); got != nil {
		t.Errorf("empty pattern matched: %#v", got)
	}
	long := make([]byte, 0x200)
	if got, _ := Search(context.Background(), mem, 0x600000, 0x100, long); got != nil {
		t.Errorf("oversized pattern matched: %#v", got)
	}
}

func TestMatchNavigation(t *testing.T) {
	v := New(0x600000, 0x100, 2)
	v.SetMatches([]byte("NEEDLE"), []uint64{0x10, 0x40})

	m, ok := v.NextMatch()
	if !ok || m != 0x10 {
		t.Fatalf("first NextMatch = %#x, %v", m, ok)
	}
	m, _ = v.NextMatch()
	if m != 0x40 {
		t.Fatalf("second NextMatch = %#x", m)
	}
	if off := v.Offset(); off != 0x40 {
		t.Errorf("viewport did not recenter: off=%#x", off)
	}
	m, _ = v.NextMatch() // wraps
	if m != 0x10 {
		t.Errorf("wrap NextMatch = %#x", m)
	}
	m, _ = v.PrevMatch() // wraps backward
	if m != 0x40 {
		t.Errorf("wrap PrevMatch = %#x", m)
	}

	empty := New(0, 0x100, 2)
	if _, ok := empty.NextMatch(); ok {
		t.Error("NextMatch succeeded with no matches")
	}
}

func TestMaterializeMarksHits(t *testing.T) {
	mem := testRegion()
	v := New(0x600000, 0x100, 4)
	v.SetMatches([]byte("NEEDLE"), []uint64{0x10, 0x40})

	rows, err := v.Materialize(mem)
	if err != nil {
		t.Fatal(err)
	}
	for col := 0; col < 6; col++ {
		if !rows[1].Hit[col] {
			t.Errorf("row 1 col %d not flagged", col)
		}
	}
	if rows[1].Hit[6] {
		t.Error("column past the match flagged")
	}
	if rows[0].Hit[0] {
		t.Error("unmatched row flagged")
	}
}

func TestSearcherLastWriterWins(t *testing.T) {
	mem := testRegion()
	s := NewSearcher()
	s.Start(mem, 0x600000, 0x100, []byte("nohit1"))
	s.Start(mem, 0x600000, 0x100, []byte("NEEDLE"))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-s.Results():
			if bytes.Equal(r.Pattern, []byte("NEEDLE")) {
				if r.Err != nil || len(r.Offsets) != 2 {
					t.Fatalf("result = %+v", r)
				}
				return
			}
			// a stale result slipped ahead of the cancel; keep waiting
		case <-deadline:
			t.Fatal("no result from newest search")
		}
	}
}

func TestRowAscii(t *testing.T) {
	r := Row{Bytes: []byte{'h', 'i', 0x00, 0x7f, '!'}}
	if got := r.Ascii(); got != "hi..!" {
		t.Errorf("Ascii() = %q", got)
	}
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"deadbeef", []byte{0xde, 0xad, 0xbe, 0xef}},
		{"0xde ad", []byte{0xde, 0xad}},
		{"NEEDLE", []byte("NEEDLE")},
		{"abc", []byte("abc")}, // odd digit count stays literal
	}
	for _, tt := range tests {
		got, err := ParsePattern(tt.in)
		if err != nil {
			t.Errorf("ParsePattern(%q): %v", tt.in, err)
			continue
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("ParsePattern(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
	if _, err := ParsePattern("  "); err == nil {
		t.Error("blank pattern accepted")
	}
}

func TestSaveWritesRegion(t *testing.T) {
	mem := testRegion()
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.bin")

	if err := Save(path, mem, 0x600000, 0x100); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, mem.data) {
		t.Errorf("saved %d bytes, differs from region", len(got))
	}
}

func TestSaveExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if err := Save("~/dump.bin", testRegion(), 0x600000, 0x20); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(home, "dump.bin")); err != nil {
		t.Errorf("file not created under home: %v", err)
	}
}
