package session

import (
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
)

// segment is one contiguous run of target bytes delivered by a
// memory read reply.
type segment struct {
	start uint64
	data  []byte
}

// MemCache holds the target bytes observed so far. The protocol
// engine fills it from memory read replies; the classifier and the
// hexdump engine read from it. Reads that touch bytes the debugger
// has not delivered fail rather than fabricate zeroes.
//
// MemCache has its own lock so renderers can read it while the
// session applies the next reply.
type MemCache struct {
	mu       sync.RWMutex
	segments []segment
}

// ReadMemory serves n bytes at addr from cached segments.
func (c *MemCache) ReadMemory(addr uint64, n int) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.segments {
		if addr < s.start {
			continue
		}
		off := addr - s.start
		if off+uint64(n) <= uint64(len(s.data)) {
			out := make([]byte, n)
			copy(out, s.data[off:])
			return out, nil
		}
	}
	return nil, fmt.Errorf("memory %#x+%d not cached", addr, n)
}

// insert stores bytes at start, replacing any older segment the new
// one fully shadows. Refreshes reuse the same address and length, so
// shadowing covers the common case.
func (c *MemCache) insert(start uint64, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.segments[:0]
	for _, s := range c.segments {
		if s.start >= start && s.start+uint64(len(s.data)) <= start+uint64(len(data)) {
			continue
		}
		kept = append(kept, s)
	}
	c.segments = append(kept, segment{start: start, data: data})
	sort.Slice(c.segments, func(i, j int) bool {
		return c.segments[i].start < c.segments[j].start
	})
}

// clear drops everything, used when the inferior restarts.
func (c *MemCache) clear() {
	c.mu.Lock()
	c.segments = nil
	c.mu.Unlock()
}

func decodeContents(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("memory contents: %w", err)
	}
	return b, nil
}
