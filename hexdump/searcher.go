package hexdump

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/justapithecus/prospect/iox"
)

// Result is the outcome of one background search.
type Result struct {
	Pattern []byte
	Offsets []uint64
	Err     error
}

// Searcher runs at most one search at a time. Starting a new search
// cancels the one in flight, and only the newest search may deliver
// a result: stale completions are dropped.
type Searcher struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	gen     uint64
	results chan Result
}

func NewSearcher() *Searcher {
	return &Searcher{results: make(chan Result, 1)}
}

// Results delivers completed searches. The channel holds at most the
// newest result.
func (s *Searcher) Results() <-chan Result { return s.results }

// Start begins a search over [base, base+length), cancelling any
// search still in flight.
func (s *Searcher) Start(mem MemoryReader, base, length uint64, pattern []byte) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	go func() {
		offsets, err := Search(ctx, mem, base, length, pattern)
		cancel()
		s.deliver(gen, Result{Pattern: pattern, Offsets: offsets, Err: err})
	}()
}

func (s *Searcher) deliver(gen uint64, r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	if errors.Is(r.Err, context.Canceled) {
		return
	}
	// replace a result no one consumed yet
	select {
	case <-s.results:
	default:
	}
	s.results <- r
}

// Stop cancels any search in flight.
func (s *Searcher) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

// Save writes [base, base+length) of target memory to path as raw
// bytes. A leading ~/ expands to the user's home directory.
func Save(path string, mem MemoryReader, base, length uint64) error {
	expanded, err := ExpandHome(path)
	if err != nil {
		return err
	}
	f, err := os.Create(expanded)
	if err != nil {
		return fmt.Errorf("hexdump: save: %w", err)
	}
	defer iox.DiscardClose(f)

	w := bufio.NewWriter(f)
	const chunk = 4096
	for off := uint64(0); off < length; {
		n := uint64(chunk)
		if rem := length - off; rem < n {
			n = rem
		}
		buf, err := mem.ReadMemory(base+off, int(n))
		if err != nil {
			return fmt.Errorf("hexdump: save read %#x+%d: %w", base+off, n, err)
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("hexdump: save: %w", err)
		}
		off += n
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("hexdump: save: %w", err)
	}
	return nil
}

// ExpandHome rewrites a leading ~/ to the current user's home
// directory. Other paths pass through untouched.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("hexdump: expand %q: %w", path, err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
