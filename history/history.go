// Package history keeps the append-only command log and prefix
// completion used by the command line.
package history

import (
	"sort"
	"strings"
)

// Entry is one submitted command. Ordinals are assigned in submission
// order, starting at 1.
type Entry struct {
	Text    string
	Ordinal int
}

// History records submitted commands and supports shell-style recall.
// The zero value is ready to use.
type History struct {
	entries []Entry
	// recall cursor: len(entries) means "past the end", i.e. the
	// in-progress line
	cursor int
	fresh  bool
}

// Append records a submitted command verbatim. Even commands the
// debugger rejected are kept: they still have diagnostic value when
// reading the log back. Appending resets any recall in progress.
func (h *History) Append(text string) {
	h.entries = append(h.entries, Entry{Text: text, Ordinal: len(h.entries) + 1})
	h.ResetRecall()
}

// Len reports the number of recorded entries.
func (h *History) Len() int { return len(h.entries) }

// Last reports the newest entry.
func (h *History) Last() (Entry, bool) {
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Entries returns a copy of the log, oldest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Prev steps the recall cursor toward older entries. The first call
// after a reset yields the newest entry. Prev at the oldest entry
// stays there.
func (h *History) Prev() (Entry, bool) {
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	if !h.fresh {
		h.cursor = len(h.entries)
		h.fresh = true
	}
	if h.cursor > 0 {
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next steps the recall cursor toward newer entries. Stepping past
// the newest entry ends the recall and reports false, returning the
// caller to the in-progress line.
func (h *History) Next() (Entry, bool) {
	if !h.fresh || h.cursor >= len(h.entries) {
		return Entry{}, false
	}
	h.cursor++
	if h.cursor == len(h.entries) {
		h.ResetRecall()
		return Entry{}, false
	}
	return h.entries[h.cursor], true
}

// ResetRecall abandons any recall in progress.
func (h *History) ResetRecall() {
	h.cursor = len(h.entries)
	h.fresh = false
}

// CompletionKind classifies a completion attempt.
type CompletionKind int

const (
	// CompletionNone means nothing known starts with the prefix.
	CompletionNone CompletionKind = iota
	// CompletionUnique means exactly one candidate matched.
	CompletionUnique
	// CompletionAmbiguous means several candidates share the prefix.
	CompletionAmbiguous
)

// Completion is the outcome of completing a prefix. Candidates are
// sorted lexically; for a unique match it holds the single expansion.
type Completion struct {
	Kind       CompletionKind
	Candidates []string
}

// Complete matches prefix against the known command set. The empty
// prefix completes to every known command.
func Complete(prefix string, known []string) Completion {
	var cands []string
	for _, k := range known {
		if strings.HasPrefix(k, prefix) {
			cands = append(cands, k)
		}
	}
	if len(cands) == 0 {
		return Completion{Kind: CompletionNone}
	}
	sort.Strings(cands)
	cands = dedup(cands)
	kind := CompletionAmbiguous
	if len(cands) == 1 {
		kind = CompletionUnique
	}
	return Completion{Kind: kind, Candidates: cands}
}

func dedup(sorted []string) []string {
	out := sorted[:1]
	for _, s := range sorted[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
