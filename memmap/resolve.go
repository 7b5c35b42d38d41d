package memmap

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Variable templates reference the mapping table from command text:
//
//	$PROSPECT_{START|END|LEN}_{index?}_{section}
//
// where section is matched as a substring of the mapping path (any
// printable characters, including spaces when the template ends the
// line) and index selects the nth match in table order (default 0).

// Template kind prefixes.
const (
	PrefixStart = "$PROSPECT_START_"
	PrefixEnd   = "$PROSPECT_END_"
	PrefixLen   = "$PROSPECT_LEN_"
)

var prefixes = []string{PrefixStart, PrefixEnd, PrefixLen}

// Resolution failures. Both are inline diagnostics, never fatal.
var (
	ErrNoMatch         = errors.New("no mapping matches section")
	ErrIndexOutOfRange = errors.New("mapping index out of range")
)

// Resolve evaluates a single variable template against the table
// snapshot. It is a pure function of the snapshot: same table, same
// template, same answer.
func (t Table) Resolve(template string) (uint64, error) {
	for _, prefix := range prefixes {
		if !strings.HasPrefix(template, prefix) {
			continue
		}
		index, section := splitIndex(template[len(prefix):])
		m, err := t.nthMatch(section, index)
		if err != nil {
			return 0, err
		}
		switch prefix {
		case PrefixStart:
			return m.Start, nil
		case PrefixEnd:
			return m.End, nil
		default:
			return m.Len(), nil
		}
	}
	return 0, fmt.Errorf("not a mapping template: %q", template)
}

// nthMatch filters mappings whose path contains section, preserving
// table order, and selects the match at index.
func (t Table) nthMatch(section string, index int) (Mapping, error) {
	n := 0
	for _, m := range t {
		if !strings.Contains(m.Path, section) {
			continue
		}
		if n == index {
			return m, nil
		}
		n++
	}
	if n == 0 {
		return Mapping{}, fmt.Errorf("%w: %q", ErrNoMatch, section)
	}
	return Mapping{}, fmt.Errorf("%w: %q has %d match(es), index %d", ErrIndexOutOfRange, section, n, index)
}

// splitIndex peels an optional leading `{digits}_` ordinal off the
// template remainder. A section that itself starts with digits must
// carry an explicit index to disambiguate.
func splitIndex(rest string) (int, string) {
	prefix, section, ok := strings.Cut(rest, "_")
	if !ok || prefix == "" {
		return 0, rest
	}
	index, err := strconv.Atoi(prefix)
	if err != nil || index < 0 {
		return 0, rest
	}
	return index, section
}

// ExpandLine rewrites every variable template inside a command line with
// its resolved hex address. Templates extend to the next space or the end
// of line, so sections may contain any printable character. Templates
// that fail to resolve are left in place and reported; expansion never
// aborts the command.
func (t Table) ExpandLine(line string) (string, []error) {
	var errs []error
	for _, prefix := range prefixes {
		for {
			start := strings.Index(line, prefix)
			if start < 0 {
				break
			}
			end := strings.IndexByte(line[start:], ' ')
			if end < 0 {
				end = len(line)
			} else {
				end += start
			}
			template := line[start:end]
			addr, err := t.Resolve(template)
			if err != nil {
				errs = append(errs, err)
				break
			}
			line = line[:start] + fmt.Sprintf("0x%08x", addr) + line[end:]
		}
	}
	return line, errs
}

// TemplateCandidates lists one template per kind and mapping path, used
// by tab completion. Candidates are deduplicated and sorted.
func (t Table) TemplateCandidates() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range t {
		if m.Path == "" {
			continue
		}
		for _, prefix := range prefixes {
			c := prefix + m.Path
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
