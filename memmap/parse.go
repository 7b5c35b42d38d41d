package memmap

import (
	"errors"
	"strconv"
	"strings"
)

// There is no MI command for the memory map; it arrives as the console
// output of `info proc mappings`. The column layout differs between gdb
// versions: newer ones report a Perms column, old ones (seen on 7.12)
// do not.

// HasMappingHeader reports whether line is the column header of an
// `info proc mappings` table, and whether that layout carries a Perms
// column.
func HasMappingHeader(line string) (hasPerms, ok bool) {
	fields := strings.Fields(line)
	joined := strings.Join(fields, " ")
	if !strings.HasPrefix(joined, "Start Addr End Addr Size Offset") {
		return false, false
	}
	return strings.Contains(joined, "Perms"), true
}

// ParseConsole parses a collected `info proc mappings` console burst into
// mappings. Lines before the column header and lines that do not parse as
// mapping rows are skipped; ok is false when no header was seen.
func ParseConsole(text string) (ms []Mapping, ok bool) {
	hasPerms := false
	seenHeader := false
	for _, line := range strings.Split(text, "\n") {
		if !seenHeader {
			if hp, isHeader := HasMappingHeader(line); isHeader {
				hasPerms = hp
				seenHeader = true
			}
			continue
		}
		if m, err := parseRow(line, hasPerms); err == nil {
			ms = append(ms, m)
		}
	}
	return ms, seenHeader
}

// parseRow parses one mapping row:
//
//	0x555555554000 0x555555555000 0x1000 0x0 r--p /home/user/a.out
//
// The path may be absent (anonymous mapping) or contain spaces; everything
// after the fixed columns is joined back together.
func parseRow(line string, hasPerms bool) (Mapping, error) {
	parts := strings.Fields(line)
	if len(parts) < 4 {
		return Mapping{}, errShortRow
	}

	var m Mapping
	var err error
	if m.Start, err = parseHex(parts[0]); err != nil {
		return Mapping{}, err
	}
	if m.End, err = parseHex(parts[1]); err != nil {
		return Mapping{}, err
	}
	// parts[2] is the size column, redundant with End-Start.
	if _, err = parseHex(parts[2]); err != nil {
		return Mapping{}, err
	}
	if m.Offset, err = parseHex(parts[3]); err != nil {
		return Mapping{}, err
	}

	rest := parts[4:]
	if hasPerms {
		if len(rest) > 0 {
			m.Perms = rest[0]
			rest = rest[1:]
		}
	}
	m.Path = strings.Join(rest, " ")
	return m, nil
}

var errShortRow = errors.New("memmap: short mapping row")

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	return strconv.ParseUint(s, 16, 64)
}
