// Package types holds shared leaf types used across prospect packages.
// It has no internal dependencies.
package types

import (
	"encoding/binary"
	"fmt"
)

// PtrSize is the pointer width of the target being debugged.
//
// Auto means the width has not been determined yet; the session probes it
// on the first stop (sizeof(long) via the debugger) and fixes the value for
// the rest of the session.
type PtrSize int

const (
	PtrSizeAuto PtrSize = iota
	PtrSize32
	PtrSize64
)

// Bytes returns the pointer width in bytes. Auto is treated as 64-bit
// until the probe resolves it.
func (p PtrSize) Bytes() int {
	if p == PtrSize32 {
		return 4
	}
	return 8
}

func (p PtrSize) String() string {
	switch p {
	case PtrSize32:
		return "32"
	case PtrSize64:
		return "64"
	default:
		return "auto"
	}
}

// ParsePtrSize parses a --ptr-size flag or config value.
func ParsePtrSize(s string) (PtrSize, error) {
	switch s {
	case "32":
		return PtrSize32, nil
	case "64":
		return PtrSize64, nil
	case "", "auto":
		return PtrSizeAuto, nil
	}
	return PtrSizeAuto, fmt.Errorf("invalid pointer size %q (want 32, 64 or auto)", s)
}

// Endian is the byte order of the target being debugged.
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

func (e Endian) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}

// Pointer decodes a pointer-sized value from b using this byte order.
// b must be 4 or 8 bytes long.
func (e Endian) Pointer(b []byte) (uint64, error) {
	switch len(b) {
	case 4:
		if e == BigEndian {
			return uint64(binary.BigEndian.Uint32(b)), nil
		}
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case 8:
		if e == BigEndian {
			return binary.BigEndian.Uint64(b), nil
		}
		return binary.LittleEndian.Uint64(b), nil
	}
	return 0, fmt.Errorf("pointer decode: want 4 or 8 bytes, got %d", len(b))
}
