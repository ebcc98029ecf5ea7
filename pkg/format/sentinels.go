package format

import (
	"bytes"
	"fmt"
)

// SentinelSize is the length of every section sentinel.
const SentinelSize = 16

// Sentinel is a fixed 16-byte marker bracketing a section. The end marker of
// each pair is the bytewise complement of its start marker.
type Sentinel [SentinelSize]byte

var (
	HeaderVarsStart = Sentinel{0xCF, 0x7B, 0x1F, 0x23, 0xFD, 0xDE, 0x38, 0xA9, 0x5F, 0x7C, 0x68, 0xB8, 0x4E, 0x6D, 0x33, 0x5F}
	HeaderVarsEnd   = HeaderVarsStart.Complement()

	ClassesStart = Sentinel{0x8D, 0xA1, 0xC4, 0xB8, 0xC4, 0xA9, 0xF8, 0xC5, 0xC0, 0xDC, 0xF4, 0x5F, 0xE7, 0xCF, 0xB6, 0x8A}
	ClassesEnd   = ClassesStart.Complement()

	PreviewStart = Sentinel{0x1F, 0x25, 0x6D, 0x07, 0xD4, 0x36, 0x28, 0x28, 0x9D, 0x57, 0xCA, 0x3F, 0x9D, 0x44, 0x10, 0x2B}
	PreviewEnd   = PreviewStart.Complement()

	SecondHeaderStart = Sentinel{0xD4, 0x7B, 0x21, 0xCE, 0x28, 0x93, 0x9F, 0xBF, 0x53, 0x24, 0x40, 0x09, 0x12, 0x3C, 0xAA, 0x01}
	SecondHeaderEnd   = SecondHeaderStart.Complement()

	// FileHeaderEnd closes the flat layout's locator table.
	FileHeaderEnd = Sentinel{0x95, 0xA0, 0x4E, 0x28, 0x99, 0x82, 0x1A, 0xE5, 0x5E, 0x41, 0xE0, 0x5F, 0x9D, 0x3A, 0x4D, 0x00}
)

// Complement returns the bytewise complement of s.
func (s Sentinel) Complement() Sentinel {
	var out Sentinel
	for i, b := range s {
		out[i] = ^b
	}
	return out
}

// Bytes returns a copy of the marker.
func (s Sentinel) Bytes() []byte {
	out := make([]byte, SentinelSize)
	copy(out, s[:])
	return out
}

// Check compares got against s. A mismatch is always fatal.
func (s Sentinel) Check(section string, offset int64, got []byte) error {
	if len(got) < SentinelSize {
		return Corruption(section, offset, ErrTruncated)
	}
	if !bytes.Equal(s[:], got[:SentinelSize]) {
		return Corruption(section, offset, fmt.Errorf("%w: got % X", ErrSentinelMismatch, got[:SentinelSize]))
	}
	return nil
}
