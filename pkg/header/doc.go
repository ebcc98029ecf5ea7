// Package header reads and writes the file header and section directory of
// every supported layout family.
//
// The flat layout (AC1012 to AC1015) stores a locator table of absolute
// section offsets. The paged layouts (AC1018 and AC1024 onward) split each
// section into masked, checksummed pages, optionally LZ77-compressed, and
// locate them through a page map and a section map reached from a metadata
// block masked with a fixed LCG stream. AC1021 stores that metadata block
// compressed, masked with a random seed and protected by Reed-Solomon parity.
//
// Readers never trust declared sizes: every length is bounds-checked against
// the input before use.
package header
