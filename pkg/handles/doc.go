// Package handles encodes the handle index that maps every object handle to
// the offset of its record.
//
// The index is a run of buckets, each framed as
//
//	[u16 BE payload length][entries...][u16 BE CRC8 of length and entries]
//
// The first entry of the stream is stored relative to zero and every later
// entry as the delta to its predecessor. A handle delta is a length marker
// (1..8) followed by that many big-endian bytes. An offset delta is a marker
// whose low nibble gives the byte count (0 when unchanged) and whose 0x80 bit
// makes the delta negative. A zero-length bucket ends the stream.
package handles
