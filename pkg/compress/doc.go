// Package compress implements the LZ77 variant used for paged section data.
//
// # Stream Format
//
// A stream is a sequence of opcodes ending with 0x11:
//
//	0x00-0x0F  literal run; length = nibble + 3, nibble 0 means extended
//	0x10-0x1F  long copy, displacement 0x4000-0xBFFF, two offset bytes follow
//	0x20-0x3F  medium copy, displacement up to 0x4000, two offset bytes follow
//	0x40-0xFF  short copy, length (op>>4)-1, displacement up to 0x400, one byte follows
//
// Extended lengths are a run of zero bytes worth 0xFF each followed by a
// non-zero byte. The low two bits of the last byte of a copy opcode carry a
// literal run of one to three bytes; zero means the next opcode decides.
//
// Copies may overlap their own output, so a displacement of 1 repeats a byte.
//
// Decompress requires the exact decompressed size and treats any over- or
// under-run as corruption.
package compress
