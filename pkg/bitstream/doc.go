// Package bitstream reads and writes the bit-packed primitives of object
// records and the header-variables section.
//
// Values are packed most significant bit first. Raw multi-byte values are
// little-endian regardless of bit alignment.
//
//	B    1 bit
//	BB   2 bits
//	BS   bitshort: 00 RS, 01 RC, 10 zero, 11 256
//	BL   bitlong: 00 RL, 01 RC, 10 zero
//	BLL  3-bit byte count + bytes
//	BD   bitdouble: 00 RD, 01 1.0, 10 0.0
//	DD   double patched over a default
//	MC   modular char, 7 bits per byte, sign in bit 6 of the last byte
//	MS   modular short, 15 bits per word
//	H    handle: code<<4|count, then count big-endian bytes
//	T    BS length + text
//	BE   extrusion, single bit for the Z axis from R2000
//	BT   thickness, single bit for zero from R2000
//	CMC  color
//	OT   object type, from R2010
//
// Reader errors are sticky; check Err once after a group of reads.
package bitstream
