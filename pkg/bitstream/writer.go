package bitstream

import (
	"encoding/binary"
	"math"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"

	"github.com/ssargent/dwgkit/pkg/format"
)

// Writer encodes bit-packed values, most significant bit first.
type Writer struct {
	buf     []byte
	pos     int // in bits
	version format.Version
	cp      *charmap.Charmap
}

// NewWriter writes values using the encodings of version.
func NewWriter(version format.Version) *Writer {
	return &Writer{version: version, cp: charmap.Windows1252}
}

// SetCodePage selects the charmap for single-byte text.
func (w *Writer) SetCodePage(cp *charmap.Charmap) {
	if cp != nil {
		w.cp = cp
	}
}

// Version returns the format version the writer encodes.
func (w *Writer) Version() format.Version { return w.version }

// Position returns the number of bits written.
func (w *Writer) Position() int { return w.pos }

// Bytes returns the written data; a trailing partial byte is zero padded.
func (w *Writer) Bytes() []byte { return w.buf }

// AlignByte pads with zero bits to the next byte boundary.
func (w *Writer) AlignByte() {
	if rem := w.pos % 8; rem != 0 {
		w.pos += 8 - rem
	}
}

// Bits writes the low n bits of v.
func (w *Writer) Bits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		if w.pos>>3 >= len(w.buf) {
			w.buf = append(w.buf, 0)
		}
		if v>>uint(i)&1 != 0 {
			w.buf[w.pos>>3] |= 0x80 >> uint(w.pos&7)
		}
		w.pos++
	}
}

// Bit writes B.
func (w *Writer) Bit(b bool) {
	if b {
		w.Bits(1, 1)
	} else {
		w.Bits(0, 1)
	}
}

// TwoBits writes BB.
func (w *Writer) TwoBits(v byte) { w.Bits(uint64(v), 2) }

// ThreeBits writes 3B.
func (w *Writer) ThreeBits(v byte) { w.Bits(uint64(v), 3) }

// RawChar writes RC.
func (w *Writer) RawChar(b byte) {
	if w.pos&7 == 0 {
		w.buf = append(w.buf[:w.pos>>3], b)
		w.pos += 8
		return
	}
	w.Bits(uint64(b), 8)
}

// RawBytes writes p verbatim.
func (w *Writer) RawBytes(p []byte) {
	if w.pos&7 == 0 {
		w.buf = append(w.buf[:w.pos>>3], p...)
		w.pos += len(p) * 8
		return
	}
	for _, b := range p {
		w.Bits(uint64(b), 8)
	}
}

// AppendBits copies the first n bits of src.
func (w *Writer) AppendBits(src []byte, n int) {
	for i := 0; i < n; i++ {
		w.Bits(uint64(src[i>>3]>>(7-uint(i&7))&1), 1)
	}
}

// RawShort writes RS.
func (w *Writer) RawShort(v int16) { w.RawUShort(uint16(v)) }

// RawUShort writes RS from an unsigned value.
func (w *Writer) RawUShort(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.RawBytes(b[:])
}

// RawLong writes RL.
func (w *Writer) RawLong(v int32) { w.RawULong(uint32(v)) }

// RawULong writes RL from an unsigned value.
func (w *Writer) RawULong(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.RawBytes(b[:])
}

// PatchRawLong overwrites the 32 bits starting at bit position at.
func (w *Writer) PatchRawLong(at int, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	saved := w.pos
	w.pos = at
	for _, x := range b {
		for i := 7; i >= 0; i-- {
			mask := byte(0x80) >> uint(w.pos&7)
			if x>>uint(i)&1 != 0 {
				w.buf[w.pos>>3] |= mask
			} else {
				w.buf[w.pos>>3] &^= mask
			}
			w.pos++
		}
	}
	w.pos = saved
}

// RawDouble writes RD.
func (w *Writer) RawDouble(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	w.RawBytes(b[:])
}

// BitShort writes BS using the shortest form.
func (w *Writer) BitShort(v int16) {
	switch {
	case v == 0:
		w.TwoBits(2)
	case v == 256:
		w.TwoBits(3)
	case v > 0 && v < 256:
		w.TwoBits(1)
		w.RawChar(byte(v))
	default:
		w.TwoBits(0)
		w.RawShort(v)
	}
}

// BitLong writes BL using the shortest form.
func (w *Writer) BitLong(v int32) {
	switch {
	case v == 0:
		w.TwoBits(2)
	case v > 0 && v < 256:
		w.TwoBits(1)
		w.RawChar(byte(v))
	default:
		w.TwoBits(0)
		w.RawLong(v)
	}
}

// BitLongLong writes BLL.
func (w *Writer) BitLongLong(v uint64) {
	n := 0
	for x := v; x != 0; x >>= 8 {
		n++
	}
	w.ThreeBits(byte(n))
	for i := 0; i < n; i++ {
		w.RawChar(byte(v >> (8 * uint(i))))
	}
}

// BitDouble writes BD.
func (w *Writer) BitDouble(v float64) {
	switch {
	case v == 1.0:
		w.TwoBits(1)
	case v == 0 && !math.Signbit(v):
		w.TwoBits(2)
	default:
		w.TwoBits(0)
		w.RawDouble(v)
	}
}

// DefaultDouble writes DD as the smallest patch over def.
func (w *Writer) DefaultDouble(def, v float64) {
	var d, x [8]byte
	binary.LittleEndian.PutUint64(d[:], math.Float64bits(def))
	binary.LittleEndian.PutUint64(x[:], math.Float64bits(v))
	switch {
	case d == x:
		w.TwoBits(0)
	case d[4] == x[4] && d[5] == x[5] && d[6] == x[6] && d[7] == x[7]:
		w.TwoBits(1)
		w.RawBytes(x[0:4])
	case d[6] == x[6] && d[7] == x[7]:
		w.TwoBits(2)
		w.RawBytes(x[4:6])
		w.RawBytes(x[0:4])
	default:
		w.TwoBits(3)
		w.RawDouble(v)
	}
}

// ModularChar writes a signed MC.
func (w *Writer) ModularChar(v int64) {
	neg := v < 0
	u := uint64(v)
	if neg {
		u = uint64(-v)
	}
	for u >= 0x40 {
		w.RawChar(byte(u&0x7F) | 0x80)
		u >>= 7
	}
	b := byte(u)
	if neg {
		b |= 0x40
	}
	w.RawChar(b)
}

// UModularChar writes an unsigned MC.
func (w *Writer) UModularChar(v uint64) {
	for v >= 0x80 {
		w.RawChar(byte(v&0x7F) | 0x80)
		v >>= 7
	}
	w.RawChar(byte(v))
}

// ModularShort writes an unsigned MS.
func (w *Writer) ModularShort(v uint64) {
	for v >= 0x8000 {
		w.RawUShort(uint16(v&0x7FFF) | 0x8000)
		v >>= 15
	}
	w.RawUShort(uint16(v))
}

// Handle writes H with the minimum number of value bytes.
func (w *Writer) Handle(ref HandleRef) {
	n := 0
	for x := ref.Value; x != 0; x >>= 8 {
		n++
	}
	w.RawChar(ref.Code<<4 | byte(n))
	for i := n - 1; i >= 0; i-- {
		w.RawChar(byte(ref.Value >> (8 * uint(i))))
	}
}

// Text writes T.
func (w *Writer) Text(s string) {
	if w.version.AtLeast(format.AC1021) {
		units := utf16.Encode([]rune(s))
		w.BitShort(int16(len(units)))
		for _, u := range units {
			w.RawUShort(u)
		}
		return
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := w.cp.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	w.BitShort(int16(len(out)))
	w.RawBytes(out)
}

// Point2Raw writes 2RD.
func (w *Writer) Point2Raw(p Vec2) {
	w.RawDouble(p.X)
	w.RawDouble(p.Y)
}

// Point2Bit writes 2BD.
func (w *Writer) Point2Bit(p Vec2) {
	w.BitDouble(p.X)
	w.BitDouble(p.Y)
}

// Point2Default writes 2DD relative to def.
func (w *Writer) Point2Default(def, p Vec2) {
	w.DefaultDouble(def.X, p.X)
	w.DefaultDouble(def.Y, p.Y)
}

// Point3Bit writes 3BD.
func (w *Writer) Point3Bit(p Vec3) {
	w.BitDouble(p.X)
	w.BitDouble(p.Y)
	w.BitDouble(p.Z)
}

// Point3Raw writes 3RD.
func (w *Writer) Point3Raw(p Vec3) {
	w.RawDouble(p.X)
	w.RawDouble(p.Y)
	w.RawDouble(p.Z)
}

// Extrusion writes BE.
func (w *Writer) Extrusion(v Vec3) {
	if w.version.Before(format.AC1015) {
		w.Point3Bit(v)
		return
	}
	if v == ZAxis {
		w.Bit(true)
		return
	}
	w.Bit(false)
	w.Point3Bit(v)
}

// Thickness writes BT.
func (w *Writer) Thickness(v float64) {
	if w.version.Before(format.AC1015) {
		w.BitDouble(v)
		return
	}
	if v == 0 {
		w.Bit(true)
		return
	}
	w.Bit(false)
	w.BitDouble(v)
}

// Color writes CMC. Color and book names are not written.
func (w *Writer) Color(c Color) {
	w.BitShort(c.Index)
	if w.version.AtLeast(format.AC1018) {
		w.BitLong(int32(c.RGB))
		w.RawChar(0)
	}
}

// ObjectType writes the type code: OT from R2010, BS before.
func (w *Writer) ObjectType(t uint16) {
	if w.version.Before(format.AC1024) {
		w.BitShort(int16(t))
		return
	}
	switch {
	case t < 0x100:
		w.TwoBits(0)
		w.RawChar(byte(t))
	case t >= 0x1F0 && t < 0x2F0:
		w.TwoBits(1)
		w.RawChar(byte(t - 0x1F0))
	default:
		w.TwoBits(2)
		w.RawUShort(t)
	}
}
