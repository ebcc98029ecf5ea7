package bitstream

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"

	"github.com/ssargent/dwgkit/pkg/format"
)

// Reader decodes bit-packed values from a byte slice, most significant bit
// first. The first error is sticky: later reads return zero values and Err
// reports it.
type Reader struct {
	buf     []byte
	pos     int // in bits
	version format.Version
	cp      *charmap.Charmap
	err     error
}

// NewReader reads buf using the encodings of version.
func NewReader(buf []byte, version format.Version) *Reader {
	return &Reader{buf: buf, version: version, cp: charmap.Windows1252}
}

// SetCodePage selects the charmap for single-byte text.
func (r *Reader) SetCodePage(cp *charmap.Charmap) {
	if cp != nil {
		r.cp = cp
	}
}

// Version returns the format version the reader decodes.
func (r *Reader) Version() format.Version { return r.version }

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Position returns the current position in bits.
func (r *Reader) Position() int { return r.pos }

// SetPosition moves to an absolute bit position.
func (r *Reader) SetPosition(bits int) {
	if bits < 0 || bits > len(r.buf)*8 {
		r.fail(fmt.Errorf("%w: seek to bit %d of %d", format.ErrTruncated, bits, len(r.buf)*8))
		return
	}
	r.pos = bits
}

// Len returns the size of the underlying buffer in bits.
func (r *Reader) Len() int { return len(r.buf) * 8 }

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() int { return len(r.buf)*8 - r.pos }

// AlignByte skips to the next byte boundary.
func (r *Reader) AlignByte() {
	if rem := r.pos % 8; rem != 0 {
		r.pos += 8 - rem
	}
}

// Fail records err unless an error is already recorded.
func (r *Reader) Fail(err error) {
	r.fail(err)
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) need(bits int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+bits > len(r.buf)*8 {
		r.fail(fmt.Errorf("%w: need %d bits at bit %d of %d", format.ErrTruncated, bits, r.pos, len(r.buf)*8))
		return false
	}
	return true
}

// Bits reads n <= 64 bits as an unsigned integer.
func (r *Reader) Bits(n int) uint64 {
	if !r.need(n) {
		return 0
	}
	var v uint64
	for i := 0; i < n; i++ {
		b := r.buf[r.pos>>3] >> (7 - uint(r.pos&7)) & 1
		v = v<<1 | uint64(b)
		r.pos++
	}
	return v
}

// Bit reads B.
func (r *Reader) Bit() bool { return r.Bits(1) == 1 }

// TwoBits reads BB.
func (r *Reader) TwoBits() byte { return byte(r.Bits(2)) }

// ThreeBits reads 3B.
func (r *Reader) ThreeBits() byte { return byte(r.Bits(3)) }

// RawChar reads RC.
func (r *Reader) RawChar() byte {
	if r.pos&7 == 0 && r.need(8) {
		b := r.buf[r.pos>>3]
		r.pos += 8
		return b
	}
	return byte(r.Bits(8))
}

// RawBytes reads n whole bytes.
func (r *Reader) RawBytes(n int) []byte {
	if n < 0 || !r.need(n*8) {
		if n < 0 {
			r.fail(fmt.Errorf("%w: negative length %d", format.ErrCorrupt, n))
		}
		return nil
	}
	out := make([]byte, n)
	if r.pos&7 == 0 {
		copy(out, r.buf[r.pos>>3:])
		r.pos += n * 8
		return out
	}
	for i := range out {
		out[i] = r.RawChar()
	}
	return out
}

// RawShort reads RS.
func (r *Reader) RawShort() int16 {
	return int16(binary.LittleEndian.Uint16(r.raw(2)))
}

// RawUShort reads RS as unsigned.
func (r *Reader) RawUShort() uint16 {
	return binary.LittleEndian.Uint16(r.raw(2))
}

// RawLong reads RL.
func (r *Reader) RawLong() int32 {
	return int32(binary.LittleEndian.Uint32(r.raw(4)))
}

// RawULong reads RL as unsigned.
func (r *Reader) RawULong() uint32 {
	return binary.LittleEndian.Uint32(r.raw(4))
}

// RawDouble reads RD.
func (r *Reader) RawDouble() float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(r.raw(8)))
}

func (r *Reader) raw(n int) []byte {
	b := r.RawBytes(n)
	if b == nil {
		return make([]byte, n)
	}
	return b
}

// BitShort reads BS.
func (r *Reader) BitShort() int16 {
	switch r.TwoBits() {
	case 0:
		return r.RawShort()
	case 1:
		return int16(r.RawChar())
	case 2:
		return 0
	default:
		return 256
	}
}

// BitLong reads BL.
func (r *Reader) BitLong() int32 {
	switch r.TwoBits() {
	case 0:
		return r.RawLong()
	case 1:
		return int32(r.RawChar())
	case 2:
		return 0
	default:
		r.fail(fmt.Errorf("%w: invalid bitlong code 3 at bit %d", format.ErrCorrupt, r.pos))
		return 0
	}
}

// BitLongLong reads BLL: a 3-bit byte count followed by little-endian bytes.
func (r *Reader) BitLongLong() uint64 {
	n := int(r.ThreeBits())
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(r.RawChar()) << (8 * uint(i))
	}
	return v
}

// BitDouble reads BD.
func (r *Reader) BitDouble() float64 {
	switch r.TwoBits() {
	case 0:
		return r.RawDouble()
	case 1:
		return 1.0
	case 2:
		return 0.0
	default:
		r.fail(fmt.Errorf("%w: invalid bitdouble code 3 at bit %d", format.ErrCorrupt, r.pos))
		return 0
	}
}

// DefaultDouble reads DD: a double stored as a patch over def.
func (r *Reader) DefaultDouble(def float64) float64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(def))
	switch r.TwoBits() {
	case 0:
		return def
	case 1:
		copy(b[0:4], r.raw(4))
	case 2:
		hi := r.raw(2)
		b[4], b[5] = hi[0], hi[1]
		copy(b[0:4], r.raw(4))
	default:
		return r.RawDouble()
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
}

// ModularChar reads a signed MC.
func (r *Reader) ModularChar() int64 {
	var v int64
	shift := uint(0)
	for i := 0; i < 10; i++ {
		b := r.RawChar()
		if r.err != nil {
			return 0
		}
		if b&0x80 == 0 {
			v |= int64(b&0x3F) << shift
			if b&0x40 != 0 {
				v = -v
			}
			return v
		}
		v |= int64(b&0x7F) << shift
		shift += 7
	}
	r.fail(fmt.Errorf("%w: modular char too long", format.ErrCorrupt))
	return 0
}

// UModularChar reads an unsigned MC.
func (r *Reader) UModularChar() uint64 {
	var v uint64
	shift := uint(0)
	for i := 0; i < 10; i++ {
		b := r.RawChar()
		if r.err != nil {
			return 0
		}
		v |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return v
		}
		shift += 7
	}
	r.fail(fmt.Errorf("%w: modular char too long", format.ErrCorrupt))
	return 0
}

// ModularShort reads an unsigned MS.
func (r *Reader) ModularShort() uint64 {
	var v uint64
	shift := uint(0)
	for i := 0; i < 5; i++ {
		w := r.RawUShort()
		if r.err != nil {
			return 0
		}
		v |= uint64(w&0x7FFF) << shift
		if w&0x8000 == 0 {
			return v
		}
		shift += 15
	}
	r.fail(fmt.Errorf("%w: modular short too long", format.ErrCorrupt))
	return 0
}

// Handle reads H.
func (r *Reader) Handle() HandleRef {
	head := r.RawChar()
	ref := HandleRef{Code: head >> 4}
	n := int(head & 0x0F)
	if n > maxHandleCounter {
		r.fail(fmt.Errorf("%w: handle length %d", format.ErrCorrupt, n))
		return HandleRef{}
	}
	for i := 0; i < n; i++ {
		ref.Value = ref.Value<<8 | uint64(r.RawChar())
	}
	return ref
}

// Text reads T: a BS length followed by code page bytes, or UTF-16 units
// from R2007 on.
func (r *Reader) Text() string {
	n := int(r.BitShort())
	if n < 0 {
		r.fail(fmt.Errorf("%w: negative text length %d", format.ErrCorrupt, n))
		return ""
	}
	if n == 0 {
		return ""
	}
	if r.version.AtLeast(format.AC1021) {
		raw := r.RawBytes(n * 2)
		if raw == nil {
			return ""
		}
		units := make([]uint16, 0, n)
		for i := 0; i < n; i++ {
			u := binary.LittleEndian.Uint16(raw[i*2:])
			if u == 0 {
				break
			}
			units = append(units, u)
		}
		return string(utf16.Decode(units))
	}
	raw := r.RawBytes(n)
	runes := make([]rune, 0, n)
	for _, b := range raw {
		if b == 0 {
			break
		}
		runes = append(runes, r.cp.DecodeByte(b))
	}
	return string(runes)
}

// Point2Raw reads 2RD.
func (r *Reader) Point2Raw() Vec2 {
	return Vec2{X: r.RawDouble(), Y: r.RawDouble()}
}

// Point2Bit reads 2BD.
func (r *Reader) Point2Bit() Vec2 {
	return Vec2{X: r.BitDouble(), Y: r.BitDouble()}
}

// Point2Default reads 2DD relative to def.
func (r *Reader) Point2Default(def Vec2) Vec2 {
	x := r.DefaultDouble(def.X)
	return Vec2{X: x, Y: r.DefaultDouble(def.Y)}
}

// Point3Bit reads 3BD.
func (r *Reader) Point3Bit() Vec3 {
	return Vec3{X: r.BitDouble(), Y: r.BitDouble(), Z: r.BitDouble()}
}

// Point3Raw reads 3RD.
func (r *Reader) Point3Raw() Vec3 {
	return Vec3{X: r.RawDouble(), Y: r.RawDouble(), Z: r.RawDouble()}
}

// Extrusion reads BE. Before R2000 it is a plain 3BD.
func (r *Reader) Extrusion() Vec3 {
	if r.version.Before(format.AC1015) {
		return r.Point3Bit()
	}
	if r.Bit() {
		return ZAxis
	}
	return r.Point3Bit()
}

// Thickness reads BT. Before R2000 it is a plain BD.
func (r *Reader) Thickness() float64 {
	if r.version.Before(format.AC1015) {
		return r.BitDouble()
	}
	if r.Bit() {
		return 0
	}
	return r.BitDouble()
}

// Color reads CMC.
func (r *Reader) Color() Color {
	c := Color{Index: r.BitShort()}
	if r.version.AtLeast(format.AC1018) {
		c.RGB = uint32(r.BitLong())
		flags := r.RawChar()
		if flags&1 != 0 {
			r.Text()
		}
		if flags&2 != 0 {
			r.Text()
		}
	}
	return c
}

// ObjectType reads the type code: OT from R2010, BS before.
func (r *Reader) ObjectType() uint16 {
	if r.version.Before(format.AC1024) {
		return uint16(r.BitShort())
	}
	switch r.TwoBits() {
	case 0:
		return uint16(r.RawChar())
	case 1:
		return uint16(r.RawChar()) + 0x1F0
	default:
		return r.RawUShort()
	}
}
