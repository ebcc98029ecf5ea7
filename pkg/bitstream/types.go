package bitstream

import "golang.org/x/text/encoding/charmap"

// Vec2 is a 2D point or vector.
type Vec2 struct {
	X, Y float64
}

// Vec3 is a 3D point or vector.
type Vec3 struct {
	X, Y, Z float64
}

// ZAxis is the default extrusion direction.
var ZAxis = Vec3{Z: 1}

// HandleRef is a handle reference as stored in a record: a reference code and
// a value. Codes 2-5 carry an absolute handle; 6, 8, 0xA and 0xC are relative
// to the handle of the object being read.
type HandleRef struct {
	Code  byte
	Value uint64
}

// Reference codes.
const (
	RefNone          byte = 0
	RefSoftOwner     byte = 2
	RefHardOwner     byte = 3
	RefSoftPointer   byte = 4
	RefHardPointer   byte = 5
	RefPlusOne       byte = 6
	RefMinusOne      byte = 8
	RefPlusOffset    byte = 0xA
	RefMinusOffset   byte = 0xC
	maxHandleCounter      = 8
)

// Absolute resolves r against the handle of the object containing it.
func (r HandleRef) Absolute(self uint64) uint64 {
	switch r.Code {
	case RefPlusOne:
		return self + 1
	case RefMinusOne:
		return self - 1
	case RefPlusOffset:
		return self + r.Value
	case RefMinusOffset:
		return self - r.Value
	}
	return r.Value
}

// Color is an entity or layer color: an ACI index and, from R2004, a true color.
type Color struct {
	Index int16
	RGB   uint32
}

// ByLayer is the color index meaning "use the layer color".
const ByLayer int16 = 256

// CodePage maps a header code page number to a single-byte charmap.
func CodePage(id uint16) *charmap.Charmap {
	switch id {
	case 28:
		return charmap.Windows1250
	case 29:
		return charmap.Windows1251
	case 31:
		return charmap.Windows1253
	case 32:
		return charmap.Windows1254
	}
	return charmap.Windows1252
}

// DefaultCodePage is ANSI_1252.
const DefaultCodePage uint16 = 30
