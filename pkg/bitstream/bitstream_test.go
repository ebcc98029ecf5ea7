package bitstream

import (
	"math"
	"testing"

	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitOrder(t *testing.T) {
	w := NewWriter(format.AC1015)
	w.Bit(true)
	w.TwoBits(2)
	w.Bits(0x1F, 5)
	assert.Equal(t, []byte{0xDF}, w.Bytes())

	r := NewReader(w.Bytes(), format.AC1015)
	assert.True(t, r.Bit())
	assert.Equal(t, byte(2), r.TwoBits())
	assert.Equal(t, uint64(0x1F), r.Bits(5))
	require.NoError(t, r.Err())
}

func TestBitShortForms(t *testing.T) {
	tests := []struct {
		value int16
		bits  int
	}{
		{0, 2},
		{256, 2},
		{17, 10},
		{255, 10},
		{-1, 18},
		{1000, 18},
	}
	for _, tt := range tests {
		w := NewWriter(format.AC1015)
		w.BitShort(tt.value)
		assert.Equal(t, tt.bits, w.Position(), "value %d", tt.value)

		r := NewReader(w.Bytes(), format.AC1015)
		assert.Equal(t, tt.value, r.BitShort())
		require.NoError(t, r.Err())
	}
}

func TestMixedUnalignedValues(t *testing.T) {
	w := NewWriter(format.AC1018)
	w.Bit(true)
	w.BitLong(-5)
	w.BitLong(200)
	w.BitDouble(1.0)
	w.BitDouble(0)
	w.BitDouble(math.Pi)
	w.RawShort(-2)
	w.Handle(HandleRef{Code: RefHardPointer, Value: 0x1F2A})
	w.Handle(HandleRef{Code: RefSoftOwner})
	w.Text("Layer-Ä")
	w.Point3Bit(Vec3{1, 2.5, -3})
	w.Extrusion(ZAxis)
	w.Extrusion(Vec3{0, 1, 0})
	w.Thickness(0)
	w.Thickness(0.25)
	w.Color(Color{Index: 7, RGB: 0xC2FF0000})
	w.BitLongLong(0x123456789A)
	w.ModularChar(-300)
	w.UModularChar(1 << 20)

	r := NewReader(w.Bytes(), format.AC1018)
	assert.True(t, r.Bit())
	assert.Equal(t, int32(-5), r.BitLong())
	assert.Equal(t, int32(200), r.BitLong())
	assert.Equal(t, 1.0, r.BitDouble())
	assert.Equal(t, 0.0, r.BitDouble())
	assert.Equal(t, math.Pi, r.BitDouble())
	assert.Equal(t, int16(-2), r.RawShort())
	assert.Equal(t, HandleRef{Code: RefHardPointer, Value: 0x1F2A}, r.Handle())
	assert.Equal(t, HandleRef{Code: RefSoftOwner}, r.Handle())
	assert.Equal(t, "Layer-Ä", r.Text())
	assert.Equal(t, Vec3{1, 2.5, -3}, r.Point3Bit())
	assert.Equal(t, ZAxis, r.Extrusion())
	assert.Equal(t, Vec3{0, 1, 0}, r.Extrusion())
	assert.Equal(t, 0.0, r.Thickness())
	assert.Equal(t, 0.25, r.Thickness())
	assert.Equal(t, Color{Index: 7, RGB: 0xC2FF0000}, r.Color())
	assert.Equal(t, uint64(0x123456789A), r.BitLongLong())
	assert.Equal(t, int64(-300), r.ModularChar())
	assert.Equal(t, uint64(1<<20), r.UModularChar())
	require.NoError(t, r.Err())
}

func TestDefaultDouble(t *testing.T) {
	tests := []struct {
		name string
		def  float64
		v    float64
		bits int
	}{
		{"same", 10.5, 10.5, 2},
		{"low bytes", 1.0, math.Float64frombits(math.Float64bits(1.0) | 0x1234), 2 + 32},
		{"six bytes", 1.0, 1.001, 2 + 48},
		{"full", 1.0, -1e300, 2 + 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(format.AC1015)
			w.DefaultDouble(tt.def, tt.v)
			assert.Equal(t, tt.bits, w.Position())
			r := NewReader(w.Bytes(), format.AC1015)
			assert.Equal(t, tt.v, r.DefaultDouble(tt.def))
			require.NoError(t, r.Err())
		})
	}
}

func TestTextUnicodeFromR2007(t *testing.T) {
	w := NewWriter(format.AC1021)
	w.Text("図面 layer")
	r := NewReader(w.Bytes(), format.AC1021)
	assert.Equal(t, "図面 layer", r.Text())

	w = NewWriter(format.AC1015)
	w.Text("図")
	r = NewReader(w.Bytes(), format.AC1015)
	assert.Equal(t, "?", r.Text())
}

func TestObjectType(t *testing.T) {
	for _, v := range []format.Version{format.AC1015, format.AC1024} {
		for _, code := range []uint16{0x13, 0x1F3, 0x2F5, 501} {
			w := NewWriter(v)
			w.ObjectType(code)
			r := NewReader(w.Bytes(), v)
			assert.Equal(t, code, r.ObjectType(), "%s %d", v, code)
		}
	}
}

func TestHandleRefAbsolute(t *testing.T) {
	self := uint64(0x100)
	assert.Equal(t, uint64(0x101), HandleRef{Code: RefPlusOne}.Absolute(self))
	assert.Equal(t, uint64(0xFF), HandleRef{Code: RefMinusOne}.Absolute(self))
	assert.Equal(t, uint64(0x110), HandleRef{Code: RefPlusOffset, Value: 0x10}.Absolute(self))
	assert.Equal(t, uint64(0xF0), HandleRef{Code: RefMinusOffset, Value: 0x10}.Absolute(self))
	assert.Equal(t, uint64(0x2A), HandleRef{Code: RefHardPointer, Value: 0x2A}.Absolute(self))
}

func TestPatchRawLong(t *testing.T) {
	w := NewWriter(format.AC1015)
	w.Bits(1, 3)
	at := w.Position()
	w.RawLong(0)
	w.Bit(true)
	w.PatchRawLong(at, 0xCAFEBABE)

	r := NewReader(w.Bytes(), format.AC1015)
	assert.Equal(t, uint64(1), r.Bits(3))
	assert.Equal(t, uint32(0xCAFEBABE), r.RawULong())
	assert.True(t, r.Bit())
	require.NoError(t, r.Err())
}

func TestAppendBits(t *testing.T) {
	src := NewWriter(format.AC1015)
	src.Bits(0x5, 3)
	src.BitLong(77)

	w := NewWriter(format.AC1015)
	w.Bit(true)
	w.AppendBits(src.Bytes(), src.Position())

	r := NewReader(w.Bytes(), format.AC1015)
	assert.True(t, r.Bit())
	assert.Equal(t, uint64(0x5), r.Bits(3))
	assert.Equal(t, int32(77), r.BitLong())
}

func TestReaderStickyError(t *testing.T) {
	r := NewReader([]byte{0xFF}, format.AC1015)
	_ = r.RawLong()
	require.ErrorIs(t, r.Err(), format.ErrTruncated)
	assert.Equal(t, 0.0, r.RawDouble())
	assert.ErrorIs(t, r.Err(), format.ErrTruncated)

	r = NewReader([]byte{0x0F}, format.AC1015)
	r.Handle()
	assert.ErrorIs(t, r.Err(), format.ErrCorrupt)
}
