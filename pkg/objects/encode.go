package objects

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/checksum"
	"github.com/ssargent/dwgkit/pkg/format"
)

// Encode serializes t as a complete record: size prefix, body and CRC.
// Raw templates can only be written back to the version they were read from.
func (c *Codec) Encode(t *Template) ([]byte, error) {
	var body []byte
	var handleBits int
	if t.Unknown {
		if t.Version != c.version {
			return nil, fmt.Errorf("%w: raw %s record from %s cannot be written as %s",
				format.ErrUnsupported, t.Name(), t.Version, c.version)
		}
		body, handleBits = t.Raw, t.RawHandleBits
	} else {
		schema := SchemaFor(t.Type)
		if schema == nil {
			return nil, fmt.Errorf("%w: %s", format.ErrUnsupportedType, t.Name())
		}
		var err error
		if body, handleBits, err = c.encodeBody(t, schema); err != nil {
			return nil, fmt.Errorf("failed to encode %s 0x%X: %w", t.Name(), t.Handle, err)
		}
	}

	return c.frame(body, handleBits), nil
}

// frame wraps a record body with its size prefix and CRC.
func (c *Codec) frame(body []byte, handleBits int) []byte {
	w := bitstream.NewWriter(c.version)
	w.ModularShort(uint64(len(body)))
	if c.version.AtLeast(format.AC1024) {
		w.UModularChar(uint64(handleBits))
	}
	w.RawBytes(body)
	w.RawUShort(checksum.CRC8(checksum.SeedSection, w.Bytes()))
	return w.Bytes()
}

func (c *Codec) encodeBody(t *Template, schema *Schema) ([]byte, int, error) {
	v := c.version
	if err := syncCounts(t, schema, v); err != nil {
		return nil, 0, err
	}
	entity := t.Type.IsEntity()
	if entity && t.Entity == nil {
		t.Entity = NewTemplate(t.Handle, t.Type).Entity
	}

	data := bitstream.NewWriter(v)
	data.SetCodePage(c.cp)
	hs := bitstream.NewWriter(v)

	data.ObjectType(uint16(t.Type))
	sizeAt := -1
	if v.AtLeast(format.AC1015) && v.Before(format.AC1024) {
		sizeAt = data.Position()
		data.RawULong(0)
	}
	data.Handle(bitstream.HandleRef{Value: t.Handle})

	for _, x := range t.EED {
		if len(x.Data) == 0 {
			continue
		}
		if len(x.Data) > 0x7FFF {
			return nil, 0, fmt.Errorf("extended data of %d bytes", len(x.Data))
		}
		data.BitShort(int16(len(x.Data)))
		data.Handle(bitstream.HandleRef{Code: bitstream.RefHardPointer, Value: x.AppID})
		data.RawBytes(x.Data)
	}
	data.BitShort(0)

	if entity {
		g := t.Entity.Graphics
		data.Bit(len(g) > 0)
		if len(g) > 0 {
			if v.AtLeast(format.AC1024) {
				data.BitLongLong(uint64(len(g)))
			} else {
				data.RawULong(uint32(len(g)))
			}
			data.RawBytes(g)
		}
	}
	if v.Before(format.AC1015) {
		sizeAt = data.Position()
		data.RawULong(0)
	}

	data.BitLong(int32(len(t.Reactors)))
	if v.AtLeast(format.AC1018) {
		data.Bit(t.XDictionary == 0)
	}
	if entity {
		writeEntityData(data, t.Entity)
	}

	for _, fs := range schema.Fields {
		if !fs.Kind.IsHandle() && fs.present(t, v) {
			if err := writeField(data, t, fs, c.cp); err != nil {
				return nil, 0, err
			}
		}
	}
	dataBits := data.Position()
	if sizeAt >= 0 {
		data.PatchRawLong(sizeAt, uint32(dataBits))
	}

	ref := func(code byte, h uint64) { hs.Handle(bitstream.HandleRef{Code: code, Value: h}) }
	if !entity || t.Entity.Mode == ModeOwner {
		ref(bitstream.RefSoftPointer, t.Owner)
	}
	for _, r := range t.Reactors {
		ref(bitstream.RefSoftPointer, r)
	}
	if v.Before(format.AC1018) || t.XDictionary != 0 {
		ref(bitstream.RefHardOwner, t.XDictionary)
	}
	if e := t.Entity; entity {
		if v.Before(format.AC1018) && !e.NoLinks {
			ref(bitstream.RefSoftPointer, e.Prev)
			ref(bitstream.RefSoftPointer, e.Next)
		}
		ref(bitstream.RefHardPointer, e.Layer)
		if lineTypeFlags(e, v) == LineTypeHandle {
			ref(bitstream.RefHardPointer, e.LineType)
		}
		if v.AtLeast(format.AC1015) && e.PlotStyleFlags == 3 {
			ref(bitstream.RefHardPointer, e.PlotStyle)
		}
	}
	for _, fs := range schema.Fields {
		if !fs.Kind.IsHandle() || !fs.present(t, v) {
			continue
		}
		refs := t.Refs[fs.Code]
		if fs.Kind == KindHandle {
			var h uint64
			if len(refs) > 0 {
				h = refs[0]
			}
			ref(fs.Ref, h)
			continue
		}
		for _, h := range refs {
			ref(fs.Ref, h)
		}
	}

	handleBits := hs.Position()
	if v.AtLeast(format.AC1024) {
		total := dataBits + handleBits
		data.Bits(0, (total+7)/8*8-total)
		data.AppendBits(hs.Bytes(), handleBits)
		return data.Bytes(), handleBits, nil
	}
	data.AppendBits(hs.Bytes(), handleBits)
	return data.Bytes(), 0, nil
}

func lineTypeFlags(e *EntityData, v format.Version) byte {
	if v.Before(format.AC1015) {
		return LineTypeHandle
	}
	return e.LineTypeFlags
}

func writeEntityData(w *bitstream.Writer, e *EntityData) {
	v := w.Version()
	w.TwoBits(e.Mode)
	if v.Before(format.AC1018) {
		w.Bit(e.NoLinks)
	}
	w.Color(e.Color)
	w.BitDouble(e.LineTypeScale)
	if v.AtLeast(format.AC1015) {
		w.TwoBits(e.LineTypeFlags)
		w.TwoBits(e.PlotStyleFlags)
	}
	if e.Invisible {
		w.BitShort(1)
	} else {
		w.BitShort(0)
	}
	if v.AtLeast(format.AC1015) {
		w.RawChar(e.LineWeight)
	}
}

// syncCounts stores the length of every list in the field naming its count.
func syncCounts(t *Template, schema *Schema, v format.Version) error {
	counts := make(map[int]int)
	for _, fs := range schema.Fields {
		if fs.Count == 0 || !fs.present(t, v) {
			continue
		}
		var n int
		switch fs.Kind {
		case KindHandleList:
			n = len(t.Refs[fs.Code])
		case KindVertices2D, KindWidthList:
			vals, _ := t.Values[fs.Code].([]bitstream.Vec2)
			n = len(vals)
		case KindDoubleList:
			vals, _ := t.Values[fs.Code].([]float64)
			n = len(vals)
		case KindTextList:
			vals, _ := t.Values[fs.Code].([]string)
			n = len(vals)
		}
		if prev, ok := counts[fs.Count]; ok && prev != n {
			return fmt.Errorf("lists counted by field %d disagree: %d and %d", fs.Count, prev, n)
		}
		counts[fs.Count] = n
	}
	for code, n := range counts {
		t.Set(code, n)
	}
	return nil
}

func vec3Or(t *Template, code int, def bitstream.Vec3) bitstream.Vec3 {
	if _, ok := t.Values[code]; !ok {
		return def
	}
	return t.Vec3(code)
}

func writeField(w *bitstream.Writer, t *Template, fs FieldSpec, cp *charmap.Charmap) error {
	v := w.Version()
	switch fs.Kind {
	case KindBit:
		w.Bit(t.Bool(fs.Code))
	case KindBitPair:
		w.TwoBits(byte(t.Int(fs.Code)))
	case KindShort:
		w.BitShort(int16(t.Int(fs.Code)))
	case KindLong:
		w.BitLong(int32(t.Int(fs.Code)))
	case KindDouble:
		w.BitDouble(t.Float(fs.Code))
	case KindRawChar:
		w.RawChar(byte(t.Int(fs.Code)))
	case KindRawShort:
		w.RawShort(int16(t.Int(fs.Code)))
	case KindRawDouble:
		w.RawDouble(t.Float(fs.Code))
	case KindText:
		w.Text(t.Text(fs.Code))
	case KindThickness:
		w.Thickness(t.Float(fs.Code))
	case KindExtrusion:
		w.Extrusion(vec3Or(t, fs.Code, bitstream.ZAxis))
	case KindPoint2Raw:
		w.Point2Raw(t.Vec2(fs.Code))
	case KindPoint3Bit:
		w.Point3Bit(t.Vec3(fs.Code))
	case KindColor:
		w.Color(t.Color(fs.Code))
	case KindLinePoints:
		start, end := t.Vec3(fs.Code), t.Vec3(fs.Code+1)
		if v.Before(format.AC1015) {
			w.Point3Bit(start)
			w.Point3Bit(end)
			break
		}
		zZero := start.Z == 0 && end.Z == 0
		w.Bit(zZero)
		w.RawDouble(start.X)
		w.DefaultDouble(start.X, end.X)
		w.RawDouble(start.Y)
		w.DefaultDouble(start.Y, end.Y)
		if !zZero {
			w.RawDouble(start.Z)
			w.DefaultDouble(start.Z, end.Z)
		}
	case KindInsertScale:
		s := vec3Or(t, fs.Code, bitstream.Vec3{X: 1, Y: 1, Z: 1})
		if v.Before(format.AC1015) {
			w.Point3Bit(s)
			break
		}
		switch {
		case s.X == 1 && s.Y == 1 && s.Z == 1:
			w.TwoBits(3)
		case s.X == 1:
			w.TwoBits(1)
			w.DefaultDouble(1, s.Y)
			w.DefaultDouble(1, s.Z)
		case s.Y == s.X && s.Z == s.X:
			w.TwoBits(2)
			w.RawDouble(s.X)
		default:
			w.TwoBits(0)
			w.RawDouble(s.X)
			w.DefaultDouble(s.X, s.Y)
			w.DefaultDouble(s.X, s.Z)
		}
	case KindVertices2D:
		pts, _ := t.Values[fs.Code].([]bitstream.Vec2)
		for i, p := range pts {
			if i == 0 || v.Before(format.AC1015) {
				w.Point2Raw(p)
			} else {
				w.Point2Default(pts[i-1], p)
			}
		}
	case KindDoubleList:
		vals, _ := t.Values[fs.Code].([]float64)
		for _, x := range vals {
			w.BitDouble(x)
		}
	case KindWidthList:
		vals, _ := t.Values[fs.Code].([]bitstream.Vec2)
		for _, x := range vals {
			w.Point2Bit(x)
		}
	case KindTextList:
		vals, _ := t.Values[fs.Code].([]string)
		for _, s := range vals {
			w.Text(s)
		}
	case KindXRecordData:
		items, _ := t.Values[fs.Code].([]XRecordItem)
		raw, err := encodeXRecord(items, v, cp)
		if err != nil {
			return err
		}
		w.BitLong(int32(len(raw)))
		w.RawBytes(raw)
	default:
		return fmt.Errorf("field %d has unknown kind %d", fs.Code, fs.Kind)
	}
	return nil
}
