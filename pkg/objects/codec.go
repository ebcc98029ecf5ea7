package objects

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/text/encoding/charmap"

	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/checksum"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
)

// Options controls how records are decoded.
type Options struct {
	// Strict makes record CRC mismatches fatal.
	Strict bool
	// RetainUnknown keeps records of unimplemented types as raw templates.
	RetainUnknown bool
	// IgnoreUnsupportedTypes skips records whose type code has no class
	// instead of failing.
	IgnoreUnsupportedTypes bool
	CodePage               uint16
	Notify                 notify.Handler
}

// Codec decodes and encodes object records of one format version.
type Codec struct {
	version  format.Version
	classes  *ClassTable
	opts     Options
	verifier *checksum.Verifier
	cp       *charmap.Charmap

	mu       sync.Mutex
	reported map[Type]bool
}

// NewCodec creates a codec for version. classes resolves type codes of 500
// and above; it may be nil.
func NewCodec(version format.Version, classes *ClassTable, opts Options) *Codec {
	cp := opts.CodePage
	if cp == 0 {
		cp = bitstream.DefaultCodePage
	}
	return &Codec{
		version:  version,
		classes:  classes,
		opts:     opts,
		verifier: &checksum.Verifier{Strict: opts.Strict, Notify: opts.Notify},
		cp:       bitstream.CodePage(cp),
		reported: make(map[Type]bool),
	}
}

// Version returns the format version of the codec.
func (c *Codec) Version() format.Version {
	return c.version
}

func corruption(offset int64, err error) error {
	return format.Corruption(format.SectionObjects, offset, err)
}

// Decode decodes the record at offset in section. A record that is skipped
// by policy returns a nil template and a nil error.
func (c *Codec) Decode(section []byte, offset int64) (*Template, error) {
	if offset < 0 || offset >= int64(len(section)) {
		return nil, corruption(offset, fmt.Errorf("%w: record offset outside section of %d bytes", format.ErrTruncated, len(section)))
	}
	rec := section[offset:]
	r := bitstream.NewReader(rec, c.version)
	size := r.ModularShort()
	var handleBits uint64
	if c.version.AtLeast(format.AC1024) {
		handleBits = r.UModularChar()
	}
	if err := r.Err(); err != nil {
		return nil, corruption(offset, err)
	}

	start := r.Position() / 8
	if size == 0 || size > uint64(len(rec)-start) || start+int(size)+2 > len(rec) {
		return nil, corruption(offset, fmt.Errorf("%w: record of %d bytes", format.ErrTruncated, size))
	}
	end := start + int(size)
	if handleBits > size*8 {
		return nil, corruption(offset, fmt.Errorf("%w: handle stream of %d bits in %d byte record", format.ErrCorrupt, handleBits, size))
	}
	stored := binary.LittleEndian.Uint16(rec[end:])
	if err := c.verifier.Check(format.SectionObjects, offset, uint32(checksum.CRC8(checksum.SeedSection, rec[:end])), uint32(stored)); err != nil {
		return nil, err
	}
	return c.decodeBody(rec[start:end], int(handleBits), offset)
}

func (c *Codec) notifyOnce(t Type, n notify.Notification) {
	c.mu.Lock()
	seen := c.reported[t]
	c.reported[t] = true
	c.mu.Unlock()
	if !seen {
		c.opts.Notify.Emit(n)
	}
}

type decoder struct {
	r *bitstream.Reader
	t *Template
	v format.Version
}

func (d *decoder) ref() uint64 {
	return d.r.Handle().Absolute(d.t.Handle)
}

func (d *decoder) count(fs FieldSpec) int {
	n := d.t.Int(fs.Count)
	if n < 0 || n > d.r.Remaining() {
		d.r.Fail(fmt.Errorf("%w: list of %d elements", format.ErrCorrupt, n))
		return 0
	}
	return n
}

func (c *Codec) decodeBody(body []byte, handleBits int, offset int64) (*Template, error) {
	v := c.version
	r := bitstream.NewReader(body, v)
	r.SetCodePage(c.cp)

	typ := Type(r.ObjectType())
	handleStart := -1
	switch {
	case v.AtLeast(format.AC1024):
		handleStart = len(body)*8 - handleBits
	case v.AtLeast(format.AC1015):
		handleStart = int(r.RawLong())
	}

	var class *Class
	entity := typ.IsEntity()
	schema := SchemaFor(typ)
	if typ >= TypeClassBase || !typ.Known() {
		cl, ok := c.classes.Lookup(uint16(typ))
		if !ok {
			err := corruption(offset, fmt.Errorf("%w: type %d has no class", format.ErrUnsupportedType, uint16(typ)))
			if !c.opts.IgnoreUnsupportedTypes {
				return nil, err
			}
			c.opts.Notify.Emit(notify.Notification{
				Kind:     notify.KindNotSupported,
				Severity: notify.SeverityWarning,
				Message:  fmt.Sprintf("record of type %d skipped", uint16(typ)),
				Err:      err,
				Offset:   offset,
			})
			return nil, nil
		}
		class, entity, schema = cl, cl.IsEntity(), nil
	}

	t := &Template{
		Type:    typ,
		Class:   class,
		Values:  make(map[int]any),
		Refs:    make(map[int][]uint64),
		Version: v,
		Offset:  offset,
	}
	if schema == nil {
		n := notify.Notification{
			Kind:     notify.KindNotImplemented,
			Severity: notify.SeverityInfo,
			Message:  fmt.Sprintf("%s records are kept as raw data", t.Name()),
			Offset:   offset,
		}
		if !c.opts.RetainUnknown {
			n.Kind, n.Severity = notify.KindSkippedObject, notify.SeverityWarning
			n.Message = fmt.Sprintf("%s records are not implemented and are skipped", t.Name())
		}
		c.notifyOnce(typ, n)
		if !c.opts.RetainUnknown {
			return nil, nil
		}
	}

	d := &decoder{r: r, t: t, v: v}
	t.Handle = r.Handle().Value

	for {
		n := int(r.BitShort())
		if n == 0 || r.Err() != nil {
			break
		}
		if n < 0 {
			r.Fail(fmt.Errorf("%w: extended data of %d bytes", format.ErrCorrupt, n))
			break
		}
		app := d.ref()
		t.EED = append(t.EED, ExtendedData{AppID: app, Data: r.RawBytes(n)})
	}

	if entity {
		t.Entity = &EntityData{}
		if r.Bit() {
			var n int
			if v.AtLeast(format.AC1024) {
				n = int(r.BitLongLong())
			} else {
				n = int(r.RawLong())
			}
			t.Entity.Graphics = r.RawBytes(n)
		}
	}
	if v.Before(format.AC1015) {
		handleStart = int(r.RawLong())
	}

	reactors := int(r.BitLong())
	if reactors < 0 || reactors > r.Remaining() {
		return nil, corruption(offset, fmt.Errorf("%w: %d reactors", format.ErrCorrupt, reactors))
	}
	xdictMissing := false
	if v.AtLeast(format.AC1018) {
		xdictMissing = r.Bit()
	}
	if entity {
		d.entityData()
	}

	if schema == nil {
		t.Unknown = true
		t.Raw = append([]byte(nil), body...)
		t.RawHandleBits = handleBits
		if r.Err() == nil && handleStart >= 0 && handleStart <= r.Len() {
			r.SetPosition(handleStart)
			d.commonHandles(reactors, xdictMissing)
		}
		if r.Err() != nil {
			t.Owner, t.Reactors, t.XDictionary = 0, nil, 0
		}
		return t, nil
	}

	for _, fs := range schema.Fields {
		if !fs.Kind.IsHandle() && fs.present(t, v) {
			d.readField(fs, c.cp)
		}
	}
	if handleStart >= 0 {
		if r.Err() == nil && r.Position() > handleStart {
			return nil, corruption(offset, fmt.Errorf("%w: %s data overruns its handle stream", format.ErrCorrupt, t.Name()))
		}
		r.SetPosition(handleStart)
	}
	d.commonHandles(reactors, xdictMissing)
	for _, fs := range schema.Fields {
		if fs.Kind.IsHandle() && fs.present(t, v) {
			d.readHandles(fs)
		}
	}

	if err := r.Err(); err != nil {
		return nil, corruption(offset, fmt.Errorf("%s 0x%X: %w", t.Name(), t.Handle, err))
	}
	return t, nil
}

func (d *decoder) entityData() {
	r, e := d.r, d.t.Entity
	e.Mode = r.TwoBits()
	if d.v.Before(format.AC1018) {
		e.NoLinks = r.Bit()
	} else {
		e.NoLinks = true
	}
	e.Color = r.Color()
	e.LineTypeScale = r.BitDouble()
	if d.v.AtLeast(format.AC1015) {
		e.LineTypeFlags = r.TwoBits()
		e.PlotStyleFlags = r.TwoBits()
	} else {
		e.LineTypeFlags = LineTypeHandle
	}
	e.Invisible = r.BitShort()&1 != 0
	if d.v.AtLeast(format.AC1015) {
		e.LineWeight = r.RawChar()
	}
}

func (d *decoder) commonHandles(reactors int, xdictMissing bool) {
	t := d.t
	if t.Entity == nil || t.Entity.Mode == ModeOwner {
		t.Owner = d.ref()
	}
	for i := 0; i < reactors && d.r.Err() == nil; i++ {
		t.Reactors = append(t.Reactors, d.ref())
	}
	if !xdictMissing {
		t.XDictionary = d.ref()
	}
	if e := t.Entity; e != nil {
		if d.v.Before(format.AC1018) && !e.NoLinks {
			e.Prev = d.ref()
			e.Next = d.ref()
		}
		e.Layer = d.ref()
		if e.LineTypeFlags == LineTypeHandle {
			e.LineType = d.ref()
		}
		if e.PlotStyleFlags == 3 {
			e.PlotStyle = d.ref()
		}
	}
}

func (d *decoder) readHandles(fs FieldSpec) {
	t := d.t
	if fs.Kind == KindHandle {
		t.Refs[fs.Code] = []uint64{d.ref()}
		return
	}
	n := d.count(fs)
	refs := make([]uint64, 0, n)
	for i := 0; i < n && d.r.Err() == nil; i++ {
		refs = append(refs, d.ref())
	}
	t.Refs[fs.Code] = refs
}

func (d *decoder) readField(fs FieldSpec, cp *charmap.Charmap) {
	r, t := d.r, d.t
	switch fs.Kind {
	case KindBit:
		t.Values[fs.Code] = r.Bit()
	case KindBitPair:
		t.Values[fs.Code] = int(r.TwoBits())
	case KindShort:
		t.Values[fs.Code] = int(r.BitShort())
	case KindLong:
		t.Values[fs.Code] = int(r.BitLong())
	case KindDouble:
		t.Values[fs.Code] = r.BitDouble()
	case KindRawChar:
		t.Values[fs.Code] = int(r.RawChar())
	case KindRawShort:
		t.Values[fs.Code] = int(r.RawShort())
	case KindRawDouble:
		t.Values[fs.Code] = r.RawDouble()
	case KindText:
		t.Values[fs.Code] = r.Text()
	case KindThickness:
		t.Values[fs.Code] = r.Thickness()
	case KindExtrusion:
		t.Values[fs.Code] = r.Extrusion()
	case KindPoint2Raw:
		t.Values[fs.Code] = r.Point2Raw()
	case KindPoint3Bit:
		t.Values[fs.Code] = r.Point3Bit()
	case KindColor:
		t.Values[fs.Code] = r.Color()
	case KindLinePoints:
		start, end := d.linePoints()
		t.Values[fs.Code] = start
		t.Values[fs.Code+1] = end
	case KindInsertScale:
		t.Values[fs.Code] = d.insertScale()
	case KindVertices2D:
		n := d.count(fs)
		pts := make([]bitstream.Vec2, 0, n)
		for i := 0; i < n && r.Err() == nil; i++ {
			if i == 0 || d.v.Before(format.AC1015) {
				pts = append(pts, r.Point2Raw())
			} else {
				pts = append(pts, r.Point2Default(pts[i-1]))
			}
		}
		t.Values[fs.Code] = pts
	case KindDoubleList:
		n := d.count(fs)
		vals := make([]float64, 0, n)
		for i := 0; i < n && r.Err() == nil; i++ {
			vals = append(vals, r.BitDouble())
		}
		t.Values[fs.Code] = vals
	case KindWidthList:
		n := d.count(fs)
		vals := make([]bitstream.Vec2, 0, n)
		for i := 0; i < n && r.Err() == nil; i++ {
			vals = append(vals, r.Point2Bit())
		}
		t.Values[fs.Code] = vals
	case KindTextList:
		n := d.count(fs)
		vals := make([]string, 0, n)
		for i := 0; i < n && r.Err() == nil; i++ {
			vals = append(vals, r.Text())
		}
		t.Values[fs.Code] = vals
	case KindXRecordData:
		n := int(r.BitLong())
		if n < 0 || n*8 > r.Remaining() {
			r.Fail(fmt.Errorf("%w: xrecord of %d bytes", format.ErrTruncated, n))
			return
		}
		items, err := decodeXRecord(r.RawBytes(n), d.v, cp)
		if err != nil {
			r.Fail(err)
			return
		}
		t.Values[fs.Code] = items
	}
}

func (d *decoder) linePoints() (bitstream.Vec3, bitstream.Vec3) {
	r := d.r
	if d.v.Before(format.AC1015) {
		return r.Point3Bit(), r.Point3Bit()
	}
	var start, end bitstream.Vec3
	zZero := r.Bit()
	start.X = r.RawDouble()
	end.X = r.DefaultDouble(start.X)
	start.Y = r.RawDouble()
	end.Y = r.DefaultDouble(start.Y)
	if !zZero {
		start.Z = r.RawDouble()
		end.Z = r.DefaultDouble(start.Z)
	}
	return start, end
}

func (d *decoder) insertScale() bitstream.Vec3 {
	r := d.r
	if d.v.Before(format.AC1015) {
		return r.Point3Bit()
	}
	switch r.TwoBits() {
	case 3:
		return bitstream.Vec3{X: 1, Y: 1, Z: 1}
	case 1:
		return bitstream.Vec3{X: 1, Y: r.DefaultDouble(1), Z: r.DefaultDouble(1)}
	case 2:
		x := r.RawDouble()
		return bitstream.Vec3{X: x, Y: x, Z: x}
	default:
		x := r.RawDouble()
		return bitstream.Vec3{X: x, Y: r.DefaultDouble(x), Z: r.DefaultDouble(x)}
	}
}
