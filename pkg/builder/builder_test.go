package builder

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
	"github.com/ssargent/dwgkit/pkg/objects"
)

func entity(h uint64, typ objects.Type, layer uint64) *objects.Template {
	t := objects.NewTemplate(h, typ)
	t.Entity.Mode = objects.ModeModelSpace
	t.Entity.Layer = layer
	t.Entity.LineTypeFlags = objects.LineTypeByLayer
	return t
}

func dictionary(h, owner uint64, entries map[string]uint64) *objects.Template {
	t := objects.NewTemplate(h, objects.TypeDictionary)
	t.Owner = owner
	var names []string
	for name, ref := range entries {
		names = append(names, name)
		t.AddRef(350, ref)
	}
	t.Set(3, names)
	return t
}

func build(t *testing.T, v format.Version, templates ...*objects.Template) (*document.Document, *notify.Collector) {
	t.Helper()
	c := notify.NewCollector()
	b := New(Options{Version: v, Notify: c.Handler()})
	for _, tpl := range templates {
		require.NoError(t, b.Add(tpl))
	}
	doc, err := b.Build(context.Background())
	require.NoError(t, err)
	return doc, c
}

func TestMissingReferenceUsesDefault(t *testing.T) {
	doc, c := build(t, format.AC1018, entity(0x30, objects.TypeLine, 0x2A))

	obj, ok := doc.Lookup(0x30)
	require.True(t, ok)
	line := obj.(*document.Line)
	require.NotNil(t, line.Layer)
	assert.Equal(t, document.DefaultLayerName, line.Layer.Name)
	assert.Same(t, doc.ByLayer, line.LineType)
	assert.Same(t, doc.ModelSpace, line.Owner)
	assert.Equal(t, []document.Entity{line}, doc.ModelSpace.Entities)

	assert.Equal(t, 1, c.Count(notify.KindMissingReference))
	for _, n := range c.All() {
		if n.Kind == notify.KindMissingReference {
			assert.Equal(t, uint64(0x30), n.Handle)
			assert.Contains(t, n.Message, "0x2A")
		}
	}
}

func TestDuplicateHandleIsFatal(t *testing.T) {
	b := New(Options{Version: format.AC1015})
	require.NoError(t, b.Add(objects.NewTemplate(0x10, objects.TypeDictionary)))

	err := b.Add(entity(0x10, objects.TypeLine, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, format.ErrDuplicateHandle)
	assert.ErrorIs(t, err, format.ErrCorrupt)
	assert.Equal(t, 1, b.Len())
}

func TestTypeMismatchUsesDefault(t *testing.T) {
	lt := objects.NewTemplate(0x15, objects.TypeLType)
	lt.Set(objects.CodeName, "DASHED")
	doc, c := build(t, format.AC1024, lt, entity(0x30, objects.TypeCircle, 0x15))

	obj, _ := doc.Lookup(0x30)
	circle := obj.(*document.Circle)
	assert.Equal(t, document.DefaultLayerName, circle.Layer.Name)
	assert.Equal(t, 1, c.Count(notify.KindTypeMismatch))
	assert.Zero(t, c.Count(notify.KindMissingReference))
}

func TestReferenceCycle(t *testing.T) {
	a := dictionary(0x20, 0, map[string]uint64{"B": 0x21})
	b := dictionary(0x21, 0x20, map[string]uint64{"A": 0x20})
	self := dictionary(0x22, 0x22, map[string]uint64{"SELF": 0x22})

	doc, c := build(t, format.AC1018, a, b, self)
	assert.Zero(t, c.Count(notify.KindMissingReference))

	objA, _ := doc.Lookup(0x20)
	objB, _ := doc.Lookup(0x21)
	da, db := objA.(*document.Dictionary), objB.(*document.Dictionary)

	got, ok := da.Get("B")
	require.True(t, ok)
	assert.Same(t, db, got)
	got, ok = db.Get("A")
	require.True(t, ok)
	assert.Same(t, da, got)
	assert.Same(t, da, db.Owner)

	objS, _ := doc.Lookup(0x22)
	ds := objS.(*document.Dictionary)
	got, _ = ds.Get("SELF")
	assert.Same(t, ds, got)
	assert.Same(t, ds, ds.Owner)
}

func TestNoDanglingReferences(t *testing.T) {
	text := entity(0x40, objects.TypeText, 0x99)
	text.SetRef(objects.CodeTextStyle, 0x98)
	text.EED = []objects.ExtendedData{{AppID: 0x97, Data: []byte{1, 2}}}
	text.XDictionary = 0x96
	text.Reactors = []uint64{0x95}
	text.Entity.LineTypeFlags = objects.LineTypeHandle
	text.Entity.LineType = 0x94

	ins := entity(0x41, objects.TypeInsert, 0)
	ins.SetRef(objects.CodeBlock, 0x93)

	doc, c := build(t, format.AC1018, text, ins)

	obj, _ := doc.Lookup(0x40)
	tx := obj.(*document.Text)
	assert.NotNil(t, tx.Layer)
	assert.NotNil(t, tx.LineType)
	require.NotNil(t, tx.Style)
	assert.Equal(t, document.StandardName, tx.Style.Name)
	require.Len(t, tx.EED, 1)
	require.NotNil(t, tx.EED[0].App)
	assert.Equal(t, document.ACADAppName, tx.EED[0].App.Name)
	assert.Nil(t, tx.XDictionary)
	assert.Empty(t, tx.Reactors)

	obj, _ = doc.Lookup(0x41)
	assert.Nil(t, obj.(*document.Insert).Block)
	assert.NotNil(t, obj.(*document.Insert).Layer, "a zero layer handle falls back too")

	assert.Equal(t, 8, c.Count(notify.KindMissingReference))

	for _, o := range doc.Objects() {
		if e, ok := o.(document.Entity); ok {
			assert.NotNil(t, e.EntityCommon().Layer)
			assert.NotNil(t, e.EntityCommon().LineType)
		}
	}
}

func TestSkippedReferencesAreSilent(t *testing.T) {
	c := notify.NewCollector()
	b := New(Options{Version: format.AC1018, Notify: c.Handler()})
	line := entity(0x30, objects.TypeLine, 0)
	line.Reactors = []uint64{0x31}
	require.NoError(t, b.Add(line))
	b.Skip(0x31)

	doc, err := b.Build(context.Background())
	require.NoError(t, err)
	obj, _ := doc.Lookup(0x30)
	assert.Empty(t, obj.Common().Reactors)
	assert.Equal(t, 1, c.Count(notify.KindMissingReference), "only the zero layer handle is reported")
}

func TestTablesAndDefaults(t *testing.T) {
	ctrl := objects.NewTemplate(0x2, objects.TypeLayerControl)
	ctrl.Refs[objects.CodeEntries] = []uint64{0x10, 0x11}
	l0 := objects.NewTemplate(0x10, objects.TypeLayer)
	l0.Owner = 0x2
	l0.Set(objects.CodeName, "0")
	l0.SetRef(objects.CodeLayerLType, 0x12)
	walls := objects.NewTemplate(0x11, objects.TypeLayer)
	walls.Owner = 0x2
	walls.Set(objects.CodeName, "WALLS")
	walls.Set(62, bitstream.Color{Index: 1})
	walls.SetRef(objects.CodeLayerLType, 0x12)
	dashed := objects.NewTemplate(0x12, objects.TypeLType)
	dashed.Set(objects.CodeName, "DASHED")
	dashed.Set(49, []float64{0.5, -0.25})

	doc, c := build(t, format.AC1018, ctrl, l0, walls, dashed, entity(0x30, objects.TypeLine, 0x11))
	assert.Zero(t, c.Count(notify.KindMissingReference))

	assert.Equal(t, uint64(0x2), doc.Layers.Handle)
	require.Equal(t, 2, doc.Layers.Len())
	w, ok := doc.Layers.Get("walls")
	require.True(t, ok)
	assert.Same(t, doc.Layers, w.Owner)
	assert.Equal(t, int16(1), w.Color.Index)
	assert.Equal(t, "DASHED", w.LineType.Name)
	assert.Equal(t, []float64{0.5, -0.25}, w.LineType.Dashes)

	obj, _ := doc.Lookup(0x30)
	assert.Same(t, w, obj.(*document.Line).Layer)

	for _, tbl := range doc.Tables() {
		assert.NotZero(t, tbl.Common().Handle)
		assert.Nil(t, tbl.Common().Owner)
	}
	assert.NotNil(t, doc.ModelSpace)
	assert.NotNil(t, doc.NamedObjects)
	assert.Greater(t, doc.ByLayer.Handle, uint64(0x30), "defaults take fresh handles")
}

func TestR2000EntityChain(t *testing.T) {
	block := objects.NewTemplate(0x20, objects.TypeBlockHeader)
	block.Set(objects.CodeName, "DOOR")
	block.SetRef(objects.CodeFirstEntity, 0x33)
	block.SetRef(objects.CodeLastEntity, 0x31)

	chain := map[uint64][2]uint64{0x33: {0, 0x32}, 0x32: {0x33, 0x31}, 0x31: {0x32, 0}}
	var templates []*objects.Template
	templates = append(templates, block)
	for h, link := range chain {
		e := entity(h, objects.TypeLine, 0)
		e.Entity.Mode = objects.ModeOwner
		e.Owner = 0x20
		e.Entity.Prev, e.Entity.Next = link[0], link[1]
		templates = append(templates, e)
	}
	stray := entity(0x30, objects.TypePoint, 0)
	stray.Entity.Mode = objects.ModeOwner
	stray.Owner = 0x20
	stray.Entity.NoLinks = true
	templates = append(templates, stray)

	doc, _ := build(t, format.AC1015, templates...)
	obj, _ := doc.Lookup(0x20)
	var got []uint64
	for _, e := range obj.(*document.BlockRecord).Entities {
		got = append(got, e.Common().Handle)
	}
	assert.Equal(t, []uint64{0x33, 0x32, 0x31, 0x30}, got)
}

func TestEntityChainCycle(t *testing.T) {
	block := objects.NewTemplate(0x20, objects.TypeBlockHeader)
	block.SetRef(objects.CodeFirstEntity, 0x31)
	block.SetRef(objects.CodeLastEntity, 0x39)
	a := entity(0x31, objects.TypeLine, 0)
	a.Entity.Mode, a.Owner, a.Entity.Next = objects.ModeOwner, 0x20, 0x32
	b := entity(0x32, objects.TypeLine, 0)
	b.Entity.Mode, b.Owner, b.Entity.Next = objects.ModeOwner, 0x20, 0x31

	doc, _ := build(t, format.AC1015, block, a, b)
	obj, _ := doc.Lookup(0x20)
	assert.Len(t, obj.(*document.BlockRecord).Entities, 2)
}

func TestInsertAttributes(t *testing.T) {
	block := objects.NewTemplate(0x20, objects.TypeBlockHeader)
	block.Set(objects.CodeName, "TAG")

	ins := entity(0x30, objects.TypeInsert, 0)
	ins.Set(66, true)
	ins.SetRef(objects.CodeBlock, 0x20)
	ins.Refs[objects.CodeOwnedObjects] = []uint64{0x33, 0x32}
	ins.SetRef(objects.CodeSeqEnd, 0x34)

	raw := func(h uint64, typ objects.Type) *objects.Template {
		t := entity(h, typ, 0)
		t.Entity.Mode = objects.ModeOwner
		t.Owner = 0x30
		t.Unknown = true
		t.Raw = []byte{0xAA}
		t.Version = format.AC1018
		return t
	}
	doc, c := build(t, format.AC1018, block, ins, raw(0x32, objects.TypeAttrib), raw(0x33, objects.TypeAttrib), raw(0x34, objects.TypeSeqEnd))
	assert.Equal(t, 4, c.Count(notify.KindMissingReference), "every entity has a zero layer handle")

	obj, _ := doc.Lookup(0x30)
	insert := obj.(*document.Insert)
	require.NotNil(t, insert.Block)
	assert.Equal(t, "TAG", insert.Block.Name)
	require.Len(t, insert.Attributes, 2)
	assert.Equal(t, uint64(0x33), insert.Attributes[0].Common().Handle)
	assert.Equal(t, uint64(0x32), insert.Attributes[1].Common().Handle)
	require.NotNil(t, insert.SeqEnd)
	assert.Equal(t, "SEQEND", document.TypeName(insert.SeqEnd))
	assert.Equal(t, []document.Entity{insert}, doc.ModelSpace.Entities)
}

func TestBuildHonoursContext(t *testing.T) {
	b := New(Options{Version: format.AC1018})
	require.NoError(t, b.Add(entity(0x30, objects.TypeLine, 0)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// shape describes a document by handle for structural comparison.
func shape(d *document.Document) map[uint64]string {
	out := make(map[uint64]string)
	for _, o := range d.Objects() {
		c := o.Common()
		s := fmt.Sprintf("%s owner=%x", document.TypeName(o), handleOf(c.Owner))
		if e, ok := o.(document.Entity); ok {
			eb := e.EntityCommon()
			s += fmt.Sprintf(" layer=%x ltype=%x color=%d", eb.Layer.Handle, eb.LineType.Handle, eb.Color.Index)
		}
		switch v := o.(type) {
		case *document.Line:
			s += fmt.Sprintf(" %v %v", v.Start, v.End)
		case *document.Circle:
			s += fmt.Sprintf(" %v %g", v.Center, v.Radius)
		case *document.Text:
			s += fmt.Sprintf(" %q", v.Value)
			if v.Style != nil {
				s += fmt.Sprintf(" style=%x", v.Style.Handle)
			}
		case *document.Insert:
			s += fmt.Sprintf(" block=%x", v.Block.Handle)
		case *document.LWPolyline:
			s += fmt.Sprintf(" %d %v %v", v.Flags, v.Vertices, v.Bulges)
		case *document.BlockRecord:
			s += fmt.Sprintf(" %s n=%d", v.Name, len(v.Entities))
		case *document.Layer:
			s += fmt.Sprintf(" %s lt=%x", v.Name, v.LineType.Handle)
		case *document.Dictionary:
			for _, e := range v.Entries {
				s += fmt.Sprintf(" %s=%x", e.Name, e.Object.Common().Handle)
			}
		case *document.XRecord:
			s += fmt.Sprintf(" %v", v.Items)
		}
		out[c.Handle] = s
	}
	return out
}

func handleOf(o document.Object) uint64 {
	if o == nil {
		return 0
	}
	return o.Common().Handle
}

func sampleDocument(t *testing.T) *document.Document {
	d := document.New(format.AC1018)
	walls := &document.Layer{Name: "WALLS", Color: bitstream.Color{Index: 3}, Plot: true, LineType: d.Continuous}
	require.NoError(t, d.Add(walls))
	d.Layers.Add(walls)

	door := &document.BlockRecord{Name: "DOOR"}
	require.NoError(t, d.Add(door))
	d.BlockRecords.Add(door)
	require.NoError(t, d.AddEntity(door, &document.Arc{Radius: 0.9, EndAngle: 1.57, Extrusion: bitstream.ZAxis}))

	require.NoError(t, d.AddEntity(d.ModelSpace, &document.Line{
		EntityBase: document.EntityBase{Layer: walls, LineTypeScale: 1},
		Start:      bitstream.Vec3{X: 1, Y: 2},
		End:        bitstream.Vec3{X: 10, Y: 2},
		Extrusion:  bitstream.ZAxis,
	}))
	require.NoError(t, d.AddEntity(d.ModelSpace, &document.Insert{Block: door, Scale: bitstream.Vec3{X: 1, Y: 1, Z: 1}, Extrusion: bitstream.ZAxis}))
	require.NoError(t, d.AddEntity(d.PaperSpace, &document.Text{Style: d.CurrentStyle, Value: "TITLE", Height: 2.5, WidthFactor: 1, Extrusion: bitstream.ZAxis}))
	require.NoError(t, d.AddEntity(d.ModelSpace, &document.LWPolyline{
		Flags:     document.LWPolylineClosed,
		Vertices:  []bitstream.Vec2{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 5}},
		Bulges:    []float64{0, 0.5, 0},
		Extrusion: bitstream.ZAxis,
	}))

	x := &document.XRecord{Items: []objects.XRecordItem{{Code: 1, Value: "note"}, {Code: 40, Value: 2.5}}}
	require.NoError(t, d.Add(x))
	d.NamedObjects.Set("NOTES", x)
	return d
}

func TestFlattenBuildRoundTrip(t *testing.T) {
	d := sampleDocument(t)
	want := shape(d)

	flat, err := Flatten(d, FlattenOptions{Version: format.AC1018})
	require.NoError(t, err)
	require.Len(t, flat.Templates, d.Len())
	assert.Greater(t, flat.Header.HandSeed, flat.Templates[len(flat.Templates)-1].Handle)

	c := notify.NewCollector()
	b := New(Options{Version: format.AC1018, Header: flat.Header, Notify: c.Handler()})
	for _, tpl := range flat.Templates {
		require.NoError(t, b.Add(tpl))
	}
	got, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Zero(t, c.Count(notify.KindMissingReference))
	assert.Zero(t, c.Count(notify.KindTypeMismatch))
	assert.Equal(t, want, shape(got))
	assert.Equal(t, d.ModelSpace.Handle, got.ModelSpace.Handle)
	assert.Equal(t, d.CurrentLayer.Handle, got.CurrentLayer.Handle)
	assert.Len(t, got.PaperSpace.Entities, 1)
}

func TestFlattenAssignsHandles(t *testing.T) {
	d := document.New(format.AC1015)
	line := &document.Line{}
	d.ModelSpace.AddEntity(line)
	require.Zero(t, line.Handle)

	_, err := Flatten(d, FlattenOptions{Version: format.AC1015})
	require.NoError(t, err)
	assert.NotZero(t, line.Handle)
	got, ok := d.Lookup(line.Handle)
	require.True(t, ok)
	assert.Same(t, line, got)
}

func TestFlattenDropsForeignRawRecords(t *testing.T) {
	d := document.New(format.AC1018)
	raw := &document.UnknownEntity{RawRecord: document.RawRecord{Code: objects.TypeSpline, Data: []byte{1}, Version: format.AC1018}}
	require.NoError(t, d.AddEntity(d.ModelSpace, raw))

	c := notify.NewCollector()
	flat, err := Flatten(d, FlattenOptions{Version: format.AC1015, Notify: c.Handler()})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Count(notify.KindNotSupported))
	for _, tpl := range flat.Templates {
		assert.NotEqual(t, raw.Handle, tpl.Handle)
		if tpl.Handle == d.ModelSpace.Handle {
			assert.Zero(t, tpl.Ref(objects.CodeFirstEntity))
		}
	}

	flat, err = Flatten(d, FlattenOptions{Version: format.AC1018})
	require.NoError(t, err)
	assert.Len(t, flat.Templates, d.Len())

	c = notify.NewCollector()
	flat, err = Flatten(d, FlattenOptions{Version: format.AC1018, DropUnknown: true, Notify: c.Handler()})
	require.NoError(t, err)
	assert.Len(t, flat.Templates, d.Len()-1)
	assert.Equal(t, 1, c.Count(notify.KindSkippedObject))
}
