package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/objects"
)

func TestNewHasDefaults(t *testing.T) {
	d := New(format.AC1018)

	require.NotNil(t, d.ModelSpace)
	require.NotNil(t, d.PaperSpace)
	require.NotNil(t, d.ByLayer)
	require.NotNil(t, d.ByBlock)
	require.NotNil(t, d.Continuous)
	require.NotNil(t, d.NamedObjects)

	layer, ok := d.Layers.Get("0")
	require.True(t, ok)
	assert.Same(t, d.Continuous, layer.LineType)
	assert.Same(t, layer, d.CurrentLayer)

	_, ok = d.TextStyles.Get("STANDARD")
	assert.True(t, ok, "lookups ignore case")

	assert.Equal(t, []*LineType{d.ByBlock, d.ByLayer, d.Continuous}, d.LineTypes.Entries)
	assert.Equal(t, []*BlockRecord{d.ModelSpace, d.PaperSpace}, d.BlockRecords.Entries)

	for _, e := range d.Layers.Entries {
		assert.Same(t, d.Layers, e.Owner)
	}
	for _, tbl := range d.Tables() {
		assert.NotZero(t, tbl.Common().Handle)
		assert.Nil(t, tbl.Common().Owner)
	}
}

func TestAddAllocatesHandles(t *testing.T) {
	d := Empty(format.AC1015)
	require.NoError(t, d.Add(&Layer{ObjectBase: ObjectBase{Handle: 0x10}, Name: "walls"}))

	l := &Layer{Name: "doors"}
	require.NoError(t, d.Add(l))
	assert.Equal(t, uint64(0x11), l.Handle)

	d.Header.HandSeed = 0x40
	assert.Equal(t, uint64(0x40), d.NextHandle())
	assert.Equal(t, uint64(0x41), d.NextHandle())
}

func TestAddDuplicateHandle(t *testing.T) {
	d := Empty(format.AC1015)
	require.NoError(t, d.Add(&Layer{ObjectBase: ObjectBase{Handle: 0x10}}))
	err := d.Add(&LineType{ObjectBase: ObjectBase{Handle: 0x10}})
	assert.ErrorIs(t, err, format.ErrDuplicateHandle)
	assert.ErrorIs(t, err, format.ErrCorrupt)
	assert.Equal(t, 1, d.Len())
}

func TestAddEntity(t *testing.T) {
	d := New(format.AC1024)
	line := &Line{}
	require.NoError(t, d.AddEntity(d.ModelSpace, line))

	assert.Same(t, d.ModelSpace, line.Block())
	assert.Same(t, d.ByLayer, line.LineType)
	assert.Equal(t, "0", line.Layer.Name)
	assert.Equal(t, []Entity{line}, d.Entities())

	got, ok := d.Lookup(line.Handle)
	require.True(t, ok)
	assert.Same(t, line, got)
}

func TestWalkInHandleOrder(t *testing.T) {
	d := New(format.AC1032)
	var last uint64
	n := 0
	d.Walk(func(o Object) bool {
		assert.Greater(t, o.Common().Handle, last)
		last = o.Common().Handle
		n++
		return true
	})
	assert.Equal(t, d.Len(), n)
	assert.Len(t, d.Objects(), n)
}

func TestDictionary(t *testing.T) {
	dict := &Dictionary{}
	a, b := &XRecord{}, &XRecord{}
	dict.Set("A", a)
	dict.Set("B", b)
	dict.Set("A", b)

	got, ok := dict.Get("A")
	require.True(t, ok)
	assert.Same(t, b, got)
	assert.Len(t, dict.Entries, 2)
	assert.Same(t, dict, a.Owner)

	_, ok = dict.Get("missing")
	assert.False(t, ok)
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "LINE", TypeName(&Line{}))
	assert.Equal(t, "LAYER_CONTROL", TypeName(New(format.AC1015).Layers))

	raw := &UnknownObject{RawRecord: RawRecord{Code: 500, Class: &objects.Class{Number: 500, DXFName: "WIPEOUTVARIABLES"}}}
	assert.Equal(t, "WIPEOUTVARIABLES", TypeName(raw))
	assert.True(t, IsRaw(raw))
	assert.False(t, IsRaw(&Line{}))

	ent := &UnknownEntity{RawRecord: RawRecord{Code: objects.TypeSpline}}
	assert.Equal(t, "SPLINE", TypeName(ent))
}

func TestFallback(t *testing.T) {
	d := New(format.AC1015)
	assert.Equal(t, DefaultLayerName, d.Fallback(DefaultLayer).(*Layer).Name)
	assert.Same(t, d.ByLayer, d.Fallback(DefaultByLayer))
	assert.Same(t, d.Continuous, d.Fallback(DefaultContinuous))
	assert.Same(t, d.ModelSpace, d.Fallback(DefaultModelSpace))
	assert.Same(t, d.PaperSpace, d.Fallback(DefaultPaperSpace))
	assert.Equal(t, ACADAppName, d.Fallback(DefaultApp).(*AppID).Name)
	assert.Nil(t, d.Fallback(DefaultNone))
	assert.Same(t, d.Layers, d.TableFor(objects.TypeLayer))
}
