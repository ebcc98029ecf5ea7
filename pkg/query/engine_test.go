package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/index"
)

type fixture struct {
	doc    *document.Document
	walls  *document.Layer
	door   *document.BlockRecord
	lines  []*document.Line
	circle *document.Circle
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{doc: document.New(format.AC1018)}
	d := f.doc
	f.walls = &document.Layer{Name: "Walls", LineType: d.Continuous}
	require.NoError(t, d.Add(f.walls))
	d.Layers.Add(f.walls)

	f.door = &document.BlockRecord{Name: "DOOR"}
	require.NoError(t, d.Add(f.door))
	d.BlockRecords.Add(f.door)

	for i := 0; i < 3; i++ {
		l := &document.Line{EntityBase: document.EntityBase{Layer: f.walls, Color: bitstream.Color{Index: int16(i + 1)}}}
		require.NoError(t, d.AddEntity(d.ModelSpace, l))
		f.lines = append(f.lines, l)
	}
	f.circle = &document.Circle{Radius: 1}
	require.NoError(t, d.AddEntity(f.door, f.circle))
	return f
}

func handlesOf(results []QueryResult) []uint64 {
	var out []uint64
	for _, r := range results {
		out = append(out, r.Handle)
	}
	return out
}

func TestSimpleQueryEngine_ExecuteQuery(t *testing.T) {
	f := newFixture(t)
	engine, err := NewDocumentEngine(context.Background(), f.doc)
	require.NoError(t, err)

	l0, l1, l2 := f.lines[0].Handle, f.lines[1].Handle, f.lines[2].Handle
	tests := []struct {
		name  string
		query FieldQuery
		want  []uint64
	}{
		{"by type", FieldQuery{Field: FieldType, Operator: "=", Value: "line"}, []uint64{l0, l1, l2}},
		{"by layer", FieldQuery{Field: FieldLayer, Operator: "=", Value: "WALLS"}, []uint64{l0, l1, l2}},
		{"default layer", FieldQuery{Field: FieldLayer, Operator: "=", Value: "0"}, []uint64{f.circle.Handle}},
		{"by block", FieldQuery{Field: FieldBlock, Operator: "=", Value: "door"}, []uint64{f.circle.Handle}},
		{"by owner", FieldQuery{Field: FieldOwner, Operator: "=", Value: f.door.Handle}, []uint64{f.circle.Handle}},
		{"owner as int", FieldQuery{Field: FieldOwner, Operator: "=", Value: int(f.door.Handle)}, []uint64{f.circle.Handle}},
		{"color above", FieldQuery{Field: FieldColor, Operator: ">", Value: 1}, []uint64{l1, l2}},
		{"color at most", FieldQuery{Field: FieldColor, Operator: "<=", Value: int16(1)}, []uint64{f.circle.Handle, l0}},
		{"handles from", FieldQuery{Field: FieldHandle, Operator: ">=", Value: l2}, []uint64{l2, f.circle.Handle}},
		{"no match", FieldQuery{Field: FieldType, Operator: "=", Value: "ARC"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := engine.ExecuteQuery(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, handlesOf(Collect(it)))
		})
	}
}

func TestSimpleQueryEngine_ExecuteRangeQuery(t *testing.T) {
	f := newFixture(t)
	engine, err := NewDocumentEngine(context.Background(), f.doc)
	require.NoError(t, err)

	it, err := engine.ExecuteRangeQuery(context.Background(),
		FieldQuery{Field: FieldColor, Operator: ">=", Value: int16(2)},
		FieldQuery{Field: FieldColor, Operator: "<", Value: int16(3)},
	)
	require.NoError(t, err)
	results := Collect(it)
	require.Len(t, results, 1)
	assert.Same(t, f.lines[1], results[0].Object)

	_, err = engine.ExecuteRangeQuery(context.Background(),
		FieldQuery{Field: FieldColor, Operator: ">", Value: 1},
		FieldQuery{Field: FieldHandle, Operator: "<", Value: 9},
	)
	assert.Error(t, err)

	_, err = engine.ExecuteRangeQuery(context.Background(),
		FieldQuery{Field: FieldColor, Operator: "<", Value: 1},
		FieldQuery{Field: FieldColor, Operator: "<", Value: 9},
	)
	assert.Error(t, err)
}

func TestSimpleQueryEngine_Errors(t *testing.T) {
	engine := NewSimpleQueryEngine(index.NewIndexManager(4), document.New(format.AC1015))

	_, err := engine.ExecuteQuery(context.Background(), FieldQuery{Field: "layer", Operator: "~", Value: "x"})
	assert.Error(t, err)

	_, err = engine.ExecuteQuery(context.Background(), FieldQuery{Field: "layer", Operator: "=", Value: "x"})
	assert.ErrorContains(t, err, "not indexed")
}

func TestIndexDocumentHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := IndexDocument(ctx, newFixture(t).doc, &DocumentFieldExtractor{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexCounts(t *testing.T) {
	f := newFixture(t)
	engine, err := NewDocumentEngine(context.Background(), f.doc)
	require.NoError(t, err)

	idx, ok := engine.IndexManager().Index(FieldHandle)
	require.True(t, ok)
	assert.Equal(t, f.doc.Len(), idx.Len())

	types, _ := engine.IndexManager().Index(FieldType)
	assert.Equal(t, 3, types.Values()["LINE"])
}
