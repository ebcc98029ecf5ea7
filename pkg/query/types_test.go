package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/format"
)

func TestFieldQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   FieldQuery
		wantErr bool
	}{
		{"valid equality query", FieldQuery{Field: "layer", Operator: "=", Value: "WALLS"}, false},
		{"valid range query", FieldQuery{Field: "handle", Operator: ">", Value: uint64(0x20)}, false},
		{"empty field", FieldQuery{Field: "", Operator: "=", Value: "x"}, true},
		{"empty operator", FieldQuery{Field: "layer", Value: "x"}, true},
		{"invalid operator", FieldQuery{Field: "layer", Operator: "!=", Value: "x"}, true},
		{"missing value", FieldQuery{Field: "layer", Operator: "="}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		expr    string
		want    FieldQuery
		wantErr bool
	}{
		{expr: "layer=WALLS", want: FieldQuery{Field: "layer", Operator: "=", Value: "WALLS"}},
		{expr: " Type = LINE ", want: FieldQuery{Field: "type", Operator: "=", Value: "LINE"}},
		{expr: "handle>=0x2A", want: FieldQuery{Field: "handle", Operator: ">=", Value: uint64(0x2A)}},
		{expr: "owner=1F", want: FieldQuery{Field: "owner", Operator: "=", Value: uint64(0x1F)}},
		{expr: "color<7", want: FieldQuery{Field: "color", Operator: "<", Value: int16(7)}},
		{expr: "handle<=zz", wantErr: true},
		{expr: "color=red", wantErr: true},
		{expr: "layer=", wantErr: true},
		{expr: "layer", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseQuery(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentFieldExtractor(t *testing.T) {
	d := document.New(format.AC1018)
	line := &document.Line{EntityBase: document.EntityBase{Color: bitstream.Color{Index: 5}}}
	require.NoError(t, d.AddEntity(d.ModelSpace, line))

	e := &DocumentFieldExtractor{}
	tests := []struct {
		obj   document.Object
		field string
		want  interface{}
		err   error
	}{
		{line, FieldType, "LINE", nil},
		{line, FieldLayer, "0", nil},
		{line, FieldColor, int16(5), nil},
		{line, FieldHandle, line.Handle, nil},
		{line, FieldOwner, d.ModelSpace.Handle, nil},
		{line, FieldBlock, document.ModelSpaceName, nil},
		{d.Layers, FieldOwner, nil, ErrFieldNotApplicable},
		{d.Layers, FieldLayer, nil, ErrFieldNotApplicable},
		{d.ModelSpace, FieldType, "BLOCK_HEADER", nil},
	}
	for _, tt := range tests {
		t.Run(document.TypeName(tt.obj)+"/"+tt.field, func(t *testing.T) {
			got, err := e.Extract(tt.obj, tt.field)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := e.Extract(line, "radius")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrFieldNotApplicable)
}

func BenchmarkFieldQuery_Validate(b *testing.B) {
	query := FieldQuery{
		Field:    "layer",
		Operator: "=",
		Value:    "WALLS",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = query.Validate()
	}
}
