package objects

import (
	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/format"
)

// Entity placement modes.
const (
	ModeOwner      byte = 0
	ModePaperSpace byte = 1
	ModeModelSpace byte = 2
)

// Line type flags of an entity.
const (
	LineTypeByLayer    byte = 0
	LineTypeByBlock    byte = 1
	LineTypeContinuous byte = 2
	LineTypeHandle     byte = 3
)

// ExtendedData is one block of application data attached to an object.
type ExtendedData struct {
	AppID uint64
	Data  []byte
}

// EntityData holds the fields common to every entity.
type EntityData struct {
	Mode           byte
	NoLinks        bool
	Prev           uint64
	Next           uint64
	Layer          uint64
	LineType       uint64
	LineTypeFlags  byte
	PlotStyle      uint64
	PlotStyleFlags byte
	Color          bitstream.Color
	LineTypeScale  float64
	Invisible      bool
	LineWeight     byte
	Graphics       []byte
}

// Template is the decoded, unresolved form of one object record. Handle
// references are absolute handle values and are never dereferenced here.
type Template struct {
	Handle      uint64
	Type        Type
	Class       *Class
	Owner       uint64
	Reactors    []uint64
	XDictionary uint64
	EED         []ExtendedData
	Entity      *EntityData

	// Values and Refs hold the type-specific fields keyed by group code.
	Values map[int]any
	Refs   map[int][]uint64

	// Raw is the record body of an object whose type is not understood.
	Raw           []byte
	RawHandleBits int
	Unknown       bool
	Version       format.Version
	Offset        int64

	// Children is filled by the document builder.
	Children []uint64
}

// NewTemplate returns an empty template of type t.
func NewTemplate(handle uint64, t Type) *Template {
	tpl := &Template{
		Handle: handle,
		Type:   t,
		Values: make(map[int]any),
		Refs:   make(map[int][]uint64),
	}
	if t.IsEntity() {
		tpl.Entity = &EntityData{LineTypeScale: 1, Color: bitstream.Color{Index: bitstream.ByLayer}}
	}
	return tpl
}

// IsEntity reports whether the template carries entity data.
func (t *Template) IsEntity() bool {
	return t.Entity != nil
}

// Name returns the DXF name of the template's type.
func (t *Template) Name() string {
	if t.Class != nil && t.Class.DXFName != "" {
		return t.Class.DXFName
	}
	return t.Type.Name()
}

// Set stores a field value.
func (t *Template) Set(code int, v any) {
	if t.Values == nil {
		t.Values = make(map[int]any)
	}
	t.Values[code] = v
}

// Float returns a numeric field as float64.
func (t *Template) Float(code int) float64 {
	return toFloat(t.Values[code])
}

// Int returns an integer field.
func (t *Template) Int(code int) int {
	return toInt(t.Values[code])
}

// Bool returns a flag field.
func (t *Template) Bool(code int) bool {
	switch v := t.Values[code].(type) {
	case bool:
		return v
	case int:
		return v != 0
	}
	return false
}

// Text returns a text field.
func (t *Template) Text(code int) string {
	s, _ := t.Values[code].(string)
	return s
}

// Vec2 returns a 2D point field.
func (t *Template) Vec2(code int) bitstream.Vec2 {
	switch v := t.Values[code].(type) {
	case bitstream.Vec2:
		return v
	case bitstream.Vec3:
		return bitstream.Vec2{X: v.X, Y: v.Y}
	}
	return bitstream.Vec2{}
}

// Vec3 returns a 3D point field.
func (t *Template) Vec3(code int) bitstream.Vec3 {
	switch v := t.Values[code].(type) {
	case bitstream.Vec3:
		return v
	case bitstream.Vec2:
		return bitstream.Vec3{X: v.X, Y: v.Y}
	}
	return bitstream.Vec3{}
}

// Color returns a color field.
func (t *Template) Color(code int) bitstream.Color {
	c, _ := t.Values[code].(bitstream.Color)
	return c
}

// Ref returns the first handle stored under code, or 0.
func (t *Template) Ref(code int) uint64 {
	if refs := t.Refs[code]; len(refs) > 0 {
		return refs[0]
	}
	return 0
}

// SetRef stores a single handle under code.
func (t *Template) SetRef(code int, h uint64) {
	if t.Refs == nil {
		t.Refs = make(map[int][]uint64)
	}
	t.Refs[code] = []uint64{h}
}

// AddRef appends a handle under code.
func (t *Template) AddRef(code int, h uint64) {
	if t.Refs == nil {
		t.Refs = make(map[int][]uint64)
	}
	t.Refs[code] = append(t.Refs[code], h)
}
