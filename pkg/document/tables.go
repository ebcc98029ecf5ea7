package document

import (
	"strings"

	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/objects"
)

// TableEntry is a named member of a symbol table.
type TableEntry interface {
	Object
	EntryName() string
}

// Table is a symbol table control object and the entries it owns.
type Table[T TableEntry] struct {
	ObjectBase
	Code    objects.Type
	Entries []T
}

func (t *Table[T]) Type() objects.Type { return t.Code }

// Len returns the number of entries.
func (t *Table[T]) Len() int { return len(t.Entries) }

// Get finds an entry by name, ignoring case.
func (t *Table[T]) Get(name string) (T, bool) {
	for _, e := range t.Entries {
		if strings.EqualFold(e.EntryName(), name) {
			return e, true
		}
	}
	var zero T
	return zero, false
}

// Add appends e and makes t its owner.
func (t *Table[T]) Add(e T) {
	e.Common().Owner = t
	t.Entries = append(t.Entries, e)
}

// Contains reports whether e is an entry of t.
func (t *Table[T]) Contains(e Object) bool {
	for _, x := range t.Entries {
		if Object(x) == e {
			return true
		}
	}
	return false
}

// Well-known entry names.
const (
	DefaultLayerName = "0"
	ByLayerName      = "ByLayer"
	ByBlockName      = "ByBlock"
	ContinuousName   = "Continuous"
	StandardName     = "Standard"
	ModelSpaceName   = "*Model_Space"
	PaperSpaceName   = "*Paper_Space"
	ACADAppName      = "ACAD"
)

type Layer struct {
	ObjectBase
	Name       string
	Flags      int
	Color      bitstream.Color
	Plot       bool
	LineWeight byte
	LineType   *LineType
}

func (*Layer) Type() objects.Type  { return objects.TypeLayer }
func (l *Layer) EntryName() string { return l.Name }

// Frozen reports whether the layer's frozen flag is set.
func (l *Layer) Frozen() bool { return l.Flags&1 != 0 }

// Off reports whether the layer is turned off.
func (l *Layer) Off() bool { return l.Color.Index < 0 }

type LineType struct {
	ObjectBase
	Name          string
	Flags         int
	Description   string
	PatternLength float64
	Alignment     int
	Dashes        []float64
}

func (*LineType) Type() objects.Type  { return objects.TypeLType }
func (l *LineType) EntryName() string { return l.Name }

type TextStyle struct {
	ObjectBase
	Name        string
	Flags       int
	Height      float64
	WidthFactor float64
	Oblique     float64
	Generation  int
	LastHeight  float64
	Font        string
	BigFont     string
}

func (*TextStyle) Type() objects.Type  { return objects.TypeStyle }
func (s *TextStyle) EntryName() string { return s.Name }

type AppID struct {
	ObjectBase
	Name  string
	Flags int
	Code  int
}

func (*AppID) Type() objects.Type  { return objects.TypeAppID }
func (a *AppID) EntryName() string { return a.Name }

// BlockRecord is a block definition and the entities it owns.
type BlockRecord struct {
	ObjectBase
	Name      string
	Flags     int
	BasePoint bitstream.Vec3
	XRefPath  string
	Entities  []Entity
}

func (*BlockRecord) Type() objects.Type  { return objects.TypeBlockHeader }
func (b *BlockRecord) EntryName() string { return b.Name }

// AddEntity appends e and makes b its owner.
func (b *BlockRecord) AddEntity(e Entity) {
	e.Common().Owner = b
	b.Entities = append(b.Entities, e)
}
