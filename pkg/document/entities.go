package document

import (
	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/objects"
)

// Entity is a graphical object owned by a block record.
type Entity interface {
	Object
	EntityCommon() *EntityBase
}

// EntityBase holds the fields common to every entity. After a build Layer
// and LineType are never nil.
type EntityBase struct {
	ObjectBase
	Layer          *Layer
	LineType       *LineType
	LineTypeScale  float64
	Color          bitstream.Color
	Invisible      bool
	LineWeight     byte
	PlotStyleFlags byte
	PlotStyle      Object
	Graphics       []byte
}

// EntityCommon returns the shared entity fields.
func (e *EntityBase) EntityCommon() *EntityBase { return e }

// Block returns the block record owning the entity, or nil.
func (e *EntityBase) Block() *BlockRecord {
	b, _ := e.Owner.(*BlockRecord)
	return b
}

type Line struct {
	EntityBase
	Start, End bitstream.Vec3
	Thickness  float64
	Extrusion  bitstream.Vec3
}

func (*Line) Type() objects.Type { return objects.TypeLine }

type Circle struct {
	EntityBase
	Center    bitstream.Vec3
	Radius    float64
	Thickness float64
	Extrusion bitstream.Vec3
}

func (*Circle) Type() objects.Type { return objects.TypeCircle }

type Arc struct {
	EntityBase
	Center     bitstream.Vec3
	Radius     float64
	Thickness  float64
	Extrusion  bitstream.Vec3
	StartAngle float64
	EndAngle   float64
}

func (*Arc) Type() objects.Type { return objects.TypeArc }

type Point struct {
	EntityBase
	Location   bitstream.Vec3
	Thickness  float64
	Extrusion  bitstream.Vec3
	XAxisAngle float64
}

func (*Point) Type() objects.Type { return objects.TypePoint }

type Text struct {
	EntityBase
	Value           string
	Elevation       float64
	Insertion       bitstream.Vec2
	Alignment       bitstream.Vec2
	Extrusion       bitstream.Vec3
	Thickness       float64
	Oblique         float64
	Rotation        float64
	Height          float64
	WidthFactor     float64
	Generation      int
	HorizontalAlign int
	VerticalAlign   int
	Style           *TextStyle
}

func (*Text) Type() objects.Type { return objects.TypeText }

// Insert places a block reference. Attributes are the entities it owns,
// usually ATTRIB records followed by the closing SEQEND.
type Insert struct {
	EntityBase
	Block      *BlockRecord
	Insertion  bitstream.Vec3
	Scale      bitstream.Vec3
	Rotation   float64
	Extrusion  bitstream.Vec3
	Attributes []Entity
	SeqEnd     Entity
}

func (*Insert) Type() objects.Type { return objects.TypeInsert }

// LWPolyline flag bits.
const (
	LWPolylineExtrusion     = 1
	LWPolylineThickness     = 2
	LWPolylineConstantWidth = 4
	LWPolylineElevation     = 8
	LWPolylineBulges        = 16
	LWPolylineWidths        = 32
	LWPolylineClosed        = 512
)

type LWPolyline struct {
	EntityBase
	Flags         int
	ConstantWidth float64
	Elevation     float64
	Thickness     float64
	Extrusion     bitstream.Vec3
	Vertices      []bitstream.Vec2
	Bulges        []float64
	Widths        []bitstream.Vec2
}

func (*LWPolyline) Type() objects.Type { return objects.TypeLWPolyline }

// Closed reports whether the last vertex connects to the first.
func (p *LWPolyline) Closed() bool { return p.Flags&LWPolylineClosed != 0 }
