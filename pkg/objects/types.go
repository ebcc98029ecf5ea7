package objects

import "fmt"

// Type is the type code stored at the start of every object record. Codes
// from 500 up are class numbers resolved through the class table.
type Type uint16

// Fixed type codes.
const (
	TypeText             Type = 0x01
	TypeAttrib           Type = 0x02
	TypeAttDef           Type = 0x03
	TypeBlock            Type = 0x04
	TypeEndBlk           Type = 0x05
	TypeSeqEnd           Type = 0x06
	TypeInsert           Type = 0x07
	TypeMInsert          Type = 0x08
	TypeVertex2D         Type = 0x0A
	TypeVertex3D         Type = 0x0B
	TypeVertexMesh       Type = 0x0C
	TypeVertexPFace      Type = 0x0D
	TypeVertexPFaceFace  Type = 0x0E
	TypePolyline2D       Type = 0x0F
	TypePolyline3D       Type = 0x10
	TypeArc              Type = 0x11
	TypeCircle           Type = 0x12
	TypeLine             Type = 0x13
	TypeDimOrdinate      Type = 0x14
	TypeDimLinear        Type = 0x15
	TypeDimAligned       Type = 0x16
	TypeDimAng3Pt        Type = 0x17
	TypeDimAng2Ln        Type = 0x18
	TypeDimRadius        Type = 0x19
	TypeDimDiameter      Type = 0x1A
	TypePoint            Type = 0x1B
	Type3DFace           Type = 0x1C
	TypePolylinePFace    Type = 0x1D
	TypePolylineMesh     Type = 0x1E
	TypeSolid            Type = 0x1F
	TypeTrace            Type = 0x20
	TypeShape            Type = 0x21
	TypeViewport         Type = 0x22
	TypeEllipse          Type = 0x23
	TypeSpline           Type = 0x24
	TypeRegion           Type = 0x25
	Type3DSolid          Type = 0x26
	TypeBody             Type = 0x27
	TypeRay              Type = 0x28
	TypeXLine            Type = 0x29
	TypeDictionary       Type = 0x2A
	TypeOleFrame         Type = 0x2B
	TypeMText            Type = 0x2C
	TypeLeader           Type = 0x2D
	TypeTolerance        Type = 0x2E
	TypeMLine            Type = 0x2F
	TypeBlockControl     Type = 0x30
	TypeBlockHeader      Type = 0x31
	TypeLayerControl     Type = 0x32
	TypeLayer            Type = 0x33
	TypeStyleControl     Type = 0x34
	TypeStyle            Type = 0x35
	TypeLTypeControl     Type = 0x38
	TypeLType            Type = 0x39
	TypeViewControl      Type = 0x3C
	TypeView             Type = 0x3D
	TypeUCSControl       Type = 0x3E
	TypeUCS              Type = 0x3F
	TypeVPortControl     Type = 0x40
	TypeVPort            Type = 0x41
	TypeAppIDControl     Type = 0x42
	TypeAppID            Type = 0x43
	TypeDimStyleControl  Type = 0x44
	TypeDimStyle         Type = 0x45
	TypeVPEntHdrControl  Type = 0x46
	TypeVPEntHdr         Type = 0x47
	TypeGroup            Type = 0x48
	TypeMLineStyle       Type = 0x49
	TypeOle2Frame        Type = 0x4A
	TypeLongTransaction  Type = 0x4C
	TypeLWPolyline       Type = 0x4D
	TypeHatch            Type = 0x4E
	TypeXRecord          Type = 0x4F
	TypePlaceholder      Type = 0x50
	TypeVBAProject       Type = 0x51
	TypeLayout           Type = 0x52
	TypeClassBase        Type = 500
)

var typeNames = map[Type]string{
	TypeText: "TEXT", TypeAttrib: "ATTRIB", TypeAttDef: "ATTDEF", TypeBlock: "BLOCK",
	TypeEndBlk: "ENDBLK", TypeSeqEnd: "SEQEND", TypeInsert: "INSERT", TypeMInsert: "MINSERT",
	TypeVertex2D: "VERTEX_2D", TypeVertex3D: "VERTEX_3D", TypeVertexMesh: "VERTEX_MESH",
	TypeVertexPFace: "VERTEX_PFACE", TypeVertexPFaceFace: "VERTEX_PFACE_FACE",
	TypePolyline2D: "POLYLINE_2D", TypePolyline3D: "POLYLINE_3D", TypeArc: "ARC",
	TypeCircle: "CIRCLE", TypeLine: "LINE", TypeDimOrdinate: "DIMENSION_ORDINATE",
	TypeDimLinear: "DIMENSION_LINEAR", TypeDimAligned: "DIMENSION_ALIGNED",
	TypeDimAng3Pt: "DIMENSION_ANG3PT", TypeDimAng2Ln: "DIMENSION_ANG2LN",
	TypeDimRadius: "DIMENSION_RADIUS", TypeDimDiameter: "DIMENSION_DIAMETER",
	TypePoint: "POINT", Type3DFace: "3DFACE", TypePolylinePFace: "POLYLINE_PFACE",
	TypePolylineMesh: "POLYLINE_MESH", TypeSolid: "SOLID", TypeTrace: "TRACE",
	TypeShape: "SHAPE", TypeViewport: "VIEWPORT", TypeEllipse: "ELLIPSE", TypeSpline: "SPLINE",
	TypeRegion: "REGION", Type3DSolid: "3DSOLID", TypeBody: "BODY", TypeRay: "RAY",
	TypeXLine: "XLINE", TypeDictionary: "DICTIONARY", TypeOleFrame: "OLEFRAME",
	TypeMText: "MTEXT", TypeLeader: "LEADER", TypeTolerance: "TOLERANCE", TypeMLine: "MLINE",
	TypeBlockControl: "BLOCK_CONTROL", TypeBlockHeader: "BLOCK_HEADER",
	TypeLayerControl: "LAYER_CONTROL", TypeLayer: "LAYER", TypeStyleControl: "STYLE_CONTROL",
	TypeStyle: "STYLE", TypeLTypeControl: "LTYPE_CONTROL", TypeLType: "LTYPE",
	TypeViewControl: "VIEW_CONTROL", TypeView: "VIEW", TypeUCSControl: "UCS_CONTROL",
	TypeUCS: "UCS", TypeVPortControl: "VPORT_CONTROL", TypeVPort: "VPORT",
	TypeAppIDControl: "APPID_CONTROL", TypeAppID: "APPID",
	TypeDimStyleControl: "DIMSTYLE_CONTROL", TypeDimStyle: "DIMSTYLE",
	TypeVPEntHdrControl: "VP_ENT_HDR_CONTROL", TypeVPEntHdr: "VP_ENT_HDR",
	TypeGroup: "GROUP", TypeMLineStyle: "MLINESTYLE", TypeOle2Frame: "OLE2FRAME",
	TypeLongTransaction: "LONG_TRANSACTION", TypeLWPolyline: "LWPOLYLINE", TypeHatch: "HATCH",
	TypeXRecord: "XRECORD", TypePlaceholder: "ACDBPLACEHOLDER", TypeVBAProject: "VBA_PROJECT",
	TypeLayout: "LAYOUT",
}

// Name returns the DXF name of a fixed type code.
func (t Type) Name() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	if t >= TypeClassBase {
		return fmt.Sprintf("CLASS_%d", uint16(t))
	}
	return fmt.Sprintf("TYPE_0x%02X", uint16(t))
}

func (t Type) String() string { return t.Name() }

// Known reports whether t is a fixed type code.
func (t Type) Known() bool {
	_, ok := typeNames[t]
	return ok
}

// IsEntity reports whether a fixed type code denotes a graphical entity.
// Class-based types answer through their class.
func (t Type) IsEntity() bool {
	switch {
	case t >= TypeText && t <= TypeXLine:
		return true
	case t >= TypeOleFrame && t <= TypeMLine:
		return true
	case t == TypeOle2Frame, t == TypeLWPolyline, t == TypeHatch:
		return true
	}
	return false
}

// IsControl reports whether t is a symbol table control object.
func (t Type) IsControl() bool {
	switch t {
	case TypeBlockControl, TypeLayerControl, TypeStyleControl, TypeLTypeControl,
		TypeViewControl, TypeUCSControl, TypeVPortControl, TypeAppIDControl,
		TypeDimStyleControl, TypeVPEntHdrControl:
		return true
	}
	return false
}

// ParseType resolves a DXF name to its fixed type code.
func ParseType(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}
