package objects

import (
	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/format"
)

// FieldKind is the encoding of a schema field.
type FieldKind int

const (
	KindBit FieldKind = iota
	KindBitPair
	KindShort
	KindLong
	KindDouble
	KindRawChar
	KindRawShort
	KindRawDouble
	KindText
	KindThickness
	KindExtrusion
	KindPoint2Raw
	KindPoint3Bit
	KindColor

	// Handle stream kinds.
	KindHandle
	KindHandleList

	// Composite kinds.
	KindLinePoints
	KindInsertScale
	KindVertices2D
	KindDoubleList
	KindWidthList
	KindTextList
	KindXRecordData
)

// IsHandle reports whether fields of kind k live in the handle stream.
func (k FieldKind) IsHandle() bool {
	return k == KindHandle || k == KindHandleList
}

// FieldSpec describes one field of a type's record.
type FieldSpec struct {
	Code int
	Kind FieldKind
	// Since and Until bound the versions carrying the field. Until is
	// exclusive; zero values leave the range open.
	Since format.Version
	Until format.Version
	// When, if set, must hold for the field to be present.
	When func(*Template) bool
	// Count names the field holding the element count of a list.
	Count int
	// Ref is the reference code written for handle fields.
	Ref byte
}

func (f FieldSpec) present(t *Template, v format.Version) bool {
	if f.Since != format.VersionUnknown && v.Before(f.Since) {
		return false
	}
	if f.Until != format.VersionUnknown && v.AtLeast(f.Until) {
		return false
	}
	return f.When == nil || f.When(t)
}

// Schema lists the fields of one type in record order.
type Schema struct {
	Type   Type
	Fields []FieldSpec
}

// Group codes of handle fields without a DXF code of their own.
const (
	CodeModelSpace   = 331
	CodePaperSpace   = 332
	CodeByBlock      = 331
	CodeByLayer      = 332
	CodeFirstEntity  = 341
	CodeLastEntity   = 342
	CodeOwnedObjects = 340
	CodeSeqEnd       = 360
)

// Group codes shared by several schemas.
const (
	CodeName       = 2
	CodeFlags      = 70
	CodeEntries    = 2
	CodeCount      = 70
	CodeItems      = 1
	CodeBlock      = 2
	CodeLayerLType = 6
	CodeTextStyle  = 7
)

func flagSet(code, mask int) func(*Template) bool {
	return func(t *Template) bool { return t.Int(code)&mask != 0 }
}

var (
	ownedList = flagSet(66, 1)
)

func handleField(code int, ref byte) FieldSpec { return FieldSpec{Code: code, Kind: KindHandle, Ref: ref} }

func field(code int, kind FieldKind) FieldSpec { return FieldSpec{Code: code, Kind: kind} }

var controlFields = []FieldSpec{
	field(CodeCount, KindLong),
	{Code: CodeEntries, Kind: KindHandleList, Count: CodeCount, Ref: bitstream.RefSoftOwner},
}

var schemas = map[Type]*Schema{
	TypeLine: {Fields: []FieldSpec{
		{Code: 10, Kind: KindLinePoints},
		field(39, KindThickness),
		field(210, KindExtrusion),
	}},
	TypeCircle: {Fields: []FieldSpec{
		field(10, KindPoint3Bit),
		field(40, KindDouble),
		field(39, KindThickness),
		field(210, KindExtrusion),
	}},
	TypeArc: {Fields: []FieldSpec{
		field(10, KindPoint3Bit),
		field(40, KindDouble),
		field(39, KindThickness),
		field(210, KindExtrusion),
		field(50, KindDouble),
		field(51, KindDouble),
	}},
	TypePoint: {Fields: []FieldSpec{
		field(10, KindPoint3Bit),
		field(39, KindThickness),
		field(210, KindExtrusion),
		field(50, KindDouble),
	}},
	TypeText: {Fields: []FieldSpec{
		field(38, KindDouble),
		field(10, KindPoint2Raw),
		field(11, KindPoint2Raw),
		field(210, KindExtrusion),
		field(39, KindThickness),
		field(51, KindDouble),
		field(50, KindDouble),
		field(40, KindDouble),
		field(41, KindDouble),
		field(1, KindText),
		field(71, KindShort),
		field(72, KindShort),
		field(73, KindShort),
		handleField(CodeTextStyle, bitstream.RefHardPointer),
	}},
	TypeInsert: {Fields: []FieldSpec{
		field(10, KindPoint3Bit),
		{Code: 41, Kind: KindInsertScale},
		field(50, KindDouble),
		field(210, KindPoint3Bit),
		field(66, KindBit),
		{Code: 90, Kind: KindLong, Since: format.AC1018, When: ownedList},
		handleField(CodeBlock, bitstream.RefHardPointer),
		{Code: CodeFirstEntity, Kind: KindHandle, Until: format.AC1018, When: ownedList, Ref: bitstream.RefSoftPointer},
		{Code: CodeLastEntity, Kind: KindHandle, Until: format.AC1018, When: ownedList, Ref: bitstream.RefSoftPointer},
		{Code: CodeOwnedObjects, Kind: KindHandleList, Since: format.AC1018, When: ownedList, Count: 90, Ref: bitstream.RefHardOwner},
		{Code: CodeSeqEnd, Kind: KindHandle, When: ownedList, Ref: bitstream.RefHardOwner},
	}},
	TypeLWPolyline: {Fields: []FieldSpec{
		field(70, KindShort),
		{Code: 43, Kind: KindDouble, When: flagSet(70, 4)},
		{Code: 38, Kind: KindDouble, When: flagSet(70, 8)},
		{Code: 39, Kind: KindDouble, When: flagSet(70, 2)},
		{Code: 210, Kind: KindPoint3Bit, When: flagSet(70, 1)},
		field(90, KindLong),
		{Code: 91, Kind: KindLong, When: flagSet(70, 16)},
		{Code: 92, Kind: KindLong, When: flagSet(70, 32)},
		{Code: 10, Kind: KindVertices2D, Count: 90},
		{Code: 42, Kind: KindDoubleList, Count: 91, When: flagSet(70, 16)},
		{Code: 40, Kind: KindWidthList, Count: 92, When: flagSet(70, 32)},
	}},
	TypeDictionary: {Fields: []FieldSpec{
		field(90, KindLong),
		{Code: 281, Kind: KindShort, Since: format.AC1014},
		{Code: 280, Kind: KindRawChar, Since: format.AC1015},
		{Code: 3, Kind: KindTextList, Count: 90},
		{Code: 350, Kind: KindHandleList, Count: 90, Ref: bitstream.RefSoftOwner},
	}},
	TypeXRecord: {Fields: []FieldSpec{
		{Code: CodeItems, Kind: KindXRecordData},
		{Code: 280, Kind: KindShort, Since: format.AC1015},
	}},
	TypeBlockControl: {Fields: append(append([]FieldSpec{}, controlFields...),
		handleField(CodeModelSpace, bitstream.RefHardOwner),
		handleField(CodePaperSpace, bitstream.RefHardOwner),
	)},
	TypeLayerControl:  {Fields: controlFields},
	TypeStyleControl:  {Fields: controlFields},
	TypeAppIDControl:  {Fields: controlFields},
	TypeLTypeControl: {Fields: append(append([]FieldSpec{}, controlFields...),
		handleField(CodeByBlock, bitstream.RefHardOwner),
		handleField(CodeByLayer, bitstream.RefHardOwner),
	)},
	TypeBlockHeader: {Fields: []FieldSpec{
		field(CodeName, KindText),
		field(CodeFlags, KindShort),
		field(10, KindPoint3Bit),
		field(4, KindText),
		{Code: 90, Kind: KindLong, Since: format.AC1018},
		{Code: CodeFirstEntity, Kind: KindHandle, Until: format.AC1018, Ref: bitstream.RefSoftPointer},
		{Code: CodeLastEntity, Kind: KindHandle, Until: format.AC1018, Ref: bitstream.RefSoftPointer},
		{Code: CodeOwnedObjects, Kind: KindHandleList, Since: format.AC1018, Count: 90, Ref: bitstream.RefHardOwner},
	}},
	TypeLayer: {Fields: []FieldSpec{
		field(CodeName, KindText),
		field(CodeFlags, KindShort),
		field(62, KindColor),
		{Code: 290, Kind: KindBit, Since: format.AC1015},
		{Code: 370, Kind: KindRawChar, Since: format.AC1015},
		handleField(CodeLayerLType, bitstream.RefHardPointer),
	}},
	TypeLType: {Fields: []FieldSpec{
		field(CodeName, KindText),
		field(CodeFlags, KindShort),
		field(3, KindText),
		field(40, KindDouble),
		field(72, KindRawChar),
		field(73, KindRawChar),
		{Code: 49, Kind: KindDoubleList, Count: 73},
	}},
	TypeStyle: {Fields: []FieldSpec{
		field(CodeName, KindText),
		field(CodeFlags, KindShort),
		field(40, KindDouble),
		field(41, KindDouble),
		field(50, KindDouble),
		field(71, KindRawChar),
		field(42, KindDouble),
		field(3, KindText),
		field(4, KindText),
	}},
	TypeAppID: {Fields: []FieldSpec{
		field(CodeName, KindText),
		field(CodeFlags, KindShort),
		field(71, KindRawChar),
	}},
}

func init() {
	for t, s := range schemas {
		s.Type = t
	}
}

// SchemaFor returns the schema of a fixed type, or nil when the type is not
// implemented.
func SchemaFor(t Type) *Schema {
	return schemas[t]
}

// Implemented reports whether records of type t are decoded field by field.
func Implemented(t Type) bool {
	return schemas[t] != nil
}

// ImplementedTypes returns the implemented type codes.
func ImplementedTypes() []Type {
	out := make([]Type, 0, len(schemas))
	for t := range schemas {
		out = append(out, t)
	}
	return out
}
