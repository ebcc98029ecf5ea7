package builder

import (
	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/objects"
)

// allocate returns an empty object of the template's type.
func allocate(t *objects.Template) document.Object {
	if t.Unknown {
		raw := document.RawRecord{
			Code:       t.Type,
			Class:      t.Class,
			Data:       t.Raw,
			HandleBits: t.RawHandleBits,
			Version:    t.Version,
		}
		if t.Entity != nil {
			return &document.UnknownEntity{RawRecord: raw}
		}
		return &document.UnknownObject{RawRecord: raw}
	}

	switch t.Type {
	case objects.TypeLine:
		return &document.Line{}
	case objects.TypeCircle:
		return &document.Circle{}
	case objects.TypeArc:
		return &document.Arc{}
	case objects.TypePoint:
		return &document.Point{}
	case objects.TypeText:
		return &document.Text{}
	case objects.TypeInsert:
		return &document.Insert{}
	case objects.TypeLWPolyline:
		return &document.LWPolyline{}
	case objects.TypeDictionary:
		return &document.Dictionary{}
	case objects.TypeXRecord:
		return &document.XRecord{}
	case objects.TypeBlockControl:
		return &document.Table[*document.BlockRecord]{Code: t.Type}
	case objects.TypeLayerControl:
		return &document.Table[*document.Layer]{Code: t.Type}
	case objects.TypeStyleControl:
		return &document.Table[*document.TextStyle]{Code: t.Type}
	case objects.TypeLTypeControl:
		return &document.Table[*document.LineType]{Code: t.Type}
	case objects.TypeAppIDControl:
		return &document.Table[*document.AppID]{Code: t.Type}
	case objects.TypeBlockHeader:
		return &document.BlockRecord{}
	case objects.TypeLayer:
		return &document.Layer{}
	case objects.TypeLType:
		return &document.LineType{}
	case objects.TypeStyle:
		return &document.TextStyle{}
	case objects.TypeAppID:
		return &document.AppID{}
	}
	// Every implemented schema has a case above.
	return &document.UnknownObject{RawRecord: document.RawRecord{Code: t.Type, Class: t.Class, Version: t.Version}}
}

func (r *resolver) fill(obj document.Object, t *objects.Template) {
	from := siteOf(t)
	r.fillBase(obj.Common(), t, from)
	if e, ok := obj.(document.Entity); ok && t.Entity != nil {
		r.fillEntity(e.EntityCommon(), t, from)
	}

	switch o := obj.(type) {
	case *document.Line:
		o.Start, o.End = t.Vec3(10), t.Vec3(11)
		o.Thickness, o.Extrusion = t.Float(39), t.Vec3(210)
	case *document.Circle:
		o.Center, o.Radius = t.Vec3(10), t.Float(40)
		o.Thickness, o.Extrusion = t.Float(39), t.Vec3(210)
	case *document.Arc:
		o.Center, o.Radius = t.Vec3(10), t.Float(40)
		o.Thickness, o.Extrusion = t.Float(39), t.Vec3(210)
		o.StartAngle, o.EndAngle = t.Float(50), t.Float(51)
	case *document.Point:
		o.Location, o.XAxisAngle = t.Vec3(10), t.Float(50)
		o.Thickness, o.Extrusion = t.Float(39), t.Vec3(210)
	case *document.Text:
		o.Value = t.Text(1)
		o.Elevation = t.Float(38)
		o.Insertion, o.Alignment = t.Vec2(10), t.Vec2(11)
		o.Extrusion, o.Thickness = t.Vec3(210), t.Float(39)
		o.Oblique, o.Rotation = t.Float(51), t.Float(50)
		o.Height, o.WidthFactor = t.Float(40), t.Float(41)
		o.Generation, o.HorizontalAlign, o.VerticalAlign = t.Int(71), t.Int(72), t.Int(73)
		resolveAs(r, from, t.Ref(objects.CodeTextStyle), "text style", document.DefaultTextStyle,
			func(s *document.TextStyle) { o.Style = s })
	case *document.Insert:
		o.Insertion, o.Scale = t.Vec3(10), t.Vec3(41)
		o.Rotation, o.Extrusion = t.Float(50), t.Vec3(210)
		resolveAs(r, from, t.Ref(objects.CodeBlock), "block", document.DefaultNone,
			func(b *document.BlockRecord) { o.Block = b })
		if h := t.Ref(objects.CodeSeqEnd); h != 0 {
			resolveAs(r, from, h, "sequence end", document.DefaultNone, func(e document.Entity) { o.SeqEnd = e })
		}
	case *document.LWPolyline:
		o.Flags = t.Int(70)
		o.ConstantWidth, o.Elevation, o.Thickness = t.Float(43), t.Float(38), t.Float(39)
		o.Extrusion = bitstream.ZAxis
		if _, ok := t.Values[210]; ok {
			o.Extrusion = t.Vec3(210)
		}
		o.Vertices, _ = t.Values[10].([]bitstream.Vec2)
		o.Bulges, _ = t.Values[42].([]float64)
		o.Widths, _ = t.Values[40].([]bitstream.Vec2)

	case *document.Dictionary:
		o.CloningFlags = t.Int(281)
		o.HardOwner = t.Int(280) != 0
		names, _ := t.Values[3].([]string)
		for i, h := range t.Refs[350] {
			var name string
			if i < len(names) {
				name = names[i]
			}
			resolveAs(r, from, h, "entry "+name, document.DefaultNone, func(v document.Object) {
				o.Entries = append(o.Entries, document.DictionaryEntry{Name: name, Object: v})
			})
		}
	case *document.XRecord:
		o.Items, _ = t.Values[objects.CodeItems].([]objects.XRecordItem)
		o.CloningFlags = t.Int(280)

	case *document.Table[*document.BlockRecord]:
		var leading []uint64
		if o == r.doc.BlockRecords {
			resolveAs(r, from, t.Ref(objects.CodeModelSpace), "model space", document.DefaultNone,
				func(b *document.BlockRecord) { r.doc.ModelSpace = b })
			resolveAs(r, from, t.Ref(objects.CodePaperSpace), "paper space", document.DefaultNone,
				func(b *document.BlockRecord) { r.doc.PaperSpace = b })
			leading = []uint64{t.Ref(objects.CodeModelSpace), t.Ref(objects.CodePaperSpace)}
		}
		fillEntries(r, o, t, from, leading)
	case *document.Table[*document.LineType]:
		var leading []uint64
		if o == r.doc.LineTypes {
			resolveAs(r, from, t.Ref(objects.CodeByBlock), "BYBLOCK linetype", document.DefaultNone,
				func(l *document.LineType) { r.doc.ByBlock = l })
			resolveAs(r, from, t.Ref(objects.CodeByLayer), "BYLAYER linetype", document.DefaultNone,
				func(l *document.LineType) { r.doc.ByLayer = l })
			leading = []uint64{t.Ref(objects.CodeByBlock), t.Ref(objects.CodeByLayer)}
		}
		fillEntries(r, o, t, from, leading)
	case *document.Table[*document.Layer]:
		fillEntries(r, o, t, from, nil)
	case *document.Table[*document.TextStyle]:
		fillEntries(r, o, t, from, nil)
	case *document.Table[*document.AppID]:
		fillEntries(r, o, t, from, nil)

	case *document.BlockRecord:
		o.Name, o.Flags = t.Text(objects.CodeName), t.Int(objects.CodeFlags)
		o.BasePoint, o.XRefPath = t.Vec3(10), t.Text(4)
	case *document.Layer:
		o.Name, o.Flags = t.Text(objects.CodeName), t.Int(objects.CodeFlags)
		o.Color = t.Color(62)
		o.Plot = true
		if _, ok := t.Values[290]; ok {
			o.Plot = t.Bool(290)
		}
		o.LineWeight = byte(t.Int(370))
		resolveAs(r, from, t.Ref(objects.CodeLayerLType), "linetype", document.DefaultContinuous,
			func(l *document.LineType) { o.LineType = l })
	case *document.LineType:
		o.Name, o.Flags = t.Text(objects.CodeName), t.Int(objects.CodeFlags)
		o.Description, o.PatternLength = t.Text(3), t.Float(40)
		o.Alignment = t.Int(72)
		o.Dashes, _ = t.Values[49].([]float64)
	case *document.TextStyle:
		o.Name, o.Flags = t.Text(objects.CodeName), t.Int(objects.CodeFlags)
		o.Height, o.WidthFactor, o.Oblique = t.Float(40), t.Float(41), t.Float(50)
		o.Generation, o.LastHeight = t.Int(71), t.Float(42)
		o.Font, o.BigFont = t.Text(3), t.Text(4)
	case *document.AppID:
		o.Name, o.Flags, o.Code = t.Text(objects.CodeName), t.Int(objects.CodeFlags), t.Int(71)
	}
}

// fillEntries adds the entries listed by a control template. leading
// entries come first and are not listed again.
func fillEntries[T document.TableEntry](r *resolver, tbl *document.Table[T], t *objects.Template, from site, leading []uint64) {
	seen := make(map[uint64]bool)
	add := func(h uint64) {
		if h == 0 || seen[h] {
			return
		}
		seen[h] = true
		resolveAs(r, from, h, "entry", document.DefaultNone, func(e T) { tbl.Add(e) })
	}
	for _, h := range leading {
		add(h)
	}
	for _, h := range t.Refs[objects.CodeEntries] {
		add(h)
	}
}

func (r *resolver) fillBase(o *document.ObjectBase, t *objects.Template, from site) {
	if t.Entity == nil && t.Owner != 0 {
		resolveAs(r, from, t.Owner, "owner", document.DefaultNone, func(v document.Object) { o.Owner = v })
	}
	for _, h := range t.Reactors {
		resolveAs(r, from, h, "reactor", document.DefaultNone, func(v document.Object) { o.Reactors = append(o.Reactors, v) })
	}
	if t.XDictionary != 0 {
		resolveAs(r, from, t.XDictionary, "extension dictionary", document.DefaultNone,
			func(d *document.Dictionary) { o.XDictionary = d })
	}
	if len(t.EED) > 0 {
		o.EED = make([]document.ExtendedData, len(t.EED))
		for i, x := range t.EED {
			o.EED[i].Data = x.Data
			resolveAs(r, from, x.AppID, "application", document.DefaultApp,
				func(a *document.AppID) { o.EED[i].App = a })
		}
	}
}

func (r *resolver) fillEntity(e *document.EntityBase, t *objects.Template, from site) {
	ed := t.Entity
	e.Color = ed.Color
	e.LineTypeScale = ed.LineTypeScale
	e.Invisible = ed.Invisible
	e.LineWeight = ed.LineWeight
	e.Graphics = ed.Graphics

	setOwner := func(v document.Object) { e.Owner = v }
	switch ed.Mode {
	case objects.ModePaperSpace:
		withDefault(r, document.DefaultPaperSpace, setOwner)
	case objects.ModeModelSpace:
		withDefault(r, document.DefaultModelSpace, setOwner)
	default:
		resolveAs(r, from, t.Owner, "owner", document.DefaultModelSpace, setOwner)
	}

	resolveAs(r, from, ed.Layer, "layer", document.DefaultLayer, func(l *document.Layer) { e.Layer = l })

	setLineType := func(l *document.LineType) { e.LineType = l }
	switch ed.LineTypeFlags {
	case objects.LineTypeByLayer:
		withDefault(r, document.DefaultByLayer, setLineType)
	case objects.LineTypeByBlock:
		withDefault(r, document.DefaultByBlock, setLineType)
	case objects.LineTypeContinuous:
		withDefault(r, document.DefaultContinuous, setLineType)
	default:
		resolveAs(r, from, ed.LineType, "linetype", document.DefaultByLayer, setLineType)
	}

	e.PlotStyleFlags = ed.PlotStyleFlags
	if ed.PlotStyleFlags == 3 {
		e.PlotStyleFlags = 0
		resolveAs(r, from, ed.PlotStyle, "plot style", document.DefaultNone, func(v document.Object) {
			e.PlotStyle, e.PlotStyleFlags = v, 3
		})
	}
}
