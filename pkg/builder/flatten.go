package builder

import (
	"fmt"

	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
	"github.com/ssargent/dwgkit/pkg/objects"
	"github.com/ssargent/dwgkit/pkg/sections"
)

// Flattened is a document reduced to templates, ready to be encoded.
type Flattened struct {
	// Templates are in handle order.
	Templates []*objects.Template
	Header    *sections.HeaderVars
	Classes   []*objects.Class
}

type flattener struct {
	doc     *document.Document
	v       format.Version
	notify  notify.Handler
	seen    map[document.Object]bool
	dropped map[document.Object]bool
	links   map[document.Object][2]uint64
}

// FlattenOptions controls Flatten.
type FlattenOptions struct {
	Version format.Version
	// DropUnknown drops every raw record, not only those read from another
	// version.
	DropUnknown bool
	Notify      notify.Handler
}

// Flatten produces the templates of every object in doc for opts.Version.
// Objects without a handle are registered first. Raw records from another
// version cannot be converted; they are dropped with a notification and
// references to them are cleared.
func Flatten(doc *document.Document, opts FlattenOptions) (*Flattened, error) {
	v, h := opts.Version, opts.Notify
	f := &flattener{
		doc:     doc,
		v:       v,
		notify:  h,
		seen:    make(map[document.Object]bool),
		dropped: make(map[document.Object]bool),
		links:   make(map[document.Object][2]uint64),
	}
	if err := f.register(); err != nil {
		return nil, err
	}

	all := doc.Objects()
	for _, obj := range all {
		raw := rawOf(obj)
		if raw == nil || (raw.Version == v && !opts.DropUnknown) {
			continue
		}
		f.dropped[obj] = true
		n := notify.Notification{
			Kind:     notify.KindNotSupported,
			Severity: notify.SeverityWarning,
			Message:  fmt.Sprintf("raw %s 0x%X from %s cannot be written as %s, dropped", raw.Name(), obj.Common().Handle, raw.Version, v),
			Handle:   obj.Common().Handle,
			Offset:   -1,
		}
		if raw.Version == v {
			n.Kind, n.Severity = notify.KindSkippedObject, notify.SeverityInfo
			n.Message = fmt.Sprintf("raw %s 0x%X dropped", raw.Name(), obj.Common().Handle)
		}
		h.Emit(n)
	}
	for _, obj := range all {
		switch o := obj.(type) {
		case *document.BlockRecord:
			f.link(o.Entities)
		case *document.Insert:
			f.link(o.Attributes)
		}
	}

	out := &Flattened{Templates: make([]*objects.Template, 0, len(all))}
	for _, obj := range all {
		if f.dropped[obj] {
			continue
		}
		out.Templates = append(out.Templates, f.template(obj))
	}
	out.Header = f.header()
	out.Classes = f.classes(all)
	return out, nil
}

func rawOf(obj document.Object) *document.RawRecord {
	switch o := obj.(type) {
	case *document.UnknownObject:
		return &o.RawRecord
	case *document.UnknownEntity:
		return &o.RawRecord
	}
	return nil
}

// register walks the graph from its roots and gives every reachable object
// a handle.
func (f *flattener) register() error {
	d := f.doc
	var roots []document.Object
	roots = append(roots, d.Tables()...)
	for _, o := range []document.Object{d.NamedObjects, d.ModelSpace, d.PaperSpace, d.ByLayer, d.ByBlock,
		d.Continuous, d.CurrentLayer, d.CurrentStyle, d.CurrentLineType} {
		if !isNil(o) {
			roots = append(roots, o)
		}
	}
	for _, c := range d.Controls {
		roots = append(roots, c)
	}
	for _, o := range d.Objects() {
		roots = append(roots, o)
	}

	stack := roots
	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.seen[obj] {
			continue
		}
		f.seen[obj] = true
		c := obj.Common()
		if got, ok := d.Lookup(c.Handle); c.Handle == 0 || !ok {
			if err := d.Add(obj); err != nil {
				return err
			}
		} else if got != obj {
			return format.Corruption(format.SectionObjects, -1, fmt.Errorf("%w: 0x%X", format.ErrDuplicateHandle, c.Handle))
		}
		stack = append(stack, references(obj)...)
	}
	return nil
}

// isNil reports whether o is nil or a typed nil pointer.
func isNil(o document.Object) bool {
	if o == nil {
		return true
	}
	switch v := o.(type) {
	case *document.Dictionary:
		return v == nil
	case *document.BlockRecord:
		return v == nil
	case *document.LineType:
		return v == nil
	case *document.Layer:
		return v == nil
	case *document.TextStyle:
		return v == nil
	case *document.AppID:
		return v == nil
	}
	return false
}

// references lists every object obj points at.
func references(obj document.Object) []document.Object {
	var out []document.Object
	add := func(o document.Object) {
		if !isNil(o) {
			out = append(out, o)
		}
	}
	c := obj.Common()
	for _, r := range c.Reactors {
		add(r)
	}
	if c.XDictionary != nil {
		add(c.XDictionary)
	}
	for _, x := range c.EED {
		if x.App != nil {
			add(x.App)
		}
	}
	if e, ok := obj.(document.Entity); ok {
		eb := e.EntityCommon()
		if eb.Layer != nil {
			add(eb.Layer)
		}
		if eb.LineType != nil {
			add(eb.LineType)
		}
		add(eb.PlotStyle)
	}

	switch o := obj.(type) {
	case *document.Table[*document.BlockRecord]:
		for _, e := range o.Entries {
			add(e)
		}
	case *document.Table[*document.Layer]:
		for _, e := range o.Entries {
			add(e)
		}
	case *document.Table[*document.TextStyle]:
		for _, e := range o.Entries {
			add(e)
		}
	case *document.Table[*document.LineType]:
		for _, e := range o.Entries {
			add(e)
		}
	case *document.Table[*document.AppID]:
		for _, e := range o.Entries {
			add(e)
		}
	case *document.BlockRecord:
		for _, e := range o.Entities {
			add(e)
		}
	case *document.Insert:
		if o.Block != nil {
			add(o.Block)
		}
		for _, e := range o.Attributes {
			add(e)
		}
		add(o.SeqEnd)
	case *document.Text:
		if o.Style != nil {
			add(o.Style)
		}
	case *document.Layer:
		if o.LineType != nil {
			add(o.LineType)
		}
	case *document.Dictionary:
		for _, e := range o.Entries {
			add(e.Object)
		}
	}
	return out
}

// link records the R13-R2000 previous and next handles of a sibling list.
func (f *flattener) link(list []document.Entity) {
	var kept []document.Entity
	for _, e := range list {
		if !f.dropped[e] {
			kept = append(kept, e)
		}
	}
	for i, e := range kept {
		var prev, next uint64
		if i > 0 {
			prev = kept[i-1].Common().Handle
		}
		if i+1 < len(kept) {
			next = kept[i+1].Common().Handle
		}
		f.links[e] = [2]uint64{prev, next}
	}
}

// handle returns the handle of o, or 0 when o is absent or dropped.
func (f *flattener) handle(o document.Object) uint64 {
	if isNil(o) || f.dropped[o] {
		return 0
	}
	return o.Common().Handle
}

func (f *flattener) handles(list []document.Entity) []uint64 {
	out := make([]uint64, 0, len(list))
	for _, e := range list {
		if h := f.handle(e); h != 0 {
			out = append(out, h)
		}
	}
	return out
}

func firstLast(hs []uint64) (uint64, uint64) {
	if len(hs) == 0 {
		return 0, 0
	}
	return hs[0], hs[len(hs)-1]
}

func (f *flattener) template(obj document.Object) *objects.Template {
	c := obj.Common()
	if raw := rawOf(obj); raw != nil {
		t := &objects.Template{
			Handle:        c.Handle,
			Type:          raw.Code,
			Class:         raw.Class,
			Raw:           raw.Data,
			RawHandleBits: raw.HandleBits,
			Unknown:       true,
			Version:       raw.Version,
		}
		if _, ok := obj.(document.Entity); ok {
			t.Entity = &objects.EntityData{}
		}
		return t
	}

	t := objects.NewTemplate(c.Handle, obj.Type())
	t.Version = f.v
	if c.Owner != nil {
		t.Owner = f.handle(c.Owner)
	}
	for _, r := range c.Reactors {
		if h := f.handle(r); h != 0 {
			t.Reactors = append(t.Reactors, h)
		}
	}
	if c.XDictionary != nil {
		t.XDictionary = f.handle(c.XDictionary)
	}
	for _, x := range c.EED {
		app := document.Object(x.App)
		if x.App == nil {
			app = f.doc.Fallback(document.DefaultApp)
		}
		t.EED = append(t.EED, objects.ExtendedData{AppID: f.handle(app), Data: x.Data})
	}
	if e, ok := obj.(document.Entity); ok {
		f.entityData(t, e)
	}
	f.fields(t, obj)
	return t
}

func (f *flattener) entityData(t *objects.Template, e document.Entity) {
	d := f.doc
	eb := e.EntityCommon()
	ed := t.Entity
	switch {
	case eb.Owner != nil && eb.Owner == document.Object(d.ModelSpace):
		ed.Mode = objects.ModeModelSpace
	case eb.Owner != nil && eb.Owner == document.Object(d.PaperSpace):
		ed.Mode = objects.ModePaperSpace
	default:
		ed.Mode = objects.ModeOwner
	}
	ed.NoLinks = f.v.AtLeast(format.AC1018)
	if l, ok := f.links[e]; ok {
		ed.Prev, ed.Next = l[0], l[1]
	}

	layer := document.Object(eb.Layer)
	if eb.Layer == nil {
		layer = d.Fallback(document.DefaultLayer)
	}
	ed.Layer = f.handle(layer)

	lt := eb.LineType
	if lt == nil {
		lt = d.ByLayer
	}
	ed.LineType = f.handle(lt)
	switch lt {
	case d.ByLayer:
		ed.LineTypeFlags = objects.LineTypeByLayer
	case d.ByBlock:
		ed.LineTypeFlags = objects.LineTypeByBlock
	case d.Continuous:
		ed.LineTypeFlags = objects.LineTypeContinuous
	default:
		ed.LineTypeFlags = objects.LineTypeHandle
	}

	ed.PlotStyleFlags = eb.PlotStyleFlags
	if eb.PlotStyleFlags == 3 {
		if ed.PlotStyle = f.handle(eb.PlotStyle); ed.PlotStyle == 0 {
			ed.PlotStyleFlags = 0
		}
	}
	ed.Color = eb.Color
	ed.LineTypeScale = eb.LineTypeScale
	ed.Invisible = eb.Invisible
	ed.LineWeight = eb.LineWeight
	ed.Graphics = eb.Graphics
}

func (f *flattener) fields(t *objects.Template, obj document.Object) {
	d := f.doc
	switch o := obj.(type) {
	case *document.Line:
		t.Set(10, o.Start)
		t.Set(11, o.End)
		t.Set(39, o.Thickness)
		t.Set(210, o.Extrusion)
	case *document.Circle:
		t.Set(10, o.Center)
		t.Set(40, o.Radius)
		t.Set(39, o.Thickness)
		t.Set(210, o.Extrusion)
	case *document.Arc:
		t.Set(10, o.Center)
		t.Set(40, o.Radius)
		t.Set(39, o.Thickness)
		t.Set(210, o.Extrusion)
		t.Set(50, o.StartAngle)
		t.Set(51, o.EndAngle)
	case *document.Point:
		t.Set(10, o.Location)
		t.Set(39, o.Thickness)
		t.Set(210, o.Extrusion)
		t.Set(50, o.XAxisAngle)
	case *document.Text:
		t.Set(1, o.Value)
		t.Set(38, o.Elevation)
		t.Set(10, o.Insertion)
		t.Set(11, o.Alignment)
		t.Set(210, o.Extrusion)
		t.Set(39, o.Thickness)
		t.Set(51, o.Oblique)
		t.Set(50, o.Rotation)
		t.Set(40, o.Height)
		t.Set(41, o.WidthFactor)
		t.Set(71, o.Generation)
		t.Set(72, o.HorizontalAlign)
		t.Set(73, o.VerticalAlign)
		style := document.Object(o.Style)
		if o.Style == nil {
			style = d.Fallback(document.DefaultTextStyle)
		}
		t.SetRef(objects.CodeTextStyle, f.handle(style))
	case *document.Insert:
		t.Set(10, o.Insertion)
		t.Set(41, o.Scale)
		t.Set(50, o.Rotation)
		t.Set(210, o.Extrusion)
		attribs := f.handles(o.Attributes)
		seqEnd := f.handle(o.SeqEnd)
		owns := len(attribs) > 0 || seqEnd != 0
		t.Set(66, owns)
		if o.Block != nil {
			t.SetRef(objects.CodeBlock, f.handle(o.Block))
		}
		if owns {
			first, last := firstLast(attribs)
			t.SetRef(objects.CodeFirstEntity, first)
			t.SetRef(objects.CodeLastEntity, last)
			t.Refs[objects.CodeOwnedObjects] = attribs
			t.SetRef(objects.CodeSeqEnd, seqEnd)
		}
	case *document.LWPolyline:
		flags := o.Flags
		if o.Extrusion != bitstream.ZAxis {
			flags |= document.LWPolylineExtrusion
		}
		if o.Thickness != 0 {
			flags |= document.LWPolylineThickness
		}
		if o.ConstantWidth != 0 {
			flags |= document.LWPolylineConstantWidth
		}
		if o.Elevation != 0 {
			flags |= document.LWPolylineElevation
		}
		if len(o.Bulges) > 0 {
			flags |= document.LWPolylineBulges
		}
		if len(o.Widths) > 0 {
			flags |= document.LWPolylineWidths
		}
		t.Set(70, flags)
		t.Set(43, o.ConstantWidth)
		t.Set(38, o.Elevation)
		t.Set(39, o.Thickness)
		t.Set(210, o.Extrusion)
		t.Set(10, o.Vertices)
		t.Set(42, o.Bulges)
		t.Set(40, o.Widths)

	case *document.Dictionary:
		t.Set(281, o.CloningFlags)
		hardOwner := 0
		if o.HardOwner {
			hardOwner = 1
		}
		t.Set(280, hardOwner)
		names := make([]string, 0, len(o.Entries))
		refs := make([]uint64, 0, len(o.Entries))
		for _, e := range o.Entries {
			if h := f.handle(e.Object); h != 0 {
				names = append(names, e.Name)
				refs = append(refs, h)
			}
		}
		t.Set(3, names)
		t.Refs[350] = refs
	case *document.XRecord:
		t.Set(objects.CodeItems, o.Items)
		t.Set(280, o.CloningFlags)

	case *document.Table[*document.BlockRecord]:
		var leading []document.Object
		if o == d.BlockRecords {
			t.SetRef(objects.CodeModelSpace, f.handle(d.ModelSpace))
			t.SetRef(objects.CodePaperSpace, f.handle(d.PaperSpace))
			leading = []document.Object{d.ModelSpace, d.PaperSpace}
		}
		t.Refs[objects.CodeEntries] = entryHandles(f, o, leading)
	case *document.Table[*document.LineType]:
		var leading []document.Object
		if o == d.LineTypes {
			t.SetRef(objects.CodeByBlock, f.handle(d.ByBlock))
			t.SetRef(objects.CodeByLayer, f.handle(d.ByLayer))
			leading = []document.Object{d.ByBlock, d.ByLayer}
		}
		t.Refs[objects.CodeEntries] = entryHandles(f, o, leading)
	case *document.Table[*document.Layer]:
		t.Refs[objects.CodeEntries] = entryHandles(f, o, nil)
	case *document.Table[*document.TextStyle]:
		t.Refs[objects.CodeEntries] = entryHandles(f, o, nil)
	case *document.Table[*document.AppID]:
		t.Refs[objects.CodeEntries] = entryHandles(f, o, nil)

	case *document.BlockRecord:
		t.Set(objects.CodeName, o.Name)
		t.Set(objects.CodeFlags, o.Flags)
		t.Set(10, o.BasePoint)
		t.Set(4, o.XRefPath)
		owned := f.handles(o.Entities)
		first, last := firstLast(owned)
		t.SetRef(objects.CodeFirstEntity, first)
		t.SetRef(objects.CodeLastEntity, last)
		t.Refs[objects.CodeOwnedObjects] = owned
	case *document.Layer:
		t.Set(objects.CodeName, o.Name)
		t.Set(objects.CodeFlags, o.Flags)
		t.Set(62, o.Color)
		t.Set(290, o.Plot)
		t.Set(370, int(o.LineWeight))
		lt := o.LineType
		if lt == nil {
			lt = d.Continuous
		}
		t.SetRef(objects.CodeLayerLType, f.handle(lt))
	case *document.LineType:
		t.Set(objects.CodeName, o.Name)
		t.Set(objects.CodeFlags, o.Flags)
		t.Set(3, o.Description)
		t.Set(40, o.PatternLength)
		t.Set(72, o.Alignment)
		t.Set(49, o.Dashes)
	case *document.TextStyle:
		t.Set(objects.CodeName, o.Name)
		t.Set(objects.CodeFlags, o.Flags)
		t.Set(40, o.Height)
		t.Set(41, o.WidthFactor)
		t.Set(50, o.Oblique)
		t.Set(71, o.Generation)
		t.Set(42, o.LastHeight)
		t.Set(3, o.Font)
		t.Set(4, o.BigFont)
	case *document.AppID:
		t.Set(objects.CodeName, o.Name)
		t.Set(objects.CodeFlags, o.Flags)
		t.Set(71, o.Code)
	}
}

// entryHandles lists a table's entries except those stored in dedicated
// fields of the control.
func entryHandles[T document.TableEntry](f *flattener, tbl *document.Table[T], leading []document.Object) []uint64 {
	skip := make(map[document.Object]bool, len(leading))
	for _, o := range leading {
		if !isNil(o) {
			skip[o] = true
		}
	}
	out := make([]uint64, 0, len(tbl.Entries))
	for _, e := range tbl.Entries {
		if skip[e] {
			continue
		}
		if h := f.handle(e); h != 0 {
			out = append(out, h)
		}
	}
	return out
}

func (f *flattener) header() *sections.HeaderVars {
	d := f.doc
	hv := sections.DefaultHeaderVars()
	if d.Header != nil {
		copied := *d.Header
		hv = &copied
	}
	hv.CurrentLayer = f.handle(d.CurrentLayer)
	hv.TextStyle = f.handle(d.CurrentStyle)
	hv.CurrentLineType = f.handle(d.CurrentLineType)
	hv.BlockControl = f.handle(d.BlockRecords)
	hv.LayerControl = f.handle(d.Layers)
	hv.StyleControl = f.handle(d.TextStyles)
	hv.LineTypeControl = f.handle(d.LineTypes)
	hv.AppIDControl = f.handle(d.AppIDs)
	hv.NamedObjects = f.handle(d.NamedObjects)
	hv.ByLayer = f.handle(d.ByLayer)
	hv.ByBlock = f.handle(d.ByBlock)
	hv.Continuous = f.handle(d.Continuous)
	hv.ModelSpace = f.handle(d.ModelSpace)
	hv.PaperSpace = f.handle(d.PaperSpace)

	var last uint64
	for _, obj := range d.Objects() {
		if h := obj.Common().Handle; h > last {
			last = h
		}
	}
	if hv.HandSeed <= last {
		hv.HandSeed = last + 1
	}
	return hv
}

// classes copies the class table, counting instances for R2004+.
func (f *flattener) classes(all []document.Object) []*objects.Class {
	counts := make(map[uint16]int32)
	for _, obj := range all {
		if raw := rawOf(obj); raw != nil && raw.Class != nil && !f.dropped[obj] {
			counts[raw.Class.Number]++
		}
	}
	out := make([]*objects.Class, 0, len(f.doc.Classes))
	for _, c := range f.doc.Classes {
		cc := *c
		if f.v.AtLeast(format.AC1018) {
			cc.InstanceCount = counts[c.Number]
		} else {
			cc.InstanceCount = 0
		}
		out = append(out, &cc)
	}
	return out
}
