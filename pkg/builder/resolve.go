package builder

import (
	"context"
	"fmt"

	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/notify"
	"github.com/ssargent/dwgkit/pkg/objects"
)

type buildState int

const (
	stateBuilding buildState = iota + 1
	stateDone
)

// site names the place a reference is stored, for notifications.
type site struct {
	name   string
	handle uint64
	offset int64
}

func siteOf(t *objects.Template) site {
	return site{name: fmt.Sprintf("%s 0x%X", t.Name(), t.Handle), handle: t.Handle, offset: t.Offset}
}

var headerSite = site{name: "header variables", offset: -1}

type resolver struct {
	b      *Builder
	doc    *document.Document
	notify notify.Handler

	objs  map[uint64]document.Object
	state map[uint64]buildState

	// pending holds fallbacks requested before the defaults existed.
	pending []func()
	ready   bool
	err     error
}

func newResolver(b *Builder, doc *document.Document) *resolver {
	return &resolver{
		b:      b,
		doc:    doc,
		notify: b.opts.Notify,
		objs:   make(map[uint64]document.Object),
		state:  make(map[uint64]buildState),
	}
}

func (r *resolver) run(ctx context.Context) error {
	r.claimTables()
	if r.err != nil {
		return r.err
	}
	r.resolveHeaderDefaults()

	for _, tbl := range r.doc.Tables() {
		if tbl.Common().Handle == 0 {
			if err := r.doc.Add(tbl); err != nil {
				return err
			}
		}
	}
	err := r.doc.EnsureDefaults(func(obj document.Object) {
		r.notify.Emit(notify.Notification{
			Kind:     notify.KindGeneral,
			Severity: notify.SeverityInfo,
			Message:  fmt.Sprintf("created default %s 0x%X", document.TypeName(obj), obj.Common().Handle),
			Handle:   obj.Common().Handle,
			Offset:   -1,
		})
	})
	if err != nil {
		return err
	}
	r.ready = true
	for _, fn := range r.pending {
		fn()
	}
	r.pending = nil

	for _, h := range r.b.handles() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.object(h); r.err != nil {
			return r.err
		}
	}

	r.resolveCurrent()
	r.attachChildren()
	for _, obj := range r.doc.Objects() {
		if u, ok := obj.(*document.UnknownObject); ok && u.Code.IsControl() {
			r.doc.Controls = append(r.doc.Controls, u)
		}
	}
	return r.validate()
}

// object returns the live object for h, building it on first use. An object
// under construction is returned as is; its fields are completed by the
// caller further up the stack.
func (r *resolver) object(h uint64) (document.Object, bool) {
	if r.state[h] != 0 {
		return r.objs[h], true
	}
	t, ok := r.b.templates.Search(h)
	if !ok {
		if obj, ok := r.doc.Lookup(h); ok {
			return obj, true
		}
		return nil, false
	}
	obj := r.objs[h]
	if obj == nil {
		obj = allocate(t)
		r.objs[h] = obj
	}
	obj.Common().Handle = h
	r.state[h] = stateBuilding
	if err := r.doc.Add(obj); err != nil && r.err == nil {
		r.err = err
	}
	r.fill(obj, t)
	r.state[h] = stateDone
	return obj, true
}

// withDefault hands the fallback of kind to set, now or once the defaults
// exist.
func withDefault[T document.Object](r *resolver, kind document.Default, set func(T)) {
	if kind == document.DefaultNone {
		return
	}
	apply := func() {
		if v, ok := r.doc.Fallback(kind).(T); ok {
			set(v)
		}
	}
	if r.ready {
		apply()
		return
	}
	r.pending = append(r.pending, apply)
}

// resolveAs resolves h and passes it to set when it is a T. Otherwise the
// fallback of kind is used and one notification is emitted. A zero handle
// is only reported when a fallback exists, which marks the reference as
// required.
func resolveAs[T document.Object](r *resolver, from site, h uint64, what string, kind document.Default, set func(T)) {
	if h == 0 {
		if kind != document.DefaultNone {
			r.report(notify.KindMissingReference, from, fmt.Sprintf("%s has no %s, using default", from.name, what))
			withDefault(r, kind, set)
		}
		return
	}
	if r.b.skipped[h] {
		withDefault(r, kind, set)
		return
	}
	obj, ok := r.object(h)
	if !ok {
		r.report(notify.KindMissingReference, from, fmt.Sprintf("%s references missing %s 0x%X, %s", from.name, what, h, outcome(kind)))
		withDefault(r, kind, set)
		return
	}
	v, ok := obj.(T)
	if !ok {
		r.report(notify.KindTypeMismatch, from, fmt.Sprintf("%s %s 0x%X is a %s, %s", from.name, what, h, document.TypeName(obj), outcome(kind)))
		withDefault(r, kind, set)
		return
	}
	set(v)
}

func outcome(kind document.Default) string {
	if kind == document.DefaultNone {
		return "dropped"
	}
	return "using default"
}

func (r *resolver) report(kind notify.Kind, from site, msg string) {
	r.notify.Emit(notify.Notification{
		Kind:     kind,
		Severity: notify.SeverityWarning,
		Message:  msg,
		Handle:   from.handle,
		Offset:   from.offset,
	})
}

// claimTables binds the document's table objects to the control templates
// named by the header, or to the first control of each type.
func (r *resolver) claimTables() {
	hv := r.doc.Header
	controls := []struct {
		table  document.Object
		handle uint64
	}{
		{r.doc.BlockRecords, hv.BlockControl},
		{r.doc.Layers, hv.LayerControl},
		{r.doc.TextStyles, hv.StyleControl},
		{r.doc.LineTypes, hv.LineTypeControl},
		{r.doc.AppIDs, hv.AppIDControl},
	}
	var claimed []uint64
	for _, c := range controls {
		code := c.table.Type()
		h := c.handle
		if t, ok := r.b.templates.Search(h); !ok || t.Type != code || t.Unknown {
			h = 0
			r.b.templates.Ascend(func(k uint64, t *objects.Template) bool {
				if t.Type == code && !t.Unknown {
					h = k
					return false
				}
				return true
			})
		}
		if h != 0 {
			r.objs[h] = c.table
			claimed = append(claimed, h)
		}
	}
	for _, h := range claimed {
		r.object(h)
	}
}

// resolveHeaderDefaults binds the well-known entries named by the header
// when the table controls did not already supply them.
func (r *resolver) resolveHeaderDefaults() {
	hv, d := r.doc.Header, r.doc
	optional := func(h uint64, what string, set func(document.Object)) {
		if h != 0 {
			resolveAs(r, headerSite, h, what, document.DefaultNone, set)
		}
	}
	if d.ByLayer == nil {
		optional(hv.ByLayer, "BYLAYER linetype", func(o document.Object) { d.ByLayer, _ = o.(*document.LineType) })
	}
	if d.ByBlock == nil {
		optional(hv.ByBlock, "BYBLOCK linetype", func(o document.Object) { d.ByBlock, _ = o.(*document.LineType) })
	}
	if d.Continuous == nil {
		optional(hv.Continuous, "CONTINUOUS linetype", func(o document.Object) { d.Continuous, _ = o.(*document.LineType) })
	}
	if d.ModelSpace == nil {
		optional(hv.ModelSpace, "model space", func(o document.Object) { d.ModelSpace, _ = o.(*document.BlockRecord) })
	}
	if d.PaperSpace == nil {
		optional(hv.PaperSpace, "paper space", func(o document.Object) { d.PaperSpace, _ = o.(*document.BlockRecord) })
	}
	optional(hv.NamedObjects, "named objects dictionary", func(o document.Object) {
		if dict, ok := o.(*document.Dictionary); ok {
			d.NamedObjects = dict
		} else {
			r.report(notify.KindTypeMismatch, headerSite, fmt.Sprintf("named objects 0x%X is a %s", hv.NamedObjects, document.TypeName(o)))
		}
	})
}

// resolveCurrent binds the current layer, text style and linetype.
func (r *resolver) resolveCurrent() {
	hv, d := r.doc.Header, r.doc
	if hv.CurrentLayer != 0 {
		resolveAs(r, headerSite, hv.CurrentLayer, "current layer", document.DefaultLayer, func(l *document.Layer) { d.CurrentLayer = l })
	}
	if hv.TextStyle != 0 {
		resolveAs(r, headerSite, hv.TextStyle, "current text style", document.DefaultTextStyle, func(s *document.TextStyle) { d.CurrentStyle = s })
	}
	if hv.CurrentLineType != 0 {
		resolveAs(r, headerSite, hv.CurrentLineType, "current linetype", document.DefaultByLayer, func(l *document.LineType) { d.CurrentLineType = l })
	}
}
