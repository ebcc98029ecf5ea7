package builder

import (
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/objects"
)

// attachChildren gives every block record and insert the entities that name
// it as owner. The order follows the parent's owned-object list (R2004+) or
// entity chain (earlier versions); entities the list misses follow in handle
// order.
func (r *resolver) attachChildren() {
	children := make(map[document.Object][]uint64)
	for _, h := range r.b.handles() {
		e, ok := r.objs[h].(document.Entity)
		if !ok {
			continue
		}
		owner := e.Common().Owner
		if owner == nil {
			continue
		}
		children[owner] = append(children[owner], h)
		if pt, ok := r.b.templates.Search(owner.Common().Handle); ok {
			pt.Children = append(pt.Children, h)
		}
	}

	for _, obj := range r.doc.Objects() {
		kids := children[obj]
		switch o := obj.(type) {
		case *document.BlockRecord:
			for _, h := range r.ordered(o.Handle, kids) {
				o.Entities = append(o.Entities, r.objs[h].(document.Entity))
			}
		case *document.Insert:
			for _, h := range r.ordered(o.Handle, kids) {
				e := r.objs[h].(document.Entity)
				if document.Object(e) != document.Object(o.SeqEnd) {
					o.Attributes = append(o.Attributes, e)
				}
			}
		}
	}
}

// ordered sorts kids, the children of parent in handle order, by the order
// the parent lists them.
func (r *resolver) ordered(parent uint64, kids []uint64) []uint64 {
	if len(kids) == 0 {
		return nil
	}
	var listed []uint64
	if t, ok := r.b.templates.Search(parent); ok {
		if r.b.opts.Version.AtLeast(format.AC1018) {
			listed = t.Refs[objects.CodeOwnedObjects]
		} else {
			listed = r.chain(t.Ref(objects.CodeFirstEntity), t.Ref(objects.CodeLastEntity))
		}
	}

	isKid := make(map[uint64]bool, len(kids))
	for _, h := range kids {
		isKid[h] = true
	}
	out := make([]uint64, 0, len(kids))
	for _, h := range listed {
		if isKid[h] {
			out = append(out, h)
			delete(isKid, h)
		}
	}
	for _, h := range kids {
		if isKid[h] {
			out = append(out, h)
		}
	}
	return out
}

// chain follows entity next links from first to last. It stops at a
// repeated handle, a missing template or an entity without links.
func (r *resolver) chain(first, last uint64) []uint64 {
	var out []uint64
	seen := make(map[uint64]bool)
	for h := first; h != 0 && !seen[h]; {
		seen[h] = true
		out = append(out, h)
		if h == last {
			break
		}
		t, ok := r.b.templates.Search(h)
		if !ok || t.Entity == nil || t.Entity.NoLinks {
			break
		}
		h = t.Entity.Next
	}
	return out
}
