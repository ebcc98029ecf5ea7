package builder

import (
	"fmt"

	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
)

// validate checks the structural invariants of a built document and repairs
// what has a default.
func (r *resolver) validate() error {
	d := r.doc
	for _, tbl := range d.Tables() {
		c := tbl.Common()
		if c.Owner != nil {
			r.report(notify.KindGeneral, site{name: document.TypeName(tbl), handle: c.Handle, offset: -1},
				fmt.Sprintf("%s 0x%X is owned by %s 0x%X, reassigned to the document",
					document.TypeName(tbl), c.Handle, document.TypeName(c.Owner), c.Owner.Common().Handle))
			c.Owner = nil
		}
	}
	ownEntries(d.BlockRecords)
	ownEntries(d.Layers)
	ownEntries(d.TextStyles)
	ownEntries(d.LineTypes)
	ownEntries(d.AppIDs)

	for _, obj := range d.Objects() {
		h := obj.Common().Handle
		if got, ok := d.Lookup(h); !ok || got != obj {
			return format.Corruption(format.SectionObjects, -1, fmt.Errorf("%w: 0x%X", format.ErrDuplicateHandle, h))
		}
		e, ok := obj.(document.Entity)
		if !ok {
			continue
		}
		from := site{name: fmt.Sprintf("%s 0x%X", document.TypeName(obj), h), handle: h, offset: -1}
		eb := e.EntityCommon()
		if eb.Layer == nil {
			r.report(notify.KindMissingReference, from, from.name+" has no layer, using default")
			eb.Layer, _ = d.Fallback(document.DefaultLayer).(*document.Layer)
		}
		if eb.LineType == nil {
			r.report(notify.KindMissingReference, from, from.name+" has no linetype, using default")
			eb.LineType = d.ByLayer
		}
	}
	return nil
}

func ownEntries[T document.TableEntry](tbl *document.Table[T]) {
	for _, e := range tbl.Entries {
		e.Common().Owner = tbl
	}
}
