package document

import (
	"fmt"

	"github.com/ssargent/dwgkit/pkg/bptree"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/objects"
	"github.com/ssargent/dwgkit/pkg/sections"
)

// Document is a fully linked drawing.
type Document struct {
	Version format.Version
	Header  *sections.HeaderVars
	Classes []*objects.Class

	BlockRecords *Table[*BlockRecord]
	Layers       *Table[*Layer]
	TextStyles   *Table[*TextStyle]
	LineTypes    *Table[*LineType]
	AppIDs       *Table[*AppID]

	ByLayer    *LineType
	ByBlock    *LineType
	Continuous *LineType
	ModelSpace *BlockRecord
	PaperSpace *BlockRecord

	CurrentLayer    *Layer
	CurrentStyle    *TextStyle
	CurrentLineType *LineType
	NamedObjects    *Dictionary

	// Controls holds table controls without a typed table, such as VIEW or UCS.
	Controls []*UnknownObject

	// Sections holds opaque sections by name. The preview is stored without
	// its sentinels.
	Sections map[string][]byte

	// HandleBounds is the entry count of each handle index bucket of the
	// file the document was read from.
	HandleBounds []int

	index      *bptree.BPlusTree[uint64, Object]
	nextHandle uint64
}

// Empty returns a document without any objects. Builders use it as a
// starting point; applications want New.
func Empty(v format.Version) *Document {
	return &Document{
		Version:      v,
		Header:       sections.DefaultHeaderVars(),
		Sections:     make(map[string][]byte),
		BlockRecords: &Table[*BlockRecord]{Code: objects.TypeBlockControl},
		Layers:       &Table[*Layer]{Code: objects.TypeLayerControl},
		TextStyles:   &Table[*TextStyle]{Code: objects.TypeStyleControl},
		LineTypes:    &Table[*LineType]{Code: objects.TypeLTypeControl},
		AppIDs:       &Table[*AppID]{Code: objects.TypeAppIDControl},
		index:        bptree.NewBPlusTree[uint64, Object](bptree.DefaultOrder),
		nextHandle:   1,
	}
}

// New returns a drawing holding the default tables and entries.
func New(v format.Version) *Document {
	d := Empty(v)
	for _, t := range d.tables() {
		_ = d.Add(t)
	}
	if err := d.EnsureDefaults(nil); err != nil {
		panic(err)
	}
	return d
}

func (d *Document) tables() []Object {
	return []Object{d.BlockRecords, d.Layers, d.TextStyles, d.LineTypes, d.AppIDs}
}

// Tables returns the symbol table controls.
func (d *Document) Tables() []Object {
	return d.tables()
}

// Reserve makes handles up to h unavailable for allocation.
func (d *Document) Reserve(h uint64) {
	if h >= d.nextHandle {
		d.nextHandle = h + 1
	}
}

// NextHandle allocates an unused handle.
func (d *Document) NextHandle() uint64 {
	if d.Header != nil && d.Header.HandSeed > d.nextHandle {
		d.nextHandle = d.Header.HandSeed
	}
	for {
		h := d.nextHandle
		d.nextHandle++
		if _, taken := d.index.Search(h); !taken {
			return h
		}
	}
}

// Add registers obj under its handle, allocating one when it is zero.
func (d *Document) Add(obj Object) error {
	c := obj.Common()
	if c.Handle == 0 {
		c.Handle = d.NextHandle()
	}
	if err := d.index.Insert(c.Handle, obj); err != nil {
		return format.Corruption(format.SectionObjects, -1, fmt.Errorf("%w: 0x%X", format.ErrDuplicateHandle, c.Handle))
	}
	d.Reserve(c.Handle)
	return nil
}

// Lookup returns the object with handle h.
func (d *Document) Lookup(h uint64) (Object, bool) {
	return d.index.Search(h)
}

// Len returns the number of registered objects.
func (d *Document) Len() int {
	return d.index.Len()
}

// Walk calls fn for every object in handle order until fn returns false.
// fn may call back into the document.
func (d *Document) Walk(fn func(Object) bool) {
	for _, obj := range d.Objects() {
		if !fn(obj) {
			return
		}
	}
}

// Objects returns every object in handle order.
func (d *Document) Objects() []Object {
	out := make([]Object, 0, d.Len())
	d.index.Ascend(func(_ uint64, obj Object) bool {
		out = append(out, obj)
		return true
	})
	return out
}

// Entities returns the entities of model space followed by paper space.
func (d *Document) Entities() []Entity {
	var out []Entity
	for _, b := range []*BlockRecord{d.ModelSpace, d.PaperSpace} {
		if b != nil {
			out = append(out, b.Entities...)
		}
	}
	return out
}

// AddEntity registers e and appends it to block.
func (d *Document) AddEntity(block *BlockRecord, e Entity) error {
	if err := d.Add(e); err != nil {
		return err
	}
	eb := e.EntityCommon()
	if eb.Layer == nil {
		eb.Layer = d.defaultLayer()
	}
	if eb.LineType == nil {
		eb.LineType = d.ByLayer
	}
	block.AddEntity(e)
	return nil
}

func (d *Document) defaultLayer() *Layer {
	if l, ok := d.Layers.Get(DefaultLayerName); ok {
		return l
	}
	return d.CurrentLayer
}
