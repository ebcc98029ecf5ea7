package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/ssargent/dwgkit/pkg/bptree"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
	"github.com/ssargent/dwgkit/pkg/objects"
	"github.com/ssargent/dwgkit/pkg/sections"
)

// Options configures a Builder.
type Options struct {
	Version format.Version
	// Header supplies the well-known handles. A nil header leaves every
	// default to be found by name or created.
	Header   *sections.HeaderVars
	Classes  []*objects.Class
	Sections map[string][]byte
	Notify   notify.Handler
}

// Builder collects templates and builds a document from them. A Builder is
// used for one build and is not safe for concurrent use.
type Builder struct {
	opts      Options
	templates *bptree.BPlusTree[uint64, *objects.Template]
	skipped   map[uint64]bool
	built     bool
}

// New returns an empty Builder.
func New(opts Options) *Builder {
	return &Builder{
		opts:      opts,
		templates: bptree.NewBPlusTree[uint64, *objects.Template](bptree.DefaultOrder),
		skipped:   make(map[uint64]bool),
	}
}

// Add stores t for the resolve phase. A second template with the same handle
// is a fatal corruption.
func (b *Builder) Add(t *objects.Template) error {
	if b.built {
		return errors.New("builder: Add after Build")
	}
	if err := b.templates.Insert(t.Handle, t); err != nil {
		if errors.Is(err, bptree.ErrDuplicateKey) {
			return format.Corruption(format.SectionObjects, t.Offset, fmt.Errorf("%w: 0x%X", format.ErrDuplicateHandle, t.Handle))
		}
		return err
	}
	return nil
}

// Skip records a handle whose record was deliberately not decoded.
// References to it resolve to nothing without further notifications.
func (b *Builder) Skip(handle uint64) {
	b.skipped[handle] = true
}

// Len returns the number of collected templates.
func (b *Builder) Len() int {
	return b.templates.Len()
}

// Template returns the collected template with handle h.
func (b *Builder) Template(h uint64) (*objects.Template, bool) {
	return b.templates.Search(h)
}

func (b *Builder) handles() []uint64 {
	out := make([]uint64, 0, b.templates.Len())
	b.templates.Ascend(func(h uint64, _ *objects.Template) bool {
		out = append(out, h)
		return true
	})
	return out
}

// Build resolves the collected templates into a document. ctx is checked
// between objects.
func (b *Builder) Build(ctx context.Context) (*document.Document, error) {
	if b.built {
		return nil, errors.New("builder: Build called twice")
	}
	b.built = true

	doc := document.Empty(b.opts.Version)
	if b.opts.Header != nil {
		h := *b.opts.Header
		doc.Header = &h
	}
	doc.Classes = b.opts.Classes
	for name, data := range b.opts.Sections {
		doc.Sections[name] = data
	}
	if last, ok := b.templates.Max(); ok {
		doc.Reserve(last)
	}

	r := newResolver(b, doc)
	if err := r.run(ctx); err != nil {
		return nil, err
	}
	return doc, nil
}
