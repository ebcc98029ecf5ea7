package dwg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/builder"
	"github.com/ssargent/dwgkit/pkg/checksum"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/handles"
	"github.com/ssargent/dwgkit/pkg/header"
	"github.com/ssargent/dwgkit/pkg/notify"
	"github.com/ssargent/dwgkit/pkg/objects"
	"github.com/ssargent/dwgkit/pkg/sections"
)

// Container is a file decoded up to, but not including, its object records.
type Container struct {
	Header  *header.FileHeader
	Vars    *sections.HeaderVars
	Classes []*objects.Class
	Handles *handles.Map

	// Sections holds every section payload by name. In the flat layout the
	// objects section is the whole file.
	Sections map[string][]byte
}

// Opaque returns the sections preserved as raw bytes. The preview is
// returned without its sentinels.
func (c *Container) Opaque(h notify.Handler) map[string][]byte {
	out := make(map[string][]byte)
	for _, name := range format.OpaqueSections() {
		data, ok := c.Sections[name]
		if !ok || len(data) == 0 {
			continue
		}
		if name == format.SectionPreview {
			image, err := sections.UnwrapPreview(data)
			if err != nil {
				h.Warn(notify.KindGeneral, err, "preview kept as stored")
			} else {
				data = image
			}
		}
		out[name] = data
	}
	return out
}

// Reader decodes drawing files
type Reader struct {
	config ReaderConfig
}

// NewReader creates a new reader with the given configuration
func NewReader(config ReaderConfig) *Reader {
	return &Reader{config: config}
}

func (r *Reader) verifier() *checksum.Verifier {
	return &checksum.Verifier{Strict: r.config.VerifyChecksums, Notify: r.config.Notify}
}

// Read decodes a complete document from src.
func (r *Reader) Read(ctx context.Context, src io.Reader) (*document.Document, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return r.ReadBytes(ctx, data)
}

// ReadBytes decodes a complete document held in data.
func (r *Reader) ReadBytes(ctx context.Context, data []byte) (*document.Document, error) {
	c, err := r.Open(data)
	if err != nil {
		return nil, err
	}
	return r.Build(ctx, c)
}

// ReadFile decodes the document stored at path.
func ReadFile(ctx context.Context, path string, config ReaderConfig) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewReader(config).ReadBytes(ctx, data)
}

// Open decodes the header, section directory, header variables, classes and
// handle index of data. Every section is materialized.
func (r *Reader) Open(data []byte) (*Container, error) {
	n := r.config.Notify
	codec := header.NewCodec(header.Options{Strict: r.config.VerifyChecksums, Notify: n})
	fh, err := codec.ReadHeader(data)
	if err != nil {
		return nil, err
	}
	secs, err := codec.ReadSections(data, fh)
	if err != nil {
		return nil, err
	}

	c := &Container{Header: fh, Sections: secs}
	cp := bitstream.CodePage(fh.CodePage)

	if raw := secs[format.SectionHeader]; len(raw) > 0 {
		if c.Vars, err = sections.DecodeHeaderVars(raw, fh.Version, cp, r.verifier()); err != nil {
			return nil, err
		}
	} else {
		n.Warn(notify.KindGeneral, nil, "%s section missing, using defaults", format.SectionHeader)
		c.Vars = sections.DefaultHeaderVars()
	}

	if raw := secs[format.SectionClasses]; len(raw) > 0 {
		if c.Classes, err = sections.DecodeClasses(raw, fh.Version, cp, r.verifier()); err != nil {
			return nil, err
		}
	}

	c.Handles = &handles.Map{}
	if raw := secs[format.SectionHandles]; len(raw) > 0 {
		c.Handles, err = handles.Decode(raw, handles.Options{Strict: r.config.VerifyChecksums, Notify: n})
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Build decodes every object record listed by the handle index of c and
// resolves the object graph.
func (r *Reader) Build(ctx context.Context, c *Container) (*document.Document, error) {
	n := r.config.Notify
	v := c.Header.Version
	codec := objects.NewCodec(v, objects.NewClassTable(c.Classes), objects.Options{
		Strict:                 r.config.VerifyChecksums,
		RetainUnknown:          r.config.RetainUnknown,
		IgnoreUnsupportedTypes: r.config.IgnoreUnsupportedTypes,
		CodePage:               c.Header.CodePage,
		Notify:                 n,
	})
	b := builder.New(builder.Options{
		Version:  v,
		Header:   c.Vars,
		Classes:  c.Classes,
		Sections: c.Opaque(n),
		Notify:   n,
	})

	data := c.Sections[format.SectionObjects]
	for _, e := range c.Handles.Entries() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := codec.Decode(data, e.Offset)
		if err != nil {
			if r.fatal(err) {
				return nil, err
			}
			n.Emit(notify.Notification{
				Kind:     notify.KindSkippedObject,
				Severity: notify.SeverityWarning,
				Message:  fmt.Sprintf("object 0x%X skipped", e.Handle),
				Err:      err,
				Handle:   e.Handle,
				Offset:   e.Offset,
			})
			b.Skip(e.Handle)
			continue
		}
		if t == nil {
			b.Skip(e.Handle)
			continue
		}
		if t.Handle != e.Handle {
			n.Emit(notify.Notification{
				Kind:     notify.KindGeneral,
				Severity: notify.SeverityWarning,
				Message:  fmt.Sprintf("record indexed as 0x%X carries handle 0x%X", e.Handle, t.Handle),
				Handle:   t.Handle,
				Offset:   e.Offset,
			})
		}
		if err := b.Add(t); err != nil {
			return nil, err
		}
	}
	doc, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}
	doc.HandleBounds = c.Handles.Bounds()
	return doc, nil
}

// fatal reports whether a record error stops the read. Checksum failures
// only reach here in strict mode.
func (r *Reader) fatal(err error) bool {
	if r.config.StopAtFirstError {
		return true
	}
	return errors.Is(err, format.ErrChecksumMismatch) || errors.Is(err, format.ErrUnsupportedType)
}
