package dwg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/builder"
	"github.com/ssargent/dwgkit/pkg/document"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/handles"
	"github.com/ssargent/dwgkit/pkg/header"
	"github.com/ssargent/dwgkit/pkg/objects"
	"github.com/ssargent/dwgkit/pkg/sections"
)

// Writer encodes documents as drawing files
type Writer struct {
	config WriterConfig
}

// NewWriter creates a new writer with the given configuration
func NewWriter(config WriterConfig) *Writer {
	return &Writer{config: config}
}

// Write encodes doc and writes the complete file to dst. Objects without a
// handle are given one.
func (w *Writer) Write(ctx context.Context, dst io.Writer, doc *document.Document) error {
	v := w.config.Version
	if v == format.VersionUnknown {
		v = doc.Version
	}
	if !v.Valid() {
		return fmt.Errorf("%w: %s", format.ErrUnsupportedVersion, v)
	}

	flat, err := builder.Flatten(doc, builder.FlattenOptions{
		Version:     v,
		DropUnknown: !w.config.RetainUnknown,
		Notify:      w.config.Notify,
	})
	if err != nil {
		return err
	}

	codec := objects.NewCodec(v, objects.NewClassTable(flat.Classes), objects.Options{
		Strict:        true,
		RetainUnknown: true,
		Notify:        w.config.Notify,
	})
	var objs []byte
	entries := make([]handles.Entry, 0, len(flat.Templates))
	for _, t := range flat.Templates {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := codec.Encode(t)
		if err != nil {
			return err
		}
		entries = append(entries, handles.Entry{Handle: t.Handle, Offset: int64(len(objs))})
		objs = append(objs, rec...)
	}

	cp := bitstream.CodePage(bitstream.DefaultCodePage)
	secs := []header.Section{
		{Name: format.SectionHeader, Data: sections.EncodeHeaderVars(flat.Header, v, cp)},
		{Name: format.SectionClasses, Data: sections.EncodeClasses(flat.Classes, v, cp)},
		{Name: format.SectionObjects, Data: objs},
	}
	for _, name := range format.OpaqueSections() {
		data, ok := doc.Sections[name]
		if !ok || len(data) == 0 {
			continue
		}
		if name == format.SectionPreview {
			data = sections.WrapPreview(data)
		}
		secs = append(secs, header.Section{Name: name, Data: data})
	}

	// A rewrite in the source version keeps the handle index buckets.
	var bounds []int
	if v == doc.Version {
		bounds = doc.HandleBounds
	}

	fh := header.New(v)
	fh.CodePage = bitstream.DefaultCodePage
	hc := header.NewCodec(header.Options{Strict: true, Notify: w.config.Notify})
	return hc.Write(dst, fh, secs, func(base int64) ([]byte, error) {
		return handles.EncodeWithBounds(entries, base, bounds)
	})
}

// Bytes encodes doc into memory.
func (w *Writer) Bytes(ctx context.Context, doc *document.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(ctx, &buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes doc to path.
func WriteFile(ctx context.Context, path string, doc *document.Document, config WriterConfig) error {
	data, err := NewWriter(config).Bytes(ctx, doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
