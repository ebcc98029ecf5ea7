package header

import (
	"fmt"
	"io"

	"github.com/ssargent/dwgkit/pkg/format"
)

// VersionTagSize is the length of the ASCII tag at offset 0.
const VersionTagSize = 6

// Codec reads and writes file headers, dispatching on the version tag.
type Codec struct {
	opts Options
}

// NewCodec creates a codec with the given failure policy.
func NewCodec(opts Options) *Codec {
	return &Codec{opts: opts}
}

// DetectVersion parses the version tag at the start of data.
func DetectVersion(data []byte) (format.Version, error) {
	if len(data) < VersionTagSize {
		return format.VersionUnknown, format.Corruption(format.FileHeaderName, 0, format.ErrTruncated)
	}
	return format.ParseVersion(string(data[:VersionTagSize]))
}

// ReadHeader decodes the header and section directory of data.
func (c *Codec) ReadHeader(data []byte) (*FileHeader, error) {
	version, err := DetectVersion(data)
	if err != nil {
		return nil, err
	}
	layout, err := LayoutFor(version, c.opts)
	if err != nil {
		return nil, err
	}
	return layout.ReadHeader(data)
}

// ReadSection materializes the named section. Missing sections return nil
// without error. In the flat layout the objects section is the whole file.
func (c *Codec) ReadSection(data []byte, hdr *FileHeader, name string) ([]byte, error) {
	desc := hdr.Section(name)
	if desc == nil {
		if name == format.SectionObjects && hdr.Version.Layout() == format.LayoutFlat {
			// Flat object records are addressed by absolute file offset.
			return data, nil
		}
		return nil, nil
	}
	layout, err := LayoutFor(hdr.Version, c.opts)
	if err != nil {
		return nil, err
	}
	return layout.ReadSection(data, hdr, desc)
}

// ReadSections materializes every section of the directory.
func (c *Codec) ReadSections(data []byte, hdr *FileHeader) (map[string][]byte, error) {
	layout, err := LayoutFor(hdr.Version, c.opts)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(hdr.Sections))
	for _, desc := range hdr.Sections {
		buf, err := layout.ReadSection(data, hdr, desc)
		if err != nil {
			return nil, err
		}
		out[desc.Name] = buf
	}
	if hdr.Version.Layout() == format.LayoutFlat {
		out[format.SectionObjects] = data
	}
	return out, nil
}

// Write lays out sections for hdr.Version and writes the complete file to w.
// hdr is updated to describe what was written.
func (c *Codec) Write(w io.Writer, hdr *FileHeader, sections []Section, handles HandleEncoder) error {
	layout, err := LayoutFor(hdr.Version, c.opts)
	if err != nil {
		return err
	}
	out, err := layout.Write(hdr, sections, handles)
	if err != nil {
		return fmt.Errorf("failed to lay out %s file: %w", hdr.Version, err)
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func sectionData(sections []Section, name string) ([]byte, bool) {
	for _, s := range sections {
		if s.Name == name {
			return s.Data, true
		}
	}
	return nil, false
}
