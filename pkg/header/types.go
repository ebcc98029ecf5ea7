package header

import (
	"sort"

	"github.com/ssargent/dwgkit/pkg/checksum"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
)

// Compression codes stored in a section descriptor.
const (
	CompressionNone int32 = 1
	CompressionLZ77 int32 = 2
)

// LocalSectionMap describes one page of a section.
type LocalSectionMap struct {
	PageNumber       int32
	Address          int64  // file offset of the page header
	Size             int64  // bytes occupied on disk, header included
	StartOffset      uint64 // position of the page within the decompressed section
	CompressedSize   uint32
	DecompressedSize uint32
	HeaderChecksum   uint32
	Checksum         uint32
}

// SectionDescriptor is one entry of the section directory.
type SectionDescriptor struct {
	Name             string
	ID               int32
	Compression      int32
	Encrypted        int32
	CompressedSize   uint64
	DecompressedSize uint64
	MaxPageSize      uint32
	Pages            []LocalSectionMap
}

// IsCompressed reports whether pages hold LZ77 streams.
func (s *SectionDescriptor) IsCompressed() bool {
	return s.Compression == CompressionLZ77
}

// SectionLocatorRecord is a slot of the flat layout's locator table.
type SectionLocatorRecord struct {
	Number byte
	Offset int64
	Size   int64
}

// FileHeader is the decoded file header and section directory.
type FileHeader struct {
	Version            format.Version
	MaintenanceVersion byte
	AppVersion         byte
	AppMaintenance     byte
	PreviewAddress     int64
	CodePage           uint16
	SecurityType       int32
	SummaryInfoAddress int64
	VBAProjectAddress  int64
	AppInfoAddress     int64

	// Locators is only populated for the flat layout.
	Locators []SectionLocatorRecord
	Sections []*SectionDescriptor

	// Metadata is only populated for the paged layouts.
	Metadata *Metadata
}

// New returns an empty header for version with default field values.
func New(version format.Version) *FileHeader {
	return &FileHeader{
		Version:            version,
		MaintenanceVersion: version.MaintenanceVersion(),
		AppVersion:         appVersionCode(version),
		AppMaintenance:     version.MaintenanceVersion(),
		CodePage:           30,
	}
}

// Section returns the descriptor named name, or nil.
func (h *FileHeader) Section(name string) *SectionDescriptor {
	for _, s := range h.Sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// SectionNames returns the directory's section names sorted by id.
func (h *FileHeader) SectionNames() []string {
	sorted := make([]*SectionDescriptor, len(h.Sections))
	copy(sorted, h.Sections)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	names := make([]string, len(sorted))
	for i, s := range sorted {
		names[i] = s.Name
	}
	return names
}

// Section is named section content handed to a writer.
type Section struct {
	Name string
	Data []byte
}

// HandleEncoder produces the handles section once the file offset of the
// object data is known. Paged layouts address objects relative to their
// section and pass 0.
type HandleEncoder func(objectsBase int64) ([]byte, error)

// Options carries the failure policy shared by every layout.
type Options struct {
	// Strict makes checksum mismatches fatal.
	Strict bool
	Notify notify.Handler
}

func (o Options) verifier() *checksum.Verifier {
	return &checksum.Verifier{Strict: o.Strict, Notify: o.Notify}
}

// Layout is one on-disk header generation.
type Layout interface {
	Family() format.LayoutFamily
	ReadHeader(data []byte) (*FileHeader, error)
	ReadSection(data []byte, hdr *FileHeader, desc *SectionDescriptor) ([]byte, error)
	Write(hdr *FileHeader, sections []Section, handles HandleEncoder) ([]byte, error)
}

// LayoutFor returns the layout used by version.
func LayoutFor(version format.Version, opts Options) (Layout, error) {
	switch version.Layout() {
	case format.LayoutFlat:
		return &flatLayout{opts: opts}, nil
	case format.LayoutPaged:
		return &pagedLayout{opts: opts, pageBase: pagedBase}, nil
	case format.LayoutCompressedMetadata:
		return &compressedLayout{pagedLayout{opts: opts, pageBase: compressedBase}}, nil
	}
	return nil, format.ErrUnsupportedVersion
}

func appVersionCode(v format.Version) byte {
	switch v {
	case format.AC1012:
		return 0x13
	case format.AC1014:
		return 0x15
	case format.AC1015:
		return 0x17
	case format.AC1018:
		return 0x19
	case format.AC1021:
		return 0x1B
	case format.AC1024:
		return 0x1D
	case format.AC1027:
		return 0x1F
	case format.AC1032:
		return 0x21
	}
	return 0
}
