package header

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ssargent/dwgkit/pkg/checksum"
	"github.com/ssargent/dwgkit/pkg/format"
)

const (
	metadataSize   = 0x6C
	metadataOffset = 0x80
	metadataSeed   = 1
)

var metadataMagic = []byte("AcFssFcAJMB\x00")

// Metadata is the page-map locator block of the paged layouts.
type Metadata struct {
	RootTreeNodeGap     int32
	LeftTreeNodeGap     int32
	RightTreeNodeGap    int32
	Unknown             uint32
	LastPageID          int32
	LastPageEndAddress  uint64
	SecondHeaderAddress uint64
	GapAmount           uint32
	PageAmount          uint32
	PageMapID           int32
	PageMapAddress      uint64 // relative to the first page
	SectionMapID        int32
	PageArraySize       uint32
	GapArraySize        uint32
	CRC                 uint32
}

func (m *Metadata) marshal() []byte {
	b := make([]byte, metadataSize)
	le := binary.LittleEndian
	copy(b, metadataMagic)
	le.PutUint32(b[0x10:], metadataSize)
	le.PutUint32(b[0x14:], 0x04)
	le.PutUint32(b[0x18:], uint32(m.RootTreeNodeGap))
	le.PutUint32(b[0x1C:], uint32(m.LeftTreeNodeGap))
	le.PutUint32(b[0x20:], uint32(m.RightTreeNodeGap))
	le.PutUint32(b[0x24:], m.Unknown)
	le.PutUint32(b[0x28:], uint32(m.LastPageID))
	le.PutUint64(b[0x2C:], m.LastPageEndAddress)
	le.PutUint64(b[0x34:], m.SecondHeaderAddress)
	le.PutUint32(b[0x3C:], m.GapAmount)
	le.PutUint32(b[0x40:], m.PageAmount)
	le.PutUint32(b[0x44:], 0x20)
	le.PutUint32(b[0x48:], 0x80)
	le.PutUint32(b[0x4C:], 0x40)
	le.PutUint32(b[0x50:], uint32(m.PageMapID))
	le.PutUint64(b[0x54:], m.PageMapAddress)
	le.PutUint32(b[0x5C:], uint32(m.SectionMapID))
	le.PutUint32(b[0x60:], m.PageArraySize)
	le.PutUint32(b[0x64:], m.GapArraySize)
	m.CRC = checksum.CRC32(0, b)
	le.PutUint32(b[0x68:], m.CRC)
	return b
}

func unmarshalMetadata(b []byte, v *checksum.Verifier, offset int64) (*Metadata, error) {
	if len(b) < metadataSize {
		return nil, format.Corruption(format.MetadataBlockName, offset, format.ErrTruncated)
	}
	if !bytes.Equal(b[:len(metadataMagic)], metadataMagic) {
		return nil, format.Corruption(format.MetadataBlockName, offset,
			fmt.Errorf("%w: bad file id %q", format.ErrCorrupt, b[:len(metadataMagic)-1]))
	}
	le := binary.LittleEndian
	m := &Metadata{
		RootTreeNodeGap:     int32(le.Uint32(b[0x18:])),
		LeftTreeNodeGap:     int32(le.Uint32(b[0x1C:])),
		RightTreeNodeGap:    int32(le.Uint32(b[0x20:])),
		Unknown:             le.Uint32(b[0x24:]),
		LastPageID:          int32(le.Uint32(b[0x28:])),
		LastPageEndAddress:  le.Uint64(b[0x2C:]),
		SecondHeaderAddress: le.Uint64(b[0x34:]),
		GapAmount:           le.Uint32(b[0x3C:]),
		PageAmount:          le.Uint32(b[0x40:]),
		PageMapID:           int32(le.Uint32(b[0x50:])),
		PageMapAddress:      le.Uint64(b[0x54:]),
		SectionMapID:        int32(le.Uint32(b[0x5C:])),
		PageArraySize:       le.Uint32(b[0x60:]),
		GapArraySize:        le.Uint32(b[0x64:]),
		CRC:                 le.Uint32(b[0x68:]),
	}

	check := make([]byte, metadataSize)
	copy(check, b[:metadataSize])
	le.PutUint32(check[0x68:], 0)
	if err := v.Check(format.MetadataBlockName, offset, checksum.CRC32(0, check), m.CRC); err != nil {
		return nil, err
	}
	return m, nil
}
