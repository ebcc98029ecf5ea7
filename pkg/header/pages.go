package header

import (
	"encoding/binary"
	"fmt"

	"github.com/ssargent/dwgkit/pkg/checksum"
	"github.com/ssargent/dwgkit/pkg/compress"
	"github.com/ssargent/dwgkit/pkg/format"
)

// Page types.
const (
	pageTypeData       uint32 = 0x4163043B
	pageTypePageMap    uint32 = 0x41630E3B
	pageTypeSectionMap uint32 = 0x4163003B
)

const (
	dataPageHeaderSize   = 0x20
	systemPageHeaderSize = 0x14
	pageAlign            = 0x20
	dataPageMask         = 0x4164536B
)

func align(n int) int {
	return (n + pageAlign - 1) &^ (pageAlign - 1)
}

// dataPageHeader is the 32-byte header in front of every section data page.
// On disk each word is XORed with dataPageMask^address.
type dataPageHeader struct {
	Type           uint32
	SectionID      uint32
	CompressedSize uint32
	PageSize       uint32
	StartOffset    uint32
	HeaderChecksum uint32
	DataChecksum   uint32
	Reserved       uint32
}

func (h *dataPageHeader) words() []*uint32 {
	return []*uint32{&h.Type, &h.SectionID, &h.CompressedSize, &h.PageSize,
		&h.StartOffset, &h.HeaderChecksum, &h.DataChecksum, &h.Reserved}
}

func (h *dataPageHeader) marshal(mask uint32) []byte {
	b := make([]byte, dataPageHeaderSize)
	for i, w := range h.words() {
		binary.LittleEndian.PutUint32(b[i*4:], *w^mask)
	}
	return b
}

func decodeDataPageHeader(raw []byte, addr int64) dataPageHeader {
	var h dataPageHeader
	mask := uint32(dataPageMask) ^ uint32(addr)
	for i, w := range h.words() {
		*w = binary.LittleEndian.Uint32(raw[i*4:]) ^ mask
	}
	return h
}

// encodeDataPage builds a masked data page at file offset addr, padded to the
// page alignment.
func encodeDataPage(addr int64, h dataPageHeader, payload []byte) []byte {
	h.Type = pageTypeData
	h.CompressedSize = uint32(len(payload))
	h.DataChecksum = checksum.Page(0, payload)
	h.HeaderChecksum = 0
	h.HeaderChecksum = checksum.Page(h.DataChecksum, h.marshal(0))

	out := make([]byte, align(dataPageHeaderSize+len(payload)))
	copy(out, h.marshal(uint32(dataPageMask)^uint32(addr)))
	copy(out[dataPageHeaderSize:], payload)
	return out
}

// verifyDataPage checks both page checksums of a decoded header.
func verifyDataPage(v *checksum.Verifier, name string, addr int64, h dataPageHeader, payload []byte) error {
	if err := v.Check(name, addr, checksum.Page(0, payload), h.DataChecksum); err != nil {
		return err
	}
	stored := h.HeaderChecksum
	h.HeaderChecksum = 0
	return v.Check(name, addr, checksum.Page(h.DataChecksum, h.marshal(0)), stored)
}

// encodeSystemPage compresses content into a page map or section map page.
func encodeSystemPage(pageType uint32, content []byte) ([]byte, error) {
	packed, err := compress.Compress(content)
	if err != nil {
		return nil, err
	}
	hdr := make([]byte, systemPageHeaderSize)
	le := binary.LittleEndian
	le.PutUint32(hdr[0:], pageType)
	le.PutUint32(hdr[4:], uint32(len(content)))
	le.PutUint32(hdr[8:], uint32(len(packed)))
	le.PutUint32(hdr[12:], uint32(CompressionLZ77))
	le.PutUint32(hdr[16:], checksum.Page(checksum.Page(0, hdr), packed))

	out := make([]byte, align(systemPageHeaderSize+len(packed)))
	copy(out, hdr)
	copy(out[systemPageHeaderSize:], packed)
	return out, nil
}

// decodeSystemPage validates and inflates the system page at addr.
func decodeSystemPage(data []byte, addr int64, pageType uint32, name string, v *checksum.Verifier) ([]byte, error) {
	if addr < 0 || addr+systemPageHeaderSize > int64(len(data)) {
		return nil, format.Corruption(name, addr, format.ErrTruncated)
	}
	le := binary.LittleEndian
	hdr := make([]byte, systemPageHeaderSize)
	copy(hdr, data[addr:])
	if got := le.Uint32(hdr[0:]); got != pageType {
		return nil, format.Corruption(name, addr, fmt.Errorf("%w: page type 0x%08X, expected 0x%08X", format.ErrCorrupt, got, pageType))
	}
	decompressed := int(le.Uint32(hdr[4:]))
	compressed := int64(le.Uint32(hdr[8:]))
	stored := le.Uint32(hdr[16:])
	start := addr + systemPageHeaderSize
	if start+compressed > int64(len(data)) {
		return nil, format.Corruption(name, addr, format.ErrTruncated)
	}
	if int64(decompressed) > int64(len(data))*maxExpansion {
		return nil, format.Corruption(name, addr, fmt.Errorf("%w: page declares %d bytes", format.ErrSizeMismatch, decompressed))
	}
	packed := data[start : start+compressed]

	le.PutUint32(hdr[16:], 0)
	if err := v.Check(name, addr, checksum.Page(checksum.Page(0, hdr), packed), stored); err != nil {
		return nil, err
	}
	out, err := compress.Decompress(packed, decompressed)
	if err != nil {
		return nil, format.Corruption(name, addr, err)
	}
	return out, nil
}
