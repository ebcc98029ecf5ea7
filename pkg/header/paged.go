package header

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ssargent/dwgkit/pkg/compress"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
)

const (
	pagedBase          = 0x100
	sectionNameSize    = 64
	secondHeaderLength = 0x80

	// maxDataPageSize bounds the decompressed size of one data page.
	maxDataPageSize = 0x7400
	maxExpansion    = 1 << 10
)

type pageLocation struct {
	address int64
	size    int64
}

type pagedLayout struct {
	opts     Options
	pageBase int64
}

func (l *pagedLayout) Family() format.LayoutFamily { return format.LayoutPaged }

func (l *pagedLayout) ReadHeader(data []byte) (*FileHeader, error) {
	hdr, err := readPrefix(data)
	if err != nil {
		return nil, err
	}
	if len(data) < metadataOffset+metadataSize {
		return nil, format.Corruption(format.MetadataBlockName, metadataOffset, format.ErrTruncated)
	}
	block := make([]byte, metadataSize)
	copy(block, data[metadataOffset:])
	xorLCG(block, metadataSeed)

	meta, err := unmarshalMetadata(block, l.opts.verifier(), metadataOffset)
	if err != nil {
		return nil, err
	}
	if err := l.readDirectory(data, hdr, meta); err != nil {
		return nil, err
	}
	return hdr, nil
}

// readDirectory decodes the page map and section map located by meta.
func (l *pagedLayout) readDirectory(data []byte, hdr *FileHeader, meta *Metadata) error {
	hdr.Metadata = meta
	v := l.opts.verifier()

	pmAddr := l.pageBase + int64(meta.PageMapAddress)
	pm, err := decodeSystemPage(data, pmAddr, pageTypePageMap, format.PageMapName, v)
	if err != nil {
		return err
	}
	pages, err := l.parsePageMap(pm)
	if err != nil {
		return err
	}

	smLoc, ok := pages[meta.SectionMapID]
	if !ok {
		return format.Corruption(format.PageMapName, pmAddr,
			fmt.Errorf("%w: section map page %d not in page map", format.ErrCorrupt, meta.SectionMapID))
	}
	sm, err := decodeSystemPage(data, smLoc.address, pageTypeSectionMap, format.SectionMapName, v)
	if err != nil {
		return err
	}
	hdr.Sections, err = parseSectionMap(sm, pages, smLoc.address)
	return err
}

func (l *pagedLayout) parsePageMap(pm []byte) (map[int32]pageLocation, error) {
	pages := make(map[int32]pageLocation)
	addr := l.pageBase
	le := binary.LittleEndian
	for pos := 0; pos+8 <= len(pm); {
		number := int32(le.Uint32(pm[pos:]))
		size := int64(int32(le.Uint32(pm[pos+4:])))
		pos += 8
		if size < 0 {
			return nil, format.Corruption(format.PageMapName, int64(pos),
				fmt.Errorf("%w: negative page size", format.ErrCorrupt))
		}
		if number < 0 {
			// Gap entries carry parent, left, right and a zero word.
			pos += 16
		} else {
			pages[number] = pageLocation{address: addr, size: size}
		}
		addr += size
	}
	return pages, nil
}

func parseSectionMap(sm []byte, pages map[int32]pageLocation, addr int64) ([]*SectionDescriptor, error) {
	r := &byteReader{buf: sm, name: format.SectionMapName, base: addr}
	count := int(r.u32())
	r.u32() // 0x02
	r.u32() // max page size
	r.u32() // 0x00
	r.u32() // count again
	if r.err != nil {
		return nil, r.err
	}

	var sections []*SectionDescriptor
	for i := 0; i < count; i++ {
		desc := &SectionDescriptor{
			DecompressedSize: r.u64(),
		}
		pageCount := int(r.u32())
		desc.MaxPageSize = r.u32()
		r.u32() // unknown
		desc.Compression = int32(r.u32())
		desc.ID = int32(r.u32())
		desc.Encrypted = int32(r.u32())
		desc.Name = string(bytes.TrimRight(r.bytes(sectionNameSize), "\x00"))
		if r.err != nil {
			return nil, r.err
		}
		if pageCount < 0 || pageCount > len(sm) {
			return nil, format.Corruption(format.SectionMapName, addr,
				fmt.Errorf("%w: %s declares %d pages", format.ErrCorrupt, desc.Name, pageCount))
		}
		for p := 0; p < pageCount; p++ {
			page := LocalSectionMap{
				PageNumber:     int32(r.u32()),
				CompressedSize: r.u32(),
				StartOffset:    r.u64(),
			}
			if r.err != nil {
				return nil, r.err
			}
			loc, ok := pages[page.PageNumber]
			if !ok {
				return nil, format.Corruption(desc.Name, -1,
					fmt.Errorf("%w: page %d not in page map", format.ErrCorrupt, page.PageNumber))
			}
			page.Address, page.Size = loc.address, loc.size
			desc.CompressedSize += uint64(page.CompressedSize)
			desc.Pages = append(desc.Pages, page)
		}
		sections = append(sections, desc)
	}
	return sections, nil
}

func (l *pagedLayout) ReadSection(data []byte, _ *FileHeader, desc *SectionDescriptor) ([]byte, error) {
	if desc.Encrypted == 1 {
		return nil, format.Corruption(desc.Name, -1, format.ErrEncrypted)
	}
	if limit := uint64(len(desc.Pages)) * maxDataPageSize; desc.DecompressedSize > limit || desc.DecompressedSize > uint64(len(data))*maxExpansion {
		return nil, format.Corruption(desc.Name, -1,
			fmt.Errorf("%w: section declares %d bytes in %d pages", format.ErrSizeMismatch, desc.DecompressedSize, len(desc.Pages)))
	}
	v := l.opts.verifier()
	buf := make([]byte, desc.DecompressedSize)
	filled := uint64(0)
	for _, p := range desc.Pages {
		if p.Address < 0 || p.Address+dataPageHeaderSize > int64(len(data)) {
			return nil, format.Corruption(desc.Name, p.Address, format.ErrTruncated)
		}
		h := decodeDataPageHeader(data[p.Address:], p.Address)
		if h.Type != pageTypeData {
			return nil, format.Corruption(desc.Name, p.Address,
				fmt.Errorf("%w: page type 0x%08X", format.ErrCorrupt, h.Type))
		}
		if int32(h.SectionID) != desc.ID {
			return nil, format.Corruption(desc.Name, p.Address,
				fmt.Errorf("%w: page belongs to section %d, expected %d", format.ErrCorrupt, h.SectionID, desc.ID))
		}
		start := p.Address + dataPageHeaderSize
		end := start + int64(h.CompressedSize)
		if end > int64(len(data)) || (p.Size > 0 && end > p.Address+p.Size) {
			return nil, format.Corruption(desc.Name, p.Address, format.ErrTruncated)
		}
		payload := data[start:end]
		if err := verifyDataPage(v, desc.Name, p.Address, h, payload); err != nil {
			return nil, err
		}

		if h.PageSize > maxDataPageSize || p.StartOffset > desc.DecompressedSize {
			return nil, format.Corruption(desc.Name, p.Address,
				fmt.Errorf("%w: page of %d bytes at section offset %d", format.ErrCorrupt, h.PageSize, p.StartOffset))
		}

		content := payload
		if desc.IsCompressed() {
			out, err := compress.Decompress(payload, int(h.PageSize))
			if err != nil {
				return nil, format.Corruption(desc.Name, p.Address, err)
			}
			content = out
		} else if len(payload) != int(h.PageSize) {
			return nil, format.Corruption(desc.Name, p.Address,
				fmt.Errorf("%w: stored page of %d bytes declares %d", format.ErrSizeMismatch, len(payload), h.PageSize))
		}

		// The last page may be padded past the section end.
		copy(buf[p.StartOffset:], content)
		filled = max(filled, p.StartOffset+uint64(len(content)))
	}

	if filled < desc.DecompressedSize {
		return nil, format.Corruption(desc.Name, -1,
			fmt.Errorf("%w: pages hold %d bytes, section declares %d", format.ErrSizeMismatch, filled, desc.DecompressedSize))
	}
	return buf, nil
}

func (l *pagedLayout) Write(hdr *FileHeader, sections []Section, handles HandleEncoder) ([]byte, error) {
	out, meta, err := l.writeBody(hdr, sections, handles)
	if err != nil {
		return nil, err
	}
	block := meta.marshal()
	xorLCG(block, metadataSeed)

	trailer := make([]byte, secondHeaderLength)
	copy(trailer, block)
	out = append(out, trailer...)

	copy(out, writePrefix(hdr))
	copy(out[metadataOffset:], block)
	return out, nil
}

// writeBody lays out data pages, the section map and the page map after a
// zeroed region of pageBase bytes, and returns the metadata describing them.
func (l *pagedLayout) writeBody(hdr *FileHeader, sections []Section, handles HandleEncoder) ([]byte, *Metadata, error) {
	handleData, err := handles(0)
	if err != nil {
		return nil, nil, err
	}
	ordered := make([]Section, 0, len(sections)+1)
	placed := false
	for _, s := range sections {
		if s.Name == format.SectionHandles {
			s.Data, placed = handleData, true
		}
		ordered = append(ordered, s)
	}
	if !placed {
		ordered = append(ordered, Section{Name: format.SectionHandles, Data: handleData})
	}

	out := make([]byte, l.pageBase)
	var pageMap [][2]int64 // page number, on-disk size
	number := int32(1)

	hdr.Sections = nil
	hdr.SummaryInfoAddress, hdr.PreviewAddress, hdr.VBAProjectAddress, hdr.AppInfoAddress = 0, 0, 0, 0
	for i, s := range ordered {
		desc := &SectionDescriptor{
			Name:             s.Name,
			ID:               int32(i + 1),
			Compression:      CompressionNone,
			DecompressedSize: uint64(len(s.Data)),
			MaxPageSize:      uint32(format.MaxPageSize(s.Name)),
		}
		if format.IsCompressedSection(s.Name) {
			desc.Compression = CompressionLZ77
		}

		limit := int(desc.MaxPageSize)
		for off := 0; off < len(s.Data); off += limit {
			chunk := s.Data[off:min(off+limit, len(s.Data))]
			payload, pageSize := chunk, len(chunk)
			if desc.IsCompressed() {
				padded := make([]byte, limit)
				copy(padded, chunk)
				if payload, err = compress.Compress(padded); err != nil {
					return nil, nil, fmt.Errorf("failed to compress %s: %w", s.Name, err)
				}
				pageSize = limit
			}

			addr := int64(len(out))
			page := encodeDataPage(addr, dataPageHeader{
				SectionID:   uint32(desc.ID),
				PageSize:    uint32(pageSize),
				StartOffset: uint32(off),
			}, payload)
			h := decodeDataPageHeader(page, addr)
			out = append(out, page...)

			desc.Pages = append(desc.Pages, LocalSectionMap{
				PageNumber:       number,
				Address:          addr,
				Size:             int64(len(page)),
				StartOffset:      uint64(off),
				CompressedSize:   uint32(len(payload)),
				DecompressedSize: uint32(pageSize),
				HeaderChecksum:   h.HeaderChecksum,
				Checksum:         h.DataChecksum,
			})
			desc.CompressedSize += uint64(len(payload))
			pageMap = append(pageMap, [2]int64{int64(number), int64(len(page))})
			number++
		}
		hdr.Sections = append(hdr.Sections, desc)

		if len(desc.Pages) > 0 {
			addr := desc.Pages[0].Address + dataPageHeaderSize
			switch s.Name {
			case format.SectionSummaryInfo:
				hdr.SummaryInfoAddress = addr
			case format.SectionPreview:
				hdr.PreviewAddress = addr
			case format.SectionVBAProject:
				hdr.VBAProjectAddress = addr
			case format.SectionAppInfo:
				hdr.AppInfoAddress = addr
			}
		}
	}

	smPage, err := encodeSystemPage(pageTypeSectionMap, marshalSectionMap(hdr.Sections))
	if err != nil {
		return nil, nil, err
	}
	smID := number
	number++
	out = append(out, smPage...)
	pageMap = append(pageMap, [2]int64{int64(smID), int64(len(smPage))})

	pmID := number
	pmAddr := int64(len(out))
	var pmPage []byte
	size := int64(0)
	for attempt := 0; attempt < 8; attempt++ {
		entries := append(pageMap[:len(pageMap):len(pageMap)], [2]int64{int64(pmID), size})
		if pmPage, err = encodeSystemPage(pageTypePageMap, marshalPageMap(entries)); err != nil {
			return nil, nil, err
		}
		if int64(len(pmPage)) == size {
			break
		}
		size = int64(len(pmPage))
	}
	out = append(out, pmPage...)

	meta := &Metadata{
		Unknown:             1,
		LastPageID:          pmID,
		LastPageEndAddress:  uint64(len(out)),
		SecondHeaderAddress: uint64(len(out)),
		PageAmount:          uint32(pmID),
		PageMapID:           pmID,
		PageMapAddress:      uint64(pmAddr - l.pageBase),
		SectionMapID:        smID,
		PageArraySize:       uint32(len(pageMap) + 1),
	}
	hdr.Metadata = meta
	return out, meta, nil
}

func marshalPageMap(entries [][2]int64) []byte {
	out := make([]byte, 0, len(entries)*8)
	for _, e := range entries {
		out = binary.LittleEndian.AppendUint32(out, uint32(e[0]))
		out = binary.LittleEndian.AppendUint32(out, uint32(e[1]))
	}
	return out
}

func marshalSectionMap(sections []*SectionDescriptor) []byte {
	le := binary.LittleEndian
	out := make([]byte, 0, 20+len(sections)*(32+sectionNameSize))
	out = le.AppendUint32(out, uint32(len(sections)))
	out = le.AppendUint32(out, 0x02)
	out = le.AppendUint32(out, 0x7400)
	out = le.AppendUint32(out, 0x00)
	out = le.AppendUint32(out, uint32(len(sections)))
	for _, s := range sections {
		out = le.AppendUint64(out, s.DecompressedSize)
		out = le.AppendUint32(out, uint32(len(s.Pages)))
		out = le.AppendUint32(out, s.MaxPageSize)
		out = le.AppendUint32(out, 1)
		out = le.AppendUint32(out, uint32(s.Compression))
		out = le.AppendUint32(out, uint32(s.ID))
		out = le.AppendUint32(out, uint32(s.Encrypted))
		name := make([]byte, sectionNameSize)
		copy(name, s.Name)
		out = append(out, name...)
		for _, p := range s.Pages {
			out = le.AppendUint32(out, uint32(p.PageNumber))
			out = le.AppendUint32(out, p.CompressedSize)
			out = le.AppendUint64(out, p.StartOffset)
		}
	}
	return out
}

// byteReader is a little-endian cursor with a sticky error.
type byteReader struct {
	buf  []byte
	pos  int
	name string
	base int64
	err  error
}

func (r *byteReader) bytes(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if r.pos+n > len(r.buf) {
		r.err = format.Corruption(r.name, r.base, fmt.Errorf("%w: read %d bytes at %d of %d", format.ErrTruncated, n, r.pos, len(r.buf)))
		return make([]byte, n)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *byteReader) u32() uint32 { return binary.LittleEndian.Uint32(r.bytes(4)) }
func (r *byteReader) u64() uint64 { return binary.LittleEndian.Uint64(r.bytes(8)) }

// notifyDropped reports sections a layout cannot store.
func notifyDropped(h notify.Handler, name string, v format.Version) {
	h.Warn(notify.KindNotSupported, nil, "%s has no place in a %s file and is dropped", name, v)
}
