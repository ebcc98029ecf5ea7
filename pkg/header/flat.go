package header

import (
	"encoding/binary"
	"fmt"

	"github.com/ssargent/dwgkit/pkg/checksum"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
)

const (
	flatLocatorTable = 0x19
	flatLocatorSize  = 9
	flatMaxLocators  = 16
)

// flatSlots maps locator record numbers to section names.
var flatSlots = []string{
	format.SectionHeader,
	format.SectionClasses,
	format.SectionHandles,
	format.SectionObjFreeSpace,
	format.SectionTemplate,
	format.SectionAuxHeader,
}

// flatCRCMask is XORed into the locator table CRC, keyed by record count.
var flatCRCMask = map[int]uint16{
	3: 0xA598,
	4: 0x8101,
	5: 0x3CC4,
	6: 0x8461,
}

type flatLayout struct {
	opts Options
}

func (l *flatLayout) Family() format.LayoutFamily { return format.LayoutFlat }

func flatLocatorCount(v format.Version) int {
	if v == format.AC1015 {
		return 6
	}
	return 5
}

func (l *flatLayout) ReadHeader(data []byte) (*FileHeader, error) {
	version, err := DetectVersion(data)
	if err != nil {
		return nil, err
	}
	if len(data) < flatLocatorTable {
		return nil, format.Corruption(format.FileHeaderName, int64(len(data)), format.ErrTruncated)
	}

	hdr := &FileHeader{
		Version:            version,
		MaintenanceVersion: data[0x0B],
		PreviewAddress:     int64(binary.LittleEndian.Uint32(data[0x0D:])),
		AppVersion:         data[0x11],
		AppMaintenance:     data[0x12],
		CodePage:           binary.LittleEndian.Uint16(data[0x13:]),
	}

	count := int(binary.LittleEndian.Uint32(data[0x15:]))
	if count < 0 || count > flatMaxLocators {
		return nil, format.Corruption(format.FileHeaderName, 0x15,
			fmt.Errorf("%w: %d locator records", format.ErrCorrupt, count))
	}
	end := flatLocatorTable + count*flatLocatorSize
	if len(data) < end+2+format.SentinelSize {
		return nil, format.Corruption(format.FileHeaderName, int64(len(data)), format.ErrTruncated)
	}

	for i := 0; i < count; i++ {
		rec := data[flatLocatorTable+i*flatLocatorSize:]
		hdr.Locators = append(hdr.Locators, SectionLocatorRecord{
			Number: rec[0],
			Offset: int64(binary.LittleEndian.Uint32(rec[1:])),
			Size:   int64(binary.LittleEndian.Uint32(rec[5:])),
		})
	}

	crc := checksum.CRC8(checksum.SeedFileHeader, data[:end]) ^ flatCRCMask[count]
	stored := binary.LittleEndian.Uint16(data[end:])
	if err := l.opts.verifier().Check(format.FileHeaderName, int64(end), uint32(crc), uint32(stored)); err != nil {
		return nil, err
	}
	if err := format.FileHeaderEnd.Check(format.FileHeaderName, int64(end+2), data[end+2:]); err != nil {
		return nil, err
	}

	for _, rec := range hdr.Locators {
		if int(rec.Number) >= len(flatSlots) {
			l.opts.Notify.Warn(notify.KindNotImplemented, nil, "locator record %d ignored", rec.Number)
			continue
		}
		if rec.Size == 0 {
			continue
		}
		if rec.Offset+rec.Size > int64(len(data)) {
			return nil, format.Corruption(flatSlots[rec.Number], rec.Offset,
				fmt.Errorf("%w: section of %d bytes extends past end of file", format.ErrTruncated, rec.Size))
		}
		hdr.Sections = append(hdr.Sections, &SectionDescriptor{
			Name:             flatSlots[rec.Number],
			ID:               int32(rec.Number),
			Compression:      CompressionNone,
			CompressedSize:   uint64(rec.Size),
			DecompressedSize: uint64(rec.Size),
			Pages: []LocalSectionMap{{
				Address:          rec.Offset,
				Size:             rec.Size,
				CompressedSize:   uint32(rec.Size),
				DecompressedSize: uint32(rec.Size),
			}},
		})
	}

	if hdr.PreviewAddress > 0 {
		desc, err := flatPreview(data, hdr.PreviewAddress)
		if err != nil {
			return nil, err
		}
		hdr.Sections = append(hdr.Sections, desc)
	}

	return hdr, nil
}

// flatPreview locates the sentinel-bracketed preview block.
func flatPreview(data []byte, addr int64) (*SectionDescriptor, error) {
	if addr+format.SentinelSize+4 > int64(len(data)) {
		return nil, format.Corruption(format.SectionPreview, addr, format.ErrTruncated)
	}
	if err := format.PreviewStart.Check(format.SectionPreview, addr, data[addr:]); err != nil {
		return nil, err
	}
	size := int64(binary.LittleEndian.Uint32(data[addr+format.SentinelSize:]))
	total := format.SentinelSize + 4 + size + format.SentinelSize
	if addr+total > int64(len(data)) {
		return nil, format.Corruption(format.SectionPreview, addr, format.ErrTruncated)
	}
	endAt := addr + total - format.SentinelSize
	if err := format.PreviewEnd.Check(format.SectionPreview, endAt, data[endAt:]); err != nil {
		return nil, err
	}
	return &SectionDescriptor{
		Name:             format.SectionPreview,
		ID:               -2,
		Compression:      CompressionNone,
		CompressedSize:   uint64(total),
		DecompressedSize: uint64(total),
		Pages: []LocalSectionMap{{
			Address:          addr,
			Size:             total,
			CompressedSize:   uint32(total),
			DecompressedSize: uint32(total),
		}},
	}, nil
}

func (l *flatLayout) ReadSection(data []byte, _ *FileHeader, desc *SectionDescriptor) ([]byte, error) {
	if len(desc.Pages) != 1 {
		return nil, format.Corruption(desc.Name, -1, fmt.Errorf("%w: %d pages in flat section", format.ErrCorrupt, len(desc.Pages)))
	}
	p := desc.Pages[0]
	if p.Address < 0 || p.Size < 0 || p.Address+p.Size > int64(len(data)) {
		return nil, format.Corruption(desc.Name, p.Address, format.ErrTruncated)
	}
	return data[p.Address : p.Address+p.Size], nil
}

func (l *flatLayout) Write(hdr *FileHeader, sections []Section, handles HandleEncoder) ([]byte, error) {
	count := flatLocatorCount(hdr.Version)
	headerSize := flatLocatorTable + count*flatLocatorSize + 2 + format.SentinelSize

	out := make([]byte, headerSize)
	copy(out, hdr.Version.Tag())
	out[0x0B] = hdr.MaintenanceVersion
	out[0x0C] = 1
	out[0x11] = hdr.AppVersion
	out[0x12] = hdr.AppMaintenance
	binary.LittleEndian.PutUint16(out[0x13:], hdr.CodePage)
	binary.LittleEndian.PutUint32(out[0x15:], uint32(count))

	known := map[string]bool{format.SectionObjects: true, format.SectionPreview: true}
	for _, name := range flatSlots[:count] {
		known[name] = true
	}
	for _, s := range sections {
		if !known[s.Name] {
			notifyDropped(l.opts.Notify, s.Name, hdr.Version)
		}
	}

	hdr.PreviewAddress = 0
	if preview, ok := sectionData(sections, format.SectionPreview); ok && len(preview) > 0 {
		hdr.PreviewAddress = int64(len(out))
		out = append(out, preview...)
	}

	locators := make([]SectionLocatorRecord, count)
	for i := range locators {
		locators[i].Number = byte(i)
	}
	place := func(slot int, payload []byte) {
		if slot >= count {
			return
		}
		locators[slot] = SectionLocatorRecord{Number: byte(slot), Offset: int64(len(out)), Size: int64(len(payload))}
		if len(payload) == 0 {
			locators[slot].Offset = 0
		}
		out = append(out, payload...)
	}

	headerVars, _ := sectionData(sections, format.SectionHeader)
	place(0, headerVars)
	classes, _ := sectionData(sections, format.SectionClasses)
	place(1, classes)

	objectsBase := int64(len(out))
	objects, _ := sectionData(sections, format.SectionObjects)
	out = append(out, objects...)

	handleData, err := handles(objectsBase)
	if err != nil {
		return nil, err
	}
	place(2, handleData)
	for slot := 3; slot < len(flatSlots); slot++ {
		payload, _ := sectionData(sections, flatSlots[slot])
		place(slot, payload)
	}

	binary.LittleEndian.PutUint32(out[0x0D:], uint32(hdr.PreviewAddress))
	for i, rec := range locators {
		at := out[flatLocatorTable+i*flatLocatorSize:]
		at[0] = rec.Number
		binary.LittleEndian.PutUint32(at[1:], uint32(rec.Offset))
		binary.LittleEndian.PutUint32(at[5:], uint32(rec.Size))
	}
	end := flatLocatorTable + count*flatLocatorSize
	crc := checksum.CRC8(checksum.SeedFileHeader, out[:end]) ^ flatCRCMask[count]
	binary.LittleEndian.PutUint16(out[end:], crc)
	copy(out[end+2:], format.FileHeaderEnd[:])

	hdr.Locators = locators
	return out, nil
}
