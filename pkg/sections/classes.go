package sections

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/ssargent/dwgkit/pkg/bitstream"
	"github.com/ssargent/dwgkit/pkg/checksum"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/objects"
)

// EncodeClasses writes the classes section.
func EncodeClasses(classes []*objects.Class, v format.Version, cp *charmap.Charmap) []byte {
	w := bitstream.NewWriter(v)
	w.SetCodePage(cp)
	if v.AtLeast(format.AC1018) {
		w.BitShort(int16(objects.NewClassTable(classes).MaxNumber()))
	}
	w.BitLong(int32(len(classes)))
	for _, c := range classes {
		w.BitShort(int16(c.Number))
		w.BitShort(int16(c.ProxyFlags))
		w.Text(c.AppName)
		w.Text(c.CppName)
		w.Text(c.DXFName)
		w.Bit(c.WasZombie)
		w.BitShort(int16(c.ItemClassID))
		if v.AtLeast(format.AC1018) {
			w.BitLong(c.InstanceCount)
			w.BitShort(int16(c.DwgVersion))
			w.BitShort(int16(c.MaintenanceVersion))
			w.BitLong(c.Unknown1)
			w.BitLong(c.Unknown2)
		}
	}
	return wrap(format.ClassesStart, w.Bytes())
}

// DecodeClasses reads the classes section.
func DecodeClasses(data []byte, v format.Version, cp *charmap.Charmap, verifier *checksum.Verifier) ([]*objects.Class, error) {
	payload, err := unwrap(format.SectionClasses, format.ClassesStart, data, verifier)
	if err != nil {
		return nil, err
	}
	r := bitstream.NewReader(payload, v)
	r.SetCodePage(cp)
	if v.AtLeast(format.AC1018) {
		r.BitShort()
	}
	n := int(r.BitLong())
	if n < 0 || n > r.Remaining() {
		return nil, format.Corruption(format.SectionClasses, format.SentinelSize+4, fmt.Errorf("%w: %d classes", format.ErrCorrupt, n))
	}

	classes := make([]*objects.Class, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		c := &objects.Class{
			Number:      uint16(r.BitShort()),
			ProxyFlags:  uint16(r.BitShort()),
			AppName:     r.Text(),
			CppName:     r.Text(),
			DXFName:     r.Text(),
			WasZombie:   r.Bit(),
			ItemClassID: uint16(r.BitShort()),
		}
		if v.AtLeast(format.AC1018) {
			c.InstanceCount = r.BitLong()
			c.DwgVersion = uint16(r.BitShort())
			c.MaintenanceVersion = uint16(r.BitShort())
			c.Unknown1 = r.BitLong()
			c.Unknown2 = r.BitLong()
		}
		if c.Number < uint16(objects.TypeClassBase) && r.Err() == nil {
			return nil, format.Corruption(format.SectionClasses, int64(r.Position()/8),
				fmt.Errorf("%w: class number %d below %d", format.ErrCorrupt, c.Number, objects.TypeClassBase))
		}
		classes = append(classes, c)
	}
	if err := r.Err(); err != nil {
		return nil, format.Corruption(format.SectionClasses, format.SentinelSize+4, err)
	}
	return classes, nil
}
