package header

import (
	"encoding/binary"

	"github.com/ssargent/dwgkit/pkg/format"
)

const prefixSize = 0x80

// readPrefix decodes the fixed fields shared by the R2004+ layouts.
func readPrefix(data []byte) (*FileHeader, error) {
	version, err := DetectVersion(data)
	if err != nil {
		return nil, err
	}
	if len(data) < prefixSize {
		return nil, format.Corruption(format.FileHeaderName, int64(len(data)), format.ErrTruncated)
	}
	le := binary.LittleEndian
	return &FileHeader{
		Version:            version,
		MaintenanceVersion: data[0x0B],
		PreviewAddress:     int64(le.Uint32(data[0x0D:])),
		AppVersion:         data[0x11],
		AppMaintenance:     data[0x12],
		CodePage:           le.Uint16(data[0x13:]),
		SecurityType:       int32(le.Uint32(data[0x18:])),
		SummaryInfoAddress: int64(le.Uint32(data[0x20:])),
		VBAProjectAddress:  int64(le.Uint32(data[0x24:])),
		AppInfoAddress:     int64(le.Uint32(data[0x2C:])),
	}, nil
}

func writePrefix(hdr *FileHeader) []byte {
	b := make([]byte, prefixSize)
	le := binary.LittleEndian
	copy(b, hdr.Version.Tag())
	b[0x0B] = hdr.MaintenanceVersion
	b[0x0C] = 3
	le.PutUint32(b[0x0D:], uint32(hdr.PreviewAddress))
	b[0x11] = hdr.AppVersion
	b[0x12] = hdr.AppMaintenance
	le.PutUint16(b[0x13:], hdr.CodePage)
	le.PutUint32(b[0x18:], uint32(hdr.SecurityType))
	le.PutUint32(b[0x20:], uint32(hdr.SummaryInfoAddress))
	le.PutUint32(b[0x24:], uint32(hdr.VBAProjectAddress))
	le.PutUint32(b[0x28:], prefixSize)
	le.PutUint32(b[0x2C:], uint32(hdr.AppInfoAddress))
	return b
}
