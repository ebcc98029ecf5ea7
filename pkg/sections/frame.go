package sections

import (
	"encoding/binary"
	"fmt"

	"github.com/ssargent/dwgkit/pkg/checksum"
	"github.com/ssargent/dwgkit/pkg/format"
)

// wrap brackets payload with start and its complement:
//
//	start sentinel, RL size, payload, RS CRC8, end sentinel
func wrap(start format.Sentinel, payload []byte) []byte {
	out := make([]byte, 0, 2*format.SentinelSize+6+len(payload))
	out = append(out, start[:]...)
	body := binary.LittleEndian.AppendUint32(nil, uint32(len(payload)))
	body = append(body, payload...)
	out = append(out, body...)
	out = binary.LittleEndian.AppendUint16(out, checksum.CRC8(checksum.SeedSection, body))
	end := start.Complement()
	return append(out, end[:]...)
}

// unwrap checks the sentinels and CRC written by wrap and returns the payload.
func unwrap(name string, start format.Sentinel, data []byte, v *checksum.Verifier) ([]byte, error) {
	if err := start.Check(name, 0, data); err != nil {
		return nil, err
	}
	pos := format.SentinelSize
	if len(data) < pos+4 {
		return nil, format.Corruption(name, int64(pos), format.ErrTruncated)
	}
	size := int64(binary.LittleEndian.Uint32(data[pos:]))
	end := int64(pos) + 4 + size
	if end+2+format.SentinelSize > int64(len(data)) {
		return nil, format.Corruption(name, int64(pos), fmt.Errorf("%w: section declares %d bytes", format.ErrSizeMismatch, size))
	}
	stored := binary.LittleEndian.Uint16(data[end:])
	if err := v.Check(name, end, uint32(checksum.CRC8(checksum.SeedSection, data[pos:end])), uint32(stored)); err != nil {
		return nil, err
	}
	if err := start.Complement().Check(name, end+2, data[end+2:]); err != nil {
		return nil, err
	}
	return data[pos+4 : end], nil
}

// WrapPreview brackets a preview image with the preview sentinels.
func WrapPreview(image []byte) []byte {
	out := make([]byte, 0, 2*format.SentinelSize+4+len(image))
	out = append(out, format.PreviewStart[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(image)))
	out = append(out, image...)
	return append(out, format.PreviewEnd[:]...)
}

// UnwrapPreview returns the image inside a preview block. Data that does not
// start with the preview sentinel is returned unchanged.
func UnwrapPreview(data []byte) ([]byte, error) {
	if len(data) < format.SentinelSize || format.PreviewStart.Check(format.SectionPreview, 0, data) != nil {
		return data, nil
	}
	pos := format.SentinelSize
	if len(data) < pos+4 {
		return nil, format.Corruption(format.SectionPreview, int64(pos), format.ErrTruncated)
	}
	size := int64(binary.LittleEndian.Uint32(data[pos:]))
	end := int64(pos) + 4 + size
	if end+format.SentinelSize > int64(len(data)) {
		return nil, format.Corruption(format.SectionPreview, int64(pos), fmt.Errorf("%w: preview declares %d bytes", format.ErrSizeMismatch, size))
	}
	if err := format.PreviewEnd.Check(format.SectionPreview, end, data[end:]); err != nil {
		return nil, err
	}
	return data[pos+4 : end], nil
}
