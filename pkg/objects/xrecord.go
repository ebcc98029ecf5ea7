package objects

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"

	"github.com/ssargent/dwgkit/pkg/format"
)

// XRecordItem is one group code and value of an XRECORD. Values are string,
// float64, int, bool, uint64 for handles or []byte for binary chunks.
type XRecordItem struct {
	Code  int
	Value any
}

type xvalue int

const (
	xInvalid xvalue = iota
	xString
	xDouble
	xInt8
	xInt16
	xInt32
	xInt64
	xBool
	xHandle
	xBinary
)

func xrecordKind(code int) xvalue {
	switch {
	case code >= 0 && code <= 9, code >= 100 && code <= 102, code == 105,
		code >= 300 && code <= 309, code >= 410 && code <= 419, code >= 430 && code <= 439,
		code >= 470 && code <= 479, code >= 999 && code <= 1009:
		return xString
	case code >= 10 && code <= 59, code >= 110 && code <= 149, code >= 210 && code <= 239,
		code >= 460 && code <= 469, code >= 1010 && code <= 1059:
		return xDouble
	case code >= 60 && code <= 79, code >= 170 && code <= 179, code >= 270 && code <= 279,
		code >= 370 && code <= 389, code >= 400 && code <= 409, code >= 1060 && code <= 1070:
		return xInt16
	case code >= 90 && code <= 99, code >= 420 && code <= 429, code >= 440 && code <= 459, code == 1071:
		return xInt32
	case code >= 160 && code <= 169:
		return xInt64
	case code >= 280 && code <= 289:
		return xInt8
	case code >= 290 && code <= 299:
		return xBool
	case code >= 310 && code <= 319:
		return xBinary
	case code >= 320 && code <= 369, code >= 390 && code <= 399, code >= 480 && code <= 481:
		return xHandle
	}
	return xInvalid
}

func decodeXRecord(raw []byte, v format.Version, cp *charmap.Charmap) ([]XRecordItem, error) {
	le := binary.LittleEndian
	var items []XRecordItem
	pos := 0
	need := func(n int) bool { return pos+n <= len(raw) }
	for pos < len(raw) {
		if !need(2) {
			return nil, fmt.Errorf("%w: xrecord item at %d", format.ErrTruncated, pos)
		}
		code := int(int16(le.Uint16(raw[pos:])))
		pos += 2

		item := XRecordItem{Code: code}
		switch xrecordKind(code) {
		case xString:
			if !need(2) {
				return nil, fmt.Errorf("%w: xrecord string at %d", format.ErrTruncated, pos)
			}
			n := int(le.Uint16(raw[pos:]))
			pos += 2
			if v.AtLeast(format.AC1021) {
				if !need(n * 2) {
					return nil, fmt.Errorf("%w: xrecord string at %d", format.ErrTruncated, pos)
				}
				units := make([]uint16, n)
				for i := range units {
					units[i] = le.Uint16(raw[pos+i*2:])
				}
				pos += n * 2
				item.Value = string(utf16.Decode(units))
				break
			}
			if !need(1 + n) {
				return nil, fmt.Errorf("%w: xrecord string at %d", format.ErrTruncated, pos)
			}
			pos++ // code page
			runes := make([]rune, n)
			for i := 0; i < n; i++ {
				runes[i] = cp.DecodeByte(raw[pos+i])
			}
			pos += n
			item.Value = string(runes)
		case xDouble:
			if !need(8) {
				return nil, fmt.Errorf("%w: xrecord double at %d", format.ErrTruncated, pos)
			}
			item.Value = math.Float64frombits(le.Uint64(raw[pos:]))
			pos += 8
		case xInt8, xBool:
			if !need(1) {
				return nil, fmt.Errorf("%w: xrecord byte at %d", format.ErrTruncated, pos)
			}
			if xrecordKind(code) == xBool {
				item.Value = raw[pos] != 0
			} else {
				item.Value = int(int8(raw[pos]))
			}
			pos++
		case xInt16:
			if !need(2) {
				return nil, fmt.Errorf("%w: xrecord short at %d", format.ErrTruncated, pos)
			}
			item.Value = int(int16(le.Uint16(raw[pos:])))
			pos += 2
		case xInt32:
			if !need(4) {
				return nil, fmt.Errorf("%w: xrecord long at %d", format.ErrTruncated, pos)
			}
			item.Value = int(int32(le.Uint32(raw[pos:])))
			pos += 4
		case xInt64:
			if !need(8) {
				return nil, fmt.Errorf("%w: xrecord int64 at %d", format.ErrTruncated, pos)
			}
			item.Value = int(int64(le.Uint64(raw[pos:])))
			pos += 8
		case xHandle:
			if !need(8) {
				return nil, fmt.Errorf("%w: xrecord handle at %d", format.ErrTruncated, pos)
			}
			item.Value = le.Uint64(raw[pos:])
			pos += 8
		case xBinary:
			if !need(1) || !need(1+int(raw[pos])) {
				return nil, fmt.Errorf("%w: xrecord chunk at %d", format.ErrTruncated, pos)
			}
			n := int(raw[pos])
			item.Value = append([]byte(nil), raw[pos+1:pos+1+n]...)
			pos += 1 + n
		default:
			return nil, fmt.Errorf("%w: xrecord group code %d", format.ErrCorrupt, code)
		}
		items = append(items, item)
	}
	return items, nil
}

func encodeXRecord(items []XRecordItem, v format.Version, cp *charmap.Charmap) ([]byte, error) {
	le := binary.LittleEndian
	var out []byte
	for _, it := range items {
		out = le.AppendUint16(out, uint16(int16(it.Code)))
		kind := xrecordKind(it.Code)
		switch kind {
		case xString:
			s, _ := it.Value.(string)
			if v.AtLeast(format.AC1021) {
				units := utf16.Encode([]rune(s))
				out = le.AppendUint16(out, uint16(len(units)))
				for _, u := range units {
					out = le.AppendUint16(out, u)
				}
				break
			}
			b := make([]byte, 0, len(s))
			for _, r := range s {
				c, ok := cp.EncodeRune(r)
				if !ok {
					c = '?'
				}
				b = append(b, c)
			}
			out = le.AppendUint16(out, uint16(len(b)))
			out = append(out, 0)
			out = append(out, b...)
		case xDouble:
			out = le.AppendUint64(out, math.Float64bits(toFloat(it.Value)))
		case xInt8:
			out = append(out, byte(int8(toInt(it.Value))))
		case xBool:
			if toInt(it.Value) != 0 {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		case xInt16:
			out = le.AppendUint16(out, uint16(int16(toInt(it.Value))))
		case xInt32:
			out = le.AppendUint32(out, uint32(int32(toInt(it.Value))))
		case xInt64:
			out = le.AppendUint64(out, uint64(int64(toInt(it.Value))))
		case xHandle:
			h, _ := it.Value.(uint64)
			out = le.AppendUint64(out, h)
		case xBinary:
			b, _ := it.Value.([]byte)
			if len(b) > 0xFF {
				return nil, fmt.Errorf("xrecord chunk of %d bytes exceeds 255", len(b))
			}
			out = append(out, byte(len(b)))
			out = append(out, b...)
		default:
			return nil, fmt.Errorf("%w: xrecord group code %d", format.ErrUnsupported, it.Code)
		}
	}
	return out, nil
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	}
	return 0
}

func toInt(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case bool:
		if x {
			return 1
		}
	case float64:
		return int(x)
	}
	return 0
}
