package handles

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/ssargent/dwgkit/pkg/checksum"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
)

const (
	// MaxBucketSize is the largest entry payload of one bucket.
	MaxBucketSize = 2032

	maxMarker    = 8
	negativeFlag = 0x80
	bucketFrame  = 4 // length prefix and trailing CRC
)

// Entry maps one handle to the offset of its object record.
type Entry struct {
	Handle uint64
	Offset int64
}

type bucket struct {
	first   uint64
	entries []Entry
}

// Map is a decoded handle index. Entries are kept in the buckets they were
// read from so a rewrite can reproduce the same boundaries.
type Map struct {
	buckets []bucket
	size    int
}

// Options carries the failure policy for Decode.
type Options struct {
	Strict bool
	Notify notify.Handler
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return m.size
}

// Lookup returns the offset recorded for handle.
func (m *Map) Lookup(handle uint64) (int64, bool) {
	i := sort.Search(len(m.buckets), func(i int) bool { return m.buckets[i].first > handle }) - 1
	if i < 0 {
		return 0, false
	}
	entries := m.buckets[i].entries
	j := sort.Search(len(entries), func(j int) bool { return entries[j].Handle >= handle })
	if j < len(entries) && entries[j].Handle == handle {
		return entries[j].Offset, true
	}
	return 0, false
}

// Entries returns every entry in ascending handle order.
func (m *Map) Entries() []Entry {
	out := make([]Entry, 0, m.size)
	for _, b := range m.buckets {
		out = append(out, b.entries...)
	}
	return out
}

// Bounds returns the entry count of each bucket.
func (m *Map) Bounds() []int {
	out := make([]int, len(m.buckets))
	for i, b := range m.buckets {
		out[i] = len(b.entries)
	}
	return out
}

// Decode parses a handle index. A bucket whose CRC does not match is fatal
// only in strict mode. A length marker outside 0..8 is always fatal.
func Decode(data []byte, opts Options) (*Map, error) {
	v := &checksum.Verifier{Strict: opts.Strict, Notify: opts.Notify}
	m := &Map{}
	var last uint64

	pos := 0
	for pos < len(data) {
		if pos+2 > len(data) {
			return nil, corrupt(pos, format.ErrTruncated)
		}
		size := int(binary.BigEndian.Uint16(data[pos:]))
		start := pos
		if size > MaxBucketSize {
			return nil, corrupt(pos, fmt.Errorf("%w: bucket of %d bytes", format.ErrMalformedHandleTable, size))
		}
		end := pos + 2 + size
		if end+2 > len(data) {
			if size == 0 && end == len(data) {
				break
			}
			return nil, corrupt(pos, fmt.Errorf("%w: bucket of %d bytes", format.ErrTruncated, size))
		}
		stored := binary.BigEndian.Uint16(data[end:])
		if err := v.Check(format.SectionHandles, int64(start), uint32(checksum.CRC8(checksum.SeedSection, data[start:end])), uint32(stored)); err != nil {
			return nil, err
		}
		if size == 0 {
			break
		}

		// The first entry of every bucket is absolute.
		var b bucket
		var prevHandle uint64
		var prevOffset int64
		for pos = start + 2; pos < end; {
			hm := int(data[pos])
			if hm == 0 {
				break
			}
			if hm > maxMarker {
				return nil, corrupt(pos, fmt.Errorf("%w: handle marker 0x%02X", format.ErrMalformedHandleTable, hm))
			}
			if pos+1+hm >= end {
				return nil, corrupt(pos, fmt.Errorf("%w: entry overruns bucket", format.ErrMalformedHandleTable))
			}
			delta := readBE(data[pos+1 : pos+1+hm])
			pos += 1 + hm

			om := int(data[pos])
			n := om &^ negativeFlag
			if n > maxMarker || om&0x70 != 0 {
				return nil, corrupt(pos, fmt.Errorf("%w: offset marker 0x%02X", format.ErrMalformedHandleTable, om))
			}
			if pos+1+n > end {
				return nil, corrupt(pos, fmt.Errorf("%w: entry overruns bucket", format.ErrMalformedHandleTable))
			}
			od := int64(readBE(data[pos+1 : pos+1+n]))
			if om&negativeFlag != 0 {
				od = -od
			}
			pos += 1 + n

			if delta == 0 {
				if len(b.entries) == 0 {
					return nil, corrupt(pos, fmt.Errorf("%w: handle 0", format.ErrMalformedHandleTable))
				}
				return nil, corrupt(pos, fmt.Errorf("%w: 0x%X", format.ErrDuplicateHandle, prevHandle))
			}
			if prevHandle+delta < prevHandle {
				return nil, corrupt(pos, fmt.Errorf("%w: handle overflows", format.ErrMalformedHandleTable))
			}
			prevHandle += delta
			if len(b.entries) == 0 && prevHandle <= last && m.size > 0 {
				if prevHandle == last {
					return nil, corrupt(pos, fmt.Errorf("%w: 0x%X", format.ErrDuplicateHandle, prevHandle))
				}
				return nil, corrupt(pos, fmt.Errorf("%w: bucket starts at 0x%X after 0x%X", format.ErrMalformedHandleTable, prevHandle, last))
			}
			prevOffset += od
			b.entries = append(b.entries, Entry{Handle: prevHandle, Offset: prevOffset})
		}
		if len(b.entries) > 0 {
			b.first = b.entries[0].Handle
			last = b.entries[len(b.entries)-1].Handle
			m.buckets = append(m.buckets, b)
			m.size += len(b.entries)
		}
		pos = end + 2
	}
	return m, nil
}

func corrupt(pos int, err error) error {
	return format.Corruption(format.SectionHandles, int64(pos), err)
}

func readBE(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func appendBE(dst []byte, v uint64) ([]byte, int) {
	n := 0
	for x := v; x != 0; x >>= 8 {
		n++
	}
	for i := n - 1; i >= 0; i-- {
		dst = append(dst, byte(v>>(8*i)))
	}
	return dst, n
}

// Encode writes entries, sorted by handle, with base added to every offset.
// Buckets are filled greedily up to MaxBucketSize.
func Encode(entries []Entry, base int64) ([]byte, error) {
	return EncodeWithBounds(entries, base, nil)
}

// EncodeWithBounds is Encode but closes buckets after the entry counts in
// bounds while they fit. Greedy filling resumes once bounds run out.
func EncodeWithBounds(entries []Entry, base int64, bounds []int) ([]byte, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Handle < sorted[j].Handle })

	for i, e := range sorted {
		if e.Handle == 0 {
			return nil, fmt.Errorf("handle 0 is reserved")
		}
		if e.Offset+base < 0 {
			return nil, fmt.Errorf("handle 0x%X has negative offset %d", e.Handle, e.Offset+base)
		}
		if i > 0 && sorted[i-1].Handle == e.Handle {
			return nil, fmt.Errorf("%w: 0x%X", format.ErrDuplicateHandle, e.Handle)
		}
	}

	var out []byte
	var prevHandle uint64
	var prevOffset int64

	body := make([]byte, 0, MaxBucketSize)
	count := 0
	flush := func() {
		start := len(out)
		out = binary.BigEndian.AppendUint16(out, uint16(len(body)))
		out = append(out, body...)
		out = binary.BigEndian.AppendUint16(out, checksum.CRC8(checksum.SeedSection, out[start:]))
		body = body[:0]
		count = 0
		prevHandle, prevOffset = 0, 0
		if len(bounds) > 0 {
			bounds = bounds[1:]
		}
	}

	for _, e := range sorted {
		entry := encodeEntry(e.Handle-prevHandle, e.Offset+base-prevOffset)
		if len(body)+len(entry) > MaxBucketSize || (len(bounds) > 0 && count == bounds[0] && count > 0) {
			flush()
			entry = encodeEntry(e.Handle, e.Offset+base)
		}
		body = append(body, entry...)
		count++
		prevHandle, prevOffset = e.Handle, e.Offset+base
	}
	if len(body) > 0 {
		flush()
	}
	flush()
	return out, nil
}

func encodeEntry(handleDelta uint64, offsetDelta int64) []byte {
	out := make([]byte, 1, 18)
	out, n := appendBE(out, handleDelta)
	out[0] = byte(n)

	marker := len(out)
	out = append(out, 0)
	mag := uint64(offsetDelta)
	if offsetDelta < 0 {
		mag = uint64(-offsetDelta)
	}
	out, n = appendBE(out, mag)
	out[marker] = byte(n)
	if offsetDelta < 0 {
		out[marker] |= negativeFlag
	}
	return out
}
