package compress

import (
	"fmt"

	"github.com/ssargent/dwgkit/pkg/format"
)

const terminator = 0x11

type decoder struct {
	src []byte
	pos int
	dst []byte
	max int
}

// Decompress inflates src, which must produce exactly expected bytes before
// the terminator opcode. Producing more or fewer bytes is a corruption error.
func Decompress(src []byte, expected int) ([]byte, error) {
	if expected < 0 {
		return nil, format.Corruption("", 0, fmt.Errorf("%w: negative size %d", format.ErrSizeMismatch, expected))
	}
	d := &decoder{src: src, dst: make([]byte, 0, min(expected, 1<<22)), max: expected}
	if err := d.run(); err != nil {
		return nil, err
	}
	if len(d.dst) != expected {
		return nil, format.Corruption("", int64(d.pos),
			fmt.Errorf("%w: decompressed %d bytes, expected %d", format.ErrSizeMismatch, len(d.dst), expected))
	}
	return d.dst, nil
}

func (d *decoder) run() error {
	op, err := d.next()
	if err != nil {
		return err
	}
	if op&0xF0 == 0 {
		n, err := d.literalCount(op)
		if err != nil {
			return err
		}
		if op, err = d.literal(n + 3); err != nil {
			return err
		}
	}

	for op != terminator {
		if op < 0x10 {
			return d.corrupt("opcode 0x%02X where a copy was expected", op)
		}

		var length, offset int
		switch {
		case op >= 0x40:
			length = int(op>>4) - 1
			op2, err := d.next()
			if err != nil {
				return err
			}
			offset = (int(op>>2)&3 | int(op2)<<2) + 1
		case op >= 0x20:
			if length, err = d.copyLength(op, 0x1F); err != nil {
				return err
			}
			if op, err = d.twoByteOffset(&offset, 1); err != nil {
				return err
			}
		default:
			if length, err = d.copyLength(op, 0x07); err != nil {
				return err
			}
			offset = int(op&8) << 11
			if op, err = d.twoByteOffset(&offset, 0x4000); err != nil {
				return err
			}
		}

		if err := d.backCopy(offset, length); err != nil {
			return err
		}

		lit := int(op & 3)
		if lit == 0 {
			if op, err = d.next(); err != nil {
				return err
			}
			if op&0xF0 == 0 {
				n, err := d.literalCount(op)
				if err != nil {
					return err
				}
				lit = n + 3
			}
		}
		if lit > 0 {
			if op, err = d.literal(lit); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *decoder) next() (byte, error) {
	if d.pos >= len(d.src) {
		return 0, d.corrupt("input exhausted before terminator")
	}
	b := d.src[d.pos]
	d.pos++
	return b, nil
}

// literalCount decodes the length nibble of a literal run, extended by runs
// of zero bytes worth 0xFF each.
func (d *decoder) literalCount(code byte) (int, error) {
	n := int(code & 0x0F)
	if n != 0 {
		return n, nil
	}
	b, err := d.next()
	if err != nil {
		return 0, err
	}
	for b == 0 {
		n += 0xFF
		if b, err = d.next(); err != nil {
			return 0, err
		}
	}
	return n + 0x0F + int(b), nil
}

func (d *decoder) copyLength(op byte, bits byte) (int, error) {
	n := int(op & bits)
	if n == 0 {
		b, err := d.next()
		if err != nil {
			return 0, err
		}
		for b == 0 {
			n += 0xFF
			if b, err = d.next(); err != nil {
				return 0, err
			}
		}
		n += int(b) + int(bits)
	}
	return n + 2, nil
}

func (d *decoder) twoByteOffset(offset *int, add int) (byte, error) {
	first, err := d.next()
	if err != nil {
		return 0, err
	}
	second, err := d.next()
	if err != nil {
		return 0, err
	}
	*offset |= int(first) >> 2
	*offset |= int(second) << 6
	*offset += add
	return first, nil
}

// literal copies n raw bytes and returns the opcode that follows them.
func (d *decoder) literal(n int) (byte, error) {
	if d.pos+n > len(d.src) {
		return 0, d.corrupt("literal run of %d bytes overruns input", n)
	}
	if len(d.dst)+n > d.max {
		return 0, d.overrun()
	}
	d.dst = append(d.dst, d.src[d.pos:d.pos+n]...)
	d.pos += n
	return d.next()
}

func (d *decoder) backCopy(offset, length int) error {
	start := len(d.dst) - offset
	if offset <= 0 || start < 0 {
		return d.corrupt("back-reference displacement %d beyond %d decoded bytes", offset, len(d.dst))
	}
	if len(d.dst)+length > d.max {
		return d.overrun()
	}
	// Byte at a time: source and destination may overlap.
	for i := 0; i < length; i++ {
		d.dst = append(d.dst, d.dst[start+i])
	}
	return nil
}

func (d *decoder) overrun() error {
	return format.Corruption("", int64(d.pos), fmt.Errorf("%w: output exceeds %d bytes", format.ErrSizeMismatch, d.max))
}

func (d *decoder) corrupt(msg string, args ...any) error {
	return format.Corruption("", int64(d.pos), fmt.Errorf("%w: "+msg, append([]any{format.ErrCorrupt}, args...)...))
}
