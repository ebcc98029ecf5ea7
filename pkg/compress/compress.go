package compress

import "errors"

// ErrInputTooShort is returned for 1-3 byte inputs: the opening literal run of
// a stream encodes at least four bytes.
var ErrInputTooShort = errors.New("compress: input shorter than the minimum literal run")

const (
	minMatch      = 3
	minFarMatch   = 4
	shortMaxLen   = 14
	shortMaxDist  = 0x400
	mediumMaxDist = 0x4000
	maxDist       = 0xBFFF

	hashBits = 15
	maxChain = 48
)

type match struct {
	length int
	dist   int
}

type encoder struct {
	src  []byte
	out  []byte
	head []int32
	prev []int32
}

// Compress deflates src with a greedy hash-chain matcher. The output is a
// valid stream for Decompress but is not byte-identical to other writers.
func Compress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return []byte{terminator}, nil
	}
	if len(src) < 4 {
		return nil, ErrInputTooShort
	}

	e := &encoder{
		src:  src,
		out:  make([]byte, 0, len(src)/2+16),
		head: make([]int32, 1<<hashBits),
		prev: make([]int32, len(src)),
	}
	for i := range e.head {
		e.head[i] = -1
	}

	var (
		pending  bool
		last     match
		litStart int
	)
	for i := 0; i < len(src); {
		m, ok := e.find(i)
		if ok && i >= 4 {
			if pending {
				e.match(last, src[litStart:i])
			} else {
				e.initialLiteral(src[litStart:i])
			}
			pending, last = true, m
			for k := 0; k < m.length; k++ {
				e.insert(i + k)
			}
			i += m.length
			litStart = i
			continue
		}
		e.insert(i)
		i++
	}
	if pending {
		e.match(last, src[litStart:])
	} else {
		e.initialLiteral(src[litStart:])
	}
	e.out = append(e.out, terminator)
	return e.out, nil
}

func (e *encoder) hash(i int) int {
	v := uint32(e.src[i]) | uint32(e.src[i+1])<<8 | uint32(e.src[i+2])<<16
	return int((v * 2654435761) >> (32 - hashBits))
}

func (e *encoder) insert(i int) {
	if i+minMatch > len(e.src) {
		return
	}
	h := e.hash(i)
	e.prev[i] = e.head[h]
	e.head[h] = int32(i)
}

func (e *encoder) find(i int) (match, bool) {
	if i+minMatch > len(e.src) {
		return match{}, false
	}
	var best match
	j := e.head[e.hash(i)]
	for chain := 0; j >= 0 && chain < maxChain; chain++ {
		dist := i - int(j)
		if dist > maxDist {
			break
		}
		n := 0
		for i+n < len(e.src) && e.src[int(j)+n] == e.src[i+n] {
			n++
		}
		if n > best.length && (n >= minFarMatch || dist <= mediumMaxDist) {
			best = match{length: n, dist: dist}
		}
		j = e.prev[j]
	}
	return best, best.length >= minMatch
}

func (e *encoder) initialLiteral(lit []byte) {
	e.literalLength(len(lit))
	e.out = append(e.out, lit...)
}

// match writes a copy opcode followed by the literal run that comes after it.
// Runs of 1-3 bytes ride in the low bits of the copy opcode.
func (e *encoder) match(m match, lit []byte) {
	var bits byte
	if n := len(lit); n > 0 && n < 4 {
		bits = byte(n)
	}

	switch {
	case m.length <= shortMaxLen && m.dist <= shortMaxDist:
		d := m.dist - 1
		e.out = append(e.out, byte((m.length+1)<<4|(d&3)<<2)|bits, byte(d>>2))
	case m.dist <= mediumMaxDist:
		if m.length-2 <= 0x1F {
			e.out = append(e.out, 0x20|byte(m.length-2))
		} else {
			e.out = append(e.out, 0x20)
			e.extended(m.length - 2 - 0x1F)
		}
		e.twoByteOffset(m.dist-1, bits)
	default:
		d := m.dist - 0x4000
		op := byte(0x10)
		if d >= 0x4000 {
			op |= 0x08
			d -= 0x4000
		}
		if m.length-2 <= 0x07 {
			e.out = append(e.out, op|byte(m.length-2))
		} else {
			e.out = append(e.out, op)
			e.extended(m.length - 2 - 0x07)
		}
		e.twoByteOffset(d, bits)
	}

	switch n := len(lit); {
	case n == 0:
	case n < 4:
		e.out = append(e.out, lit...)
	default:
		e.literalLength(n)
		e.out = append(e.out, lit...)
	}
}

func (e *encoder) twoByteOffset(v int, bits byte) {
	e.out = append(e.out, byte(v&0x3F)<<2|bits, byte(v>>6))
}

// literalLength writes the opcode announcing a literal run of n >= 4 bytes.
func (e *encoder) literalLength(n int) {
	v := n - 3
	if v <= 0x0F {
		e.out = append(e.out, byte(v))
		return
	}
	e.out = append(e.out, 0x00)
	e.extended(v - 0x0F)
}

// extended writes v >= 1 as zero bytes worth 0xFF each plus a final non-zero byte.
func (e *encoder) extended(v int) {
	for v > 0xFF {
		e.out = append(e.out, 0x00)
		v -= 0xFF
	}
	e.out = append(e.out, byte(v))
}
