package header

// lcg is the linear congruential generator whose high bytes mask the
// metadata block.
type lcg struct {
	seed uint32
}

func (g *lcg) next() byte {
	g.seed = g.seed*0x343FD + 0x269EC3
	return byte(g.seed >> 16)
}

// xorLCG masks or unmasks buf in place with the stream started at seed.
func xorLCG(buf []byte, seed uint32) {
	g := lcg{seed: seed}
	for i := range buf {
		buf[i] ^= g.next()
	}
}
