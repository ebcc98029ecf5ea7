package checksum

const (
	pageChunk   = 0x15B0
	pageModulus = 0xFFF1
)

// Page computes the seeded page checksum used for paged section data and
// system pages. The low and high halves of seed start the two running sums.
func Page(seed uint32, data []byte) uint32 {
	sum1 := seed & 0xFFFF
	sum2 := seed >> 16
	for len(data) > 0 {
		n := len(data)
		if n > pageChunk {
			n = pageChunk
		}
		for _, b := range data[:n] {
			sum1 += uint32(b)
			sum2 += sum1
		}
		sum1 %= pageModulus
		sum2 %= pageModulus
		data = data[n:]
	}
	return sum2<<16 | sum1
}
