package checksum

// Seeds used by the record-level CRC.
const (
	SeedFileHeader uint16 = 0x0000
	SeedSection    uint16 = 0xC0C1
)

// crc8Table is the reflected 0xA001 polynomial table. The format calls this
// checksum "CRC8" although it produces 16 bits.
var crc8Table = func() [256]uint16 {
	var t [256]uint16
	for i := range t {
		c := uint16(i)
		for k := 0; k < 8; k++ {
			if c&1 != 0 {
				c = c>>1 ^ 0xA001
			} else {
				c >>= 1
			}
		}
		t[i] = c
	}
	return t
}()

// CRC8 folds data into seed.
func CRC8(seed uint16, data []byte) uint16 {
	for _, b := range data {
		seed = seed>>8 ^ crc8Table[(b^byte(seed))&0xFF]
	}
	return seed
}
