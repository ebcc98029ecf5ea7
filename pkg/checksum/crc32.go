package checksum

import "hash/crc32"

// CRC32 computes the IEEE CRC32 continuing from seed.
func CRC32(seed uint32, data []byte) uint32 {
	return crc32.Update(seed, crc32.IEEETable, data)
}
