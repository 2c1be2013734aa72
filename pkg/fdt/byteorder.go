package fdt

import "encoding/binary"

// be32 reads a big-endian 32-bit cell. It is the single conversion point
// every structure/strings-block read goes through.
func be32(cells []byte) uint32 {
	return binary.BigEndian.Uint32(cells)
}

// putBe32 is the inverse of be32, used by the serializer.
func putBe32(cells []byte, v uint32) {
	binary.BigEndian.PutUint32(cells, v)
}

// extractCells assembles a count-cell big-endian integer, most-significant
// cell first: value = sum(be32(cell[j]) << (32*(count-1-j))).
func extractCells(cells []byte, count int) uint64 {
	var value uint64
	for i := 0; i < count; i++ {
		value |= uint64(be32(cells[i*4:i*4+4])) << uint(32*(count-1-i))
	}
	return value
}
