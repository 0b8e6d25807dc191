// Package crc implements the CRC-32/MPEG-2 checksum used to protect
// RPU payloads.
//
// The variant is the unreflected CRC-32 (polynomial 0x04C11DB7,
// initial value 0xFFFFFFFF, no final XOR). hash/crc32 only provides
// reflected implementations, so the table is built here.
package crc

import "sync"

const poly = 0x04C11DB7

var (
	tableOnce sync.Once
	table     [256]uint32
)

func buildTable() {
	for i := range table {
		c := uint32(i) << 24
		for bit := 0; bit < 8; bit++ {
			if c&0x80000000 != 0 {
				c = c<<1 ^ poly
			} else {
				c <<= 1
			}
		}
		table[i] = c
	}
}

// Checksum computes the CRC-32/MPEG-2 of data.
func Checksum(data []byte) uint32 {
	tableOnce.Do(buildTable)

	crc := uint32(0xFFFFFFFF)
	for _, b := range data {
		crc = crc<<8 ^ table[byte(crc>>24)^b]
	}
	return crc
}
