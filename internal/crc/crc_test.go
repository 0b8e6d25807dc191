package crc

import "testing"

func TestChecksumKnownVectors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint32
	}{
		// Standard CRC-32/MPEG-2 check value.
		{"check string", []byte("123456789"), 0x0376E6E7},
		{"empty", nil, 0xFFFFFFFF},
		{"single zero byte", []byte{0x00}, 0x4E08BFB4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("got 0x%08X, want 0x%08X", got, tt.want)
			}
		})
	}
}

func TestChecksumSensitivity(t *testing.T) {
	data := []byte{0x19, 0x08, 0x40, 0xC0, 0x01, 0xFE}
	base := Checksum(data)

	for i := range data {
		for bit := 0; bit < 8; bit++ {
			flipped := make([]byte, len(data))
			copy(flipped, data)
			flipped[i] ^= 1 << uint(bit)

			if Checksum(flipped) == base {
				t.Errorf("flipping byte %d bit %d did not change the checksum", i, bit)
			}
		}
	}
}
