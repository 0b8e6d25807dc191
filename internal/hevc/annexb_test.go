package hevc

import (
	"bytes"
	"reflect"
	"testing"
)

func TestSplitAnnexB(t *testing.T) {
	// Two units: a UNSPEC62 header (0x7C01) and a UNSPEC63 header
	// (0x7E01), separated by three- and four-byte start codes.
	stream := []byte{
		0x00, 0x00, 0x01, 0x7C, 0x01, 0xAA, 0xBB,
		0x00, 0x00, 0x00, 0x01, 0x7E, 0x01, 0xCC,
	}

	units := SplitAnnexB(stream)
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2", len(units))
	}
	if units[0].Type != NALUnspec62 {
		t.Errorf("units[0].Type = %d, want %d", units[0].Type, NALUnspec62)
	}
	if !bytes.Equal(units[0].Payload, []byte{0x7C, 0x01, 0xAA, 0xBB}) {
		t.Errorf("units[0].Payload = % X", units[0].Payload)
	}
	if units[1].Type != NALUnspec63 {
		t.Errorf("units[1].Type = %d, want %d", units[1].Type, NALUnspec63)
	}
	if !bytes.Equal(units[1].Payload, []byte{0x7E, 0x01, 0xCC}) {
		t.Errorf("units[1].Payload = % X", units[1].Payload)
	}
}

func TestSplitAnnexBUnescapes(t *testing.T) {
	stream := []byte{0x00, 0x00, 0x01, 0x7C, 0x01, 0x00, 0x00, 0x03, 0x01}

	units := SplitAnnexB(stream)
	if len(units) != 1 {
		t.Fatalf("got %d units, want 1", len(units))
	}
	if !bytes.Equal(units[0].Payload, []byte{0x7C, 0x01, 0x00, 0x00, 0x01}) {
		t.Errorf("Payload = % X, want emulation byte removed", units[0].Payload)
	}
}

func TestEscapeUnescape(t *testing.T) {
	tests := []struct {
		name string
		rbsp []byte
		ebsp []byte
	}{
		{"no escaping needed", []byte{0x7C, 0x01, 0xFF}, []byte{0x7C, 0x01, 0xFF}},
		{"00 00 01", []byte{0x00, 0x00, 0x01}, []byte{0x00, 0x00, 0x03, 0x01}},
		{"00 00 00 00", []byte{0x00, 0x00, 0x00, 0x00}, []byte{0x00, 0x00, 0x03, 0x00, 0x00}},
		{"00 00 03", []byte{0x00, 0x00, 0x03}, []byte{0x00, 0x00, 0x03, 0x03}},
		{"00 00 04 untouched", []byte{0x00, 0x00, 0x04}, []byte{0x00, 0x00, 0x04}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Escape(tt.rbsp)
			if !bytes.Equal(got, tt.ebsp) {
				t.Fatalf("Escape(% X) = % X, want % X", tt.rbsp, got, tt.ebsp)
			}
			back := Unescape(got)
			if !reflect.DeepEqual(back, tt.rbsp) {
				t.Errorf("Unescape(Escape(p)) = % X, want % X", back, tt.rbsp)
			}
		})
	}
}

func TestUnitType(t *testing.T) {
	if got := UnitType([]byte{0x7C, 0x01}); got != NALUnspec62 {
		t.Errorf("UnitType(7C 01) = %d, want 62", got)
	}
	if got := UnitType(nil); got != 0 {
		t.Errorf("UnitType(nil) = %d, want 0", got)
	}
}
