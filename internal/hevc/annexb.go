// Package hevc provides the minimal Annex B plumbing needed to carry
// metadata NAL units in and out of an HEVC elementary stream: start
// code splitting, NAL unit typing, and emulation prevention escaping.
// It does not parse video payloads.
package hevc

// HEVC NAL unit types relevant to metadata carriage.
const (
	// NALUnspec62 carries Dolby Vision RPU metadata.
	NALUnspec62 = 62

	// NALUnspec63 wraps enhancement-layer video in single-track
	// dual-layer streams.
	NALUnspec63 = 63
)

// NAL is one unit extracted from an Annex B stream. Payload is the
// unescaped RBSP including the two-byte NAL unit header.
type NAL struct {
	Type    uint8
	Payload []byte
}

// UnitType reads the six-bit nal_unit_type from the first header byte.
func UnitType(payload []byte) uint8 {
	if len(payload) == 0 {
		return 0
	}
	return (payload[0] >> 1) & 0x3F
}

// SplitAnnexB scans the buffer for three-byte start codes and returns
// the units between them, unescaped. A leading zero before a start
// code (the four-byte form) is not included in the preceding unit.
func SplitAnnexB(buf []byte) []NAL {
	var units []NAL
	add := func(raw []byte) {
		if len(raw) == 0 {
			return
		}
		payload := Unescape(raw)
		units = append(units, NAL{Type: UnitType(payload), Payload: payload})
	}

	end := len(buf) - 3
	prev := 0
	for off := 0; off < end; {
		switch {
		case buf[off+2] > 1:
			off += 3
		case buf[off+2] == 1 && buf[off+1] == 0 && buf[off] == 0:
			stop := off
			if stop > 0 && buf[stop-1] == 0 {
				stop--
			}
			if stop > prev {
				add(buf[prev:stop])
			}
			off += 3
			prev = off
		default:
			off++
		}
	}
	add(buf[prev:])
	return units
}

// Unescape converts EBSP to RBSP, dropping the 0x03 emulation
// prevention byte after every 00 00 pair. The input is not modified.
func Unescape(buf []byte) []byte {
	rbsp := make([]byte, 0, len(buf))
	for off := 0; off < len(buf); {
		if len(buf)-off >= 3 && buf[off] == 0 && buf[off+1] == 0 && buf[off+2] == 3 {
			rbsp = append(rbsp, 0, 0)
			off += 3
		} else {
			rbsp = append(rbsp, buf[off])
			off++
		}
	}
	return rbsp
}

// Escape converts RBSP to EBSP, inserting an emulation prevention byte
// wherever two zero bytes are followed by 0x00, 0x01, 0x02 or 0x03.
func Escape(buf []byte) []byte {
	ebsp := make([]byte, 0, len(buf)+len(buf)/16)
	zeros := 0
	for _, b := range buf {
		if zeros >= 2 && b <= 3 {
			ebsp = append(ebsp, 3)
			zeros = 0
		}
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
		ebsp = append(ebsp, b)
	}
	return ebsp
}

// StartCode is the four-byte Annex B start code used when writing
// units back out.
var StartCode = []byte{0, 0, 0, 1}
