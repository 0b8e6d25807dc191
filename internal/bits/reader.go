// Package bits provides bit-level codec primitives for RPU bitstreams.
//
// Readers and writers are strictly sequential: the cursor only moves
// forward, and there is no seeking. RPU structures are self-describing
// (pivot counts and block lengths are read from the stream), so a
// re-read after the cursor has advanced would desynchronize length
// bookkeeping.
package bits

import "errors"

// Reader errors.
var (
	// ErrUnexpectedEndOfData indicates the buffer ran out before a
	// requested field could be fully read.
	ErrUnexpectedEndOfData = errors.New("bits: unexpected end of data")

	// ErrExpGolombTooLong indicates an Exp-Golomb prefix longer than
	// any value the RPU format can legally encode.
	ErrExpGolombTooLong = errors.New("bits: exp-golomb code exceeds 32 bits")

	// ErrFieldTooWide indicates a fixed-width read or write of more
	// than 64 bits was requested.
	ErrFieldTooWide = errors.New("bits: field wider than 64 bits")
)

// Reader reads bit fields from an immutable byte buffer.
//
// The reader never retains the input slice beyond its own lifetime;
// callers keep ownership of the buffer.
type Reader struct {
	buffer []byte
	pos    int // cursor, in bits from the start of buffer
}

// NewReader creates a Reader positioned at the first bit of data.
func NewReader(data []byte) *Reader {
	return &Reader{buffer: data}
}

// Pos returns the number of bits consumed so far.
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() int {
	return len(r.buffer)*8 - r.pos
}

// IsAligned reports whether the cursor sits on a byte boundary.
func (r *Reader) IsAligned() bool {
	return r.pos%8 == 0
}

// ReadBit reads a single bit.
func (r *Reader) ReadBit() (bool, error) {
	if r.pos >= len(r.buffer)*8 {
		return false, ErrUnexpectedEndOfData
	}
	b := r.buffer[r.pos>>3]
	bit := (b >> (7 - uint(r.pos&7))) & 1
	r.pos++
	return bit == 1, nil
}

// ReadBits reads n bits (0-64) as a big-endian unsigned integer.
//
// On failure nothing is consumed, so the caller can report the exact
// bit offset of the truncation.
func (r *Reader) ReadBits(n uint) (uint64, error) {
	if n > 64 {
		return 0, ErrFieldTooWide
	}
	if r.Remaining() < int(n) {
		return 0, ErrUnexpectedEndOfData
	}

	var v uint64
	for i := uint(0); i < n; i++ {
		b := r.buffer[r.pos>>3]
		v = v<<1 | uint64((b>>(7-uint(r.pos&7)))&1)
		r.pos++
	}
	return v, nil
}

// ReadUE reads an unsigned Exp-Golomb coded value.
func (r *Reader) ReadUE() (uint64, error) {
	leadingZeros := uint(0)
	for {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit {
			break
		}
		leadingZeros++
		if leadingZeros > 32 {
			return 0, ErrExpGolombTooLong
		}
	}

	if leadingZeros == 0 {
		return 0, nil
	}
	rest, err := r.ReadBits(leadingZeros)
	if err != nil {
		return 0, err
	}
	return (1<<leadingZeros - 1) + rest, nil
}

// ReadSE reads a signed Exp-Golomb coded value.
//
// Code number k maps to (-1)^(k+1) * ceil(k/2), per the HEVC se(v)
// convention.
func (r *Reader) ReadSE() (int64, error) {
	k, err := r.ReadUE()
	if err != nil {
		return 0, err
	}
	if k%2 == 1 {
		return int64(k/2 + 1), nil
	}
	return -int64(k / 2), nil
}
