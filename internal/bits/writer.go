package bits

// Writer accumulates bit fields into a growable byte buffer.
//
// The writer mirrors Reader: the same sequence of Write calls as Read
// calls reproduces the original buffer bit for bit.
type Writer struct {
	buffer []byte
	bitLen int // bits written so far
}

// NewWriter creates an empty Writer with capacity for sizeHint bytes.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buffer: make([]byte, 0, sizeHint)}
}

// Len returns the number of bits written so far.
func (w *Writer) Len() int {
	return w.bitLen
}

// IsAligned reports whether the next bit starts a new byte.
func (w *Writer) IsAligned() bool {
	return w.bitLen%8 == 0
}

// WriteBit appends a single bit.
func (w *Writer) WriteBit(bit bool) {
	if w.bitLen%8 == 0 {
		w.buffer = append(w.buffer, 0)
	}
	if bit {
		w.buffer[w.bitLen>>3] |= 1 << (7 - uint(w.bitLen&7))
	}
	w.bitLen++
}

// WriteBits appends the low n bits (0-64) of v, most significant first.
func (w *Writer) WriteBits(v uint64, n uint) {
	for i := n; i > 0; i-- {
		w.WriteBit((v>>(i-1))&1 == 1)
	}
}

// WriteUE appends v as an unsigned Exp-Golomb code.
func (w *Writer) WriteUE(v uint64) {
	if v == 0 {
		w.WriteBit(true)
		return
	}

	leadingZeros := uint(0)
	for tmp := v + 1; tmp > 1; tmp >>= 1 {
		leadingZeros++
	}

	w.WriteBits(0, leadingZeros)
	w.WriteBits(v+1, leadingZeros+1)
}

// WriteSE appends v as a signed Exp-Golomb code.
func (w *Writer) WriteSE(v int64) {
	if v > 0 {
		w.WriteUE(uint64(2*v - 1))
	} else {
		w.WriteUE(uint64(-2 * v))
	}
}

// AlignZero pads with zero bits up to the next byte boundary. The
// padding is always the minimum number of bits, so alignment is
// deterministic.
func (w *Writer) AlignZero() {
	for w.bitLen%8 != 0 {
		w.WriteBit(false)
	}
}

// Bytes returns the accumulated buffer. Trailing bits of a partial
// final byte are zero.
func (w *Writer) Bytes() []byte {
	return w.buffer
}
