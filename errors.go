package dovi

import (
	"errors"

	"github.com/llehouerou/go-dovi/internal/bits"
)

// Codec errors. All failures are local to the RPU being processed;
// no package state is affected by a malformed payload.
var (
	// ErrUnexpectedEndOfData indicates the payload was shorter than a
	// field required. Fatal for the RPU being parsed.
	ErrUnexpectedEndOfData = bits.ErrUnexpectedEndOfData

	// ErrBlockLengthMismatch indicates an extension metadata block
	// whose declared length disagrees with the bits its fields
	// actually consume. Fatal for the RPU being parsed.
	ErrBlockLengthMismatch = errors.New("dovi: extension block length mismatch")

	// ErrUnsupportedProfile indicates a profile or header combination
	// the decoder does not recognize.
	ErrUnsupportedProfile = errors.New("dovi: unsupported RPU profile")

	// ErrChecksumMismatch indicates the trailing CRC32 does not match
	// the payload. Returned by ValidateChecksum; parsing itself does
	// not fail on it so batch tools can skip-and-report.
	ErrChecksumMismatch = errors.New("dovi: RPU checksum mismatch")

	// ErrUnsupportedConversion indicates no conversion rule exists
	// between the requested profile families.
	ErrUnsupportedConversion = errors.New("dovi: unsupported profile conversion")

	// ErrInvalidRecord indicates an in-memory record that violates a
	// structural invariant (duplicate singleton block levels, illegal
	// block level for the metadata version, out-of-range field).
	ErrInvalidRecord = errors.New("dovi: invalid RPU record")
)
