// Package dovi provides a pure Go codec for Dolby Vision RPU
// (Reference Processing Unit) metadata carried in HEVC streams.
//
// The package decodes the bit-packed RPU payload of an UNSPEC62 NAL
// unit into a structured record, re-encodes records byte-exactly, and
// converts records between Dolby Vision profile families.
//
// # Basic Usage
//
// To parse and re-encode an RPU payload:
//
//	rpu, err := dovi.ParseNALUnit(payload)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Inspect or edit the record...
//	data, err := rpu.EncodeNALUnit()
//
// To convert between profiles:
//
//	res, err := dovi.Convert(rpu, dovi.Profile81, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	data, err := res.RPU.EncodeNALUnit()
//
// # Input Contract
//
// The codec consumes and produces de-escaped payloads: emulation
// prevention bytes must be removed before parsing and re-inserted
// after encoding by the stream layer. Payloads may carry the two-byte
// 0x7C01 UNSPEC62 prefix or start directly at the RPU header.
//
// # Thread Safety
//
// The codec holds no shared mutable state. Each call allocates a fresh
// record owned by the caller, so independent payloads can be processed
// concurrently without locking. Individual RPU records are not safe
// for concurrent mutation.
package dovi
