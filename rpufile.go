package dovi

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/llehouerou/go-dovi/internal/hevc"
)

// gzipMagic is the two-byte header every gzip stream starts with.
var gzipMagic = []byte{0x1F, 0x8B}

// ParseRPUSequence decodes a full RPU dump: Annex B start codes, each
// followed by one escaped RPU payload. Dumps store bare payloads
// (first byte rpu_nal_prefix), but units still wrapped in the 0x7C01
// NAL header are accepted too.
func ParseRPUSequence(data []byte) ([]*RPU, error) {
	units := hevc.SplitAnnexB(data)
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: no NAL units found", ErrInvalidRecord)
	}

	rpus := make([]*RPU, 0, len(units))
	for i, unit := range units {
		if unit.Type != hevc.NALUnspec62 && unit.Payload[0] != rpuNALPrefix {
			return nil, fmt.Errorf("%w: unit %d does not start an RPU", ErrInvalidRecord, i)
		}
		rpu, err := ParseNALUnit(unit.Payload)
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
		rpus = append(rpus, rpu)
	}
	return rpus, nil
}

// EncodeRPUSequence serializes the RPUs as an Annex B dump of bare
// payloads, escaped for start code emulation.
func EncodeRPUSequence(rpus []*RPU) ([]byte, error) {
	var buf bytes.Buffer
	for i, rpu := range rpus {
		payload, err := rpu.Encode()
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
		buf.Write(hevc.StartCode)
		buf.Write(hevc.Escape(payload))
	}
	return buf.Bytes(), nil
}

// LoadRPUFile reads an RPU dump from disk. Gzip compression is
// detected from the stream itself, so both .bin and .bin.gz files
// load regardless of their name.
func LoadRPUFile(path string) ([]*RPU, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := readMaybeGzipped(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseRPUSequence(data)
}

func readMaybeGzipped(f io.Reader) ([]byte, error) {
	br := bytes.NewBuffer(nil)
	if _, err := io.Copy(br, f); err != nil {
		return nil, err
	}
	data := br.Bytes()

	if !bytes.HasPrefix(data, gzipMagic) {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// WriteRPUFile writes an RPU dump to disk, gzipped when the path ends
// in .gz.
func WriteRPUFile(path string, rpus []*RPU) error {
	data, err := EncodeRPUSequence(rpus)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	var w io.Writer = f
	var zw *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		zw = gzip.NewWriter(f)
		w = zw
	}

	if _, err := w.Write(data); err != nil {
		f.Close()
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}
