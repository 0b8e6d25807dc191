// Package cmxml reads Dolby Labs MDF color-management metadata files
// and turns them into per-shot generation configs: the static level 5,
// 6 and 254 blocks plus trim blocks for every shot and frame edit.
//
// Supported document versions are 2.0.5 (CM v2.9) and 4.0.2 / 5.0.0 /
// 5.1.0 (CM v4.0). Gzipped documents are detected and decompressed
// transparently.
package cmxml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	dovi "github.com/llehouerou/go-dovi"
)

// ErrInvalidDocument reports a structurally unusable metadata file.
var ErrInvalidDocument = errors.New("cmxml: invalid document")

// CMVersion selects the extension block generation the document
// describes.
type CMVersion int

// Metadata generations.
const (
	CMv29 CMVersion = iota
	CMv40
)

// String implements fmt.Stringer.
func (v CMVersion) String() string {
	if v == CMv40 {
		return "v4.0"
	}
	return "v2.9"
}

// Options carries the canvas geometry needed to turn aspect ratios
// into level 5 pixel offsets. Zero values leave aspect-ratio based
// level 5 blocks unset.
type Options struct {
	CanvasWidth  uint16
	CanvasHeight uint16
}

// GenerateConfig is the distilled output of a metadata document.
type GenerateConfig struct {
	Version   string
	CMVersion CMVersion

	// Length is the total frame count covered by the shots.
	Length int

	Level5   dovi.BlockLevel5
	Level6   dovi.BlockLevel6
	Level254 dovi.BlockLevel254

	Shots []Shot
}

// Shot is one scene with its trim metadata and optional per-frame
// overrides.
type Shot struct {
	ID       string
	Start    int
	Duration int

	Blocks     []dovi.ExtMetadataBlock
	FrameEdits []FrameEdit
}

// FrameEdit overrides the shot metadata for a single frame, addressed
// relative to the shot start.
type FrameEdit struct {
	EditOffset int
	Blocks     []dovi.ExtMetadataBlock
}

type targetDisplay struct {
	id       string
	peakNits uint16
}

type parser struct {
	opts      Options
	version   string
	separator string
	targets   map[string]targetDisplay
}

// ParseFile reads and parses a metadata document from disk.
func ParseFile(path string, opts Options) (*GenerateConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return Parse(data, opts)
}

// Parse parses a metadata document, gunzipping it first when needed.
func Parse(data []byte, opts Options) (*GenerateConfig, error) {
	if bytes.HasPrefix(data, []byte{0x1F, 0x8B}) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return nil, err
		}
	}

	root, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	mdf := root.find("DolbyLabsMDF")
	if mdf == nil {
		return nil, fmt.Errorf("%w: no DolbyLabsMDF root element", ErrInvalidDocument)
	}

	p := &parser{opts: opts}
	if p.version, err = documentVersion(mdf); err != nil {
		return nil, err
	}

	cfg := &GenerateConfig{Version: p.version, CMVersion: CMv40}
	if !p.isCMv4() {
		cfg.CMVersion = CMv29
	}
	p.separator = " "
	if !p.isCMv4() {
		p.separator = ","
	}

	output := mdf.find("Output")
	if output == nil {
		return nil, fmt.Errorf("%w: no Output element", ErrInvalidDocument)
	}
	video := output.find("Video")
	if video == nil {
		return nil, fmt.Errorf("%w: no Video element", ErrInvalidDocument)
	}

	p.parseGlobalLevel5(output, cfg)
	p.parseLevel6(video, cfg)
	cfg.Level254 = parseLevel254(video)
	p.targets = parseTargetDisplays(video)

	if cfg.Shots, err = p.parseShots(video); err != nil {
		return nil, err
	}
	sort.Slice(cfg.Shots, func(i, j int) bool { return cfg.Shots[i].Start < cfg.Shots[j].Start })

	if len(cfg.Shots) > 0 {
		first, last := cfg.Shots[0], cfg.Shots[len(cfg.Shots)-1]
		cfg.Length = last.Start + last.Duration - first.Start
	}
	return cfg, nil
}

func (p *parser) isCMv4() bool { return p.version != "2.0.5" }

// documentVersion resolves the version from either the root attribute
// (2.0.5) or the Version child element (4.0.2 and later), and checks
// that the levels the version promises are actually present.
func documentVersion(mdf *node) (string, error) {
	hasL254 := mdf.find("Level254") != nil
	hasL11 := mdf.find("Level11") != nil

	if v := mdf.childText("Version"); v != "" {
		switch v {
		case "5.1.0":
			if !hasL11 {
				return "", fmt.Errorf("%w: version %s without Level11 metadata", ErrInvalidDocument, v)
			}
			fallthrough
		case "4.0.2", "5.0.0":
			if !hasL254 {
				return "", fmt.Errorf("%w: version %s without Level254 metadata", ErrInvalidDocument, v)
			}
		default:
			return "", fmt.Errorf("%w: unknown version %s", ErrInvalidDocument, v)
		}
		return v, nil
	}

	if v, ok := mdf.attr("version"); ok {
		if v != "2.0.5" {
			return "", fmt.Errorf("%w: unknown version %s", ErrInvalidDocument, v)
		}
		return v, nil
	}
	return "", fmt.Errorf("%w: no version", ErrInvalidDocument)
}

func (p *parser) parseGlobalLevel5(output *node, cfg *GenerateConfig) {
	canvasAR, err1 := strconv.ParseFloat(output.childText("CanvasAspectRatio"), 64)
	imageAR, err2 := strconv.ParseFloat(output.childText("ImageAspectRatio"), 64)
	if err1 != nil || err2 != nil {
		return
	}
	if l5, ok := p.level5FromAspectRatios(canvasAR, imageAR); ok {
		cfg.Level5 = l5
	}
}

func (p *parser) parseLevel6(video *node, cfg *GenerateConfig) {
	if l6 := video.find("Level6"); l6 != nil {
		cfg.Level6.MaxFrameAverageLightLevel = parseUint16(l6.childText("MaxFALL"))
		cfg.Level6.MaxContentLightLevel = parseUint16(l6.childText("MaxCLL"))
	}
	if md := video.find("MasteringDisplay"); md != nil {
		if v, err := strconv.ParseFloat(md.childText("MinimumBrightness"), 64); err == nil {
			cfg.Level6.MinDisplayMasteringLuminance = uint16(v * 10000)
		}
		cfg.Level6.MaxDisplayMasteringLuminance = parseUint16(md.childText("PeakBrightness"))
	}
}

func parseLevel254(video *node) dovi.BlockLevel254 {
	l254 := dovi.BlockLevel254{DMMode: 0, DMVersionIndex: 2}
	if n := video.find("Level254"); n != nil {
		if v := n.childText("DMMode"); v != "" {
			l254.DMMode = uint8(parseUint16(v))
		}
		if v := n.childText("DMVersion"); v != "" {
			l254.DMVersionIndex = uint8(parseUint16(v))
		}
	}
	return l254
}

func parseTargetDisplays(video *node) map[string]targetDisplay {
	targets := map[string]targetDisplay{}
	for _, n := range video.findAll("TargetDisplay") {
		id := n.childText("ID")
		if id == "" {
			continue
		}
		targets[id] = targetDisplay{id: id, peakNits: parseUint16(n.childText("PeakBrightness"))}
	}
	return targets
}

func (p *parser) parseShots(video *node) ([]Shot, error) {
	var shots []Shot
	for _, n := range video.findAll("Shot") {
		shot := Shot{ID: n.childText("UniqueID")}

		if record := n.child("Record"); record != nil {
			var err error
			if shot.Start, err = strconv.Atoi(record.childText("In")); err != nil {
				return nil, fmt.Errorf("%w: shot %s has no In frame", ErrInvalidDocument, shot.ID)
			}
			if shot.Duration, err = strconv.Atoi(record.childText("Duration")); err != nil {
				return nil, fmt.Errorf("%w: shot %s has no Duration", ErrInvalidDocument, shot.ID)
			}
		}

		blocks, err := p.parseTrims(n)
		if err != nil {
			return nil, fmt.Errorf("shot %s: %w", shot.ID, err)
		}
		shot.Blocks = blocks

		for i := range n.Children {
			frame := &n.Children[i]
			if frame.XMLName.Local != "Frame" {
				continue
			}
			offset, err := strconv.Atoi(frame.childText("EditOffset"))
			if err != nil {
				return nil, fmt.Errorf("%w: shot %s frame edit without EditOffset", ErrInvalidDocument, shot.ID)
			}
			frameBlocks, err := p.parseTrims(frame)
			if err != nil {
				return nil, fmt.Errorf("shot %s frame %d: %w", shot.ID, offset, err)
			}
			shot.FrameEdits = append(shot.FrameEdits, FrameEdit{EditOffset: offset, Blocks: frameBlocks})
		}

		shots = append(shots, shot)
	}
	return shots, nil
}

// parseTrims collects the leveled trim elements under a shot or frame
// node. CM v4.0 documents nest them in DVDynamicData, CM v2.9 in
// PluginNode/DolbyEDR elements.
func (p *parser) parseTrims(n *node) ([]dovi.ExtMetadataBlock, error) {
	var blocks []dovi.ExtMetadataBlock

	container := n.find("DVDynamicData")
	if !p.isCMv4() {
		container = n.find("PluginNode")
	}
	if container == nil {
		return blocks, nil
	}

	for i := range container.Children {
		child := &container.Children[i]
		if !p.isCMv4() && child.XMLName.Local != "DolbyEDR" {
			continue
		}
		level, ok := child.attr("level")
		if !ok {
			continue
		}

		block, err := p.parseTrimLevel(child, level)
		if err != nil {
			return nil, err
		}
		if block != nil {
			blocks = append(blocks, block)
		}
	}
	return blocks, nil
}

func (p *parser) parseTrimLevel(n *node, level string) (dovi.ExtMetadataBlock, error) {
	switch level {
	case "1":
		return p.parseLevel1Trim(n)
	case "2":
		return p.parseLevel2Trim(n)
	case "3":
		return p.parseLevel3Trim(n)
	case "5":
		return p.parseLevel5Trim(n)
	case "8":
		return p.parseLevel8Trim(n)
	case "9":
		return p.parseLevel9Trim(n)
	}
	// Unhandled levels are simply skipped.
	return nil, nil
}

func (p *parser) parseLevel1Trim(n *node) (*dovi.BlockLevel1, error) {
	vals, err := p.splitFloats(n.childText("ImageCharacter"), 3)
	if err != nil {
		return nil, fmt.Errorf("level 1 trim: %w", err)
	}
	return &dovi.BlockLevel1{
		MinPQ: pq12(vals[0]),
		AvgPQ: pq12(vals[1]),
		MaxPQ: pq12(vals[2]),
	}, nil
}

func (p *parser) parseLevel2Trim(n *node) (*dovi.BlockLevel2, error) {
	target, err := p.targetFor(n)
	if err != nil {
		return nil, fmt.Errorf("level 2 trim: %w", err)
	}
	vals, err := p.splitFloats(n.childText("Trim"), 9)
	if err != nil {
		return nil, fmt.Errorf("level 2 trim: %w", err)
	}

	slope, offset, power := liftGainGamma(vals[3], vals[4], vals[5])
	return &dovi.BlockLevel2{
		TargetMaxPQ:        nitsToPQ12(target.peakNits),
		TrimSlope:          slope,
		TrimOffset:         offset,
		TrimPower:          power,
		TrimChromaWeight:   signal12(vals[6]),
		TrimSaturationGain: signal12(vals[7]),
		MSWeight:           int16(signal12(vals[8])),
	}, nil
}

func (p *parser) parseLevel3Trim(n *node) (*dovi.BlockLevel3, error) {
	vals, err := p.splitFloats(n.childText("L1Offset"), 3)
	if err != nil {
		return nil, fmt.Errorf("level 3 trim: %w", err)
	}
	return &dovi.BlockLevel3{
		MinPQOffset: signal12(vals[0]),
		MaxPQOffset: signal12(vals[1]),
		AvgPQOffset: signal12(vals[2]),
	}, nil
}

func (p *parser) parseLevel5Trim(n *node) (*dovi.BlockLevel5, error) {
	vals, err := p.splitFloats(n.childText("AspectRatios"), 2)
	if err != nil {
		return nil, fmt.Errorf("level 5 trim: %w", err)
	}
	l5, _ := p.level5FromAspectRatios(vals[0], vals[1])
	return &l5, nil
}

func (p *parser) parseLevel8Trim(n *node) (*dovi.BlockLevel8, error) {
	target, err := p.targetFor(n)
	if err != nil {
		return nil, fmt.Errorf("level 8 trim: %w", err)
	}
	index, err := strconv.ParseUint(target.id, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("level 8 trim: target id %q is not an index", target.id)
	}
	vals, err := p.splitFloats(n.childText("L8Trim"), 6)
	if err != nil {
		return nil, fmt.Errorf("level 8 trim: %w", err)
	}

	slope, offset, power := liftGainGamma(vals[0], vals[1], vals[2])
	block := &dovi.BlockLevel8{
		TargetDisplayIndex: uint8(index),
		TrimSlope:          slope,
		TrimOffset:         offset,
		TrimPower:          power,
		TrimChromaWeight:   signal12(vals[3]),
		TrimSaturationGain: signal12(vals[4]),
		MSWeight:           signal12(vals[5]),
	}

	bias := signal12(parseFloatOr(n.childText("MidContrastBias"), 0))
	clipping := signal12(parseFloatOr(n.childText("HighlightClipping"), 0))
	satvec := p.vectorField(n.childText("SaturationVectorField"))
	huevec := p.vectorField(n.childText("HueVectorField"))

	neutralVec := [6]uint8{128, 128, 128, 128, 128, 128}

	// Optional groups nest: writing an outer group forces the inner
	// ones, so only the outermost non-neutral value decides.
	var flags uint8
	if bias != 2048 {
		flags |= 0b0001
	}
	if clipping != 2048 {
		flags |= 0b0010
	}
	if satvec != neutralVec {
		flags |= 0b0100
	}
	if huevec != neutralVec {
		flags |= 0b1000
	}

	if flags&0b1111 != 0 {
		block.TargetMidContrast = &bias
	}
	if flags&0b1110 != 0 {
		block.ClipTrim = &clipping
	}
	if flags&0b1100 != 0 {
		block.SaturationVectors = &satvec
	}
	if flags&0b1000 != 0 {
		block.HueVectors = &huevec
	}
	return block, nil
}

func (p *parser) parseLevel9Trim(n *node) (*dovi.BlockLevel9, error) {
	index, err := strconv.ParseUint(n.childText("SourceColorModel"), 10, 8)
	if err != nil {
		return nil, fmt.Errorf("level 9 trim: %w", err)
	}
	return &dovi.BlockLevel9{SourcePrimaryIndex: uint8(index)}, nil
}

func (p *parser) targetFor(n *node) (targetDisplay, error) {
	id := n.childText("TID")
	target, ok := p.targets[id]
	if !ok {
		return targetDisplay{}, fmt.Errorf("%w: no target display %q", ErrInvalidDocument, id)
	}
	return target, nil
}

// level5FromAspectRatios converts a canvas/image aspect ratio pair to
// letterbox or pillarbox offsets on the configured canvas.
func (p *parser) level5FromAspectRatios(canvasAR, imageAR float64) (dovi.BlockLevel5, bool) {
	var l5 dovi.BlockLevel5
	if p.opts.CanvasWidth == 0 || p.opts.CanvasHeight == 0 {
		return l5, false
	}

	cw := float64(p.opts.CanvasWidth)
	ch := float64(p.opts.CanvasHeight)

	switch {
	case math.Abs(canvasAR-imageAR) < 1e-9:
		// Same ratio, zero offsets.
	case imageAR > canvasAR:
		imageH := math.Round(ch * (canvasAR / imageAR))
		diff := ch - imageH
		top := math.Trunc(diff / 2)
		l5.ActiveAreaTopOffset = uint16(top)
		l5.ActiveAreaBottomOffset = uint16(diff - top)
	default:
		imageW := math.Round(cw * (imageAR / canvasAR))
		diff := cw - imageW
		left := math.Trunc(diff / 2)
		l5.ActiveAreaLeftOffset = uint16(left)
		l5.ActiveAreaRightOffset = uint16(diff - left)
	}
	return l5, true
}

// splitFloats parses a separated list of floats, enforcing the
// element count.
func (p *parser) splitFloats(s string, want int) ([]float64, error) {
	parts := strings.Split(s, p.separator)
	if len(parts) != want {
		return nil, fmt.Errorf("%w: %d values, want %d", ErrInvalidDocument, len(parts), want)
	}
	vals := make([]float64, want)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidDocument, part)
		}
		vals[i] = v
	}
	return vals, nil
}

func (p *parser) vectorField(s string) [6]uint8 {
	vec := [6]uint8{128, 128, 128, 128, 128, 128}
	parts := strings.Split(s, p.separator)
	if len(parts) != 6 {
		return vec
	}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return [6]uint8{128, 128, 128, 128, 128, 128}
		}
		vec[i] = uint8(math.Min(255, math.Round(v*128+128)))
	}
	return vec
}

func parseUint16(s string) uint16 {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}

func parseFloatOr(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}
