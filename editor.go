package dovi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Editor modes. A mode is applied to every RPU before the metadata
// edits.
const (
	EditModeKeep  = 0 // leave the profile untouched
	EditModeToMEL = 1 // rewrite FEL streams as MEL
	EditModeTo81  = 2 // strip the enhancement layer, target 8.1
	EditModeFrom5 = 3 // profile 5 to 8.1
)

// EditConfig describes a batch edit over a sequence of RPUs. It is
// designed to be loaded from JSON.
type EditConfig struct {
	Mode int `json:"mode"`

	// MinPQ and MaxPQ override the source brightness range.
	MinPQ *uint16 `json:"min_pq,omitempty"`
	MaxPQ *uint16 `json:"max_pq,omitempty"`

	// RemoveLevels drops every block of the listed levels.
	RemoveLevels []uint8 `json:"remove_levels,omitempty"`

	ActiveArea *ActiveAreaConfig `json:"active_area,omitempty"`

	// Level6 replaces the mastering display block on every frame.
	Level6 *BlockLevel6 `json:"level6,omitempty"`
}

// ActiveAreaConfig edits the level 5 letterbox offsets.
type ActiveAreaConfig struct {
	// Crop zeroes the offsets on every frame before range edits apply.
	Crop bool `json:"crop"`

	Presets []ActiveAreaPreset `json:"presets,omitempty"`

	// Edits maps frame ranges ("start-end", or a single frame number)
	// to preset ids. Ranges are inclusive on both ends.
	Edits map[string]uint16 `json:"edits,omitempty"`
}

// ActiveAreaPreset is a named set of level 5 offsets.
type ActiveAreaPreset struct {
	ID     uint16 `json:"id"`
	Left   uint16 `json:"left"`
	Right  uint16 `json:"right"`
	Top    uint16 `json:"top"`
	Bottom uint16 `json:"bottom"`
}

// ParseEditConfig decodes an edit configuration from JSON. Unknown
// fields are rejected so typos fail loudly instead of silently doing
// nothing.
func ParseEditConfig(data []byte) (*EditConfig, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	cfg := &EditConfig{}
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("edit config: %w", err)
	}
	return cfg, nil
}

// ApplyEdits runs the configured edits over the full RPU sequence in
// order: profile conversion, brightness range, level removal, active
// area, then the level 6 replacement. RPUs are replaced in place.
func ApplyEdits(rpus []*RPU, cfg *EditConfig) error {
	if cfg.MinPQ != nil && *cfg.MinPQ > maxPQLuminance {
		return fmt.Errorf("%w: min_pq %d exceeds 12-bit range", ErrInvalidRecord, *cfg.MinPQ)
	}
	if cfg.MaxPQ != nil && *cfg.MaxPQ > maxPQLuminance {
		return fmt.Errorf("%w: max_pq %d exceeds 12-bit range", ErrInvalidRecord, *cfg.MaxPQ)
	}

	if err := applyMode(rpus, cfg.Mode); err != nil {
		return err
	}

	for _, rpu := range rpus {
		if rpu.DM == nil {
			continue
		}
		if cfg.MinPQ != nil {
			rpu.DM.SourceMinPQ = *cfg.MinPQ
		}
		if cfg.MaxPQ != nil {
			rpu.DM.SourceMaxPQ = *cfg.MaxPQ
		}
		for _, level := range cfg.RemoveLevels {
			rpu.DM.RemoveLevel(level)
		}
	}

	if cfg.ActiveArea != nil {
		if err := applyActiveArea(rpus, cfg.ActiveArea); err != nil {
			return err
		}
	}

	if cfg.Level6 != nil {
		for _, rpu := range rpus {
			if rpu.DM == nil {
				continue
			}
			b := *cfg.Level6
			if err := rpu.DM.AddBlock(&b); err != nil {
				return err
			}
		}
	}

	return nil
}

func applyMode(rpus []*RPU, mode int) error {
	var target Profile
	switch mode {
	case EditModeKeep:
		return nil
	case EditModeToMEL:
		target = Profile7
	case EditModeTo81, EditModeFrom5:
		target = Profile81
	default:
		return fmt.Errorf("%w: edit mode %d", ErrUnsupportedConversion, mode)
	}

	for i, rpu := range rpus {
		if rpu.Profile.family() == target.family() && mode != EditModeToMEL {
			continue
		}
		res, err := Convert(rpu, target, nil)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		rpus[i] = res.RPU
	}
	return nil
}

func applyActiveArea(rpus []*RPU, cfg *ActiveAreaConfig) error {
	if cfg.Crop {
		for _, rpu := range rpus {
			setActiveArea(rpu, &BlockLevel5{})
		}
	}

	presets := make(map[uint16]*ActiveAreaPreset, len(cfg.Presets))
	for i := range cfg.Presets {
		presets[cfg.Presets[i].ID] = &cfg.Presets[i]
	}

	for rng, id := range cfg.Edits {
		preset, ok := presets[id]
		if !ok {
			return fmt.Errorf("%w: active area edit %q references unknown preset %d", ErrInvalidRecord, rng, id)
		}
		start, end, err := parseFrameRange(rng)
		if err != nil {
			return err
		}
		if end >= len(rpus) {
			return fmt.Errorf("%w: active area edit %q exceeds %d frames", ErrInvalidRecord, rng, len(rpus))
		}
		block := &BlockLevel5{
			ActiveAreaLeftOffset:   preset.Left,
			ActiveAreaRightOffset:  preset.Right,
			ActiveAreaTopOffset:    preset.Top,
			ActiveAreaBottomOffset: preset.Bottom,
		}
		for i := start; i <= end; i++ {
			setActiveArea(rpus[i], block)
		}
	}
	return nil
}

func setActiveArea(rpu *RPU, block *BlockLevel5) {
	if rpu.DM == nil {
		return
	}
	rpu.DM.RemoveLevel(5)
	b := *block
	_ = rpu.DM.AddBlock(&b)
}

// parseFrameRange parses "start-end" or a bare frame number, both ends
// inclusive.
func parseFrameRange(s string) (start, end int, err error) {
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		hi = lo
	}
	if start, err = strconv.Atoi(lo); err != nil {
		return 0, 0, fmt.Errorf("%w: frame range %q", ErrInvalidRecord, s)
	}
	if end, err = strconv.Atoi(hi); err != nil {
		return 0, 0, fmt.Errorf("%w: frame range %q", ErrInvalidRecord, s)
	}
	if start < 0 || end < start {
		return 0, 0, fmt.Errorf("%w: frame range %q", ErrInvalidRecord, s)
	}
	return start, end, nil
}
