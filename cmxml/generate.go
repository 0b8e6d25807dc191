package cmxml

import (
	"fmt"

	dovi "github.com/llehouerou/go-dovi"
)

// Generate expands the config into one RPU per frame. Every frame
// starts from the profile 8.1 base frame, receives the global level 5,
// 6 and 254 blocks, then the trims of the shot covering it, and
// finally any per-frame edit.
func (c *GenerateConfig) Generate() ([]*dovi.RPU, error) {
	if c.Length <= 0 {
		return nil, fmt.Errorf("%w: no frames to generate", ErrInvalidDocument)
	}

	cmv40 := c.CMVersion == CMv40
	rpus := make([]*dovi.RPU, 0, c.Length)

	shot := 0
	for frame := 0; frame < c.Length; frame++ {
		rpu := dovi.NewBaseRPU(cmv40)

		// Each frame gets copies; a later edit of one frame's blocks
		// must not bleed into the rest of the sequence.
		l5, l6 := c.Level5, c.Level6
		if err := rpu.DM.AddBlock(&l5); err != nil {
			return nil, err
		}
		if err := rpu.DM.AddBlock(&l6); err != nil {
			return nil, err
		}
		if cmv40 {
			l254 := c.Level254
			if err := rpu.DM.AddBlock(&l254); err != nil {
				return nil, err
			}
		}

		// Shots are sorted by start frame; advance past finished ones.
		for shot < len(c.Shots) && frame >= c.Shots[shot].Start+c.Shots[shot].Duration {
			shot++
		}
		if shot < len(c.Shots) && frame >= c.Shots[shot].Start {
			s := &c.Shots[shot]
			for _, b := range s.Blocks {
				if err := rpu.DM.AddBlock(dovi.CloneBlock(b)); err != nil {
					return nil, fmt.Errorf("shot %s: %w", s.ID, err)
				}
			}
			for _, edit := range s.FrameEdits {
				if s.Start+edit.EditOffset != frame {
					continue
				}
				// An edit replaces the shot blocks of its levels
				// wholesale, so a trim for one target display does
				// not pile up next to the shot trim for the same one.
				for _, b := range edit.Blocks {
					rpu.DM.RemoveLevel(b.Level())
				}
				for _, b := range edit.Blocks {
					if err := rpu.DM.AddBlock(dovi.CloneBlock(b)); err != nil {
						return nil, fmt.Errorf("shot %s frame edit %d: %w", s.ID, edit.EditOffset, err)
					}
				}
			}
		}

		rpus = append(rpus, rpu)
	}
	return rpus, nil
}
