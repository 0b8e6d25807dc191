package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	dovi "github.com/llehouerou/go-dovi"
	"github.com/llehouerou/go-dovi/internal/hevc"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var mode int
	var editConfigPath string
	var output string

	cmd := &cobra.Command{
		Use:   "convert <input>",
		Short: "Convert RPUs to another profile, from an RPU file or a full HEVC bitstream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("mode") {
				mode = cfg.Convert.Mode
			}

			if isHEVCPath(args[0]) {
				if editConfigPath != "" {
					return fmt.Errorf("edit configs apply to RPU files, not HEVC bitstreams")
				}
				if output == "" {
					output = defaultOutputPath(args[0], ".converted.hevc", false)
				}
				converted, err := convertBitstream(ctx, args[0], output, mode)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rewrote %d RPUs into %s\n", converted, output)
				return nil
			}

			rpus, err := dovi.LoadRPUFile(args[0])
			if err != nil {
				return err
			}

			if editConfigPath != "" {
				data, err := os.ReadFile(editConfigPath)
				if err != nil {
					return fmt.Errorf("read edit config: %w", err)
				}
				editCfg, err := dovi.ParseEditConfig(data)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("mode") {
					editCfg.Mode = mode
				}
				if err := dovi.ApplyEdits(rpus, editCfg); err != nil {
					return err
				}
			} else {
				bar := ctx.newProgressBar(len(rpus), "converting")
				if err := convertFrames(rpus, mode, ctx.workers(), bar); err != nil {
					return err
				}
				bar.Finish()
			}

			if output == "" {
				output = defaultOutputPath(args[0], ".converted.bin", cfg.Output.Gzip)
			}
			if err := dovi.WriteRPUFile(output, rpus); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d RPUs to %s\n", len(rpus), output)
			return nil
		},
	}

	cmd.Flags().IntVarP(&mode, "mode", "m", 2, "Conversion mode: 0 keep, 1 FEL to MEL, 2 to 8.1, 3 profile 5 to 8.1")
	cmd.Flags().StringVarP(&editConfigPath, "edit-config", "e", "", "JSON edit configuration applied to the sequence")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")

	return cmd
}

func isHEVCPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hevc", ".h265", ".265":
		return true
	}
	return false
}

// conversionTarget maps a CLI mode to a profile, ProfileUnknown
// meaning no conversion at all.
func conversionTarget(mode int) (dovi.Profile, error) {
	switch mode {
	case 0:
		return dovi.ProfileUnknown, nil
	case 1:
		return dovi.Profile7, nil
	case 2, 3:
		return dovi.Profile81, nil
	default:
		return dovi.ProfileUnknown, fmt.Errorf("unknown conversion mode %d", mode)
	}
}

// convertFrames converts the sequence in place with a bounded worker
// pool. Each frame is independent, so order only matters for the
// final slice positions, which the index-addressed writes preserve.
func convertFrames(rpus []*dovi.RPU, mode, workers int, bar *progressbar.ProgressBar) error {
	target, err := conversionTarget(mode)
	if err != nil || target == dovi.ProfileUnknown {
		return err
	}
	if workers > len(rpus) {
		workers = len(rpus)
	}

	jobs := make(chan int)
	errs := make([]error, len(rpus))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := dovi.Convert(rpus[i], target, nil)
				if err != nil {
					errs[i] = fmt.Errorf("frame %d: %w", i, err)
					continue
				}
				rpus[i] = res.RPU
				bar.Add(1)
			}
		}()
	}
	for i := range rpus {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// convertBitstream rewrites the RPU units of an HEVC stream in place,
// leaving every other NAL unit untouched.
func convertBitstream(ctx *commandContext, input, output string, mode int) (int, error) {
	target, err := conversionTarget(mode)
	if err != nil {
		return 0, err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return 0, fmt.Errorf("read input: %w", err)
	}
	units := hevc.SplitAnnexB(data)
	if len(units) == 0 {
		return 0, fmt.Errorf("%s: no NAL units found", input)
	}

	out, err := os.Create(output)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	bar := ctx.newProgressBar(len(units), "converting")
	converted := 0
	for i, unit := range units {
		bar.Add(1)
		payload := unit.Payload

		if unit.Type == hevc.NALUnspec62 && target != dovi.ProfileUnknown {
			rpu, err := dovi.ParseNALUnit(payload)
			if err != nil {
				return 0, fmt.Errorf("RPU at unit %d: %w", i, err)
			}
			res, err := dovi.Convert(rpu, target, nil)
			if err != nil {
				return 0, fmt.Errorf("RPU at unit %d: %w", i, err)
			}
			if payload, err = res.RPU.EncodeNALUnit(); err != nil {
				return 0, fmt.Errorf("RPU at unit %d: %w", i, err)
			}
			converted++
		}

		if _, err := out.Write(hevc.StartCode); err != nil {
			return 0, fmt.Errorf("write output: %w", err)
		}
		if _, err := out.Write(hevc.Escape(payload)); err != nil {
			return 0, fmt.Errorf("write output: %w", err)
		}
	}
	bar.Finish()

	return converted, nil
}
