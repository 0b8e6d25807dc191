package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	dovi "github.com/llehouerou/go-dovi"
	"github.com/llehouerou/go-dovi/internal/hevc"
)

func newExtractRPUCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "extract-rpu <input.hevc>",
		Short: "Extract the RPU metadata from an HEVC bitstream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			units := hevc.SplitAnnexB(data)
			if len(units) == 0 {
				return fmt.Errorf("%s: no NAL units found", args[0])
			}

			bar := ctx.newProgressBar(len(units), "extracting")
			var rpus []*dovi.RPU
			for i, unit := range units {
				bar.Add(1)
				if unit.Type != hevc.NALUnspec62 {
					continue
				}
				rpu, err := dovi.ParseNALUnit(unit.Payload)
				if err != nil {
					return fmt.Errorf("RPU at unit %d: %w", i, err)
				}
				rpus = append(rpus, rpu)
			}
			bar.Finish()

			if len(rpus) == 0 {
				return fmt.Errorf("%s: no RPU units found", args[0])
			}

			if output == "" {
				output = defaultOutputPath(args[0], ".rpu.bin", cfg.Output.Gzip)
			}
			if err := dovi.WriteRPUFile(output, rpus); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d RPUs to %s\n", len(rpus), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output RPU file (.bin or .bin.gz)")

	return cmd
}
