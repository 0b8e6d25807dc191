package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/llehouerou/go-dovi/internal/hevc"
)

func newDemuxCommand(ctx *commandContext) *cobra.Command {
	var blOutput, elOutput string

	cmd := &cobra.Command{
		Use:   "demux <input.hevc>",
		Short: "Split a dual-layer bitstream into base and enhancement layer files",
		Long: "Split a dual-layer bitstream into base and enhancement layer files.\n" +
			"The enhancement layer keeps the RPU units; its slice units lose the\n" +
			"unspecified NAL wrapper so the result decodes as a plain HEVC stream.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
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

			if blOutput == "" {
				blOutput = "BL.hevc"
			}
			if elOutput == "" {
				elOutput = "EL.hevc"
			}

			bl, err := os.Create(blOutput)
			if err != nil {
				return fmt.Errorf("create BL output: %w", err)
			}
			defer bl.Close()
			el, err := os.Create(elOutput)
			if err != nil {
				return fmt.Errorf("create EL output: %w", err)
			}
			defer el.Close()

			bar := ctx.newProgressBar(len(units), "demuxing")
			blUnits, elUnits := 0, 0
			for _, unit := range units {
				bar.Add(1)

				out := bl
				payload := unit.Payload
				switch unit.Type {
				case hevc.NALUnspec63:
					// Strip the two-byte wrapper header so the inner
					// HEVC unit surfaces.
					if len(payload) <= 2 {
						continue
					}
					out = el
					payload = payload[2:]
					elUnits++
				case hevc.NALUnspec62:
					out = el
					elUnits++
				default:
					blUnits++
				}

				if _, err := out.Write(hevc.StartCode); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				if _, err := out.Write(hevc.Escape(payload)); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
			}
			bar.Finish()

			if elUnits == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: no enhancement layer units found")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d units to %s, %d units to %s\n",
				blUnits, blOutput, elUnits, elOutput)
			return nil
		},
	}

	cmd.Flags().StringVar(&blOutput, "bl-out", "", "Base layer output file (default BL.hevc)")
	cmd.Flags().StringVar(&elOutput, "el-out", "", "Enhancement layer output file (default EL.hevc)")

	return cmd
}
