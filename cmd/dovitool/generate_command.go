package main

import (
	"fmt"

	"github.com/spf13/cobra"

	dovi "github.com/llehouerou/go-dovi"
	"github.com/llehouerou/go-dovi/cmxml"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var output string
	var canvasWidth, canvasHeight uint16

	cmd := &cobra.Command{
		Use:   "generate <metadata.xml>",
		Short: "Generate an RPU file from a Dolby Labs MDF metadata document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			genCfg, err := cmxml.ParseFile(args[0], cmxml.Options{
				CanvasWidth:  canvasWidth,
				CanvasHeight: canvasHeight,
			})
			if err != nil {
				return err
			}

			rpus, err := genCfg.Generate()
			if err != nil {
				return err
			}

			if output == "" {
				output = defaultOutputPath(args[0], ".rpu.bin", cfg.Output.Gzip)
			}
			if err := dovi.WriteRPUFile(output, rpus); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d RPUs (CM %s) to %s\n",
				len(rpus), genCfg.CMVersion, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output RPU file (.bin or .bin.gz)")
	cmd.Flags().Uint16Var(&canvasWidth, "canvas-width", 3840, "Canvas width used for letterbox offsets")
	cmd.Flags().Uint16Var(&canvasHeight, "canvas-height", 2160, "Canvas height used for letterbox offsets")

	return cmd
}
