package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	dovi "github.com/llehouerou/go-dovi"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var frame int

	cmd := &cobra.Command{
		Use:   "info <input.bin>",
		Short: "Summarize an RPU file, or dump a single frame as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rpus, err := dovi.LoadRPUFile(args[0])
			if err != nil {
				return err
			}

			if frame >= 0 {
				if frame >= len(rpus) {
					return fmt.Errorf("frame %d out of range, file has %d frames", frame, len(rpus))
				}
				data, err := json.MarshalIndent(rpus[frame], "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(rpus))
			return nil
		},
	}

	cmd.Flags().IntVarP(&frame, "frame", "f", -1, "Dump this frame as JSON instead of the summary")

	return cmd
}

func renderSummary(rpus []*dovi.RPU) string {
	profiles := map[string]struct{}{}
	dmVersions := map[string]struct{}{}
	activeAreas := map[string]struct{}{}
	sceneCuts := 0
	badChecksums := 0

	minPQ, maxPQ := ^uint16(0), uint16(0)
	var level6 *dovi.BlockLevel6

	for _, rpu := range rpus {
		profiles[profileLabel(rpu)] = struct{}{}
		if !rpu.ChecksumValid {
			badChecksums++
		}

		dm := rpu.DM
		if dm == nil {
			continue
		}
		if dm.IsCMv40() {
			dmVersions["CM v4.0"] = struct{}{}
		} else {
			dmVersions["CM v2.9"] = struct{}{}
		}
		if dm.SceneRefreshFlag == 1 {
			sceneCuts++
		}
		if dm.SourceMinPQ < minPQ {
			minPQ = dm.SourceMinPQ
		}
		if dm.SourceMaxPQ > maxPQ {
			maxPQ = dm.SourceMaxPQ
		}
		if b, ok := dm.FirstBlock(5).(*dovi.BlockLevel5); ok {
			activeAreas[fmt.Sprintf("%d/%d/%d/%d",
				b.ActiveAreaLeftOffset, b.ActiveAreaRightOffset,
				b.ActiveAreaTopOffset, b.ActiveAreaBottomOffset)] = struct{}{}
		}
		if level6 == nil {
			if b, ok := dm.FirstBlock(6).(*dovi.BlockLevel6); ok {
				level6 = b
			}
		}
	}

	rows := [][]string{
		{"Frames", fmt.Sprintf("%d", len(rpus))},
		{"Profile", joinSet(profiles)},
		{"DM version", joinSet(dmVersions)},
		{"Scene cuts", fmt.Sprintf("%d", sceneCuts)},
	}
	if maxPQ > 0 {
		rows = append(rows, []string{"Source PQ range", fmt.Sprintf("%d-%d", minPQ, maxPQ)})
	}
	if len(activeAreas) > 0 {
		rows = append(rows, []string{"Active areas (L/R/T/B)", joinSet(activeAreas)})
	}
	if level6 != nil {
		rows = append(rows, []string{"MaxCLL / MaxFALL",
			fmt.Sprintf("%d / %d", level6.MaxContentLightLevel, level6.MaxFrameAverageLightLevel)})
	}
	if badChecksums > 0 {
		rows = append(rows, []string{"Checksum mismatches", fmt.Sprintf("%d", badChecksums)})
	}

	return renderTable([]string{"Field", "Value"}, rows)
}

func profileLabel(rpu *dovi.RPU) string {
	label := rpu.Profile.String()
	if rpu.ELType != dovi.ELTypeNone {
		label += " (" + rpu.ELType.String() + ")"
	}
	return label
}

func joinSet(set map[string]struct{}) string {
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return strings.Join(values, ", ")
}
