package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mediaproc/internal/probe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Show the stream summary processors dispatch on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := probe.Inspect(cmd.Context(), cfg.FFprobeBinary(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				_, err := out.Write(append(result.RawJSON(), '\n'))
				return err
			}
			meta := probe.FromResult(result)
			fmt.Fprintf(out, "Video: %s  Audio: %s  Subtitles: %s  Fonts: %s\n",
				yesNo(meta.HasVideo), yesNo(meta.HasAudio), yesNo(meta.HasSubtitles), yesNo(meta.HasFonts))
			fmt.Fprint(out, renderTable(
				[]string{"Index", "Type", "Codec"},
				buildStreamRows(meta),
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the ffprobe JSON instead of the summary")
	return cmd
}

func buildStreamRows(meta probe.Metadata) [][]string {
	rows := make([][]string, 0, len(meta.Streams))
	for _, stream := range meta.Streams {
		codec := "-"
		if stream.Info != nil && stream.Info.CodecName != "" {
			codec = stream.Info.CodecName
		}
		rows = append(rows, []string{strconv.Itoa(stream.Index), stream.Type, codec})
	}
	return rows
}
