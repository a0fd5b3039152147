package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"audiochain/internal/config"
	"audiochain/internal/media/ffprobe"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show container and audio stream details via ffprobe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			result, err := ffprobe.Inspect(cmd.Context(), cfg.FFprobeBinary(), path)
			if err != nil {
				return err
			}
			if jsonOutput {
				_, err := cmd.OutOrStdout().Write(append(result.RawJSON(), '\n'))
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:      %s\n", path)
			fmt.Fprintf(out, "Container: %s\n", result.Format.FormatName)
			fmt.Fprintf(out, "Duration:  %s\n", formatDuration(result.DurationSeconds()))
			if size := result.SizeBytes(); size > 0 {
				fmt.Fprintf(out, "Size:      %d bytes\n", size)
			}
			if rate := result.BitRate(); rate > 0 {
				fmt.Fprintf(out, "Bitrate:   %d kb/s\n", rate/1000)
			}

			streams := result.AudioStreams()
			if len(streams) == 0 {
				fmt.Fprintln(out, "No audio streams")
				return nil
			}
			rows := make([][]string, 0, len(streams))
			for _, s := range streams {
				rows = append(rows, []string{
					strconv.Itoa(s.Index),
					s.CodecName,
					strconv.Itoa(s.SampleRateHz()),
					strconv.Itoa(s.Channels),
					strings.TrimSpace(s.ChannelLayout),
					s.SampleFormat,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Codec", "Rate", "Ch", "Layout", "Sample fmt"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw ffprobe JSON")
	return cmd
}

func formatDuration(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		return "unknown"
	}
	return strconv.FormatFloat(seconds, 'f', 3, 64) + "s"
}
