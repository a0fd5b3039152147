package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"audiochain/internal/audio"
)

func newFormatsCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "formats",
		Short:       "List supported output formats",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			type formatView struct {
				Name      string   `json:"name"`
				Extension string   `json:"extension"`
				Muxer     string   `json:"muxer"`
				Codec     []string `json:"codec"`
				Aliases   []string `json:"aliases,omitempty"`
			}
			var views []formatView
			for _, f := range audio.Formats() {
				spec, err := audio.Lookup(f)
				if err != nil {
					return err
				}
				views = append(views, formatView{
					Name:      spec.Name,
					Extension: spec.Extension,
					Muxer:     spec.Muxer,
					Codec:     spec.Codec,
					Aliases:   spec.Aliases,
				})
			}
			if jsonOutput {
				return writeJSON(cmd, views)
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{
					v.Name,
					v.Extension,
					v.Muxer,
					strings.Join(v.Codec, " "),
					strings.Join(v.Aliases, ", "),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Format", "Extension", "Muxer", "Encoder", "Aliases"},
				rows,
				nil,
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
