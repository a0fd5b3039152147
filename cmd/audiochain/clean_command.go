package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"audiochain/internal/journal"
	"audiochain/internal/workspace"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove abandoned run workspaces and old journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			removed, err := workspace.Prune(cfg.Paths.WorkDir, logger)
			for _, dir := range removed {
				fmt.Fprintf(out, "Removed %s\n", dir)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Pruned %d workspace(s)\n", len(removed))

			if olderThan <= 0 || !cfg.Journal.Enabled {
				return nil
			}
			return ctx.withJournal(cmd.Context(), func(store *journal.Store) error {
				purged, err := store.Purge(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Purged %d journal entr%s older than %s\n", purged, pluralY(purged), olderThan)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Also delete journal entries older than this (e.g. 720h)")
	return cmd
}

func pluralY(n int64) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
