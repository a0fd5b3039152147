package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"audiochain/internal/audio"
	"audiochain/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string
	var jsonOutput bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded engine invocations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(cmd.Context(), func(store *journal.Store) error {
				var (
					invocations []audio.Invocation
					err         error
				)
				if id := strings.TrimSpace(runID); id != "" {
					invocations, err = store.ForRun(cmd.Context(), id)
				} else {
					invocations, err = store.Recent(cmd.Context(), limit)
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, historyViews(invocations))
				}
				out := cmd.OutOrStdout()
				if len(invocations) == 0 {
					fmt.Fprintln(out, "No invocations recorded")
					return nil
				}
				fmt.Fprintln(out, renderHistory(invocations))
				if verbose {
					for _, inv := range invocations {
						fmt.Fprintf(out, "\n%s %s\n  ffmpeg %s\n", shortID(inv.ID), inv.Op, strings.Join(inv.Args, " "))
						if inv.Error != "" {
							fmt.Fprintf(out, "  error: %s\n", inv.Error)
						}
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of invocations to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show every invocation of one run, oldest first")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include full argument lists")
	return cmd
}

type historyView struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Op         string    `json:"op"`
	Args       []string  `json:"args"`
	ExitCode   int       `json:"exit_code"`
	Killed     bool      `json:"killed"`
	Succeeded  bool      `json:"succeeded"`
	Error      string    `json:"error,omitempty"`
	Diagnostic string    `json:"diagnostic,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

func historyViews(invocations []audio.Invocation) []historyView {
	views := make([]historyView, 0, len(invocations))
	for _, inv := range invocations {
		views = append(views, historyView{
			ID:         inv.ID,
			RunID:      inv.RunID,
			Op:         inv.Op,
			Args:       inv.Args,
			ExitCode:   inv.ExitCode,
			Killed:     inv.Killed,
			Succeeded:  inv.Succeeded(),
			Error:      inv.Error,
			Diagnostic: inv.Diagnostic,
			StartedAt:  inv.StartedAt,
			DurationMS: inv.Duration.Milliseconds(),
		})
	}
	return views
}

func renderHistory(invocations []audio.Invocation) string {
	rows := make([][]string, 0, len(invocations))
	for _, inv := range invocations {
		status := "ok"
		switch {
		case inv.Killed:
			status = "killed"
		case !inv.Succeeded():
			status = "exit " + strconv.Itoa(inv.ExitCode)
		}
		rows = append(rows, []string{
			inv.StartedAt.Local().Format("2006-01-02 15:04:05"),
			shortID(inv.RunID),
			inv.Op,
			status,
			inv.Duration.Round(time.Millisecond).String(),
		})
	}
	return renderTable(
		[]string{"Started", "Run", "Op", "Status", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
