package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"audiochain/internal/audio"
	"audiochain/internal/deps"
	"audiochain/internal/journal"
	"audiochain/internal/logging"
	"audiochain/internal/preflight"
	"audiochain/internal/recipe"
	"audiochain/internal/workspace"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string
	var keepWorkspace bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run <recipe.toml>",
		Short: "Execute an audio recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := recipe.Load(args[0])
			if err != nil {
				return err
			}
			if out := strings.TrimSpace(outputFlag); out != "" {
				abs, err := filepath.Abs(out)
				if err != nil {
					return fmt.Errorf("resolve output: %w", err)
				}
				r.Output = abs
				if err := r.Validate(); err != nil {
					return err
				}
			}
			if dryRun {
				format, _ := r.OutputFormat()
				fmt.Fprintf(cmd.OutOrStdout(), "Recipe valid: %d steps, %s -> %s (%s)\n",
					len(r.Steps), r.SourcePath(), r.OutputPath(), format)
				return nil
			}
			return runRecipe(cmd, ctx, r, keepWorkspace)
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Override the recipe's output path")
	cmd.Flags().BoolVar(&keepWorkspace, "keep-workspace", false, "Leave the run's intermediate files on disk")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the recipe without running ffmpeg")
	return cmd
}

func runRecipe(cmd *cobra.Command, cc *commandContext, r *recipe.Recipe, keepWorkspace bool) (err error) {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cc.ensureLogger()
	if err != nil {
		return err
	}

	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	if missing := deps.Missing(preflight.CheckEngine(runCtx, cfg)); len(missing) > 0 {
		return fmt.Errorf("%s unavailable: %s (run 'audiochain doctor')", missing[0].Name, missing[0].Detail)
	}
	if timeout := cfg.RunTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}

	ws, err := workspace.Open(cfg.Paths.WorkDir, logger)
	if err != nil {
		return err
	}
	if keepWorkspace {
		ws.Keep()
	}
	defer func() {
		if err != nil && !cfg.Engine.CleanupOnFailure {
			ws.Keep()
			fmt.Fprintf(cmd.ErrOrStderr(), "Intermediate files kept in %s\n", ws.Dir())
		}
		if closeErr := ws.Close(); closeErr != nil {
			logging.WarnWithContext(logger, "workspace cleanup failed", "workspace_close_failed",
				logging.Error(closeErr),
				logging.String("dir", ws.Dir()),
				logging.String(logging.FieldImpact, "stale run directory left under work_dir"),
				logging.String(logging.FieldErrorHint, "run 'audiochain clean'"),
			)
		}
	}()

	opts := []audio.Option{
		audio.WithLogger(logger),
		audio.WithRunID(uuid.NewString()),
		audio.WithCleanupOnFailure(cfg.Engine.CleanupOnFailure),
		audio.WithProbeBinary(cfg.FFprobeBinary()),
	}
	if cfg.Journal.Enabled {
		store, err := journal.Open(runCtx, cfg.Paths.JournalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer store.Close()
		opts = append(opts, audio.WithRecorder(store))
	}

	rt, err := audio.NewRuntime(audio.ExecEngine{Binary: cfg.FFmpegBinary()}, ws, opts...)
	if err != nil {
		return err
	}

	res, err := r.Execute(runCtx, rt, logger)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("run %s exceeded engine.timeout_seconds: %w", rt.RunID(), err)
		}
		return fmt.Errorf("run %s: %w", rt.RunID(), err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s (%s, %d steps, %s)\n", res.Output, res.Format, res.Steps, res.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Run ID: %s\n", res.RunID)
	return nil
}
