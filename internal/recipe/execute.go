package recipe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"audiochain/internal/audio"
	"audiochain/internal/logging"
)

// Result summarizes a finished run.
type Result struct {
	RunID   string
	Output  string
	Format  audio.Format
	Steps   int
	Elapsed time.Duration
}

// Execute runs the recipe on rt and writes the final output. The first
// failing step aborts the run; its error is returned wrapped with the step
// number, so errors.Is and errors.As still see the audio error.
func (r *Recipe) Execute(ctx context.Context, rt *audio.Runtime, logger *slog.Logger) (Result, error) {
	steps, err := r.compile()
	if err != nil {
		return Result{}, err
	}
	format, err := r.OutputFormat()
	if err != nil {
		return Result{}, fmt.Errorf("recipe: %w", err)
	}

	ctx = logging.WithRunID(ctx, rt.RunID())
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "recipe"))
	started := time.Now()

	current, err := rt.Open(r.SourcePath())
	if err != nil {
		return Result{}, fmt.Errorf("recipe: source: %w", err)
	}
	defer func() {
		if current != nil {
			_ = current.Close()
		}
	}()

	for i, step := range steps {
		logger.Info("recipe step",
			logging.String(logging.FieldEventType, "recipe_step"),
			logging.Int(logging.FieldStep, i+1),
			logging.Int("total", len(steps)),
			logging.String("op", step.op),
		)
		next, err := step.apply(ctx, rt, current)
		if err != nil {
			if !rt.CleanupOnFailure() && !current.Closed() && current.Artifact().Temporary() {
				logging.WarnWithContext(logger, "step input kept for inspection", "recipe_input_kept",
					logging.Int(logging.FieldStep, i+1),
					logging.String("path", current.Path()),
					logging.String(logging.FieldImpact, "intermediate file stays in the workspace"),
					logging.String(logging.FieldErrorHint, "remove it with 'audiochain clean' when done"),
				)
				current = nil
			}
			return Result{}, fmt.Errorf("recipe: step %d (%s): %w", i+1, step.op, err)
		}
		current = next
	}

	if err := os.MkdirAll(filepath.Dir(r.OutputPath()), 0o755); err != nil {
		return Result{}, fmt.Errorf("recipe: create output directory: %w", err)
	}
	final, err := current.Transcode(ctx, format, r.OutputPath())
	if err != nil {
		return Result{}, fmt.Errorf("recipe: write output: %w", err)
	}
	current = final

	res := Result{
		RunID:   rt.RunID(),
		Output:  final.Path(),
		Format:  format,
		Steps:   len(steps),
		Elapsed: time.Since(started),
	}
	logger.Info("recipe complete",
		logging.String(logging.FieldEventType, "recipe_complete"),
		logging.String("output", res.Output),
		logging.String("format", format.String()),
		logging.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}
