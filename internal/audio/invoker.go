package audio

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"audiochain/internal/logging"
)

// Invocation describes one finished engine run, successful or not.
type Invocation struct {
	ID         string
	RunID      string
	Op         string
	Args       []string
	ExitCode   int
	Killed     bool
	Diagnostic string
	Error      string
	StartedAt  time.Time
	Duration   time.Duration
}

// Succeeded reports whether the invocation produced its output.
func (i Invocation) Succeeded() bool {
	return i.Error == ""
}

// Recorder persists invocation history.
type Recorder interface {
	Record(ctx context.Context, inv Invocation) error
}

// Invoker executes built commands against an Engine and maps the outcome
// onto the error taxonomy. It never retries.
type Invoker struct {
	engine   Engine
	logger   *slog.Logger
	recorder Recorder
	runID    string
	now      func() time.Time
}

// NewInvoker wraps an engine. A nil logger discards output; a nil recorder
// disables history.
func NewInvoker(engine Engine, logger *slog.Logger, recorder Recorder, runID string) *Invoker {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Invoker{
		engine:   engine,
		logger:   logging.NewComponentLogger(logger, "invoker"),
		recorder: recorder,
		runID:    runID,
		now:      time.Now,
	}
}

// RunID returns the correlation id stamped on every invocation.
func (iv *Invoker) RunID() string { return iv.runID }

// Run executes cmd. On failure any output the engine left behind is removed
// unless the file existed before the call.
func (iv *Invoker) Run(ctx context.Context, cmd Command) error {
	if iv == nil || iv.engine == nil {
		return &EngineError{Op: cmd.Op, Args: cmd.Args, ExitCode: -1, Err: errors.New("no engine configured"), unavailable: true}
	}

	if len(cmd.Manifest) > 0 {
		body := strings.Join(cmd.Manifest, "\n") + "\n"
		if err := os.WriteFile(cmd.ManifestPath, []byte(body), 0o644); err != nil {
			return ioFailure(cmd.Op, "write concat manifest", err)
		}
		defer func() { _ = os.Remove(cmd.ManifestPath) }()
	}

	_, statErr := os.Stat(cmd.Output)
	preexisting := statErr == nil

	iv.logger.Debug("engine invocation",
		logging.String(logging.FieldEventType, "engine_start"),
		logging.String(logging.FieldCorrelationID, iv.runID),
		logging.String("op", cmd.Op),
		logging.String("args", strings.Join(cmd.Args, " ")),
	)

	started := iv.now()
	outcome, execErr := iv.engine.Exec(ctx, cmd.Args)
	elapsed := iv.now().Sub(started)

	err := iv.classify(ctx, cmd, outcome, execErr)
	if err == nil {
		if _, statErr := os.Stat(cmd.Output); statErr != nil {
			err = ioFailure(cmd.Op, "engine produced no output", statErr)
		}
	}
	if err != nil && !preexisting {
		if rmErr := os.Remove(cmd.Output); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			logging.WarnWithContext(iv.logger, "failed to remove partial output", "partial_output_cleanup_failed",
				logging.Error(rmErr),
				logging.String("path", cmd.Output),
				logging.String(logging.FieldImpact, "invalid audio left on disk"),
			)
		}
	}

	iv.record(ctx, cmd, outcome, started, elapsed, err)

	if err != nil {
		logging.ErrorWithContext(iv.logger, "engine invocation failed", "engine_failed",
			logging.String(logging.FieldCorrelationID, iv.runID),
			logging.String("op", cmd.Op),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the engine diagnostic attached to the error"),
		)
		return err
	}
	iv.logger.Debug("engine invocation complete",
		logging.String(logging.FieldEventType, "engine_complete"),
		logging.String(logging.FieldCorrelationID, iv.runID),
		logging.String("op", cmd.Op),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}

func (iv *Invoker) classify(ctx context.Context, cmd Command, outcome Outcome, execErr error) error {
	ctxErr := ctx.Err()
	switch {
	case execErr != nil && ctxErr != nil:
		return &EngineError{Op: cmd.Op, Args: cmd.Args, ExitCode: -1, Killed: true, Err: ctxErr}
	case execErr != nil:
		return &EngineError{Op: cmd.Op, Args: cmd.Args, ExitCode: -1, Err: execErr, unavailable: true}
	case outcome.ExitCode != 0 || outcome.Killed:
		return &EngineError{
			Op:         cmd.Op,
			Args:       cmd.Args,
			ExitCode:   outcome.ExitCode,
			Killed:     outcome.Killed || ctxErr != nil,
			Signal:     outcome.Signal,
			Diagnostic: outcome.Diagnostic,
			Err:        ctxErr,
		}
	default:
		return nil
	}
}

func (iv *Invoker) record(ctx context.Context, cmd Command, outcome Outcome, started time.Time, elapsed time.Duration, runErr error) {
	if iv.recorder == nil {
		return
	}
	inv := Invocation{
		ID:         uuid.NewString(),
		RunID:      iv.runID,
		Op:         cmd.Op,
		Args:       append([]string(nil), cmd.Args...),
		ExitCode:   outcome.ExitCode,
		Killed:     outcome.Killed,
		Diagnostic: outcome.Diagnostic,
		StartedAt:  started.UTC(),
		Duration:   elapsed,
	}
	if runErr != nil {
		inv.Error = runErr.Error()
		var engErr *EngineError
		if errors.As(runErr, &engErr) {
			inv.ExitCode = engErr.ExitCode
			inv.Killed = engErr.Killed
		}
	}
	// History is written after cancellation too.
	if err := iv.recorder.Record(context.WithoutCancel(ctx), inv); err != nil {
		logging.WarnWithContext(iv.logger, "failed to record engine invocation", "journal_write_failed",
			logging.Error(err),
			logging.String("op", cmd.Op),
			logging.String(logging.FieldImpact, "invocation missing from history"),
		)
	}
}
