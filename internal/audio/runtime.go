package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"audiochain/internal/logging"
	"audiochain/internal/media/ffprobe"
)

// TempSpace hands out unique paths for intermediate artifacts.
type TempSpace interface {
	NewPath(ext string) string
}

// Runtime is the state every processor in a chain shares: the invoker, the
// temp space and cleanup policy. It is safe for concurrent use.
type Runtime struct {
	invoker          *Invoker
	temp             TempSpace
	logger           *slog.Logger
	cleanupOnFailure bool
	probeBinary      string
}

type runtimeOptions struct {
	logger           *slog.Logger
	recorder         Recorder
	runID            string
	cleanupOnFailure bool
	probeBinary      string
}

// Option configures a Runtime.
type Option func(*runtimeOptions)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *runtimeOptions) { o.logger = logger }
}

// WithRecorder persists every engine invocation.
func WithRecorder(r Recorder) Option {
	return func(o *runtimeOptions) { o.recorder = r }
}

// WithRunID sets the correlation id attached to logs and history.
func WithRunID(id string) Option {
	return func(o *runtimeOptions) { o.runID = strings.TrimSpace(id) }
}

// WithCleanupOnFailure controls whether a failed step consumes its input.
// When disabled the input processor stays open so its file can be inspected.
func WithCleanupOnFailure(enabled bool) Option {
	return func(o *runtimeOptions) { o.cleanupOnFailure = enabled }
}

// WithProbeBinary sets the ffprobe executable used by Processor.Probe.
func WithProbeBinary(binary string) Option {
	return func(o *runtimeOptions) { o.probeBinary = strings.TrimSpace(binary) }
}

// NewRuntime wires an engine and temp space into a chain runtime.
func NewRuntime(engine Engine, temp TempSpace, opts ...Option) (*Runtime, error) {
	if engine == nil {
		return nil, errors.New("audio runtime requires an engine")
	}
	if temp == nil {
		return nil, errors.New("audio runtime requires a temp space")
	}
	o := runtimeOptions{cleanupOnFailure: true}
	for _, opt := range opts {
		opt(&o)
	}
	return &Runtime{
		invoker:          NewInvoker(engine, o.logger, o.recorder, o.runID),
		temp:             temp,
		logger:           logging.NewComponentLogger(o.logger, "processor"),
		cleanupOnFailure: o.cleanupOnFailure,
		probeBinary:      o.probeBinary,
	}, nil
}

// RunID returns the correlation id of this runtime.
func (r *Runtime) RunID() string { return r.invoker.RunID() }

// CleanupOnFailure reports whether failed steps consume their input.
func (r *Runtime) CleanupOnFailure() bool { return r.cleanupOnFailure }

// Open starts a chain from a caller-owned file.
func (r *Runtime) Open(path string) (*Processor, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, invalidf("open", "source path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, ioFailure("open", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, ioFailure("open", path, fmt.Errorf("not a regular file"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ioFailure("open", path, err)
	}
	r.logger.Debug("chain opened",
		logging.String(logging.FieldEventType, "chain_open"),
		logging.String(logging.FieldCorrelationID, r.RunID()),
		logging.String("source", abs),
	)
	return &Processor{artifact: NewSource(abs), rt: r}, nil
}

func (r *Runtime) probe(ctx context.Context, path string) (ffprobe.Result, error) {
	result, err := ffprobe.Inspect(ctx, r.probeBinary, path)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return ffprobe.Result{}, &EngineError{Op: "probe", ExitCode: -1, Err: err, unavailable: true}
		}
		return ffprobe.Result{}, wrap(ErrEngineFailure, "probe", path, err)
	}
	return result, nil
}

// tempPath returns a fresh intermediate path keeping the given extension, or
// a Matroska audio container when the extension is unknown.
func (r *Runtime) tempPath(ext string) string {
	if ext == "" {
		ext = ".mka"
	}
	return r.temp.NewPath(ext)
}
