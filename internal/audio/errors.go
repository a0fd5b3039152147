package audio

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidParameter marks malformed operation arguments. It is always
	// raised before any engine process is spawned.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrIO marks filesystem failures: source access, temp creation, save.
	ErrIO = errors.New("io failure")
	// ErrEngineFailure marks an engine process that exited non-zero or was killed.
	ErrEngineFailure = errors.New("engine failure")
	// ErrEngineUnavailable marks an engine executable that could not be started.
	ErrEngineUnavailable = errors.New("engine unavailable")
	// ErrClosed marks use of a processor after it was consumed or closed.
	ErrClosed = errors.New("processor closed")
)

// EngineError carries the outcome of a failed engine invocation. The
// diagnostic text is the engine's captured output, unmodified.
type EngineError struct {
	Op         string
	Args       []string
	ExitCode   int
	Killed     bool
	Signal     string
	Diagnostic string
	Err        error

	unavailable bool
}

func (e *EngineError) Error() string {
	var b strings.Builder
	b.WriteString(e.marker().Error())
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	switch {
	case e.unavailable && e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Killed:
		b.WriteString(": terminated")
		if e.Signal != "" {
			b.WriteString(" by ")
			b.WriteString(e.Signal)
		}
	default:
		fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
	}
	if diag := strings.TrimSpace(e.Diagnostic); diag != "" {
		b.WriteString(": ")
		b.WriteString(diag)
	}
	return b.String()
}

// Unwrap exposes both the classification marker and the underlying cause.
func (e *EngineError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.marker()}
	}
	return []error{e.marker(), e.Err}
}

// Unavailable reports whether the engine could not be started at all.
func (e *EngineError) Unavailable() bool {
	return e.unavailable
}

func (e *EngineError) marker() error {
	if e.unavailable {
		return ErrEngineUnavailable
	}
	return ErrEngineFailure
}

// wrap tags an error with a marker and the operation that produced it, in
// the form "<marker>: <op>: <message>: <cause>".
func wrap(marker error, op, message string, err error) error {
	parts := make([]string, 0, 2)
	if op = strings.TrimSpace(op); op != "" {
		parts = append(parts, op)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	detail := strings.Join(parts, ": ")
	if detail == "" {
		detail = "audio failure"
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func invalidf(op, format string, args ...any) error {
	return wrap(ErrInvalidParameter, op, fmt.Sprintf(format, args...), nil)
}

func ioFailure(op, message string, err error) error {
	return wrap(ErrIO, op, message, err)
}
