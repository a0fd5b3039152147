package audio

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"syscall"
)

// DefaultEngineBinary is used when no engine path is configured.
const DefaultEngineBinary = "ffmpeg"

// Outcome is what the engine reports for one finished process.
type Outcome struct {
	ExitCode   int
	Killed     bool
	Signal     string
	Diagnostic string
}

// Engine runs the external audio engine with a complete argument list. A
// returned error means the process could not be started; every process that
// ran, successfully or not, is described by the Outcome.
type Engine interface {
	Exec(ctx context.Context, args []string) (Outcome, error)
}

// ExecEngine runs a local executable as a blocking subprocess.
type ExecEngine struct {
	Binary string
}

// Exec implements Engine.
func (e ExecEngine) Exec(ctx context.Context, args []string) (Outcome, error) {
	binary := strings.TrimSpace(e.Binary)
	if binary == "" {
		binary = DefaultEngineBinary
	}
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	outcome := Outcome{Diagnostic: output.String()}
	if err == nil {
		return outcome, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return Outcome{}, err
	}
	outcome.ExitCode = exitErr.ExitCode()
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		outcome.Killed = true
		outcome.Signal = status.Signal().String()
	}
	return outcome, nil
}
