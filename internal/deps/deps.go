package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// versionTimeout bounds the `-version` probe of each binary.
const versionTimeout = 5 * time.Second

// Requirement defines an external executable audiochain relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Version     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries resolves each requirement on PATH and, when found, asks it for
// its version banner.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(ctx, req))
	}
	return results
}

func check(ctx context.Context, req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Path = resolved
	version, err := Version(ctx, resolved)
	if err != nil {
		status.Detail = fmt.Sprintf("version check failed: %v", err)
		return status
	}
	status.Version = version
	status.Available = true
	return status
}

// Version runs `<binary> -version` and returns the first line of its output.
// ffmpeg and ffprobe both print "<name> version <x> Copyright ..." there.
func Version(ctx context.Context, binary string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, "-version").Output() //nolint:gosec
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	line = strings.TrimSpace(line)
	if before, _, ok := strings.Cut(line, " Copyright"); ok {
		line = strings.TrimSpace(before)
	}
	if line == "" {
		return "", fmt.Errorf("%s printed no version", binary)
	}
	return line, nil
}

// EngineRequirements lists the executables an audio chain needs.
func EngineRequirements(ffmpeg, ffprobe string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "Runs every audio operation",
		},
		{
			Name:        "FFprobe",
			Command:     ffprobe,
			Description: "Used by inspect and probe",
			Optional:    true,
		},
	}
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
