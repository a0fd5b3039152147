package audio

import (
	"math"
	"strconv"
	"strings"
)

// globalArgs prefix every engine invocation: quiet banner, no stdin
// interaction, errors only on stderr, overwrite the declared output.
var globalArgs = []string{"-hide_banner", "-nostdin", "-loglevel", "error", "-y"}

const (
	minTempo = 0.5
	maxTempo = 2.0

	// manifestSuffix is appended to the output path to name a concat list.
	manifestSuffix = ".concat"
)

// Command is the fully resolved engine invocation for one operation.
type Command struct {
	Op   string
	Args []string
	// Output is the declared output path; it is always the last argument.
	Output string
	// Manifest holds concat demuxer lines that must be written to
	// ManifestPath before the engine runs. Empty for non-merge operations.
	Manifest     []string
	ManifestPath string
}

// Build translates an operation into engine arguments. It performs no I/O
// and returns identical output for identical input.
//
// Concat reads its inputs from the operation itself and takes no extra
// inputs; every other operation takes exactly one input, the base track.
func Build(op Operation, inputs []*Artifact, output string) (Command, error) {
	if op == nil {
		return Command{}, invalidf("build", "operation is required")
	}
	if err := op.validate(); err != nil {
		return Command{}, err
	}
	if strings.TrimSpace(output) == "" {
		return Command{}, invalidf(op.Name(), "output path is required")
	}

	if m, ok := op.(Concat); ok {
		if len(inputs) != 0 {
			return Command{}, invalidf(op.Name(), "inputs belong in the operation, got %d extra", len(inputs))
		}
		return buildMerge(m, output), nil
	}

	if len(inputs) != 1 || inputs[0] == nil {
		return Command{}, invalidf(op.Name(), "expected exactly one input, got %d", len(inputs))
	}
	in := inputs[0].Path()

	args := append([]string(nil), globalArgs...)
	switch o := op.(type) {
	case Seek:
		args = append(args, "-ss", formatSeconds(o.At), "-i", in, "-c", "copy")
	case Trim:
		args = append(args, "-ss", formatSeconds(o.Start), "-to", formatSeconds(o.End), "-i", in, "-c", "copy")
	case Transcode:
		spec, err := Lookup(o.Format)
		if err != nil {
			return Command{}, err
		}
		args = append(args, "-i", in, "-vn")
		args = append(args, spec.Codec...)
		args = append(args, "-f", spec.Muxer)
	case AdjustVolume:
		args = append(args, "-i", in, "-af", "volume="+formatFactor(o.Factor))
	case ChangeSpeed:
		args = append(args, "-i", in, "-filter:a", tempoChain(o.Factor))
	case ApplyEffect:
		filter, err := o.Effect.filter()
		if err != nil {
			return Command{}, err
		}
		args = append(args, "-i", in, "-af", filter)
	case Reverse:
		args = append(args, "-i", in, "-af", "areverse")
	case Normalize:
		args = append(args, "-i", in, "-af", "loudnorm=I=-16:TP=-1.5:LRA=11")
	case Overlay:
		graph := "[1:a]adelay=delays=" + formatMillis(o.StartAt) + ":all=1[ovl];[0:a][ovl]amix=inputs=2:duration=first"
		args = append(args, "-i", in, "-i", o.Overlay.Path(), "-filter_complex", graph)
	default:
		return Command{}, invalidf(op.Name(), "unsupported operation %T", op)
	}
	args = append(args, output)
	return Command{Op: op.Name(), Args: args, Output: output}, nil
}

func buildMerge(m Concat, output string) Command {
	manifestPath := output + manifestSuffix
	lines := make([]string, 0, len(m.Inputs))
	for _, in := range m.Inputs {
		lines = append(lines, manifestLine(in.Path()))
	}
	args := append([]string(nil), globalArgs...)
	args = append(args, "-f", "concat", "-safe", "0", "-i", manifestPath, "-c", "copy", output)
	return Command{
		Op:           m.Name(),
		Args:         args,
		Output:       output,
		Manifest:     lines,
		ManifestPath: manifestPath,
	}
}

// manifestLine quotes a path for the concat demuxer, which closes a quoted
// string on ' and accepts \' between quoted segments.
func manifestLine(path string) string {
	return "file '" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// tempoChain splits a speed factor into atempo stages that each stay inside
// the engine's supported range and multiply back to the requested factor.
func tempoChain(factor float64) string {
	var stages []string
	for factor > maxTempo {
		stages = append(stages, "atempo="+formatFactor(maxTempo))
		factor /= maxTempo
	}
	for factor < minTempo {
		stages = append(stages, "atempo="+formatFactor(minTempo))
		factor /= minTempo
	}
	stages = append(stages, "atempo="+formatFactor(factor))
	return strings.Join(stages, ",")
}

func formatFactor(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}
