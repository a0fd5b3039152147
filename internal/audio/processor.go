package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"audiochain/internal/fileutil"
	"audiochain/internal/logging"
	"audiochain/internal/media/ffprobe"
)

// Processor is one node of an editing chain. Single-input operations consume
// the receiver and return a new node; Merge and Overlay only read their
// inputs. Clone a processor to feed the same audio into two branches.
type Processor struct {
	artifact *Artifact
	rt       *Runtime
	closed   atomic.Bool
}

// Path returns the file backing this node.
func (p *Processor) Path() string { return p.artifact.Path() }

// Artifact exposes the handle owned by this node.
func (p *Processor) Artifact() *Artifact { return p.artifact }

// Closed reports whether the node was consumed or closed.
func (p *Processor) Closed() bool { return p.closed.Load() }

// Clone returns a second node over the same file. The file is removed only
// after both nodes are closed.
func (p *Processor) Clone() (*Processor, error) {
	if p.Closed() {
		return nil, wrap(ErrClosed, "clone", p.Path(), nil)
	}
	handle, err := p.artifact.Retain()
	if err != nil {
		return nil, err
	}
	return &Processor{artifact: handle, rt: p.rt}, nil
}

// Close releases this node's reference. Temporary files go away with the
// last reference. Closing twice is harmless.
func (p *Processor) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.artifact.Release()
}

// Seek drops everything before at.
func (p *Processor) Seek(ctx context.Context, at time.Duration) (*Processor, error) {
	return p.transform(ctx, Seek{At: at}, "", filepath.Ext(p.Path()))
}

// Trim keeps [start, end].
func (p *Processor) Trim(ctx context.Context, start, end time.Duration) (*Processor, error) {
	return p.transform(ctx, Trim{Start: start, End: end}, "", filepath.Ext(p.Path()))
}

// Transcode re-encodes into format. A non-empty dest becomes the output file
// and is kept after Close; otherwise a temporary file is used.
func (p *Processor) Transcode(ctx context.Context, format Format, dest string) (*Processor, error) {
	spec, err := Lookup(format)
	if err != nil {
		return nil, err
	}
	return p.transform(ctx, Transcode{Format: format}, dest, spec.Extension)
}

// AdjustVolume scales amplitude by factor.
func (p *Processor) AdjustVolume(ctx context.Context, factor float64) (*Processor, error) {
	return p.transform(ctx, AdjustVolume{Factor: factor}, "", filepath.Ext(p.Path()))
}

// ChangeSpeed changes tempo by factor, preserving pitch.
func (p *Processor) ChangeSpeed(ctx context.Context, factor float64) (*Processor, error) {
	return p.transform(ctx, ChangeSpeed{Factor: factor}, "", filepath.Ext(p.Path()))
}

// ApplyEffect runs one effect filter.
func (p *Processor) ApplyEffect(ctx context.Context, effect Effect) (*Processor, error) {
	return p.transform(ctx, ApplyEffect{Effect: effect}, "", filepath.Ext(p.Path()))
}

// Reverse plays the audio backwards.
func (p *Processor) Reverse(ctx context.Context) (*Processor, error) {
	return p.transform(ctx, Reverse{}, "", filepath.Ext(p.Path()))
}

// Normalize applies loudness normalization.
func (p *Processor) Normalize(ctx context.Context) (*Processor, error) {
	return p.transform(ctx, Normalize{}, "", filepath.Ext(p.Path()))
}

// Overlay mixes other onto this track starting at startAt. Neither input is
// consumed or modified; the result is a new chain root.
func (p *Processor) Overlay(ctx context.Context, other *Processor, startAt time.Duration) (*Processor, error) {
	if p.Closed() {
		return nil, wrap(ErrClosed, "overlay", p.Path(), nil)
	}
	if other == nil {
		return nil, invalidf("overlay", "overlay input is required")
	}
	if other.Closed() {
		return nil, wrap(ErrClosed, "overlay", other.Path(), nil)
	}
	op := Overlay{Overlay: other.artifact, StartAt: startAt}
	return p.rt.produce(ctx, op, []*Artifact{p.artifact}, "", filepath.Ext(p.Path()))
}

// Merge concatenates inputs in order into a new chain root. The inputs are
// read, not consumed, and must all belong to the same runtime.
func Merge(ctx context.Context, inputs ...*Processor) (*Processor, error) {
	if len(inputs) == 0 {
		return nil, invalidf("merge", "at least one input is required")
	}
	artifacts := make([]*Artifact, 0, len(inputs))
	for i, in := range inputs {
		if in == nil {
			return nil, invalidf("merge", "input %d is nil", i)
		}
		if in.Closed() {
			return nil, wrap(ErrClosed, "merge", in.Path(), nil)
		}
		if in.rt != inputs[0].rt {
			return nil, invalidf("merge", "input %d belongs to a different runtime", i)
		}
		artifacts = append(artifacts, in.artifact)
	}
	rt := inputs[0].rt
	return rt.produce(ctx, Concat{Inputs: artifacts}, nil, "", filepath.Ext(inputs[0].Path()))
}

// Save copies the current file to dest. The node stays usable; dest is an
// independent snapshot.
func (p *Processor) Save(dest string) error {
	if p.Closed() {
		return wrap(ErrClosed, "save", p.Path(), nil)
	}
	if dest == "" {
		return invalidf("save", "destination is required")
	}
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return ioFailure("save", dest, err)
	}
	if absDest == p.Path() {
		return nil
	}
	if err := fileutil.CopyAtomic(p.Path(), absDest); err != nil {
		return ioFailure("save", dest, err)
	}
	p.rt.logger.Info("audio saved",
		logging.String(logging.FieldEventType, "chain_saved"),
		logging.String(logging.FieldCorrelationID, p.rt.RunID()),
		logging.String("destination", absDest),
	)
	return nil
}

// Probe inspects the current file with ffprobe.
func (p *Processor) Probe(ctx context.Context) (ffprobe.Result, error) {
	if p.Closed() {
		return ffprobe.Result{}, wrap(ErrClosed, "probe", p.Path(), nil)
	}
	return p.rt.probe(ctx, p.Path())
}

// transform runs a single-input operation and consumes the receiver when the
// engine ran. Parameter errors leave the receiver untouched so the caller can
// retry with corrected values.
func (p *Processor) transform(ctx context.Context, op Operation, dest, ext string) (*Processor, error) {
	if p.Closed() {
		return nil, wrap(ErrClosed, op.Name(), p.Path(), nil)
	}
	next, err := p.rt.produce(ctx, op, []*Artifact{p.artifact}, dest, ext)
	if err != nil {
		if errors.Is(err, ErrInvalidParameter) || !p.rt.cleanupOnFailure {
			return nil, err
		}
		if closeErr := p.Close(); closeErr != nil {
			return nil, errors.Join(err, closeErr)
		}
		return nil, err
	}
	if err := p.Close(); err != nil {
		logging.WarnWithContext(p.rt.logger, "failed to release consumed artifact", "artifact_release_failed",
			logging.Error(err),
			logging.String("path", p.Path()),
			logging.String(logging.FieldImpact, "intermediate file left in the workspace"),
		)
	}
	return next, nil
}

// produce builds and runs op, wrapping the output in a new processor.
func (r *Runtime) produce(ctx context.Context, op Operation, inputs []*Artifact, dest, ext string) (*Processor, error) {
	temporary := dest == ""
	output := dest
	if temporary {
		output = r.tempPath(ext)
	}
	cmd, err := Build(op, inputs, output)
	if err != nil {
		return nil, err
	}
	if err := r.invoker.Run(ctx, cmd); err != nil {
		return nil, err
	}
	path := output
	if !temporary {
		abs, err := filepath.Abs(output)
		if err != nil {
			return nil, ioFailure(op.Name(), fmt.Sprintf("resolve output %s", output), err)
		}
		path = abs
	}
	r.logger.Debug("chain step complete",
		logging.String(logging.FieldEventType, "chain_step"),
		logging.String(logging.FieldCorrelationID, r.RunID()),
		logging.String("op", op.Name()),
		logging.String("output", path),
	)
	return &Processor{artifact: newGenerated(path, temporary), rt: r}, nil
}
