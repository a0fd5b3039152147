package audio

import "time"

// Factor bounds. Volume factors are rendered with six decimals, so anything
// smaller would reach the engine as zero. Speed is capped so the atempo chain
// stays a handful of stages.
const (
	minVolume = 1e-6
	maxVolume = 1e6
	minSpeed  = 0.01
	maxSpeed  = 100
)

// resolution is the finest time step the engine arguments carry.
const resolution = time.Millisecond

// Operation is one editing step. Each variant knows its own parameter
// constraints; Build checks them before producing any arguments.
type Operation interface {
	Name() string
	validate() error
}

// Seek drops everything before At.
type Seek struct {
	At time.Duration
}

// Trim keeps the range [Start, End] of the input.
type Trim struct {
	Start time.Duration
	End   time.Duration
}

// Concat joins Inputs end to end, in order. It backs Merge.
type Concat struct {
	Inputs []*Artifact
}

// Transcode re-encodes into Format.
type Transcode struct {
	Format Format
}

// AdjustVolume scales amplitude by Factor.
type AdjustVolume struct {
	Factor float64
}

// ChangeSpeed changes tempo by Factor without altering pitch.
type ChangeSpeed struct {
	Factor float64
}

// ApplyEffect runs a single Effect filter.
type ApplyEffect struct {
	Effect Effect
}

// Reverse plays the input backwards.
type Reverse struct{}

// Normalize applies EBU R128 loudness normalization.
type Normalize struct{}

// Overlay mixes Overlay onto the base input starting at StartAt.
type Overlay struct {
	Overlay *Artifact
	StartAt time.Duration
}

func (Seek) Name() string         { return "seek" }
func (Trim) Name() string         { return "trim" }
func (Concat) Name() string       { return "merge" }
func (Transcode) Name() string    { return "transcode" }
func (AdjustVolume) Name() string { return "adjust_volume" }
func (ChangeSpeed) Name() string  { return "change_speed" }
func (ApplyEffect) Name() string  { return "apply_effect" }
func (Reverse) Name() string      { return "reverse" }
func (Normalize) Name() string    { return "normalize" }
func (Overlay) Name() string      { return "overlay" }

func (o Seek) validate() error {
	if o.At < 0 {
		return invalidf(o.Name(), "position must not be negative, got %s", o.At)
	}
	return checkResolution(o.Name(), "position", o.At)
}

func (o Trim) validate() error {
	if o.Start < 0 {
		return invalidf(o.Name(), "start must not be negative, got %s", o.Start)
	}
	if o.End < o.Start {
		return invalidf(o.Name(), "end %s is before start %s", o.End, o.Start)
	}
	if o.End > o.Start && o.End.Truncate(resolution) == o.Start.Truncate(resolution) {
		return invalidf(o.Name(), "window %s-%s is shorter than %s", o.Start, o.End, resolution)
	}
	return nil
}

func (o Concat) validate() error {
	if len(o.Inputs) == 0 {
		return invalidf(o.Name(), "at least one input is required")
	}
	for i, in := range o.Inputs {
		if in == nil {
			return invalidf(o.Name(), "input %d is nil", i)
		}
	}
	return nil
}

func (o Transcode) validate() error {
	_, err := Lookup(o.Format)
	return err
}

func (o AdjustVolume) validate() error {
	return checkFactor(o.Name(), o.Factor, minVolume, maxVolume)
}

func (o ChangeSpeed) validate() error {
	return checkFactor(o.Name(), o.Factor, minSpeed, maxSpeed)
}

func (o ApplyEffect) validate() error {
	if o.Effect == nil {
		return invalidf(o.Name(), "effect is required")
	}
	_, err := o.Effect.filter()
	return err
}

func (Reverse) validate() error   { return nil }
func (Normalize) validate() error { return nil }

func (o Overlay) validate() error {
	if o.Overlay == nil {
		return invalidf(o.Name(), "overlay input is required")
	}
	if o.StartAt < 0 {
		return invalidf(o.Name(), "start offset must not be negative, got %s", o.StartAt)
	}
	return checkResolution(o.Name(), "start offset", o.StartAt)
}

func checkFactor(op string, v, lo, hi float64) error {
	if !positiveFinite(v) {
		return invalidf(op, "factor must be positive, got %v", v)
	}
	if v < lo || v > hi {
		return invalidf(op, "factor %v outside [%v, %v]", v, lo, hi)
	}
	return nil
}

// checkResolution rejects a non-zero offset that would round down to zero.
func checkResolution(op, field string, d time.Duration) error {
	if d > 0 && d < resolution {
		return invalidf(op, "%s %s is below the %s resolution", field, d, resolution)
	}
	return nil
}
