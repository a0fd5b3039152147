package audio

import (
	"math"
	"strconv"
	"time"
)

// Effect is a single-input audio filter. Each variant renders its own
// filter-graph fragment; adding an effect means adding one type here.
type Effect interface {
	EffectName() string
	filter() (string, error)
}

// FadeIn ramps the level up from silence over Duration.
type FadeIn struct {
	Duration time.Duration
}

// FadeOut ramps the level down to silence over the final Duration. The
// track is reversed around a fade-in so the total length need not be known.
type FadeOut struct {
	Duration time.Duration
}

// Echo mixes a delayed copy of the signal attenuated by Decay.
type Echo struct {
	Delay time.Duration
	Decay float64
}

// HighPass attenuates content below Cutoff hertz.
type HighPass struct {
	Cutoff float64
}

// LowPass attenuates content above Cutoff hertz.
type LowPass struct {
	Cutoff float64
}

func (FadeIn) EffectName() string   { return "fade_in" }
func (FadeOut) EffectName() string  { return "fade_out" }
func (Echo) EffectName() string     { return "echo" }
func (HighPass) EffectName() string { return "highpass" }
func (LowPass) EffectName() string  { return "lowpass" }

func (e FadeIn) filter() (string, error) {
	if e.Duration < time.Millisecond {
		return "", invalidf("fade_in", "duration must be at least 1ms, got %s", e.Duration)
	}
	return "afade=t=in:st=0:d=" + formatSeconds(e.Duration), nil
}

func (e FadeOut) filter() (string, error) {
	if e.Duration < time.Millisecond {
		return "", invalidf("fade_out", "duration must be at least 1ms, got %s", e.Duration)
	}
	return "areverse,afade=t=in:st=0:d=" + formatSeconds(e.Duration) + ",areverse", nil
}

func (e Echo) filter() (string, error) {
	if e.Delay < time.Millisecond {
		return "", invalidf("echo", "delay must be at least 1ms, got %s", e.Delay)
	}
	if !(e.Decay > 0 && e.Decay <= 1) {
		return "", invalidf("echo", "decay must be in (0, 1], got %v", e.Decay)
	}
	return "aecho=0.8:0.9:" + formatMillis(e.Delay) + ":" + formatFloat(e.Decay), nil
}

func (e HighPass) filter() (string, error) {
	if !positiveFinite(e.Cutoff) {
		return "", invalidf("highpass", "cutoff must be positive, got %v", e.Cutoff)
	}
	return "highpass=f=" + formatFloat(e.Cutoff), nil
}

func (e LowPass) filter() (string, error) {
	if !positiveFinite(e.Cutoff) {
		return "", invalidf("lowpass", "cutoff must be positive, got %v", e.Cutoff)
	}
	return "lowpass=f=" + formatFloat(e.Cutoff), nil
}

// formatSeconds renders a duration as seconds with millisecond precision,
// trimming trailing zeros: 30s -> "30", 1500ms -> "1.5". Sub-millisecond
// remainders are dropped; validate rejects values that would collapse.
func formatSeconds(d time.Duration) string {
	ms := d.Milliseconds()
	return strconv.FormatFloat(float64(ms)/1000, 'f', -1, 64)
}

func formatMillis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
