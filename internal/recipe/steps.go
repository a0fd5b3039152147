package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"audiochain/internal/audio"
)

// stepFunc advances the chain by one step.
type stepFunc func(ctx context.Context, rt *audio.Runtime, p *audio.Processor) (*audio.Processor, error)

type compiledStep struct {
	op    string
	apply stepFunc
}

func (r *Recipe) compile() ([]compiledStep, error) {
	out := make([]compiledStep, 0, len(r.Steps))
	for i, step := range r.Steps {
		fn, err := r.compileStep(step)
		if err != nil {
			return nil, fmt.Errorf("recipe: step %d (%s): %w", i+1, step.Op, err)
		}
		out = append(out, compiledStep{op: strings.TrimSpace(step.Op), apply: fn})
	}
	return out, nil
}

func (r *Recipe) compileStep(s Step) (stepFunc, error) {
	switch strings.ToLower(strings.TrimSpace(s.Op)) {
	case "seek":
		at, err := parseDuration("at", s.At)
		if err != nil {
			return nil, err
		}
		return unary(audio.Seek{At: at}, func(ctx context.Context, p *audio.Processor) (*audio.Processor, error) {
			return p.Seek(ctx, at)
		})
	case "trim":
		start, err := optionalDuration("start", s.Start)
		if err != nil {
			return nil, err
		}
		end, err := parseDuration("end", s.End)
		if err != nil {
			return nil, err
		}
		return unary(audio.Trim{Start: start, End: end}, func(ctx context.Context, p *audio.Processor) (*audio.Processor, error) {
			return p.Trim(ctx, start, end)
		})
	case "volume":
		return unary(audio.AdjustVolume{Factor: s.Factor}, func(ctx context.Context, p *audio.Processor) (*audio.Processor, error) {
			return p.AdjustVolume(ctx, s.Factor)
		})
	case "speed":
		return unary(audio.ChangeSpeed{Factor: s.Factor}, func(ctx context.Context, p *audio.Processor) (*audio.Processor, error) {
			return p.ChangeSpeed(ctx, s.Factor)
		})
	case "effect":
		effect, err := parseEffect(s)
		if err != nil {
			return nil, err
		}
		return unary(audio.ApplyEffect{Effect: effect}, func(ctx context.Context, p *audio.Processor) (*audio.Processor, error) {
			return p.ApplyEffect(ctx, effect)
		})
	case "reverse":
		return func(ctx context.Context, _ *audio.Runtime, p *audio.Processor) (*audio.Processor, error) {
			return p.Reverse(ctx)
		}, nil
	case "normalize":
		return func(ctx context.Context, _ *audio.Runtime, p *audio.Processor) (*audio.Processor, error) {
			return p.Normalize(ctx)
		}, nil
	case "transcode":
		format, err := audio.ParseFormat(s.Format)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, _ *audio.Runtime, p *audio.Processor) (*audio.Processor, error) {
			return p.Transcode(ctx, format, "")
		}, nil
	case "overlay":
		return r.compileOverlay(s)
	case "append":
		return r.compileAppend(s)
	case "":
		return nil, errors.New("op is required")
	default:
		return nil, fmt.Errorf("unknown op %q", s.Op)
	}
}

// unary checks op's parameters now by building it against a placeholder, so
// range errors surface at load time instead of mid-chain.
func unary(op audio.Operation, run func(context.Context, *audio.Processor) (*audio.Processor, error)) (stepFunc, error) {
	if _, err := audio.Build(op, []*audio.Artifact{audio.NewSource("input")}, "output"); err != nil {
		return nil, err
	}
	return func(ctx context.Context, _ *audio.Runtime, p *audio.Processor) (*audio.Processor, error) {
		return run(ctx, p)
	}, nil
}

func (r *Recipe) compileOverlay(s Step) (stepFunc, error) {
	if strings.TrimSpace(s.Source) == "" {
		return nil, errors.New("source is required")
	}
	at, err := optionalDuration("at", s.At)
	if err != nil {
		return nil, err
	}
	placeholder := audio.Overlay{Overlay: audio.NewSource("overlay"), StartAt: at}
	if _, err := audio.Build(placeholder, []*audio.Artifact{audio.NewSource("input")}, "output"); err != nil {
		return nil, err
	}
	path := r.resolve(s.Source)
	return func(ctx context.Context, rt *audio.Runtime, p *audio.Processor) (*audio.Processor, error) {
		other, err := rt.Open(path)
		if err != nil {
			return nil, err
		}
		defer other.Close()
		mixed, err := p.Overlay(ctx, other, at)
		if err != nil {
			return nil, err
		}
		if err := p.Close(); err != nil {
			_ = mixed.Close()
			return nil, err
		}
		return mixed, nil
	}, nil
}

func (r *Recipe) compileAppend(s Step) (stepFunc, error) {
	if len(s.Sources) == 0 {
		return nil, errors.New("sources must list at least one file")
	}
	paths := make([]string, 0, len(s.Sources))
	for i, src := range s.Sources {
		if strings.TrimSpace(src) == "" {
			return nil, fmt.Errorf("sources[%d] is empty", i)
		}
		paths = append(paths, r.resolve(src))
	}
	return func(ctx context.Context, rt *audio.Runtime, p *audio.Processor) (*audio.Processor, error) {
		inputs := []*audio.Processor{p}
		defer func() {
			for _, in := range inputs[1:] {
				_ = in.Close()
			}
		}()
		for _, path := range paths {
			next, err := rt.Open(path)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, next)
		}
		merged, err := audio.Merge(ctx, inputs...)
		if err != nil {
			return nil, err
		}
		if err := p.Close(); err != nil {
			_ = merged.Close()
			return nil, err
		}
		return merged, nil
	}, nil
}

func parseEffect(s Step) (audio.Effect, error) {
	switch strings.ToLower(strings.TrimSpace(s.Effect)) {
	case "fade_in":
		d, err := parseDuration("duration", s.Duration)
		if err != nil {
			return nil, err
		}
		return audio.FadeIn{Duration: d}, nil
	case "fade_out":
		d, err := parseDuration("duration", s.Duration)
		if err != nil {
			return nil, err
		}
		return audio.FadeOut{Duration: d}, nil
	case "echo":
		d, err := parseDuration("delay", s.Delay)
		if err != nil {
			return nil, err
		}
		return audio.Echo{Delay: d, Decay: s.Decay}, nil
	case "highpass":
		return audio.HighPass{Cutoff: s.Cutoff}, nil
	case "lowpass":
		return audio.LowPass{Cutoff: s.Cutoff}, nil
	case "":
		return nil, errors.New("effect is required")
	default:
		return nil, fmt.Errorf("unknown effect %q", s.Effect)
	}
}
