package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"audiochain/internal/audiotest"
)

func TestChainSeekTrimTranscodeToMP3(t *testing.T) {
	t.Chdir(t.TempDir())
	engine := &fakeEngine{}
	rt, temp := newTestRuntime(t, engine)
	ctx := context.Background()

	src := openFixture(t, rt, "in.wav")
	seeked, err := src.Seek(ctx, 30*time.Second)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	trimmed, err := seeked.Trim(ctx, 10*time.Second, 20*time.Second)
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	final, err := trimmed.Transcode(ctx, FormatMP3, "out.mp3")
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	t.Cleanup(func() { _ = final.Close() })

	calls := engine.Calls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 engine invocations, got %d", len(calls))
	}
	if calls[0][indexAfter(calls[0], "-ss")] != "30" {
		t.Fatalf("seek offset: %v", calls[0])
	}
	if calls[1][indexAfter(calls[1], "-ss")] != "10" || calls[1][indexAfter(calls[1], "-to")] != "20" {
		t.Fatalf("trim window: %v", calls[1])
	}
	if lastArg(calls[2]) != "out.mp3" {
		t.Fatalf("final output: %v", calls[2])
	}
	if !exists("out.mp3") {
		t.Fatal("out.mp3 must exist")
	}
	for _, p := range []*Processor{src, seeked, trimmed} {
		if !p.Closed() {
			t.Fatal("every intermediate processor should be consumed")
		}
	}
	leftovers, _ := filepath.Glob(filepath.Join(temp.dir, "*"))
	if len(leftovers) != 0 {
		t.Fatalf("expected intermediates removed, found %v", leftovers)
	}
}

func TestChainTrimVolumeTranscode(t *testing.T) {
	t.Chdir(t.TempDir())
	engine := &fakeEngine{}
	rec := &memoryRecorder{}
	rt, temp := newTestRuntime(t, engine, WithRecorder(rec), WithRunID("chain-1"))
	ctx := context.Background()

	src := openFixture(t, rt, "in.wav")
	srcPath := src.Path()

	trimmed, err := src.Trim(ctx, 0, 2*time.Second)
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if !src.Closed() {
		t.Fatal("Trim should consume its receiver")
	}
	louder, err := trimmed.AdjustVolume(ctx, 1.5)
	if err != nil {
		t.Fatalf("AdjustVolume: %v", err)
	}
	final, err := louder.Transcode(ctx, FormatMP3, "out.mp3")
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}

	calls := engine.Calls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 engine invocations, got %d", len(calls))
	}
	if got := lastArg(calls[2]); got != "out.mp3" {
		t.Fatalf("expected final output out.mp3, got %q", got)
	}
	if lastArg(calls[0]) != calls[1][indexAfter(calls[1], "-i")] {
		t.Fatal("second step must read the first step's output")
	}
	if len(rec.All()) != 3 || rec.All()[0].RunID != "chain-1" {
		t.Fatalf("expected 3 recorded invocations for chain-1, got %+v", rec.All())
	}

	if err := final.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !exists("out.mp3") {
		t.Fatal("named output must survive Close")
	}
	if !exists(srcPath) {
		t.Fatal("source file must never be removed")
	}
	leftovers, _ := filepath.Glob(filepath.Join(temp.dir, "*"))
	if len(leftovers) != 0 {
		t.Fatalf("expected intermediates removed, found %v", leftovers)
	}
}

func indexAfter(args []string, flag string) int {
	for i, a := range args {
		if a == flag {
			return i + 1
		}
	}
	return -1
}

func TestInvalidParameterSpawnsNothingAndKeepsReceiver(t *testing.T) {
	engine := &fakeEngine{}
	rt, _ := newTestRuntime(t, engine)
	ctx := context.Background()
	p := openFixture(t, rt, "in.wav")

	checks := []func() error{
		func() error { _, err := p.Trim(ctx, 2*time.Second, time.Second); return err },
		func() error { _, err := p.AdjustVolume(ctx, 0); return err },
		func() error { _, err := p.ChangeSpeed(ctx, -1); return err },
		func() error { _, err := p.ApplyEffect(ctx, Echo{Delay: time.Second, Decay: 2}); return err },
		func() error { _, err := p.Transcode(ctx, FormatUnknown, ""); return err },
		func() error { _, err := p.Seek(ctx, -time.Second); return err },
		func() error { _, err := Merge(ctx); return err },
	}
	for i, check := range checks {
		if err := check(); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("check %d: expected ErrInvalidParameter, got %v", i, err)
		}
	}
	if n := len(engine.Calls()); n != 0 {
		t.Fatalf("expected no engine invocations, got %d", n)
	}
	if p.Closed() {
		t.Fatal("invalid parameters must not consume the receiver")
	}
	if _, err := p.Reverse(ctx); err != nil {
		t.Fatalf("receiver should still be usable: %v", err)
	}
}

func TestOverlayLeavesOtherUsable(t *testing.T) {
	engine := &fakeEngine{}
	rt, _ := newTestRuntime(t, engine)
	ctx := context.Background()

	base := openFixture(t, rt, "base.wav")
	bell, err := openFixture(t, rt, "bell.wav").Reverse(ctx)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	bellPath := bell.Path()
	before, err := os.ReadFile(bellPath)
	if err != nil {
		t.Fatalf("read overlay: %v", err)
	}

	mixed, err := base.Overlay(ctx, bell, 1500*time.Millisecond)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	defer mixed.Close()

	if base.Closed() || bell.Closed() {
		t.Fatal("overlay must not consume either input")
	}
	after, err := os.ReadFile(bellPath)
	if err != nil {
		t.Fatalf("overlay input removed: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("overlay input was modified")
	}
	args := engine.Calls()[1]
	if args[indexAfter(args, "-filter_complex")] != "[1:a]adelay=delays=1500:all=1[ovl];[0:a][ovl]amix=inputs=2:duration=first" {
		t.Fatalf("unexpected overlay graph: %q", args)
	}

	if _, err := bell.Normalize(ctx); err != nil {
		t.Fatalf("overlay input should remain usable: %v", err)
	}
	if err := base.Close(); err != nil {
		t.Fatalf("Close base: %v", err)
	}
}

func TestCloneReleasesSharedFileOnce(t *testing.T) {
	engine := &fakeEngine{}
	rt, _ := newTestRuntime(t, engine)
	ctx := context.Background()

	p, err := openFixture(t, rt, "in.wav").Reverse(ctx)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	path := p.Path()
	clone, err := p.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if clone.Path() != path {
		t.Fatal("clone must share the file")
	}

	merged, err := Merge(ctx, p, clone)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	defer merged.Close()

	if err := p.Close(); err != nil {
		t.Fatalf("Close original: %v", err)
	}
	if !exists(path) {
		t.Fatal("shared file removed while the clone is alive")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("double Close: %v", err)
	}
	if !exists(path) {
		t.Fatal("double close released the clone's reference")
	}
	if err := clone.Close(); err != nil {
		t.Fatalf("Close clone: %v", err)
	}
	if exists(path) {
		t.Fatal("expected shared file removed after the last reference")
	}
}

func TestMergeKeepsOrderAndInputs(t *testing.T) {
	engine := &fakeEngine{}
	rt, _ := newTestRuntime(t, engine)
	ctx := context.Background()

	a := openFixture(t, rt, "a.wav")
	b := openFixture(t, rt, "b.wav")
	merged, err := Merge(ctx, a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	defer merged.Close()

	if a.Closed() || b.Closed() {
		t.Fatal("merge must not consume its inputs")
	}
	args := engine.Calls()[0]
	if args[indexAfter(args, "-f")] != "concat" {
		t.Fatalf("expected concat demuxer, got %q", args)
	}
	manifest := args[indexAfter(args, "-i")]
	if exists(manifest) {
		t.Fatal("manifest should be removed after merge")
	}

	other, _ := newTestRuntime(t, engine)
	foreign := openFixture(t, other, "c.wav")
	if _, err := Merge(ctx, a, foreign); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for mixed runtimes, got %v", err)
	}
}

func TestEngineFailureCleanupPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("cleanup enabled", func(t *testing.T) {
		engine := &fakeEngine{}
		engine.failOn(2, Outcome{ExitCode: 1, Diagnostic: "X"})
		rt, temp := newTestRuntime(t, engine)

		step, err := openFixture(t, rt, "in.wav").Reverse(ctx)
		if err != nil {
			t.Fatalf("Reverse: %v", err)
		}
		_, err = step.Normalize(ctx)
		var engErr *EngineError
		if !errors.As(err, &engErr) || engErr.Diagnostic != "X" {
			t.Fatalf("expected EngineError with diagnostic X, got %v", err)
		}
		if !step.Closed() {
			t.Fatal("failed step should consume its receiver")
		}
		leftovers, _ := filepath.Glob(filepath.Join(temp.dir, "*"))
		if len(leftovers) != 0 {
			t.Fatalf("expected no intermediates, found %v", leftovers)
		}
	})

	t.Run("cleanup disabled", func(t *testing.T) {
		engine := &fakeEngine{}
		engine.failOn(2, Outcome{ExitCode: 1, Diagnostic: "X"})
		rt, _ := newTestRuntime(t, engine, WithCleanupOnFailure(false))

		step, err := openFixture(t, rt, "in.wav").Reverse(ctx)
		if err != nil {
			t.Fatalf("Reverse: %v", err)
		}
		if _, err := step.Normalize(ctx); !errors.Is(err, ErrEngineFailure) {
			t.Fatalf("expected ErrEngineFailure, got %v", err)
		}
		if step.Closed() || !exists(step.Path()) {
			t.Fatal("receiver should stay open for inspection")
		}
		if err := step.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if exists(step.Path()) {
			t.Fatal("expected intermediate removed on Close")
		}
	})
}

func TestClosedProcessorRejectsOperations(t *testing.T) {
	rt, _ := newTestRuntime(t, &fakeEngine{})
	ctx := context.Background()
	p := openFixture(t, rt, "in.wav")
	if _, err := p.Reverse(ctx); err != nil {
		t.Fatalf("Reverse: %v", err)
	}

	if _, err := p.Normalize(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := p.Clone(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from Clone, got %v", err)
	}
	if err := p.Save(filepath.Join(t.TempDir(), "x.wav")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from Save, got %v", err)
	}
	other := openFixture(t, rt, "other.wav")
	if _, err := other.Overlay(ctx, p, 0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from Overlay, got %v", err)
	}
}

func TestSaveCopiesSnapshot(t *testing.T) {
	rt, _ := newTestRuntime(t, &fakeEngine{})
	ctx := context.Background()

	p, err := openFixture(t, rt, "in.wav").ChangeSpeed(ctx, 1.25)
	if err != nil {
		t.Fatalf("ChangeSpeed: %v", err)
	}
	dest := filepath.Join(t.TempDir(), "exports", "fast.wav")
	if err := p.Save(dest); err != nil {
		t.Fatalf("Save: %v", err)
	}
	want, _ := os.ReadFile(p.Path())
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(got) != string(want) {
		t.Fatal("saved file differs from the node's file")
	}
	if p.Closed() {
		t.Fatal("Save must not consume the processor")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !exists(dest) {
		t.Fatal("saved copy must outlive the processor")
	}
}

func TestOpenValidatesSource(t *testing.T) {
	rt, _ := newTestRuntime(t, &fakeEngine{})
	if _, err := rt.Open(""); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
	if _, err := rt.Open(filepath.Join(t.TempDir(), "missing.wav")); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO for missing file, got %v", err)
	}
	if _, err := rt.Open(t.TempDir()); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO for directory, got %v", err)
	}
}

func TestIndependentChainsRunConcurrently(t *testing.T) {
	engine := &fakeEngine{}
	rt, _ := newTestRuntime(t, engine)
	ctx := context.Background()
	dir := t.TempDir()

	const chains = 8
	var wg sync.WaitGroup
	errs := make(chan error, chains)
	for i := range chains {
		src := audiotest.Silence(t, dir, "src-"+string(rune('a'+i))+".wav")
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := rt.Open(src)
			if err != nil {
				errs <- err
				return
			}
			if p, err = p.Reverse(ctx); err != nil {
				errs <- err
				return
			}
			if p, err = p.ApplyEffect(ctx, FadeIn{Duration: 100 * time.Millisecond}); err != nil {
				errs <- err
				return
			}
			errs <- p.Close()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("chain failed: %v", err)
		}
	}
	if n := len(engine.Calls()); n != chains*2 {
		t.Fatalf("expected %d invocations, got %d", chains*2, n)
	}
}

func TestProbeUsesConfiguredBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	stub := filepath.Join(t.TempDir(), "ffprobe")
	script := "#!/bin/sh\necho '{\"streams\":[{\"index\":0,\"codec_type\":\"audio\",\"codec_name\":\"pcm_s16le\",\"sample_rate\":\"8000\",\"channels\":1}],\"format\":{\"duration\":\"1.000000\"}}'\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	rt, _ := newTestRuntime(t, &fakeEngine{}, WithProbeBinary(stub))
	p := openFixture(t, rt, "in.wav")

	result, err := p.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	stream, ok := result.PrimaryAudio()
	if !ok || stream.SampleRateHz() != 8000 || result.Duration() != time.Second {
		t.Fatalf("unexpected probe result: %+v", result)
	}
}

func TestProbeMissingBinaryIsUnavailable(t *testing.T) {
	rt, _ := newTestRuntime(t, &fakeEngine{}, WithProbeBinary(filepath.Join(t.TempDir(), "nope")))
	p := openFixture(t, rt, "in.wav")
	if _, err := p.Probe(context.Background()); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}
