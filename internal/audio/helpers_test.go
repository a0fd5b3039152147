package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"audiochain/internal/audiotest"
)

// fakeEngine records every invocation and writes the declared output (the
// last argument) unless a failure is scripted for that call.
type fakeEngine struct {
	mu       sync.Mutex
	calls    [][]string
	failures map[int]Outcome // 1-based call index
	partial  bool            // write output before reporting a scripted failure
	startErr error
}

func (f *fakeEngine) Exec(_ context.Context, args []string) (Outcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), args...))
	n := len(f.calls)
	outcome, fail := f.failures[n]
	f.mu.Unlock()

	if f.startErr != nil {
		return Outcome{}, f.startErr
	}
	output := args[len(args)-1]
	if fail {
		if f.partial {
			_ = os.WriteFile(output, []byte("partial"), 0o644)
		}
		return outcome, nil
	}
	if err := os.WriteFile(output, []byte(strings.Join(args, " ")), 0o644); err != nil {
		return Outcome{}, err
	}
	return Outcome{}, nil
}

func (f *fakeEngine) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

func (f *fakeEngine) failOn(call int, outcome Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures == nil {
		f.failures = map[int]Outcome{}
	}
	f.failures[call] = outcome
}

// dirTemp hands out sequential paths inside one directory.
type dirTemp struct {
	dir string
	n   atomic.Int64
}

func (d *dirTemp) NewPath(ext string) string {
	return filepath.Join(d.dir, fmt.Sprintf("tmp-%03d%s", d.n.Add(1), ext))
}

func newTestRuntime(t *testing.T, engine Engine, opts ...Option) (*Runtime, *dirTemp) {
	t.Helper()
	temp := &dirTemp{dir: t.TempDir()}
	rt, err := NewRuntime(engine, temp, opts...)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	return rt, temp
}

func openFixture(t *testing.T, rt *Runtime, name string) *Processor {
	t.Helper()
	path := audiotest.Silence(t, t.TempDir(), name)
	p, err := rt.Open(path)
	if err != nil {
		t.Fatalf("Open %s: %v", name, err)
	}
	return p
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func lastArg(args []string) string {
	return args[len(args)-1]
}

type memoryRecorder struct {
	mu   sync.Mutex
	invs []Invocation
	err  error
}

func (m *memoryRecorder) Record(ctx context.Context, inv Invocation) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invs = append(m.invs, inv)
	return m.err
}

func (m *memoryRecorder) All() []Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Invocation(nil), m.invs...)
}
