package journal_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"audiochain/internal/audio"
	"audiochain/internal/journal"
)

func openStore(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.Open(context.Background(), filepath.Join(t.TempDir(), "state", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndForRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []audio.Invocation{
		{ID: "a", RunID: "run-1", Op: "trim", Args: []string{"-ss", "1", "-i", "in.wav", "out.wav"}, StartedAt: base, Duration: 1500 * time.Millisecond},
		{ID: "b", RunID: "run-1", Op: "reverse", Args: []string{"-i", "out.wav", "rev.wav"}, ExitCode: 1, Diagnostic: "X", Error: "engine failure: reverse: exit status 1: X", StartedAt: base.Add(2 * time.Second)},
		{ID: "c", RunID: "run-2", Op: "normalize", Args: []string{"-i", "x.wav", "y.wav"}, Killed: true, ExitCode: -1, StartedAt: base.Add(time.Second)},
	}
	for _, inv := range entries {
		if err := store.Record(ctx, inv); err != nil {
			t.Fatalf("Record %s: %v", inv.ID, err)
		}
	}

	run, err := store.ForRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ForRun: %v", err)
	}
	if len(run) != 2 || run[0].ID != "a" || run[1].ID != "b" {
		t.Fatalf("unexpected run history: %+v", run)
	}
	if run[0].Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected duration: %s", run[0].Duration)
	}
	if len(run[0].Args) != 5 || run[0].Args[4] != "out.wav" {
		t.Fatalf("args not preserved: %v", run[0].Args)
	}
	if run[1].Succeeded() || run[1].Diagnostic != "X" || run[1].ExitCode != 1 {
		t.Fatalf("failure not preserved: %+v", run[1])
	}
	if !run[0].StartedAt.Equal(base) {
		t.Fatalf("unexpected start time: %s", run[0].StartedAt)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"first", "second", "third"} {
		inv := audio.Invocation{ID: id, RunID: "run", Op: "seek", Args: []string{}, StartedAt: base.Add(time.Duration(i) * time.Millisecond)}
		if err := store.Record(ctx, inv); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "third" || recent[1].ID != "second" {
		t.Fatalf("unexpected order: %+v", recent)
	}
}

func TestPurgeRemovesOlderEntries(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	old := audio.Invocation{ID: "old", RunID: "r", Op: "trim", StartedAt: now.Add(-48 * time.Hour)}
	fresh := audio.Invocation{ID: "fresh", RunID: "r", Op: "trim", StartedAt: now}
	for _, inv := range []audio.Invocation{old, fresh} {
		if err := store.Record(ctx, inv); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	removed, err := store.Purge(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	remaining, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "fresh" {
		t.Fatalf("unexpected remaining: %+v", remaining)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	store, err := journal.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Record(ctx, audio.Invocation{ID: "keep", RunID: "r", Op: "merge", StartedAt: time.Now()}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := journal.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.ForRun(ctx, "r")
	if err != nil {
		t.Fatalf("ForRun: %v", err)
	}
	if len(got) != 1 || got[0].ID != "keep" {
		t.Fatalf("expected history to survive reopen, got %+v", got)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := journal.Open(context.Background(), " "); err == nil {
		t.Fatal("expected error")
	}
}
