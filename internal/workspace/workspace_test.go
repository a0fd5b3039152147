package workspace_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"audiochain/internal/workspace"
)

func TestOpenCreatesLockedRunDirectory(t *testing.T) {
	root := t.TempDir()
	ws, err := workspace.Open(root, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })

	if filepath.Dir(ws.Dir()) != root {
		t.Fatalf("expected run dir under %s, got %s", root, ws.Dir())
	}
	if !strings.HasPrefix(filepath.Base(ws.Dir()), "run-") {
		t.Fatalf("unexpected run dir name: %s", ws.Dir())
	}
	if _, err := os.Stat(filepath.Join(ws.Dir(), ".lock")); err != nil {
		t.Fatalf("expected lock file: %v", err)
	}
}

func TestNewPathIsUniqueAndKeepsExtension(t *testing.T) {
	ws, err := workspace.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })

	seen := map[string]bool{}
	for range 50 {
		p := ws.NewPath(".wav")
		if seen[p] {
			t.Fatalf("duplicate path %s", p)
		}
		seen[p] = true
		if filepath.Ext(p) != ".wav" || filepath.Dir(p) != ws.Dir() {
			t.Fatalf("unexpected path %s", p)
		}
	}
	if filepath.Ext(ws.NewPath("mp3")) != ".mp3" {
		t.Fatal("expected bare extension to gain a dot")
	}
}

func TestCloseRemovesDirectory(t *testing.T) {
	ws, err := workspace.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	leftover := ws.NewPath(".wav")
	if err := os.WriteFile(leftover, []byte("x"), 0o644); err != nil {
		t.Fatalf("write leftover: %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Fatalf("expected workspace removed, stat err=%v", err)
	}
	if err := ws.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestKeepLeavesDirectory(t *testing.T) {
	ws, err := workspace.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ws.Keep()
	if err := ws.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(ws.Dir()); err != nil {
		t.Fatalf("expected workspace kept: %v", err)
	}
}

func TestPruneSkipsLiveWorkspaces(t *testing.T) {
	root := t.TempDir()

	live, err := workspace.Open(root, nil)
	if err != nil {
		t.Fatalf("Open live: %v", err)
	}
	t.Cleanup(func() { _ = live.Close() })

	stale, err := workspace.Open(root, nil)
	if err != nil {
		t.Fatalf("Open stale: %v", err)
	}
	stale.Keep()
	if err := stale.Close(); err != nil {
		t.Fatalf("Close stale: %v", err)
	}

	unrelated := filepath.Join(root, "keep-me")
	if err := os.Mkdir(unrelated, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	removed, err := workspace.Prune(root, nil)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(removed) != 1 || removed[0] != stale.Dir() {
		t.Fatalf("expected only stale workspace removed, got %v", removed)
	}
	if _, err := os.Stat(live.Dir()); err != nil {
		t.Fatalf("live workspace removed: %v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("unrelated directory removed: %v", err)
	}
}

func TestPruneMissingRoot(t *testing.T) {
	removed, err := workspace.Prune(filepath.Join(t.TempDir(), "absent"), nil)
	if err != nil || len(removed) != 0 {
		t.Fatalf("expected no-op, got %v %v", removed, err)
	}
}
