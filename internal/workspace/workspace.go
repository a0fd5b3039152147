// Package workspace owns the per-run scratch directories that hold
// intermediate audio files.
//
// Each run gets its own directory under the configured work root, guarded by
// an advisory lock so Prune can tell live runs from ones left behind by a
// crashed process.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"audiochain/internal/logging"
)

const (
	dirPrefix    = "run-"
	lockFileName = ".lock"
)

// Workspace is a locked scratch directory for one run.
type Workspace struct {
	dir    string
	lock   *flock.Flock
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	keep   bool
}

// Open creates a fresh run directory under root and locks it.
func Open(root string, logger *slog.Logger) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("workspace root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create work root: %w", err)
	}
	dir := filepath.Join(root, dirPrefix+uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !ok {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("workspace %s is locked by another process", dir)
	}

	ws := &Workspace{
		dir:    dir,
		lock:   lock,
		logger: logging.NewComponentLogger(logger, "workspace"),
	}
	ws.logger.Debug("workspace opened",
		logging.String(logging.FieldEventType, "workspace_open"),
		logging.String("dir", dir),
	)
	return ws, nil
}

// Dir returns the run directory.
func (w *Workspace) Dir() string { return w.dir }

// NewPath returns a unique, not yet existing path inside the workspace.
func (w *Workspace) NewPath(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(w.dir, uuid.NewString()+ext)
}

// Keep leaves the directory on disk after Close, for debugging failed runs.
func (w *Workspace) Keep() {
	w.mu.Lock()
	w.keep = true
	w.mu.Unlock()
}

// Close releases the lock and removes the directory with anything still in it.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if err := w.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("release workspace lock: %w", err))
	}
	if w.keep {
		w.logger.Info("workspace kept",
			logging.String(logging.FieldEventType, "workspace_kept"),
			logging.String("dir", w.dir),
		)
		return errors.Join(errs...)
	}
	if err := os.RemoveAll(w.dir); err != nil {
		errs = append(errs, fmt.Errorf("remove workspace: %w", err))
	}
	return errors.Join(errs...)
}

// Prune removes run directories under root that no live process holds.
// It returns the removed directories.
func Prune(root string, logger *slog.Logger) ([]string, error) {
	logger = logging.NewComponentLogger(logger, "workspace")
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read work root: %w", err)
	}

	var removed []string
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), dirPrefix) {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		lock := flock.New(filepath.Join(dir, lockFileName))
		ok, err := lock.TryLock()
		if err != nil {
			errs = append(errs, fmt.Errorf("probe %s: %w", dir, err))
			continue
		}
		if !ok {
			logger.Debug("workspace in use",
				logging.String(logging.FieldEventType, "workspace_busy"),
				logging.String("dir", dir),
			)
			continue
		}
		rmErr := os.RemoveAll(dir)
		_ = lock.Unlock()
		if rmErr != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", dir, rmErr))
			continue
		}
		removed = append(removed, dir)
	}
	if len(removed) > 0 {
		logger.Info("stale workspaces removed",
			logging.String(logging.FieldEventType, "workspace_pruned"),
			logging.Int("count", len(removed)),
		)
	}
	return removed, errors.Join(errs...)
}
