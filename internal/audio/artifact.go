package audio

import (
	"errors"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
)

// Origin records where an artifact's file came from.
type Origin int

const (
	// OriginUserSupplied files belong to the caller and are never removed.
	OriginUserSupplied Origin = iota
	// OriginGenerated files were written by an engine invocation.
	OriginGenerated
)

func (o Origin) String() string {
	switch o {
	case OriginUserSupplied:
		return "user_supplied"
	case OriginGenerated:
		return "generated"
	default:
		return "unknown"
	}
}

// backing is the file shared by every handle retained from one artifact.
type backing struct {
	path      string
	origin    Origin
	temporary bool

	mu      sync.Mutex
	refs    int
	removed bool
}

// Artifact is one handle to an audio file on disk. Handles obtained through
// Retain share the same backing file; a temporary file is removed once, when
// the last handle is released.
type Artifact struct {
	b        *backing
	released atomic.Bool
}

// NewSource wraps a caller-owned file. Releasing it never touches the file.
func NewSource(path string) *Artifact {
	return newArtifact(path, OriginUserSupplied, false)
}

func newGenerated(path string, temporary bool) *Artifact {
	return newArtifact(path, OriginGenerated, temporary)
}

func newArtifact(path string, origin Origin, temporary bool) *Artifact {
	return &Artifact{b: &backing{path: path, origin: origin, temporary: temporary, refs: 1}}
}

// Path returns the backing file location.
func (a *Artifact) Path() string { return a.b.path }

// Origin reports whether the file was supplied or generated.
func (a *Artifact) Origin() Origin { return a.b.origin }

// Temporary reports whether the file is removed when the last handle goes.
func (a *Artifact) Temporary() bool { return a.b.temporary }

// Released reports whether this handle has been released.
func (a *Artifact) Released() bool { return a.released.Load() }

// Refs returns the number of live handles sharing the backing file.
func (a *Artifact) Refs() int {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	return a.b.refs
}

// Retain returns a new handle to the same file. It fails once the backing
// file has been released by every handle.
func (a *Artifact) Retain() (*Artifact, error) {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	if a.b.refs == 0 || a.released.Load() {
		return nil, wrap(ErrClosed, "retain", a.b.path, nil)
	}
	a.b.refs++
	return &Artifact{b: a.b}, nil
}

// Release drops this handle. Calling it more than once on the same handle is
// a no-op. The error reports a failed removal of a temporary file.
func (a *Artifact) Release() error {
	if !a.released.CompareAndSwap(false, true) {
		return nil
	}
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	a.b.refs--
	if a.b.refs > 0 || !a.b.temporary || a.b.removed {
		return nil
	}
	a.b.removed = true
	if err := os.Remove(a.b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioFailure("release", a.b.path, err)
	}
	return nil
}
