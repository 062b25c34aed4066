package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrWorkspaceBusy is returned when another run holds the workspace.
var ErrWorkspaceBusy = errors.New("workspace is in use by another run")

// Workspace is a scratch directory owned by one run. Its name is derived
// from the input so that two runs on the same input exclude each other.
type Workspace struct {
	Dir  string
	lock *flock.Flock
}

// OpenWorkspace locks and creates <parent>/<name>. A directory left behind
// by a crashed run is discarded. Close must be called on every exit path.
func OpenWorkspace(parent, name string) (*Workspace, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	dir := filepath.Join(parent, name)
	lock := flock.New(dir + ".lock")

	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceBusy, dir)
	}

	ws := &Workspace{Dir: dir, lock: lock}
	if err := os.RemoveAll(dir); err != nil {
		ws.release()
		return nil, fmt.Errorf("clear stale workspace: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		ws.release()
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return ws, nil
}

// Path joins elem onto the workspace directory.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.Dir}, elem...)...)
}

// Close removes the workspace and releases its lock.
func (w *Workspace) Close() error {
	err := os.RemoveAll(w.Dir)
	w.release()
	if err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}

func (w *Workspace) release() {
	_ = w.lock.Unlock()
	_ = os.Remove(w.lock.Path())
}
