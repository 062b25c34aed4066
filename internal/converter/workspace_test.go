package converter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenWorkspace(t *testing.T) {
	parent := t.TempDir()
	ws, err := OpenWorkspace(parent, "epubmaker-book")
	if err != nil {
		t.Fatalf("OpenWorkspace() error = %v", err)
	}

	if ws.Dir != filepath.Join(parent, "epubmaker-book") {
		t.Errorf("Dir = %s", ws.Dir)
	}
	if info, err := os.Stat(ws.Dir); err != nil || !info.IsDir() {
		t.Fatalf("workspace directory not created: %v", err)
	}
	if got := ws.Path("stage", "mimetype"); got != filepath.Join(ws.Dir, "stage", "mimetype") {
		t.Errorf("Path() = %s", got)
	}

	if err := ws.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Errorf("workspace still present after Close: %v", err)
	}
	if _, err := os.Stat(ws.Dir + ".lock"); !os.IsNotExist(err) {
		t.Errorf("lock file still present after Close: %v", err)
	}
}

func TestOpenWorkspace_Busy(t *testing.T) {
	parent := t.TempDir()
	first, err := OpenWorkspace(parent, "epubmaker-book")
	if err != nil {
		t.Fatalf("OpenWorkspace() error = %v", err)
	}
	defer first.Close()

	if _, err := OpenWorkspace(parent, "epubmaker-book"); !errors.Is(err, ErrWorkspaceBusy) {
		t.Fatalf("second OpenWorkspace() error = %v, want ErrWorkspaceBusy", err)
	}

	other, err := OpenWorkspace(parent, "epubmaker-other")
	if err != nil {
		t.Fatalf("OpenWorkspace() for another input error = %v", err)
	}
	other.Close()
}

func TestOpenWorkspace_ClearsStaleDirectory(t *testing.T) {
	parent := t.TempDir()
	stale := filepath.Join(parent, "epubmaker-book", "stage", "leftover.txt")
	writeFiles(t, parent, map[string]string{"epubmaker-book/stage/leftover.txt": "old"})

	ws, err := OpenWorkspace(parent, "epubmaker-book")
	if err != nil {
		t.Fatalf("OpenWorkspace() error = %v", err)
	}
	defer ws.Close()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale file survived: %v", err)
	}
}
