package converter

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/yuanying/epubmaker/internal/epub"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnumerateSources(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"b.txt":          "text",
		"a.png":          "png",
		"c.mp3":          "unknown",
		".hidden.png":    "hidden",
		"d.JPG":          "jpeg",
		"sub/inside.png": "nested",
	})

	assets, err := EnumerateSources(dir, epub.NewClassifier(nil), discardLogger())
	if err != nil {
		t.Fatalf("EnumerateSources() error = %v", err)
	}

	want := []struct {
		base   string
		index  int
		staged string
	}{
		{"a.png", 0, "0001.png"},
		{"b.txt", 1, "0002.txt"},
		{"d.JPG", 2, "0003.JPG"},
	}
	if len(assets) != len(want) {
		t.Fatalf("got %d assets, want %d: %+v", len(assets), len(want), assets)
	}
	for i, w := range want {
		a := assets[i]
		if filepath.Base(a.Path) != w.base || a.Index != w.index {
			t.Errorf("assets[%d] = %s #%d, want %s #%d", i, filepath.Base(a.Path), a.Index, w.base, w.index)
		}
		if got := a.Stage().Name; got != w.staged {
			t.Errorf("assets[%d].Stage().Name = %s, want %s", i, got, w.staged)
		}
	}
	if assets[2].Media.MediaType != epub.MediaTypeJPEG {
		t.Errorf("uppercase extension classified as %q", assets[2].Media.MediaType)
	}
}

func TestEnumerateSources_MissingDir(t *testing.T) {
	if _, err := EnumerateSources(filepath.Join(t.TempDir(), "nope"), epub.NewClassifier(nil), discardLogger()); err == nil {
		t.Fatal("EnumerateSources() should fail for a missing directory")
	}
}

func TestStagedItem_Names(t *testing.T) {
	tests := []struct {
		index int
		ext   string
		name  string
		id    string
		href  string
	}{
		{0, ".jpg", "0001.jpg", "i0001", "data/0001.jpg"},
		{9, ".png", "0010.png", "i0010", "data/0010.png"},
		{9998, ".txt", "9999.txt", "i9999", "data/9999.txt"},
		{9999, ".txt", "10000.txt", "i10000", "data/10000.txt"},
	}
	for _, tt := range tests {
		item := StagedItem{Name: stagedName(tt.index, tt.ext)}
		if item.Name != tt.name || item.ID() != tt.id || item.Href() != tt.href {
			t.Errorf("index %d: got %s %s %s, want %s %s %s", tt.index, item.Name, item.ID(), item.Href(), tt.name, tt.id, tt.href)
		}
	}
}

func TestResolveSourceRoot(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"book/pages/0001.png":  "png",
		"book/pages/0002.png":  "png",
		"__MACOSX/._book":      "junk",
		".DS_Store":            "junk",
		"book/pages/.DS_Store": "junk",
	})

	got, err := resolveSourceRoot(dir)
	if err != nil {
		t.Fatalf("resolveSourceRoot() error = %v", err)
	}
	if want := filepath.Join(dir, "book", "pages"); got != want {
		t.Errorf("resolveSourceRoot() = %s, want %s", got, want)
	}
}

func TestResolveSourceRoot_FilesAtTop(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"0001.png": "png", "extra/0002.png": "png"})

	got, err := resolveSourceRoot(dir)
	if err != nil {
		t.Fatalf("resolveSourceRoot() error = %v", err)
	}
	if got != dir {
		t.Errorf("resolveSourceRoot() = %s, want %s", got, dir)
	}
}

func TestEnumerateSources_FollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.png": "png"})
	writeFiles(t, outside, map[string]string{"real.png": "linked", "pages/c.png": "dir"})
	if err := os.Symlink(filepath.Join(outside, "real.png"), filepath.Join(dir, "b.png")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "pages"), filepath.Join(dir, "c.png")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	assets, err := EnumerateSources(dir, epub.NewClassifier(nil), discardLogger())
	if err != nil {
		t.Fatalf("EnumerateSources() error = %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("got %d assets, want 2 (link to a directory skipped): %+v", len(assets), assets)
	}
	if filepath.Base(assets[1].Path) != "b.png" || assets[1].Stage().Name != "0002.png" {
		t.Errorf("assets[1] = %s staged as %s, want b.png as 0002.png", filepath.Base(assets[1].Path), assets[1].Stage().Name)
	}
}

func TestEnumerateSources_DanglingSymlink(t *testing.T) {
	dir := t.TempDir()
	if err := os.Symlink(filepath.Join(dir, "missing.png"), filepath.Join(dir, "a.png")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(dir, "missing.mp3"), filepath.Join(dir, "b.mp3")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	if _, err := EnumerateSources(dir, epub.NewClassifier(nil), discardLogger()); err == nil {
		t.Fatal("EnumerateSources() should fail when a page links to a missing file")
	}

	if err := os.Remove(filepath.Join(dir, "a.png")); err != nil {
		t.Fatal(err)
	}
	assets, err := EnumerateSources(dir, epub.NewClassifier(nil), discardLogger())
	if err != nil || len(assets) != 0 {
		t.Fatalf("EnumerateSources() = %+v, %v; unrecognized dangling link should be skipped", assets, err)
	}
}
