package converter

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestZipArchiver_Pack(t *testing.T) {
	stage := t.TempDir()
	writeFiles(t, stage, map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": "<container/>",
		"OEBPS/package.opf":      "<package/>",
		"OEBPS/toc.ncx":          "<ncx/>",
		"OEBPS/data/0001.png":    "png",
		"stray.txt":              "not packed",
	})
	dest := filepath.Join(t.TempDir(), "out.epub")

	if err := (ZipArchiver{}).Pack(stage, dest); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}

	zr, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatalf("zip.OpenReader() error = %v", err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	want := []string{
		"mimetype",
		"META-INF/container.xml",
		"OEBPS/data/0001.png",
		"OEBPS/package.opf",
		"OEBPS/toc.ncx",
	}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("entries = %v, want %v", names, want)
	}
	if zr.File[0].Method != zip.Store {
		t.Errorf("mimetype method = %d, want Store", zr.File[0].Method)
	}
	for _, f := range zr.File[1:] {
		if f.Method != zip.Deflate {
			t.Errorf("%s method = %d, want Deflate", f.Name, f.Method)
		}
	}
}

func TestZipArchiver_PackMissingMimetype(t *testing.T) {
	stage := t.TempDir()
	writeFiles(t, stage, map[string]string{"OEBPS/package.opf": "<package/>"})
	err := (ZipArchiver{}).Pack(stage, filepath.Join(t.TempDir(), "out.epub"))
	if !errors.Is(err, ErrArchiveTool) {
		t.Fatalf("Pack() error = %v, want ErrArchiveTool", err)
	}
}

func writeZip(t *testing.T, p string, files map[string]string, order []string) {
	t.Helper()
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
}

func TestZipArchiver_Extract(t *testing.T) {
	src := filepath.Join(t.TempDir(), "in.zip")
	files := map[string]string{
		"book/":         "",
		"book/0001.png": "png",
		"book/0002.txt": "text",
	}
	writeZip(t, src, files, []string{"book/", "book/0001.png", "book/0002.txt"})

	dir := t.TempDir()
	if err := (ZipArchiver{}).Extract(src, dir); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "book", "0002.txt"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "text" {
		t.Errorf("extracted content = %q, want %q", got, "text")
	}
}

func TestZipArchiver_ExtractRejectsTraversal(t *testing.T) {
	src := filepath.Join(t.TempDir(), "evil.zip")
	writeZip(t, src, map[string]string{"../evil.txt": "x"}, []string{"../evil.txt"})

	dir := t.TempDir()
	err := (ZipArchiver{}).Extract(src, dir)
	if !errors.Is(err, ErrArchiveTool) {
		t.Fatalf("Extract() error = %v, want ErrArchiveTool", err)
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(dir), "evil.txt")); statErr == nil {
		t.Error("entry escaped the extraction directory")
	}
}

func TestZipArchiver_ExtractNotZip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "fake.zip")
	if err := os.WriteFile(src, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := (ZipArchiver{}).Extract(src, t.TempDir()); !errors.Is(err, ErrArchiveTool) {
		t.Fatalf("Extract() error = %v, want ErrArchiveTool", err)
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.png", true},
		{"dir/a.png", true},
		{"..", false},
		{"../a.png", false},
		{"/etc/passwd", false},
		{".", false},
		{"", false},
		{"..a.png", true},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.path); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
