package converter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseViewport(t *testing.T) {
	tests := []struct {
		in      string
		want    Viewport
		wantErr bool
	}{
		{in: "", want: Viewport{}},
		{in: "600x800", want: Viewport{Width: 600, Height: 800}},
		{in: " 1072X1448 ", want: Viewport{Width: 1072, Height: 1448}},
		{in: "600", wantErr: true},
		{in: "0x800", wantErr: true},
		{in: "600x-1", wantErr: true},
		{in: "axb", wantErr: true},
		{in: "600x800x2", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseViewport(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfiguration) {
					t.Fatalf("ParseViewport(%q) error = %v, want ErrInvalidConfiguration", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseViewport(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseViewport(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestViewport_String(t *testing.T) {
	if s := (Viewport{Width: 600, Height: 800}).String(); s != "600x800" {
		t.Errorf("String() = %q", s)
	}
	if s := (Viewport{}).String(); s != "" {
		t.Errorf("zero String() = %q, want empty", s)
	}
}

func TestConvertOptions_Validate(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(t.TempDir(), "book.zip")
	writeZip(t, zipPath, map[string]string{"a.png": "png"}, []string{"a.png"})
	textFile := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(textFile, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "out.epub")

	tests := []struct {
		name    string
		opts    ConvertOptions
		wantErr bool
	}{
		{name: "directory", opts: ConvertOptions{InputPath: dir, OutputPath: out}},
		{name: "zip", opts: ConvertOptions{InputPath: zipPath, OutputPath: out}},
		{name: "no input", opts: ConvertOptions{OutputPath: out}, wantErr: true},
		{name: "no output", opts: ConvertOptions{InputPath: dir}, wantErr: true},
		{name: "missing input", opts: ConvertOptions{InputPath: filepath.Join(dir, "nope"), OutputPath: out}, wantErr: true},
		{name: "plain file", opts: ConvertOptions{InputPath: textFile, OutputPath: out}, wantErr: true},
		{name: "half viewport", opts: ConvertOptions{InputPath: dir, OutputPath: out, Viewport: Viewport{Width: 600}}, wantErr: true},
		{name: "unknown encoding", opts: ConvertOptions{InputPath: dir, OutputPath: out, TextEncoding: "klingon"}, wantErr: true},
		{name: "known encoding", opts: ConvertOptions{InputPath: dir, OutputPath: out, TextEncoding: "Shift_JIS"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfiguration) {
					t.Fatalf("validate() error = %v, want ErrInvalidConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("validate() error = %v", err)
			}
		})
	}
}

func TestConvertOptions_ValidateDefaults(t *testing.T) {
	opts := ConvertOptions{InputPath: filepath.Join(t.TempDir(), "My Book.zip"), OutputPath: "out.epub"}
	writeZip(t, opts.InputPath, map[string]string{"a.png": "png"}, []string{"a.png"})

	if err := opts.validate(); err != nil {
		t.Fatalf("validate() error = %v", err)
	}
	if opts.Language != "ja" {
		t.Errorf("Language = %q, want ja", opts.Language)
	}
	if opts.Title != "My Book" {
		t.Errorf("Title = %q, want %q", opts.Title, "My Book")
	}
	if _, ok := opts.Archiver.(ZipArchiver); !ok {
		t.Errorf("Archiver = %T, want ZipArchiver", opts.Archiver)
	}
	if opts.Logger == nil {
		t.Error("Logger not defaulted")
	}
}

func TestDefaultTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/tmp/scans/book", "book"},
		{"/tmp/scans/book/", "book"},
		{"comic.ZIP", "comic"},
		{"vol.1.zip", "vol.1"},
	}
	for _, tt := range tests {
		if got := DefaultTitle(tt.in); got != tt.want {
			t.Errorf("DefaultTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
