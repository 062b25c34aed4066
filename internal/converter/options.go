package converter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yuanying/epubmaker/internal/epub"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const defaultLanguage = "ja"

// Viewport is the bounding box adapted images must fit in.
// The zero value disables image adaptation.
type Viewport struct {
	Width  int
	Height int
}

// Enabled reports whether both dimensions are configured.
func (v Viewport) Enabled() bool {
	return v.Width > 0 && v.Height > 0
}

func (v Viewport) String() string {
	if !v.Enabled() {
		return ""
	}
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// ParseViewport parses "WIDTHxHEIGHT". An empty string yields the zero value.
func ParseViewport(s string) (Viewport, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Viewport{}, nil
	}
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return Viewport{}, fmt.Errorf("%w: size %q must be WIDTHxHEIGHT", ErrInvalidConfiguration, s)
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return Viewport{}, fmt.Errorf("%w: size %q must be two positive integers", ErrInvalidConfiguration, s)
	}
	return Viewport{Width: width, Height: height}, nil
}

// ConvertOptions holds options for the conversion pipeline.
type ConvertOptions struct {
	InputPath    string // directory or .zip archive of source files
	OutputPath   string
	Title        string
	Author       string
	Language     string
	Viewport     Viewport
	TextEncoding string // charset of plain-text sources; empty keeps bytes as-is
	Verify       bool   // reopen and check the written package

	// TempDir is the parent of the scratch workspace; empty means os.TempDir().
	TempDir string
	// Media overrides the extension table; nil selects epub.DefaultMediaTable.
	Media epub.MediaTable
	// Archiver packs and extracts archives; nil selects ZipArchiver.
	Archiver Archiver

	Logger *slog.Logger
}

// validate checks the options without touching the filesystem beyond a stat
// of the input. It fills defaults in place.
func (o *ConvertOptions) validate() error {
	if o.InputPath == "" {
		return fmt.Errorf("%w: no input specified", ErrInvalidConfiguration)
	}
	if o.OutputPath == "" {
		return fmt.Errorf("%w: no output path specified", ErrInvalidConfiguration)
	}
	if (o.Viewport.Width != 0 || o.Viewport.Height != 0) && !o.Viewport.Enabled() {
		return fmt.Errorf("%w: size %dx%d must be two positive integers", ErrInvalidConfiguration, o.Viewport.Width, o.Viewport.Height)
	}
	if _, err := o.textEncoding(); err != nil {
		return err
	}

	info, err := os.Stat(o.InputPath)
	if err != nil {
		return fmt.Errorf("%w: input %s: %v", ErrInvalidConfiguration, o.InputPath, err)
	}
	if !info.IsDir() && !IsZipPath(o.InputPath) {
		return fmt.Errorf("%w: input %s is not a zip file or a directory", ErrInvalidConfiguration, o.InputPath)
	}

	if o.Language == "" {
		o.Language = defaultLanguage
	}
	if o.Title == "" {
		o.Title = DefaultTitle(o.InputPath)
	}
	if o.Archiver == nil {
		o.Archiver = ZipArchiver{}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return nil
}

// textEncoding resolves TextEncoding. A nil encoding means no decoding.
func (o *ConvertOptions) textEncoding() (encoding.Encoding, error) {
	if o.TextEncoding == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(o.TextEncoding)
	if err != nil {
		return nil, fmt.Errorf("%w: text encoding %q: %v", ErrInvalidConfiguration, o.TextEncoding, err)
	}
	return enc, nil
}

// IsZipPath reports whether path names a zip archive by extension.
func IsZipPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}

// DefaultTitle derives a title from the input name, dropping a .zip suffix.
func DefaultTitle(input string) string {
	base := filepath.Base(filepath.Clean(input))
	if IsZipPath(base) {
		base = base[:len(base)-len(".zip")]
	}
	return base
}
