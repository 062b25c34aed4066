package converter

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/yuanying/epubmaker/internal/epub"
)

// Result describes a written package.
type Result struct {
	OutputPath string
	Size       int64
	Metadata   epub.Metadata
	Entries    []Entry
	Manifest   Manifest
	NavPoints  []epub.NavPoint
}

// Pipeline orchestrates the source files to EPUB conversion.
type Pipeline struct {
	Options ConvertOptions

	classifier *epub.Classifier
	adapter    *ImageAdapter
	resolver   *FallbackResolver
	logger     *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewPipeline creates a new conversion pipeline.
func NewPipeline(opts ConvertOptions) *Pipeline {
	return &Pipeline{
		Options: opts,
		adapter: NewImageAdapter(),
		now:     time.Now,
		newID:   func() string { return "urn:uuid:" + uuid.NewString() },
	}
}

// Convert validates the options, stages every source file in a scratch
// workspace, writes the package documents and packs the tree into the
// output path. The previous archive at the output path is removed once the
// workspace is held, so any later failure leaves no output archive behind.
func (p *Pipeline) Convert() (*Result, error) {
	if err := p.Options.validate(); err != nil {
		return nil, err
	}
	opts := p.Options
	p.logger = opts.Logger
	p.classifier = epub.NewClassifier(opts.Media)
	enc, _ := opts.textEncoding()
	p.resolver = &FallbackResolver{Language: opts.Language, TextEncoding: enc}

	ws, err := OpenWorkspace(opts.TempDir, "epubmaker-"+DefaultTitle(opts.InputPath))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			p.logger.Warn("failed to clean up workspace", "dir", ws.Dir, "error", cerr)
		}
	}()

	if err := removeIfExists(opts.OutputPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing output: %w", err)
	}

	srcDir, err := p.prepareSources(ws)
	if err != nil {
		return nil, err
	}

	sources, err := EnumerateSources(srcDir, p.classifier, p.logger)
	if err != nil {
		return nil, err
	}
	p.logger.Info("sources enumerated", "input", opts.InputPath, "count", len(sources))

	stageDir := ws.Path("stage")
	dataPath := filepath.Join(stageDir, epub.ContentDir, dataDir)
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	entries := make([]Entry, 0, len(sources))
	for _, src := range sources {
		entry, err := p.stage(src, dataPath)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	md := epub.Metadata{
		Identifier: p.newID(),
		Title:      opts.Title,
		Author:     opts.Author,
		Language:   opts.Language,
		Modified:   p.now().UTC(),
	}
	manifest := BuildManifest(entries)
	toc := NewTOCGenerator(manifest.Reading, nil)

	if err := writeMeta(stageDir, md, manifest, toc); err != nil {
		return nil, err
	}

	size, err := p.pack(stageDir)
	if err != nil {
		return nil, err
	}

	p.logger.Info("package written",
		"output", opts.OutputPath,
		"size", humanize.Bytes(uint64(size)),
		"items", len(manifest.Items),
		"spine", len(manifest.Spine),
	)

	return &Result{
		OutputPath: opts.OutputPath,
		Size:       size,
		Metadata:   md,
		Entries:    entries,
		Manifest:   manifest,
		NavPoints:  toc.NavPoints(),
	}, nil
}

// prepareSources returns the directory holding the source files, extracting
// a zip input into the workspace first.
func (p *Pipeline) prepareSources(ws *Workspace) (string, error) {
	info, err := os.Stat(p.Options.InputPath)
	if err != nil {
		return "", fmt.Errorf("%w: input %s: %v", ErrInvalidConfiguration, p.Options.InputPath, err)
	}
	if info.IsDir() {
		return p.Options.InputPath, nil
	}

	dir := ws.Path("source")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create source directory: %w", err)
	}
	if err := p.Options.Archiver.Extract(p.Options.InputPath, dir); err != nil {
		return "", err
	}
	p.logger.Debug("archive extracted", "archive", p.Options.InputPath, "dir", dir)
	return resolveSourceRoot(dir)
}

// stage copies one source into the data directory, adapting JPEG images
// when a viewport is configured, and writes its fallback wrapper if any.
func (p *Pipeline) stage(src SourceAsset, dataPath string) (Entry, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read source %s: %w", src.Path, err)
	}

	item := src.Stage()
	vp := p.Options.Viewport
	if vp.Enabled() && item.Media.MediaType == epub.MediaTypeJPEG {
		adapted, err := p.adapter.Adapt(data, vp.Width, vp.Height)
		if err != nil {
			return Entry{}, fmt.Errorf("%s: %w", src.Path, err)
		}
		p.logger.Debug("adapted",
			"file", item.Name,
			"from", fmt.Sprintf("%dx%d", adapted.OriginalWidth, adapted.OriginalHeight),
			"to", fmt.Sprintf("%dx%d", adapted.Width, adapted.Height),
			"cropped", adapted.Cropped,
		)
		data = adapted.Data
	}

	if err := os.WriteFile(filepath.Join(dataPath, item.Name), data, 0o644); err != nil {
		return Entry{}, fmt.Errorf("failed to stage %s: %w", item.Name, err)
	}
	p.logger.Debug("staged", "source", filepath.Base(src.Path), "file", item.Name, "type", item.Media.MediaType)

	entry, wrapper, err := p.resolver.Resolve(item, data)
	if err != nil {
		return Entry{}, err
	}
	if entry.Fallback != nil {
		if err := os.WriteFile(filepath.Join(dataPath, entry.Fallback.Name), wrapper, 0o644); err != nil {
			return Entry{}, fmt.Errorf("failed to write fallback %s: %w", entry.Fallback.Name, err)
		}
		p.logger.Debug("fallback", "file", item.Name, "wrapper", entry.Fallback.Name, "category", item.Media.Category.String())
	}
	return entry, nil
}

// writeMeta writes mimetype, container.xml, the package document and the
// navigation document into the staged tree.
func writeMeta(stageDir string, md epub.Metadata, manifest Manifest, toc *TOCGenerator) error {
	if err := os.WriteFile(filepath.Join(stageDir, "mimetype"), []byte(epub.EPUBMimetype), 0o644); err != nil {
		return fmt.Errorf("failed to write mimetype: %w", err)
	}

	files := []struct {
		path  string
		write func(*bytes.Buffer) error
	}{
		{epub.ContainerPath, func(b *bytes.Buffer) error { return epub.WriteContainer(b, epub.OPFPath) }},
		{epub.OPFPath, func(b *bytes.Buffer) error { return manifest.Write(b, md) }},
		{filepath.Join(epub.ContentDir, epub.NCXName), func(b *bytes.Buffer) error { return toc.Write(b, md) }},
	}
	for _, f := range files {
		var buf bytes.Buffer
		if err := f.write(&buf); err != nil {
			return fmt.Errorf("failed to render %s: %w", f.path, err)
		}
		target := filepath.Join(stageDir, filepath.FromSlash(f.path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.path, err)
		}
	}
	return nil
}

// pack writes a freshly packed archive to the output path and, when enabled,
// verifies it. A failed pack or verification removes the output.
func (p *Pipeline) pack(stageDir string) (int64, error) {
	out := p.Options.OutputPath
	if err := p.Options.Archiver.Pack(stageDir, out); err != nil {
		_ = removeIfExists(out)
		return 0, err
	}

	if p.Options.Verify {
		if _, err := epub.Verify(out); err != nil {
			_ = removeIfExists(out)
			return 0, fmt.Errorf("package verification failed: %w", err)
		}
		p.logger.Debug("package verified", "output", out)
	}

	info, err := os.Stat(out)
	if err != nil {
		_ = removeIfExists(out)
		return 0, fmt.Errorf("%w: output missing after pack: %v", ErrArchiveTool, err)
	}
	return info.Size(), nil
}
