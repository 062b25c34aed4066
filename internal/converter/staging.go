package converter

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yuanying/epubmaker/internal/epub"
)

// dataDir is where staged content lives, relative to the OPF.
const dataDir = "data"

// fallbackSuffix is appended to a staged base name to form its wrapper name.
const fallbackSuffix = "-1"

// SourceAsset is one input file, in sorted enumeration order.
type SourceAsset struct {
	Index int    // 0-based position in the sorted source set
	Path  string // absolute or input-relative path of the original
	Media epub.MediaInfo
}

// StagedItem is a file placed under OEBPS/data.
type StagedItem struct {
	Name      string // e.g. "0001.jpg" or "0001-1.xhtml"
	Media     epub.MediaInfo
	Generated bool // synthesized fallback wrapper
}

// ID is the manifest identifier: the base name prefixed so it is a valid
// XML name.
func (s StagedItem) ID() string {
	return "i" + baseName(s.Name)
}

// Href is the item location relative to the package document.
func (s StagedItem) Href() string {
	return path.Join(dataDir, s.Name)
}

// stagedName returns the zero-padded sequential file name for a source.
func stagedName(index int, ext string) string {
	return fmt.Sprintf("%04d%s", index+1, ext)
}

func baseName(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// Stage returns the staged item for an asset.
func (a SourceAsset) Stage() StagedItem {
	return StagedItem{
		Name:  stagedName(a.Index, filepath.Ext(a.Path)),
		Media: a.Media,
	}
}

// EnumerateSources lists the regular files directly inside dir in
// lexicographic order, following symbolic links. Hidden files and extensions
// without a media mapping are skipped and do not consume an index.
func EnumerateSources(dir string, classifier *epub.Classifier, logger *slog.Logger) ([]SourceAsset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}

	var assets []SourceAsset
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		info, ok := classifier.ClassifyPath(name)
		if !ok {
			logger.Debug("skipping unrecognized source type", "file", name)
			continue
		}
		regular, err := isRegularSource(dir, entry)
		if err != nil {
			return nil, err
		}
		if !regular {
			continue
		}
		assets = append(assets, SourceAsset{
			Index: len(assets),
			Path:  filepath.Join(dir, name),
			Media: info,
		})
	}
	return assets, nil
}

// isRegularSource reports whether entry is a regular file, following a
// symbolic link to its target. A link whose target is missing is an error.
func isRegularSource(dir string, entry fs.DirEntry) (bool, error) {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type().IsRegular(), nil
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	if err != nil {
		return false, fmt.Errorf("failed to resolve source link %s: %w", entry.Name(), err)
	}
	return info.Mode().IsRegular(), nil
}

// resolveSourceRoot descends into dir while it holds nothing but a single
// subdirectory, as archives usually wrap their files in one folder.
func resolveSourceRoot(dir string) (string, error) {
	for {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", fmt.Errorf("failed to read source directory: %w", err)
		}
		var visible []os.DirEntry
		for _, e := range entries {
			if !strings.HasPrefix(e.Name(), ".") && e.Name() != "__MACOSX" {
				visible = append(visible, e)
			}
		}
		if len(visible) != 1 || !visible[0].IsDir() {
			return dir, nil
		}
		dir = filepath.Join(dir, visible[0].Name())
	}
}
