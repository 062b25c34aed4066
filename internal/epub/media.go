package epub

import (
	"path/filepath"
	"strings"
)

// Media types referenced by the package documents.
const (
	MediaTypeXHTML = "application/xhtml+xml"
	MediaTypeCSS   = "text/css"
	MediaTypeNCX   = "application/x-dtbncx+xml"
	MediaTypeOPF   = "application/oebps-package+xml"
	MediaTypeJPEG  = "image/jpeg"
	EPUBMimetype   = "application/epub+zip"
)

// Category is the general kind of a media type. It selects the fallback
// strategy for types a reading system is not required to render.
type Category int

const (
	CategoryImage Category = iota + 1
	CategoryText
	CategoryMarkup
	CategoryStyle
	CategoryBinary
)

func (c Category) String() string {
	switch c {
	case CategoryImage:
		return "image"
	case CategoryText:
		return "text"
	case CategoryMarkup:
		return "markup"
	case CategoryStyle:
		return "style"
	case CategoryBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// MediaInfo describes how one file extension maps into the package.
type MediaInfo struct {
	MediaType string
	Category  Category
	Core      bool // OPS core media type, renderable without a fallback
}

// MediaTable maps lower-case extensions (with leading dot) to media info.
type MediaTable map[string]MediaInfo

// DefaultMediaTable returns the OPS core media types plus the extra types
// the converter knows how to wrap.
func DefaultMediaTable() MediaTable {
	return MediaTable{
		".gif":   {MediaType: "image/gif", Category: CategoryImage, Core: true},
		".jpg":   {MediaType: MediaTypeJPEG, Category: CategoryImage, Core: true},
		".jpeg":  {MediaType: MediaTypeJPEG, Category: CategoryImage, Core: true},
		".png":   {MediaType: "image/png", Category: CategoryImage, Core: true},
		".svg":   {MediaType: "image/svg+xml", Category: CategoryImage, Core: true},
		".htm":   {MediaType: MediaTypeXHTML, Category: CategoryMarkup, Core: true},
		".html":  {MediaType: MediaTypeXHTML, Category: CategoryMarkup, Core: true},
		".xhtml": {MediaType: MediaTypeXHTML, Category: CategoryMarkup, Core: true},
		".dtb":   {MediaType: "application/x-dtbook+xml", Category: CategoryMarkup, Core: true},
		".css":   {MediaType: MediaTypeCSS, Category: CategoryStyle, Core: true},
		".xml":   {MediaType: "application/xml", Category: CategoryMarkup, Core: true},
		".tif":   {MediaType: "image/tiff", Category: CategoryImage},
		".tiff":  {MediaType: "image/tiff", Category: CategoryImage},
		".txt":   {MediaType: "text/plain", Category: CategoryText},
		".pdf":   {MediaType: "application/pdf", Category: CategoryBinary},
	}
}

// Classifier resolves file extensions against an immutable media table.
type Classifier struct {
	table MediaTable
}

// NewClassifier copies table so later changes by the caller have no effect.
// A nil table selects DefaultMediaTable.
func NewClassifier(table MediaTable) *Classifier {
	if table == nil {
		table = DefaultMediaTable()
	}
	owned := make(MediaTable, len(table))
	for ext, info := range table {
		owned[strings.ToLower(ext)] = info
	}
	return &Classifier{table: owned}
}

// Classify returns the media info for an extension such as ".PNG" or "png".
// ok is false for extensions with no mapping.
func (c *Classifier) Classify(ext string) (MediaInfo, bool) {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	info, ok := c.table[ext]
	return info, ok
}

// ClassifyPath classifies a file by its extension.
func (c *Classifier) ClassifyPath(path string) (MediaInfo, bool) {
	return c.Classify(filepath.Ext(path))
}
