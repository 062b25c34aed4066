package epub

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Content represents a parsed XHTML content file
type Content struct {
	ID        string            // Manifest ID
	Path      string            // File path
	Document  *goquery.Document // Parsed HTML document
	Title     string            // Text of <title>, trimmed
	ImageRefs []string          // Referenced image paths
	LinkRefs  []string          // Hyperlink targets inside the package
}

// LoadContent loads and parses an XHTML content file
// id: manifest item ID
// path: file path within EPUB (used for relative path resolution)
// content: XHTML file content
func LoadContent(id, filePath string, content []byte) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse XHTML: %w", err)
	}

	c := &Content{
		ID:        id,
		Path:      filePath,
		Document:  doc,
		Title:     strings.TrimSpace(doc.Find("title").First().Text()),
		ImageRefs: []string{},
		LinkRefs:  []string{},
	}

	baseDir := path.Dir(filePath)

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		if src, exists := s.Attr("src"); exists {
			c.ImageRefs = append(c.ImageRefs, resolvePath(baseDir, src))
		}
	})

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if isExternalRef(href) {
			return
		}
		target, _ := splitFragment(href)
		if target == "" {
			return
		}
		c.LinkRefs = append(c.LinkRefs, resolvePath(baseDir, target))
	})

	return c, nil
}

func isExternalRef(href string) bool {
	return strings.Contains(href, "://") || strings.HasPrefix(href, "mailto:")
}

// resolvePath resolves a relative path against a base directory
// baseDir: base directory (e.g., "text" for "text/chapter1.xhtml")
// relPath: relative path (e.g., "../images/photo.jpg")
// returns: resolved path (e.g., "images/photo.jpg")
func resolvePath(baseDir, relPath string) string {
	return path.Clean(path.Join(baseDir, relPath))
}
