package converter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yuanying/epubmaker/internal/epub"
)

// TitleFunc returns a human-readable title for a spine member, or "" when
// none is known.
type TitleFunc func(item StagedItem) string

// TOCGenerator builds the navigation map from the reading order.
type TOCGenerator struct {
	reading []StagedItem
	titles  TitleFunc
}

// NewTOCGenerator creates a TOCGenerator over spine members in spine order.
// titles may be nil.
func NewTOCGenerator(reading []StagedItem, titles TitleFunc) *TOCGenerator {
	return &TOCGenerator{reading: reading, titles: titles}
}

// NavPoints returns one navigation point per spine member, in spine order,
// with playOrder counting from 1.
func (g *TOCGenerator) NavPoints() []epub.NavPoint {
	points := make([]epub.NavPoint, 0, len(g.reading))
	for i, item := range g.reading {
		points = append(points, epub.NavPoint{
			ID:          item.ID(),
			PlayOrder:   i + 1,
			Label:       g.label(item),
			ContentPath: item.Href(),
		})
	}
	return points
}

// Write renders the NCX document. md.Identifier must be the identifier
// written to the package document.
func (g *TOCGenerator) Write(w io.Writer, md epub.Metadata) error {
	return epub.WriteNCX(w, md.Identifier, md.Title, md.Language, g.NavPoints())
}

func (g *TOCGenerator) label(item StagedItem) string {
	if g.titles != nil {
		if title := strings.TrimSpace(g.titles(item)); title != "" {
			return title
		}
	}
	return pageLabel(item.Name)
}

// pageLabel derives "Page N" from a staged name such as "0003.jpg" or
// "0003-1.xhtml". Names without a leading number are returned as base names.
func pageLabel(name string) string {
	base := strings.TrimSuffix(baseName(name), fallbackSuffix)
	end := 0
	for end < len(base) && base[end] >= '0' && base[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(base[:end])
	if err != nil {
		return base
	}
	return fmt.Sprintf("Page %d", n)
}
