package converter

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuanying/epubmaker/internal/epub"
	"golang.org/x/text/encoding"
)

// fallbackStrategy is how a wrapper document presents its original.
type fallbackStrategy int

const (
	strategyNone fallbackStrategy = iota
	strategyEmbedImage
	strategyPreformatted
	strategyLink
)

// strategyFor maps a media category to its wrapper strategy. Markup and
// style types have no wrapper form.
func strategyFor(c epub.Category) fallbackStrategy {
	switch c {
	case epub.CategoryImage:
		return strategyEmbedImage
	case epub.CategoryText:
		return strategyPreformatted
	case epub.CategoryBinary:
		return strategyLink
	default:
		return strategyNone
	}
}

// Entry pairs a staged original with its optional wrapper.
type Entry struct {
	Original StagedItem
	Fallback *StagedItem
}

// ReadingMember is the member of the pair listed in the spine. Raw images
// are not reading-order documents, so their wrapper is listed; otherwise
// the original is, and the wrapper only completes the fallback chain.
func (e Entry) ReadingMember() StagedItem {
	if e.Fallback != nil && e.Original.Media.Category == epub.CategoryImage {
		return *e.Fallback
	}
	return e.Original
}

// FallbackResolver synthesizes XHTML wrappers for non-core items.
type FallbackResolver struct {
	Language string
	// TextEncoding decodes plain-text originals to UTF-8; nil embeds bytes as-is.
	TextEncoding encoding.Encoding
}

// Resolve returns the entry for item. For non-core types it also returns
// the wrapper document; for core types the wrapper is nil.
func (r *FallbackResolver) Resolve(item StagedItem, original []byte) (Entry, []byte, error) {
	entry := Entry{Original: item}
	if item.Media.Core {
		return entry, nil, nil
	}

	strategy := strategyFor(item.Media.Category)
	if strategy == strategyNone {
		return entry, nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedFallback, item.Media.MediaType, item.Name)
	}

	doc, err := r.render(item, strategy, original)
	if err != nil {
		return entry, nil, err
	}

	entry.Fallback = &StagedItem{
		Name: baseName(item.Name) + fallbackSuffix + ".xhtml",
		Media: epub.MediaInfo{
			MediaType: epub.MediaTypeXHTML,
			Category:  epub.CategoryMarkup,
			Core:      true,
		},
		Generated: true,
	}
	return entry, doc, nil
}

func (r *FallbackResolver) render(item StagedItem, strategy fallbackStrategy, original []byte) ([]byte, error) {
	base := baseName(item.Name)
	lang := html.EscapeString(r.Language)

	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN"` + "\n")
	b.WriteString(`   "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">` + "\n")
	fmt.Fprintf(&b, `<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="%s" lang="%s">`+"\n", lang, lang)
	b.WriteString("  <head>\n")
	fmt.Fprintf(&b, "    <title>%s</title>\n", html.EscapeString(base))
	b.WriteString(`    <meta http-equiv="Content-Type" content="text/html; charset=utf-8" />` + "\n")
	b.WriteString("  </head>\n")
	b.WriteString("  <body>\n")

	src := "./" + html.EscapeString(item.Name)
	switch strategy {
	case strategyEmbedImage:
		fmt.Fprintf(&b, "    <img src=\"%s\" alt=\"%s\" />\n", src, html.EscapeString(base))
	case strategyPreformatted:
		text, err := r.decodeText(original)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", item.Name, err)
		}
		b.WriteString("    <pre>")
		b.Write(escapeText(text))
		b.WriteString("</pre>\n")
	case strategyLink:
		fmt.Fprintf(&b, "    <p><a href=\"%s\">%s</a></p>\n", src, html.EscapeString(item.Name))
	}

	b.WriteString("  </body>\n")
	b.WriteString("</html>\n")
	return b.Bytes(), nil
}

func (r *FallbackResolver) decodeText(original []byte) ([]byte, error) {
	if r.TextEncoding == nil {
		return original, nil
	}
	return r.TextEncoding.NewDecoder().Bytes(original)
}

// textEscaper escapes only what would break the enclosing XML; every other
// byte of the original is kept.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(text []byte) []byte {
	return []byte(textEscaper.Replace(string(text)))
}
