package epub

import (
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"path"
	"strings"
	"time"
)

// Fixed names inside the package.
const (
	ContentDir    = "OEBPS"
	MetaDir       = "META-INF"
	OPFName       = "package.opf"
	NCXName       = "toc.ncx"
	NCXID         = "ncx"
	BookIDElement = "BookId"
)

// opfPackage represents the OPF XML structure
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	UniqueID string      `xml:"unique-identifier,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

// opfMetadata represents the metadata section
type opfMetadata struct {
	Title      []string        `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creator    []opfCreator    `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Language   []string        `xml:"http://purl.org/dc/elements/1.1/ language"`
	Identifier []opfIdentifier `xml:"http://purl.org/dc/elements/1.1/ identifier"`
	Meta       []opfMeta       `xml:"meta"`
}

// opfCreator represents a creator element
type opfCreator struct {
	Name string `xml:",chardata"`
	Role string `xml:"http://www.idpf.org/2007/opf role,attr"`
	ID   string `xml:"id,attr"`
}

// opfIdentifier represents an identifier element
type opfIdentifier struct {
	Value string `xml:",chardata"`
	ID    string `xml:"id,attr"`
}

// opfMeta represents a meta element (EPUB 2.0 and 3.0)
type opfMeta struct {
	Content  string `xml:"content,attr"` // EPUB 2.0: attribute value
	Value    string `xml:",chardata"`    // EPUB 3.0: element text content
	Property string `xml:"property,attr"`
	Refines  string `xml:"refines,attr"`
}

// opfManifest represents the manifest section
type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

// opfManifestItem represents an item in the manifest
type opfManifestItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
	Fallback  string `xml:"fallback,attr"`
}

// opfSpine represents the spine section
type opfSpine struct {
	Toc                      string       `xml:"toc,attr"`
	PageProgressionDirection string       `xml:"page-progression-direction,attr"`
	ItemRefs                 []opfItemRef `xml:"itemref"`
}

// opfItemRef represents an itemref in the spine
type opfItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// ParseOPF parses an OPF file content and returns the OPF structure
// opfDir is the directory containing the OPF file (e.g., "OEBPS/")
func ParseOPF(content []byte, opfDir string) (*OPF, error) {
	var pkg opfPackage
	if err := xml.Unmarshal(content, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse OPF XML: %w", err)
	}

	opf := &OPF{
		Manifest:                 make(map[string]ManifestItem),
		PageProgressionDirection: pkg.Spine.PageProgressionDirection,
	}

	opf.Metadata = parseMetadata(&pkg.Metadata, pkg.UniqueID)

	for _, item := range pkg.Manifest.Items {
		if _, dup := opf.Manifest[item.ID]; dup {
			return nil, fmt.Errorf("duplicate manifest id %q", item.ID)
		}
		opf.Manifest[item.ID] = ManifestItem{
			ID:        item.ID,
			Href:      joinPath(opfDir, item.Href),
			MediaType: item.MediaType,
			Fallback:  item.Fallback,
		}
		opf.ManifestOrder = append(opf.ManifestOrder, item.ID)
	}

	for _, itemRef := range pkg.Spine.ItemRefs {
		opf.Spine = append(opf.Spine, SpineItem{
			IDRef:  itemRef.IDRef,
			Linear: itemRef.Linear != "no",
		})
	}

	// Resolve NCX path from toc attribute
	if pkg.Spine.Toc != "" {
		if ncxItem, ok := opf.Manifest[pkg.Spine.Toc]; ok {
			opf.NCXPath = ncxItem.Href
			opf.NCXID = ncxItem.ID
		}
	}

	return opf, nil
}

// parseMetadata parses the metadata section
func parseMetadata(meta *opfMetadata, uniqueID string) Metadata {
	var md Metadata

	if len(meta.Title) > 0 {
		md.Title = meta.Title[0]
	}
	if len(meta.Language) > 0 {
		md.Language = meta.Language[0]
	}

	// Identifier (find the one marked as unique-identifier)
	for _, id := range meta.Identifier {
		if id.ID == uniqueID {
			md.Identifier = id.Value
			break
		}
	}
	if md.Identifier == "" && len(meta.Identifier) > 0 {
		md.Identifier = meta.Identifier[0].Value
	}

	md.Author = findAuthor(meta)

	for _, m := range meta.Meta {
		if m.Property == "dcterms:modified" {
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(m.Value)); err == nil {
				md.Modified = t
			}
		}
	}

	return md
}

// findAuthor returns the first creator whose role is "aut", either from the
// EPUB 2.0 opf:role attribute or an EPUB 3.0 refining meta element. A
// creator with no role at all is taken when no explicit author exists.
func findAuthor(meta *opfMetadata) string {
	roles := make(map[string]string)
	for _, m := range meta.Meta {
		if m.Property == "role" && m.Refines != "" {
			role := m.Value
			if role == "" {
				role = m.Content
			}
			roles[m.Refines] = strings.TrimSpace(role)
		}
	}

	fallback := ""
	for _, c := range meta.Creator {
		role := c.Role
		if role == "" && c.ID != "" {
			role = roles["#"+c.ID]
		}
		if role == "aut" {
			return c.Name
		}
		if role == "" && fallback == "" {
			fallback = c.Name
		}
	}
	return fallback
}

// joinPath joins OPF directory with a relative path
func joinPath(base, rel string) string {
	if base == "" {
		return rel
	}
	return path.Join(base, rel)
}

// WriteOPF renders the package document. Item hrefs are relative to the OPF
// directory. The NCX item is always declared and referenced by the spine.
func WriteOPF(w io.Writer, md Metadata, items []ManifestItem, spine []SpineItem, direction string) error {
	var b strings.Builder
	lang := md.Language

	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	fmt.Fprintf(&b, `<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="%s" xml:lang="%s">`+"\n",
		BookIDElement, html.EscapeString(lang))
	b.WriteString(`  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">` + "\n")
	fmt.Fprintf(&b, "    <dc:identifier id=\"%s\">%s</dc:identifier>\n", BookIDElement, html.EscapeString(md.Identifier))
	fmt.Fprintf(&b, "    <dc:title>%s</dc:title>\n", html.EscapeString(md.Title))
	if md.Author != "" {
		fmt.Fprintf(&b, "    <dc:creator id=\"creator\">%s</dc:creator>\n", html.EscapeString(md.Author))
		b.WriteString(`    <meta refines="#creator" property="role" scheme="marc:relators">aut</meta>` + "\n")
	}
	fmt.Fprintf(&b, "    <dc:language>%s</dc:language>\n", html.EscapeString(lang))
	if !md.Modified.IsZero() {
		fmt.Fprintf(&b, "    <meta property=\"dcterms:modified\">%s</meta>\n", md.Modified.UTC().Format("2006-01-02T15:04:05Z"))
	}
	b.WriteString("  </metadata>\n")

	b.WriteString("  <manifest>\n")
	fmt.Fprintf(&b, "    <item id=\"%s\" href=\"%s\" media-type=\"%s\" />\n", NCXID, NCXName, MediaTypeNCX)
	for _, item := range items {
		fmt.Fprintf(&b, `    <item id="%s" href="%s" media-type="%s"`,
			html.EscapeString(item.ID), html.EscapeString(item.Href), html.EscapeString(item.MediaType))
		if item.Fallback != "" {
			fmt.Fprintf(&b, ` fallback="%s"`, html.EscapeString(item.Fallback))
		}
		b.WriteString(" />\n")
	}
	b.WriteString("  </manifest>\n")

	fmt.Fprintf(&b, "  <spine toc=\"%s\"", NCXID)
	if direction != "" {
		fmt.Fprintf(&b, " page-progression-direction=\"%s\"", html.EscapeString(direction))
	}
	b.WriteString(">\n")
	for _, ref := range spine {
		fmt.Fprintf(&b, "    <itemref idref=\"%s\"", html.EscapeString(ref.IDRef))
		if !ref.Linear {
			b.WriteString(` linear="no"`)
		}
		b.WriteString(" />\n")
	}
	b.WriteString("  </spine>\n")
	b.WriteString("</package>\n")

	_, err := io.WriteString(w, b.String())
	return err
}
