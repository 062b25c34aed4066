package epub

import (
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"strings"
)

// NCX represents the parsed navigation control structure.
type NCX struct {
	UID       string
	Depth     int
	DocTitle  string
	NavPoints []NavPoint
}

// NavPoint represents a single navigation point in the table of contents.
type NavPoint struct {
	ID          string
	PlayOrder   int
	Label       string
	ContentPath string // fragment-free; absolute within the package when parsed, relative to the NCX when written
	Fragment    string // fragment identifier (without #)
}

type ncxDocument struct {
	XMLName  xml.Name `xml:"ncx"`
	Head     ncxHead  `xml:"head"`
	DocTitle struct {
		Text string `xml:"text"`
	} `xml:"docTitle"`
	NavMap struct {
		NavPoints []ncxNavPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type ncxHead struct {
	Meta []struct {
		Name    string `xml:"name,attr"`
		Content string `xml:"content,attr"`
	} `xml:"meta"`
}

type ncxNavPoint struct {
	ID        string `xml:"id,attr"`
	PlayOrder int    `xml:"playOrder,attr"`
	NavLabel  struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

// ParseNCX parses an NCX document. ncxDir is the directory holding the NCX
// file inside the package; content paths are resolved against it. Nested
// navigation points are flattened in document order.
func ParseNCX(data []byte, ncxDir string) (*NCX, error) {
	var doc ncxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse NCX XML: %w", err)
	}

	ncx := &NCX{DocTitle: strings.TrimSpace(doc.DocTitle.Text)}
	for _, m := range doc.Head.Meta {
		switch m.Name {
		case "dtb:uid":
			ncx.UID = m.Content
		case "dtb:depth":
			fmt.Sscanf(m.Content, "%d", &ncx.Depth)
		}
	}

	var walk func(points []ncxNavPoint)
	walk = func(points []ncxNavPoint) {
		for _, p := range points {
			contentPath, fragment := splitFragment(p.Content.Src)
			if contentPath != "" {
				contentPath = joinPath(ncxDir, contentPath)
			}
			ncx.NavPoints = append(ncx.NavPoints, NavPoint{
				ID:          p.ID,
				PlayOrder:   p.PlayOrder,
				Label:       strings.TrimSpace(p.NavLabel.Text),
				ContentPath: contentPath,
				Fragment:    fragment,
			})
			walk(p.Children)
		}
	}
	walk(doc.NavMap.NavPoints)

	return ncx, nil
}

// WriteNCX renders the navigation document. uid must be the package
// identifier; reading systems reject a mismatch.
func WriteNCX(w io.Writer, uid, title, lang string, points []NavPoint) error {
	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<!DOCTYPE ncx PUBLIC "-//NISO//DTD ncx 2005-1//EN" "http://www.daisy.org/z3986/2005/ncx-2005-1.dtd">` + "\n")
	fmt.Fprintf(&b, `<ncx version="2005-1" xmlns="http://www.daisy.org/z3986/2005/ncx/" xml:lang="%s">`+"\n", html.EscapeString(lang))
	b.WriteString("<head>\n")
	fmt.Fprintf(&b, "<meta name=\"dtb:uid\" content=\"%s\"/>\n", html.EscapeString(uid))
	b.WriteString(`<meta name="dtb:depth" content="1"/>` + "\n")
	b.WriteString(`<meta name="dtb:totalPageCount" content="0"/>` + "\n")
	b.WriteString(`<meta name="dtb:maxPageNumber" content="0"/>` + "\n")
	b.WriteString("</head>\n\n")
	fmt.Fprintf(&b, "<docTitle><text>%s</text></docTitle>\n\n", html.EscapeString(title))

	b.WriteString("<navMap>\n")
	for _, p := range points {
		src := p.ContentPath
		if p.Fragment != "" {
			src += "#" + p.Fragment
		}
		fmt.Fprintf(&b, "  <navPoint id=\"%s\" playOrder=\"%d\">\n", html.EscapeString(p.ID), p.PlayOrder)
		fmt.Fprintf(&b, "    <navLabel><text>%s</text></navLabel>\n", html.EscapeString(p.Label))
		fmt.Fprintf(&b, "    <content src=\"%s\" />\n", html.EscapeString(src))
		b.WriteString("  </navPoint>\n")
	}
	b.WriteString("</navMap>\n")
	b.WriteString("</ncx>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// splitFragment splits a source path into the path and fragment identifier.
func splitFragment(src string) (path, fragment string) {
	if src == "" {
		return "", ""
	}
	parts := strings.SplitN(src, "#", 2)
	path = parts[0]
	if len(parts) == 2 {
		fragment = parts[1]
	}
	return path, fragment
}
