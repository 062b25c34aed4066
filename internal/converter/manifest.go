package converter

import (
	"io"

	"github.com/yuanying/epubmaker/internal/epub"
)

// pageProgression is fixed right-to-left.
const pageProgression = "rtl"

// Manifest is the package document content derived from the entries.
type Manifest struct {
	Items   []epub.ManifestItem
	Spine   []epub.SpineItem
	Reading []StagedItem // spine members, in spine order
}

// BuildManifest emits one manifest item per staged file in enumeration
// order, each original followed by its wrapper. Originals with a wrapper
// carry a fallback reference to it. The spine lists the reading member of
// each entry and skips stylesheets.
func BuildManifest(entries []Entry) Manifest {
	var m Manifest
	for _, e := range entries {
		orig := epub.ManifestItem{
			ID:        e.Original.ID(),
			Href:      e.Original.Href(),
			MediaType: e.Original.Media.MediaType,
		}
		if e.Fallback != nil {
			orig.Fallback = e.Fallback.ID()
		}
		m.Items = append(m.Items, orig)

		if e.Fallback != nil {
			m.Items = append(m.Items, epub.ManifestItem{
				ID:        e.Fallback.ID(),
				Href:      e.Fallback.Href(),
				MediaType: e.Fallback.Media.MediaType,
			})
		}

		member := e.ReadingMember()
		if member.Media.Category == epub.CategoryStyle {
			continue
		}
		m.Reading = append(m.Reading, member)
		m.Spine = append(m.Spine, epub.SpineItem{IDRef: member.ID(), Linear: true})
	}
	return m
}

// Write renders the package document.
func (m Manifest) Write(w io.Writer, md epub.Metadata) error {
	return epub.WriteOPF(w, md, m.Items, m.Spine, pageProgression)
}
