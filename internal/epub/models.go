package epub

import "time"

// OPF represents the parsed Open Package Format document
type OPF struct {
	Metadata                 Metadata
	Manifest                 map[string]ManifestItem // id -> item
	ManifestOrder            []string                // ids in document order
	Spine                    []SpineItem
	NCXPath                  string
	NCXID                    string
	PageProgressionDirection string
}

// Metadata represents the metadata section of the OPF.
// The same value is written to both the package and the navigation document.
type Metadata struct {
	Identifier string
	Title      string
	Author     string // optional, written as dc:creator with role "aut"
	Language   string
	Modified   time.Time // dcterms:modified; omitted when zero
}

// ManifestItem represents an item in the manifest
type ManifestItem struct {
	ID        string
	Href      string
	MediaType string
	Fallback  string // id of the sibling item a reading system may substitute
}

// SpineItem represents an item reference in the spine
type SpineItem struct {
	IDRef  string
	Linear bool
}
