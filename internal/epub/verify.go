package epub

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInconsistentPackage reports cross-references between the package
// documents that do not agree.
var ErrInconsistentPackage = errors.New("inconsistent package")

// Package is a verified EPUB opened for inspection.
type Package struct {
	OPF *OPF
	NCX *NCX
}

// Verify opens the EPUB at path and checks the structural invariants of a
// generated package: mimetype placement, container target, identifier
// agreement between OPF and NCX, fallback links, spine contents, and that
// navigation mirrors the spine one to one.
func Verify(path string) (*Package, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	opf, err := r.LoadOPF()
	if err != nil {
		return nil, err
	}
	ncx, err := r.LoadNCX(opf)
	if err != nil {
		return nil, err
	}

	var problems []string
	problems = append(problems, checkManifest(r, opf)...)
	problems = append(problems, checkSpine(opf)...)
	problems = append(problems, checkNavigation(opf, ncx)...)
	problems = append(problems, checkContentRefs(r, opf)...)

	pkg := &Package{OPF: opf, NCX: ncx}
	if len(problems) > 0 {
		return pkg, fmt.Errorf("%w: %s", ErrInconsistentPackage, strings.Join(problems, "; "))
	}
	return pkg, nil
}

func checkManifest(r *EPUBReader, opf *OPF) []string {
	var problems []string
	if opf.Metadata.Identifier == "" {
		problems = append(problems, "package declares no identifier")
	}
	for _, id := range opf.ManifestOrder {
		item := opf.Manifest[id]
		if _, ok := r.files[item.Href]; !ok {
			problems = append(problems, fmt.Sprintf("manifest item %q: %s missing from archive", id, item.Href))
		}
		if item.Fallback == "" {
			continue
		}
		if item.Fallback == id {
			problems = append(problems, fmt.Sprintf("manifest item %q falls back to itself", id))
		} else if _, ok := opf.Manifest[item.Fallback]; !ok {
			problems = append(problems, fmt.Sprintf("manifest item %q: fallback %q not declared", id, item.Fallback))
		}
	}
	return problems
}

func checkSpine(opf *OPF) []string {
	var problems []string
	seen := make(map[string]bool)
	for _, ref := range opf.Spine {
		item, ok := opf.Manifest[ref.IDRef]
		if !ok {
			problems = append(problems, fmt.Sprintf("spine references undeclared item %q", ref.IDRef))
			continue
		}
		if item.MediaType == MediaTypeCSS {
			problems = append(problems, fmt.Sprintf("spine references stylesheet %q", ref.IDRef))
		}
		if seen[ref.IDRef] {
			problems = append(problems, fmt.Sprintf("spine references %q twice", ref.IDRef))
		}
		seen[ref.IDRef] = true
	}
	// Only one member of a fallback pair may be in reading order.
	for _, id := range opf.ManifestOrder {
		item := opf.Manifest[id]
		if item.Fallback != "" && seen[id] && seen[item.Fallback] {
			problems = append(problems, fmt.Sprintf("spine lists both %q and its fallback %q", id, item.Fallback))
		}
	}
	return problems
}

func checkNavigation(opf *OPF, ncx *NCX) []string {
	if ncx == nil {
		return []string{"package declares no NCX"}
	}
	var problems []string
	if ncx.UID != opf.Metadata.Identifier {
		problems = append(problems, fmt.Sprintf("NCX uid %q does not match package identifier %q", ncx.UID, opf.Metadata.Identifier))
	}
	if len(ncx.NavPoints) != len(opf.Spine) {
		problems = append(problems, fmt.Sprintf("navigation has %d points, spine has %d entries", len(ncx.NavPoints), len(opf.Spine)))
		return problems
	}
	for i, np := range ncx.NavPoints {
		if np.PlayOrder != i+1 {
			problems = append(problems, fmt.Sprintf("navPoint %d has playOrder %d", i+1, np.PlayOrder))
		}
		item, ok := opf.Manifest[opf.Spine[i].IDRef]
		if ok && np.ContentPath != item.Href {
			problems = append(problems, fmt.Sprintf("navPoint %d points at %s, spine entry is %s", i+1, np.ContentPath, item.Href))
		}
	}
	return problems
}

// checkContentRefs parses every fallback document and checks that its image
// and link targets are declared in the manifest. Source markup is not
// inspected; its links are outside the converter's control.
func checkContentRefs(r *EPUBReader, opf *OPF) []string {
	hrefs := make(map[string]bool, len(opf.Manifest))
	for _, item := range opf.Manifest {
		hrefs[item.Href] = true
	}

	var problems []string
	for _, id := range opf.ManifestOrder {
		fallbackID := opf.Manifest[id].Fallback
		item, ok := opf.Manifest[fallbackID]
		if !ok || item.MediaType != MediaTypeXHTML {
			continue
		}
		data, err := r.ReadFile(item.Href)
		if err != nil {
			continue // reported by checkManifest
		}
		content, err := LoadContent(item.ID, item.Href, data)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", item.Href, err))
			continue
		}
		for _, ref := range append(content.ImageRefs, content.LinkRefs...) {
			if !hrefs[ref] {
				problems = append(problems, fmt.Sprintf("%s references undeclared %s", item.Href, ref))
			}
		}
	}
	return problems
}
