package epub

import (
	"fmt"
	"io"
	"path"
)

// container.xml structure
type container struct {
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// ContainerPath is the fixed location of the container descriptor.
var ContainerPath = path.Join(MetaDir, "container.xml")

// OPFPath is where the package document is written.
var OPFPath = path.Join(ContentDir, OPFName)

// WriteContainer renders META-INF/container.xml pointing at opfPath.
func WriteContainer(w io.Writer, opfPath string) error {
	_, err := fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
<rootfiles>
<rootfile media-type="%s" full-path="%s" />
</rootfiles>
</container>
`, MediaTypeOPF, opfPath)
	return err
}
