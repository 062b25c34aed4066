// Inspection program for packages written by epubmaker
//
// Usage:
//
//	go run ./cmd/test/epub_inspect <epub-file> (<content-filename> ...)
//
// This program:
// - Opens the EPUB and validates mimetype and container.xml
// - Lists the archive entries with their size and compression
// - Prints the manifest, spine and navigation map
// - Runs the package consistency checks
// - Dumps the given content files
package main

import (
	"archive/zip"
	"fmt"
	"log"
	"os"

	"github.com/yuanying/epubmaker/internal/epub"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/test/epub_inspect <epub-file> (<content-filename> ...)")
		os.Exit(1)
	}

	epubPath := os.Args[1]
	filePaths := os.Args[2:]

	fmt.Printf("Opening EPUB file: %s\n", epubPath)
	reader, err := epub.Open(epubPath)
	if err != nil {
		log.Fatalf("Failed to open EPUB: %v", err)
	}
	defer reader.Close()

	fmt.Printf("✓ EPUB opened successfully\n")
	fmt.Printf("OPF Path: %s\n\n", reader.OPFPath())

	names := reader.Names()
	files := reader.Files()
	fmt.Printf("Archive entries: %d\n", len(names))
	for _, name := range names {
		f := files[name]
		method := "deflated"
		if f.Method == zip.Store {
			method = "stored"
		}
		fmt.Printf("  - %-28s %8d %s\n", name, f.UncompressedSize64, method)
	}

	opf, err := reader.LoadOPF()
	if err != nil {
		log.Fatalf("Failed to load OPF: %v", err)
	}
	md := opf.Metadata
	fmt.Printf("\nIdentifier: %s\nTitle: %s\nAuthor: %s\nLanguage: %s\n", md.Identifier, md.Title, md.Author, md.Language)

	fmt.Println("\nManifest:")
	for _, id := range opf.ManifestOrder {
		item := opf.Manifest[id]
		fallback := ""
		if item.Fallback != "" {
			fallback = " -> " + item.Fallback
		}
		fmt.Printf("  %-10s %-28s %s%s\n", item.ID, item.Href, item.MediaType, fallback)
	}

	fmt.Printf("\nSpine (%s):\n", opf.PageProgressionDirection)
	for i, ref := range opf.Spine {
		fmt.Printf("  %3d %s\n", i+1, ref.IDRef)
	}

	ncx, err := reader.LoadNCX(opf)
	if err != nil {
		log.Fatalf("Failed to load NCX: %v", err)
	}
	if ncx != nil {
		fmt.Printf("\nNavigation (uid %s):\n", ncx.UID)
		for _, np := range ncx.NavPoints {
			fmt.Printf("  %3d %-12s %s\n", np.PlayOrder, np.Label, np.ContentPath)
		}
	}

	for _, filePath := range filePaths {
		fmt.Printf("\nReading content file: %s\n", filePath)
		content, err := reader.ReadFile(filePath)
		if err != nil {
			log.Fatalf("Failed to read content file %s: %v", filePath, err)
		}
		fmt.Printf("Content:\n%s\n", string(content))
	}

	if _, err := epub.Verify(epubPath); err != nil {
		log.Fatalf("✗ %v", err)
	}
	fmt.Println("\n✓ Package is consistent")
}
