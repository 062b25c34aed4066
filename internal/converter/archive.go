package converter

import (
	"archive/zip"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yuanying/epubmaker/internal/epub"
)

// maxEntrySize caps a single extracted entry to guard against zip bombs.
const maxEntrySize int64 = 1 << 30

// Archiver packs a staged tree into a container and extracts source archives.
type Archiver interface {
	// Pack writes the staged tree at dir to dest. The mimetype entry must be
	// first and stored without compression.
	Pack(dir, dest string) error
	// Extract unpacks src into dir.
	Extract(src, dir string) error
}

// ZipArchiver implements Archiver with archive/zip.
type ZipArchiver struct{}

// Pack writes mimetype, then META-INF and OEBPS in lexical order. Directory
// entries and extra file attributes are not written.
func (ZipArchiver) Pack(dir, dest string) (err error) {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrArchiveTool, dest, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%w: close %s: %v", ErrArchiveTool, dest, cerr)
		}
	}()

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	if err := addZipEntry(zw, filepath.Join(dir, "mimetype"), "mimetype", zip.Store); err != nil {
		return err
	}
	for _, root := range []string{epub.MetaDir, epub.ContentDir} {
		walkErr := filepath.WalkDir(filepath.Join(dir, root), func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			return addZipEntry(zw, p, filepath.ToSlash(rel), zip.Deflate)
		})
		if walkErr != nil {
			return fmt.Errorf("%w: pack %s: %v", ErrArchiveTool, root, walkErr)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: finish %s: %v", ErrArchiveTool, dest, err)
	}
	return nil
}

func addZipEntry(zw *zip.Writer, src, name string, method uint16) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveTool, err)
	}
	defer in.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
	if err != nil {
		return fmt.Errorf("%w: add %s: %v", ErrArchiveTool, name, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrArchiveTool, name, err)
	}
	return nil
}

// Extract unpacks every file of the zip archive src into dir. Entries that
// would land outside dir are rejected.
func (ZipArchiver) Extract(src, dir string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrArchiveTool, src, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		name := path.Clean(strings.ReplaceAll(f.Name, `\`, "/"))
		if !isSafePath(name) {
			return fmt.Errorf("%w: unsafe entry %q in %s", ErrArchiveTool, f.Name, src)
		}
		target := filepath.Join(dir, filepath.FromSlash(name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("%w: %v", ErrArchiveTool, err)
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue
		}
		if err := extractEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveTool, err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %s: %v", ErrArchiveTool, f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveTool, err)
	}
	n, copyErr := io.Copy(out, io.LimitReader(rc, maxEntrySize+1))
	closeErr := out.Close()
	switch {
	case copyErr != nil:
		return fmt.Errorf("%w: extract %s: %v", ErrArchiveTool, f.Name, copyErr)
	case n > maxEntrySize:
		return fmt.Errorf("%w: entry %s exceeds %d bytes", ErrArchiveTool, f.Name, maxEntrySize)
	case closeErr != nil:
		return fmt.Errorf("%w: %v", ErrArchiveTool, closeErr)
	}
	return nil
}

// isSafePath checks whether p is a relative slash path that stays inside
// the extraction root.
func isSafePath(p string) bool {
	if p == "" || p == "." || path.IsAbs(p) || filepath.IsAbs(p) {
		return false
	}
	return p != ".." && !strings.HasPrefix(p, "../")
}

// removeIfExists deletes path, ignoring a missing file.
func removeIfExists(p string) error {
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
