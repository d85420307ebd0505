// Package archive writes and reads the ZIP container of a SCORM package.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/alnah/go-doc2scorm/internal/fileutil"
)

// Sentinel errors for archive operations.
var (
	ErrInvalidEntry  = errors.New("invalid archive entry")
	ErrEntryNotFound = errors.New("archive entry not found")
	ErrTooLarge      = errors.New("archive content exceeds size limit")
	ErrNotArchive    = errors.New("not a zip archive")
)

// DefaultExtractLimit caps the uncompressed size of an extracted package.
const DefaultExtractLimit int64 = 512 << 20

// Write streams the listed files, given as slash paths relative to root,
// into a ZIP archive on w in the given order.
func Write(w io.Writer, root string, files []string, modified time.Time) error {
	zw := zip.NewWriter(w)
	for _, name := range files {
		if err := validateName(name); err != nil {
			_ = zw.Close()
			return err
		}
		if err := writeFileEntry(zw, root, name, modified); err != nil {
			_ = zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

// WriteFile is Write to a file at dst, synced before returning.
func WriteFile(dst, root string, files []string, modified time.Time) (err error) {
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileutil.FilePerm) // #nosec G302 G304 -- package output
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("closing archive: %w", closeErr)
		}
	}()

	if err := Write(f, root, files, modified); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing archive: %w", err)
	}
	return nil
}

func writeFileEntry(zw *zip.Writer, root, name string, modified time.Time) error {
	src := filepath.Join(root, filepath.FromSlash(name))
	f, err := os.Open(src) // #nosec G304 -- name validated, root owned by caller
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	header := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified}
	header.SetMode(0o644)
	writer, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	if _, err := io.Copy(writer, f); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// WriteBytesEntry adds an in-memory file to zw.
func WriteBytesEntry(zw *zip.Writer, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	header := &zip.FileHeader{Name: name, Method: zip.Deflate}
	header.SetMode(0o644)
	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = writer.Write(data)
	return err
}

// List returns the file entries (directories excluded) of the archive at p.
func List(p string) ([]string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArchive, err)
	}
	defer zr.Close()
	return names(&zr.Reader), nil
}

// Open parses an in-memory archive.
func Open(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArchive, err)
	}
	return zr, nil
}

// Names lists the file entries of zr.
func Names(zr *zip.Reader) []string {
	return names(zr)
}

func names(zr *zip.Reader) []string {
	out := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		out = append(out, f.Name)
	}
	return out
}

// ReadEntry returns the content of the named entry, refusing entries whose
// declared size exceeds limit.
func ReadEntry(zr *zip.Reader, name string, limit int64) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		if limit > 0 && f.UncompressedSize64 > uint64(limit) {
			return nil, fmt.Errorf("%w: %s", ErrTooLarge, name)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(io.LimitReader(rc, int64(f.UncompressedSize64)+1))
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
}

// Extract writes every entry of zr below dest. Entries that would escape
// dest are rejected, as is content beyond limit bytes in total.
func Extract(zr *zip.Reader, dest string, limit int64) error {
	if limit <= 0 {
		limit = DefaultExtractLimit
	}
	var total int64

	for _, file := range zr.File {
		cleanName := path.Clean(file.Name)
		if cleanName == "." || cleanName == "" {
			continue
		}
		target, err := fileutil.SafeJoin(dest, cleanName)
		if err != nil || filepath.VolumeName(cleanName) != "" {
			return fmt.Errorf("%w: %s", ErrInvalidEntry, file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, fileutil.DirPerm); err != nil {
				return fmt.Errorf("creating directory %s: %w", cleanName, err)
			}
			continue
		}

		total += int64(file.UncompressedSize64)
		if total > limit {
			return fmt.Errorf("%w: %d bytes", ErrTooLarge, limit)
		}

		if err := extractEntry(file, target); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), fileutil.DirPerm); err != nil {
		return fmt.Errorf("creating directory for %s: %w", file.Name, err)
	}

	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", file.Name, err)
	}
	defer rc.Close()

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileutil.FilePerm) // #nosec G302 G304 -- target validated by SafeJoin
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	defer f.Close()

	// Declared sizes can lie; never copy more than announced.
	if _, err := io.Copy(f, io.LimitReader(rc, int64(file.UncompressedSize64))); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return nil
}

func validateName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidEntry, name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidEntry, name)
		}
	}
	return nil
}
