// Package fileutil provides file and path utility functions.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
	ErrPathEscapes            = errors.New("path escapes base directory")
)

// File permission constants shared by the pipeline and the CLI.
const (
	DirPerm  = 0o750
	FilePerm = 0o644
)

// WriteTempFile writes content to a fresh "doc2scorm-*.<extension>" file in
// dir, or the system temp dir when dir is empty. cleanup removes the file.
func WriteTempFile(dir string, content []byte, extension string) (path string, cleanup func(), err error) {
	if err := ValidateExtension(extension); err != nil {
		return "", nil, err
	}
	f, err := os.CreateTemp(dir, "doc2scorm-*."+extension)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	path = f.Name()
	cleanup = func() { _ = os.Remove(path) }

	_, err = f.Write(content)
	if err = errors.Join(err, f.Close()); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("writing temp file: %w", err)
	}
	return path, cleanup, nil
}

// ValidateExtension checks that the extension is safe for use in temp file names.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsPathUnderDir reports whether path is dir itself or lies beneath it.
func IsPathUnderDir(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	return err == nil && filepath.IsLocal(rel)
}

// SafeJoin joins a slash-separated relative path onto base. It fails when
// rel is absolute, climbs out of base, or names base itself.
func SafeJoin(base, rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) || filepath.Clean(local) == "." {
		return "", fmt.Errorf("%w: %q", ErrPathEscapes, rel)
	}
	return filepath.Join(base, local), nil
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), DirPerm); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	// #nosec G306 -- package files are meant to be readable
	if err := os.WriteFile(path, data, FilePerm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// CopyFile copies src to dst, creating parent directories of dst.
// Copying a file onto itself is a no-op and reports copied=false.
func CopyFile(src, dst string) (copied bool, err error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	if srcInfo.IsDir() {
		return false, fmt.Errorf("copying %s: is a directory", src)
	}

	if dstInfo, statErr := os.Stat(dst); statErr == nil && os.SameFile(srcInfo, dstInfo) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), DirPerm); err != nil {
		return false, fmt.Errorf("creating directory for %s: %w", dst, err)
	}

	in, err := os.Open(src) // #nosec G304 -- caller validated the path
	if err != nil {
		return false, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, FilePerm) // #nosec G302 G304 -- package output
	if err != nil {
		return false, err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return false, fmt.Errorf("copying %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return false, fmt.Errorf("closing %s: %w", dst, err)
	}
	return true, nil
}

// SanitizeFileName reduces name to a base name made of letters, digits,
// dots, dashes and underscores. Other runes become underscores.
// Returns fallback if nothing usable remains.
func SanitizeFileName(name, fallback string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" || strings.Trim(out, "_") == "" {
		return fallback
	}
	return out
}

// ReplaceExt swaps the extension of name for ext (which includes the dot).
func ReplaceExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
