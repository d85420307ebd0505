package assets

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// maxAssetSize bounds a single override file.
const maxAssetSize = 1 << 20

// FilesystemLoader reads overrides from a directory laid out like the
// embedded tree: styles/, templates/ and scripts/. Reads go through
// os.OpenInRoot, so a symlink cannot lead outside the directory.
type FilesystemLoader struct {
	dir string
}

// NewFilesystemLoader checks that dir is a readable directory.
func NewFilesystemLoader(dir string) (*FilesystemLoader, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidBasePath)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s does not exist", ErrInvalidBasePath, abs)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	case !info.IsDir():
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidBasePath, abs)
	}
	if _, err := os.ReadDir(abs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	return &FilesystemLoader{dir: abs}, nil
}

// Dir returns the absolute override directory.
func (f *FilesystemLoader) Dir() string { return f.dir }

func (f *FilesystemLoader) LoadStyle(name string) (string, error) {
	return f.load(KindStyle, name)
}

func (f *FilesystemLoader) LoadTemplate(name string) (string, error) {
	return f.load(KindTemplate, name)
}

func (f *FilesystemLoader) LoadScript(name string) (string, error) {
	return f.load(KindScript, name)
}

func (f *FilesystemLoader) load(k Kind, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	rel := filepath.FromSlash(k.file(name))
	file, err := os.OpenInRoot(f.dir, rel)
	if errors.Is(err, fs.ErrNotExist) {
		return "", k.notFound(name)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrAssetRead, rel, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAssetSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrAssetRead, rel, err)
	}
	if len(data) > maxAssetSize {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrAssetRead, rel, maxAssetSize)
	}
	return string(data), nil
}

var _ AssetLoader = (*FilesystemLoader)(nil)
