package assets

import (
	"embed"
	"io/fs"
)

//go:embed styles templates scripts
var builtin embed.FS

// EmbeddedLoader serves the assets compiled into the binary.
type EmbeddedLoader struct {
	fsys fs.FS
}

// NewEmbeddedLoader returns a loader over the built-in assets.
func NewEmbeddedLoader() *EmbeddedLoader {
	return &EmbeddedLoader{fsys: builtin}
}

func (e *EmbeddedLoader) LoadStyle(name string) (string, error) {
	return e.load(KindStyle, name)
}

func (e *EmbeddedLoader) LoadTemplate(name string) (string, error) {
	return e.load(KindTemplate, name)
}

func (e *EmbeddedLoader) LoadScript(name string) (string, error) {
	return e.load(KindScript, name)
}

func (e *EmbeddedLoader) load(k Kind, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	data, err := fs.ReadFile(e.fsys, k.file(name))
	if err != nil {
		return "", k.notFound(name)
	}
	return string(data), nil
}

var _ AssetLoader = (*EmbeddedLoader)(nil)
