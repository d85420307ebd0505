package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-doc2scorm/internal/assets"
	"github.com/alnah/go-doc2scorm/internal/fileutil"
	"github.com/alnah/go-doc2scorm/internal/resource"
)

// Sentinel errors for normalization.
var (
	ErrNormalization    = errors.New("normalization failed")
	ErrInvalidEncoding  = errors.New("content is not valid text in any supported encoding")
	ErrRasterizer       = errors.New("PDF rasterizer failed")
	ErrTemplateRender   = errors.New("page template rendering failed")
	ErrInvalidAssetPath = errors.New("invalid asset path")
)

// ContentCSP is the Content-Security-Policy set on normalized pages.
const ContentCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:;"

// DefaultEntry is the page name used when the source has no usable name.
const DefaultEntry = "content.html"

// Kind tells the wrapper which message protocol the content speaks.
type Kind string

// Content kinds.
const (
	KindHTML Kind = "html"
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
)

// Source is one document to normalize.
type Source struct {
	Content []byte
	// FileName is the original name; it decides the entry page name.
	FileName string
	// SourceDir resolves relative asset references. Empty means no
	// reference can be resolved.
	SourceDir string
	Title     string
	// WorkDir holds temporary files. Empty uses the system temp dir.
	WorkDir string
}

// Output describes what a normalizer wrote below the resources directory.
type Output struct {
	Tree  *resource.Tree
	Entry string
	Kind  Kind
	// Title is the title found in the document itself, if any.
	Title         string
	Degraded      bool
	MissingAssets []string
	Pages         int
}

// Normalizer writes the content of one source document into dstDir.
type Normalizer interface {
	Normalize(ctx context.Context, src Source, dstDir string) (*Output, error)
}

var discardLogger = log.New(io.Discard)

func loggerOrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return discardLogger
	}
	return l
}

func loaderOrEmbedded(l assets.AssetLoader) assets.AssetLoader {
	if l == nil {
		return assets.NewEmbeddedLoader()
	}
	return l
}

// renderTemplate executes the named page template with data.
func renderTemplate(loader assets.AssetLoader, name string, data any) ([]byte, error) {
	src, err := loaderOrEmbedded(loader).LoadTemplate(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	tmpl, err := template.New(name).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrTemplateRender, name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateRender, name, err)
	}
	return buf.Bytes(), nil
}

// writePage writes data to dstDir/rel and registers rel in tree.
func writePage(tree *resource.Tree, dstDir, rel string, data []byte) error {
	dst, err := fileutil.SafeJoin(dstDir, rel)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
	}
	if err := fileutil.WriteFile(dst, data); err != nil {
		return err
	}
	return tree.Add(filepath.ToSlash(rel))
}

// EntryName derives the page name for a source file name.
func EntryName(fileName string) string {
	name := fileutil.SanitizeFileName(fileName, DefaultEntry)
	return fileutil.ReplaceExt(name, ".html")
}

// writeAs writes data to dstDir/rel and registers it under category c.
func writeAs(tree *resource.Tree, c resource.Category, dstDir, rel string, data []byte) error {
	dst, err := fileutil.SafeJoin(dstDir, rel)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
	}
	if err := fileutil.WriteFile(dst, data); err != nil {
		return err
	}
	return tree.AddAs(c, rel)
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, fileutil.DirPerm); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
