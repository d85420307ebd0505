package doc2scorm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/alnah/go-doc2scorm/internal/assets"
	"github.com/alnah/go-doc2scorm/internal/fileutil"
	"github.com/alnah/go-doc2scorm/internal/pipeline"
	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.Normalizer = (*pipeline.HTMLNormalizer)(nil)
	_ pipeline.Normalizer = (*pipeline.MarkdownNormalizer)(nil)
	_ pipeline.Normalizer = (*pipeline.PDFNormalizer)(nil)
	_ pipeline.Normalizer = (*pipeline.DOCXNormalizer)(nil)
	_ pipeline.Rasterizer = (*pipeline.PopplerRasterizer)(nil)
)

// Magic numbers checked before a binary document is accepted.
var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// pdfHeaderWindow is how far into a PDF the header may appear.
const pdfHeaderWindow = 1024

// Converter turns source documents into SCORM packages.
// Create with NewConverter(), use Convert() for conversion, and Close() when done.
// A Converter is safe for concurrent use; conversions share nothing but
// the file system.
type Converter struct {
	cfg               converterConfig
	assetLoader       assets.AssetLoader
	publicAssetLoader AssetLoader
	rasterizer        pipeline.Rasterizer
	logger            *log.Logger

	now   func() time.Time
	newID func() string
}

// NewConverter creates a Converter with default configuration.
// Use options to customize behavior (e.g., WithTempDir, WithAssetPath, WithRasterizer).
// Returns error if the asset path or the runtime options are invalid.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg:         converterConfig{maxInputSize: DefaultMaxInputSize},
		assetLoader: assets.NewEmbeddedLoader(),
		now:         time.Now,
		newID:       uuid.NewString,
	}

	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.publicAssetLoader != nil:
		c.assetLoader = c.publicAssetLoader
	case c.cfg.assetPath != "":
		l, err := NewAssetLoader(c.cfg.assetPath)
		if err != nil {
			return nil, err
		}
		c.assetLoader = l
	}

	c.cfg.runtime = c.cfg.runtime.WithDefaults()
	if err := c.cfg.runtime.Validate(); err != nil {
		return nil, fmt.Errorf("runtime options: %w", err)
	}

	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	if c.rasterizer == nil {
		c.rasterizer = pipeline.NewPopplerRasterizer()
	}
	return c, nil
}

// Convert validates the input, then normalizes, wraps, describes and
// archives it. Validation failures match ErrInvalidInput and happen before
// anything is written to disk. Recovers from internal panics to prevent
// crashes from propagating to callers.
func (c *Converter) Convert(ctx context.Context, input Input) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	req, err := c.validateInput(input)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a := c.newAssembly(req)
	return a.run(ctx)
}

// ConvertToFile converts input and writes the package to path.
// Nothing is written when the conversion fails.
func (c *Converter) ConvertToFile(ctx context.Context, input Input, path string) (*Result, error) {
	res, err := c.Convert(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := fileutil.WriteFile(path, res.Package); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchive, err)
	}
	return res, nil
}

// Close releases resources held by the converter. Converters hold no
// long-lived resources today; Close exists so pools can treat them uniformly.
func (c *Converter) Close() error {
	return nil
}

// request is a validated Input with every default resolved.
type request struct {
	Input
	fileType FileType
	version  scorm.Version
	html     HTMLOptions
	pdf      PDFOptions
	docx     DOCXOptions
}

// validateInput checks the input before any disk I/O.
//
// This is a TRUST BOUNDARY for direct library users who build Input manually.
// CLI users have their config validated earlier, at load time.
func (c *Converter) validateInput(input Input) (*request, error) {
	if len(input.Content) == 0 {
		return nil, ErrEmptyContent
	}
	if int64(len(input.Content)) > c.cfg.maxInputSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrInputTooLarge, len(input.Content), c.cfg.maxInputSize)
	}

	ft := input.Type
	var err error
	if ft == "" {
		ft, err = FileTypeFromName(input.FileName)
	} else {
		ft, err = ParseFileType(string(ft))
	}
	if err != nil {
		return nil, err
	}

	version, err := scorm.ParseVersion(input.Version)
	if err != nil {
		return nil, invalidInput(err)
	}

	switch {
	case ft.IsHTML():
		if _, _, err := pipeline.DecodeText(input.Content); err != nil {
			return nil, invalidInput(err)
		}
	case ft == TypePDF:
		if !bytes.Contains(input.Content[:min(len(input.Content), pdfHeaderWindow)], pdfMagic) {
			return nil, fmt.Errorf("%w: missing %%PDF- header", ErrInvalidInput)
		}
	case ft == TypeDOCX:
		if !bytes.HasPrefix(input.Content, zipMagic) {
			return nil, fmt.Errorf("%w: DOCX is not a zip archive", ErrInvalidInput)
		}
	}

	req := &request{
		Input:    input,
		fileType: ft,
		version:  version,
		html:     c.cfg.html,
		pdf:      c.cfg.pdf,
		docx:     c.cfg.docx,
	}
	if input.HTML != nil {
		req.html = *input.HTML
	}
	if input.PDF != nil {
		req.pdf = *input.PDF
	}
	if input.DOCX != nil {
		req.docx = *input.DOCX
	}
	return req, nil
}

// normalizer returns the content normalizer for a document type.
func (c *Converter) normalizer(req *request) pipeline.Normalizer {
	switch req.fileType {
	case TypePDF:
		return &pipeline.PDFNormalizer{Options: req.pdf, Rasterizer: c.rasterizer, Assets: c.assetLoader, Logger: c.logger}
	case TypeDOCX:
		return &pipeline.DOCXNormalizer{Options: req.docx, Assets: c.assetLoader, Logger: c.logger}
	case TypeMarkdown:
		return pipeline.NewMarkdownNormalizer(req.html, c.assetLoader, c.logger)
	default:
		return &pipeline.HTMLNormalizer{Options: req.html, Assets: c.assetLoader, Logger: c.logger}
	}
}
