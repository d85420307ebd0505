package doc2scorm

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-doc2scorm/internal/pipeline"
	"github.com/alnah/go-doc2scorm/internal/shim"
)

// FileType is the format of a source document.
type FileType string

// Supported document types.
const (
	TypeHTML     FileType = "html"
	TypeHTM      FileType = "htm"
	TypePDF      FileType = "pdf"
	TypeDOCX     FileType = "docx"
	TypeMarkdown FileType = "md"
)

// FileTypes lists the supported types in display order.
var FileTypes = []FileType{TypeHTML, TypeHTM, TypePDF, TypeDOCX, TypeMarkdown}

// ParseFileType parses a type name case-insensitively. A leading dot is
// accepted so extensions parse too; "markdown" is an alias of "md".
func ParseFileType(s string) (FileType, error) {
	name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	if name == "markdown" {
		return TypeMarkdown, nil
	}
	for _, ft := range FileTypes {
		if name == string(ft) {
			return ft, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, s)
}

// FileTypeFromName derives the type from a file name extension.
func FileTypeFromName(name string) (FileType, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedType, name)
	}
	return ParseFileType(ext)
}

// IsHTML reports whether the type is rendered through the HTML normalizer.
func (ft FileType) IsHTML() bool {
	return ft == TypeHTML || ft == TypeHTM || ft == TypeMarkdown
}

// Normalizer options, shared with the internal pipeline.
type (
	HTMLOptions = pipeline.HTMLOptions
	PDFOptions  = pipeline.PDFOptions
	DOCXOptions = pipeline.DOCXOptions
)

// RuntimeOptions tune the tracking script packaged as scorm_api.js.
type (
	RuntimeOptions  = shim.Options
	DiscoverOptions = shim.DiscoverOptions
)

// Rasterizer renders PDF pages to PNG images.
type Rasterizer = pipeline.Rasterizer

// Input is one source document to package.
type Input struct {
	Content []byte
	// FileName is the original file name. It names the content page and
	// gives the type when Type is empty.
	FileName string
	Type     FileType
	// Title overrides the title found in the document.
	Title string
	// Version is "1.2" or "2004"; empty selects 2004.
	Version string
	// SourceDir resolves relative asset references of HTML and Markdown.
	// Empty reports every local reference as missing.
	SourceDir string

	// Per-document overrides of the converter options; nil keeps them.
	HTML *HTMLOptions
	PDF  *PDFOptions
	DOCX *DOCXOptions
}

// Result is a finished SCORM package.
type Result struct {
	Package  []byte
	Manifest []byte
	// Files lists the archive entries in archive order.
	Files    []string
	CourseID string
	Version  string
	Title    string
	// Degraded is set when the content was replaced by a fallback page or
	// some PDF pages failed to render.
	Degraded      bool
	MissingAssets []string
	Pages         int
	// WorkDir is the retained working directory, empty unless retained.
	WorkDir string
	Stages  []StageEvent
}

// Stage is a step of package assembly.
type Stage int

// Assembly stages in order. Failed is absorbing.
const (
	StageIdle Stage = iota
	StageNormalizing
	StageWrapping
	StageManifesting
	StageArchiving
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageIdle:        "idle",
	StageNormalizing: "normalizing",
	StageWrapping:    "wrapping",
	StageManifesting: "manifesting",
	StageArchiving:   "archiving",
	StageDone:        "done",
	StageFailed:      "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// StageEvent records a completed or failed stage.
type StageEvent struct {
	Stage    Stage         `json:"stage"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	tempDir       string
	retainWorkDir bool
	maxInputSize  int64
	assetPath     string
	html          HTMLOptions
	pdf           PDFOptions
	docx          DOCXOptions
	runtime       RuntimeOptions
}

// DefaultMaxInputSize is the largest accepted document.
const DefaultMaxInputSize int64 = 10 << 20

// WithLogger sets the logger for stage transitions and warnings.
func WithLogger(l *log.Logger) Option {
	return func(c *Converter) {
		c.logger = l
	}
}

// WithTempDir sets the parent of the per-conversion working directories.
func WithTempDir(dir string) Option {
	return func(c *Converter) {
		c.cfg.tempDir = dir
	}
}

// WithRetainWorkDir keeps the working directory after conversion and
// reports it in Result.WorkDir.
func WithRetainWorkDir(keep bool) Option {
	return func(c *Converter) {
		c.cfg.retainWorkDir = keep
	}
}

// WithMaxInputSize sets the document size limit in bytes.
// Panics if n <= 0 (programmer error, similar to time.NewTicker).
func WithMaxInputSize(n int64) Option {
	if n <= 0 {
		panic("doc2scorm: WithMaxInputSize limit must be positive")
	}
	return func(c *Converter) {
		c.cfg.maxInputSize = n
	}
}

// WithRasterizer replaces the poppler-based PDF rasterizer.
func WithRasterizer(r Rasterizer) Option {
	return func(c *Converter) {
		c.rasterizer = r
	}
}

// WithAssetLoader sets a custom loader for templates, styles and scripts.
// It takes precedence over WithAssetPath.
func WithAssetLoader(l AssetLoader) Option {
	return func(c *Converter) {
		c.publicAssetLoader = l
	}
}

// WithAssetPath loads assets from dir, falling back to the built-in ones.
func WithAssetPath(dir string) Option {
	return func(c *Converter) {
		c.cfg.assetPath = dir
	}
}

// WithRuntimeOptions sets the tracking thresholds and intervals.
func WithRuntimeOptions(o RuntimeOptions) Option {
	return func(c *Converter) {
		c.cfg.runtime = o
	}
}

// WithHTMLOptions sets the default HTML and Markdown options.
func WithHTMLOptions(o HTMLOptions) Option {
	return func(c *Converter) {
		c.cfg.html = o
	}
}

// WithPDFOptions sets the default PDF options.
func WithPDFOptions(o PDFOptions) Option {
	return func(c *Converter) {
		c.cfg.pdf = o
	}
}

// WithDOCXOptions sets the default DOCX options.
func WithDOCXOptions(o DOCXOptions) Option {
	return func(c *Converter) {
		c.cfg.docx = o
	}
}
