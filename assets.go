package doc2scorm

import (
	"fmt"

	"github.com/alnah/go-doc2scorm/internal/assets"
)

// Built-in asset names a custom loader may override.
const (
	TemplateWrapper    = assets.TemplateWrapper
	TemplatePDFViewer  = assets.TemplatePDFViewer
	TemplateDOCXViewer = assets.TemplateDOCXViewer
	TemplateFallback   = assets.TemplateFallback
	StyleContent       = assets.StyleContent
	ScriptRuntime      = assets.ScriptRuntime
)

// AssetLoader supplies page templates, the content stylesheet and the
// runtime script template by name, without extension. A lookup for an
// absent asset must return an error matching ErrAssetNotFound.
//
// Templates use html/template and the runtime script text/template. See the
// built-in assets for the fields each one receives.
type AssetLoader = assets.AssetLoader

// NewAssetLoader returns the built-in assets, overlaid by dir when it is
// not empty. dir mirrors the embedded layout:
//
//	styles/content.css
//	templates/{wrapper,pdf_viewer,docx_viewer,fallback}.html
//	scripts/scorm_api.js
//
// Missing files fall back to the built-in copy. Every asset is loaded and
// parsed once here, so a broken override returns ErrInvalidAssetPath
// instead of failing a later conversion.
func NewAssetLoader(dir string) (AssetLoader, error) {
	r, err := assets.NewAssetResolver(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAssetPath, err)
	}
	if r.HasOverrides() {
		if err := assets.Check(r); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidAssetPath, err)
		}
	}
	return r, nil
}
