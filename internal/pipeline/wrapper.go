package pipeline

import (
	"fmt"
	"html"
	"path"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/alnah/go-doc2scorm/internal/assets"
	"github.com/alnah/go-doc2scorm/internal/manifest"
	"github.com/alnah/go-doc2scorm/internal/resource"
	"github.com/alnah/go-doc2scorm/internal/scorm"
	"github.com/alnah/go-doc2scorm/internal/shim"
)

// WrapperCSP is the Content-Security-Policy of the package entry page.
const WrapperCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'none'; frame-src 'self';"

// UntitledCourse replaces titles that are empty once cleaned.
const UntitledCourse = "Untitled Course"

var titlePolicy = bluemonday.StrictPolicy()

// CleanTitle strips markup from a title, unescapes entities and collapses
// whitespace. The result is plain text, to be escaped by the template.
func CleanTitle(title string) string {
	text := html.UnescapeString(titlePolicy.Sanitize(title))
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return UntitledCourse
	}
	return text
}

// Wrapper renders the package entry page and the runtime script.
type Wrapper struct {
	Assets  assets.AssetLoader
	Runtime shim.Options
}

// Build returns index.html and scorm_api.js for a package whose content
// entry is resources/<entry>.
func (w *Wrapper) Build(desc manifest.Descriptor, entry string, kind Kind) (index, script []byte, err error) {
	if !desc.Version.Valid() {
		return nil, nil, fmt.Errorf("%w: %q", scorm.ErrInvalidVersion, desc.Version)
	}
	if err := validateEntry(entry); err != nil {
		return nil, nil, err
	}
	loader := loaderOrEmbedded(w.Assets)

	index, err = renderTemplate(loader, assets.TemplateWrapper, struct {
		CSP     string
		Title   string
		Kind    Kind
		Version string
		Entry   string
	}{WrapperCSP, CleanTitle(desc.Title), kind, desc.Version.String(), path.Join(scorm.ResourcesDir, entry)})
	if err != nil {
		return nil, nil, err
	}

	script, err = shim.Render(loader, desc.Version, w.Runtime)
	if err != nil {
		return nil, nil, fmt.Errorf("rendering runtime script: %w", err)
	}
	return index, script, nil
}

func validateEntry(entry string) error {
	if err := resource.ValidatePath(entry); err != nil {
		return fmt.Errorf("%w: entry: %v", ErrInvalidAssetPath, err)
	}
	return nil
}
