package assets

import (
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// Built-in asset names.
const (
	TemplateWrapper    = "wrapper"
	TemplatePDFViewer  = "pdf_viewer"
	TemplateDOCXViewer = "docx_viewer"
	TemplateFallback   = "fallback"
	StyleContent       = "content"
	ScriptRuntime      = "scorm_api"
)

// AssetLoader loads the page templates, the content stylesheet and the
// runtime script template. Names carry no extension.
type AssetLoader interface {
	LoadStyle(name string) (string, error)
	LoadTemplate(name string) (string, error)
	LoadScript(name string) (string, error)
}

// Kind is a class of asset. Each kind lives in its own directory with its
// own extension, both on disk and in the embedded tree.
type Kind int

const (
	KindStyle Kind = iota
	KindTemplate
	KindScript
)

var kinds = [...]struct {
	dir, ext string
	notFound error
}{
	KindStyle:    {"styles", ".css", ErrStyleNotFound},
	KindTemplate: {"templates", ".html", ErrTemplateNotFound},
	KindScript:   {"scripts", ".js", ErrScriptNotFound},
}

func (k Kind) String() string { return kinds[k].dir }

// file returns the slash path of name below a base directory.
func (k Kind) file(name string) string { return kinds[k].dir + "/" + name + kinds[k].ext }

func (k Kind) notFound(name string) error { return fmt.Errorf("%w: %q", kinds[k].notFound, name) }

// Builtin names one asset written into packages.
type Builtin struct {
	Kind Kind
	Name string
}

// Builtins lists every asset a conversion may load.
func Builtins() []Builtin {
	return []Builtin{
		{KindTemplate, TemplateWrapper},
		{KindTemplate, TemplatePDFViewer},
		{KindTemplate, TemplateDOCXViewer},
		{KindTemplate, TemplateFallback},
		{KindStyle, StyleContent},
		{KindScript, ScriptRuntime},
	}
}

// ValidateName accepts lowercase letters, digits, '_' and '-'. Anything
// else, including separators and dots, could address a file outside the
// kind's directory.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
		}
	}
	return nil
}

// Load reads one asset of kind k through l.
func Load(l AssetLoader, k Kind, name string) (string, error) {
	switch k {
	case KindStyle:
		return l.LoadStyle(name)
	case KindTemplate:
		return l.LoadTemplate(name)
	case KindScript:
		return l.LoadScript(name)
	}
	return "", fmt.Errorf("%w: unknown kind %d", ErrInvalidAssetName, k)
}

// Check loads every built-in asset through l and parses the templates, so
// a broken override fails before any document is converted. Page templates
// are parsed as HTML and the runtime script as text, as they are rendered.
func Check(l AssetLoader) error {
	for _, b := range Builtins() {
		src, err := Load(l, b.Kind, b.Name)
		if err != nil {
			return err
		}
		switch b.Kind {
		case KindTemplate:
			_, err = htmltemplate.New(b.Name).Parse(src)
		case KindScript:
			_, err = texttemplate.New(b.Name).Parse(src)
		}
		if err != nil {
			return fmt.Errorf("%w: %s/%s: %v", ErrInvalidAsset, b.Kind, b.Name, err)
		}
	}
	return nil
}
