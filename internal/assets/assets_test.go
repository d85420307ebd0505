package assets

// Notes:
// - Built-in templates are parsed through Check, the same path a custom
//   override goes through. Rendering is covered by the pipeline package.
// - writeOverride builds override directories in t.TempDir().

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeOverride writes content to dir/<kind dir>/<name><ext>.
func writeOverride(t *testing.T, dir string, k Kind, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(k.file(name)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestValidateName - Names that stay inside their directory
// ---------------------------------------------------------------------------

func TestValidateName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		wantErr bool
	}{
		{"wrapper", false},
		{"pdf_viewer", false},
		{"brand-2", false},
		{"", true},
		{"../wrapper", true},
		{"sub/wrapper", true},
		{"sub\\wrapper", true},
		{"wrapper.html", true},
		{"Wrapper", true},
		{"wrap per", true},
		{"wrapper\x00", true},
	}

	for _, tt := range tests {
		err := ValidateName(tt.name)
		if tt.wantErr != (err != nil) {
			t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidAssetName) {
			t.Errorf("ValidateName(%q) error = %v, want ErrInvalidAssetName", tt.name, err)
		}
	}
}

// ---------------------------------------------------------------------------
// TestCheck - Every built-in asset loads and parses
// ---------------------------------------------------------------------------

func TestCheck(t *testing.T) {
	t.Parallel()

	t.Run("embedded", func(t *testing.T) {
		t.Parallel()

		if err := Check(NewEmbeddedLoader()); err != nil {
			t.Fatalf("Check(embedded) = %v", err)
		}
	})

	t.Run("broken template override", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeOverride(t, dir, KindTemplate, TemplatePDFViewer, "{{range .Pages}")
		r, err := NewAssetResolver(dir)
		if err != nil {
			t.Fatalf("NewAssetResolver: %v", err)
		}
		err = Check(r)
		if !errors.Is(err, ErrInvalidAsset) || !strings.Contains(err.Error(), "templates/"+TemplatePDFViewer) {
			t.Errorf("Check() = %v, want ErrInvalidAsset for templates/%s", err, TemplatePDFViewer)
		}
	})

	t.Run("broken script override", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeOverride(t, dir, KindScript, ScriptRuntime, "var c = {{.Config;")
		r, err := NewAssetResolver(dir)
		if err != nil {
			t.Fatalf("NewAssetResolver: %v", err)
		}
		if err := Check(r); !errors.Is(err, ErrInvalidAsset) {
			t.Errorf("Check() = %v, want ErrInvalidAsset", err)
		}
	})

	t.Run("stylesheets are not parsed", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeOverride(t, dir, KindStyle, StyleContent, "body { content: '{{' }")
		r, err := NewAssetResolver(dir)
		if err != nil {
			t.Fatalf("NewAssetResolver: %v", err)
		}
		if err := Check(r); err != nil {
			t.Errorf("Check() = %v, want nil", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestBuiltinTemplates - Content the runtime relies on
// ---------------------------------------------------------------------------

func TestBuiltinTemplates(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()

	for _, b := range Builtins() {
		if b.Kind != KindTemplate {
			continue
		}
		src, err := loader.LoadTemplate(b.Name)
		if err != nil {
			t.Fatalf("LoadTemplate(%q): %v", b.Name, err)
		}
		if !strings.Contains(src, "Content-Security-Policy") || !strings.Contains(src, "{{.CSP}}") {
			t.Errorf("template %q should carry the CSP meta", b.Name)
		}
	}

	wrapper, err := loader.LoadTemplate(TemplateWrapper)
	if err != nil {
		t.Fatal(err)
	}
	for _, part := range []string{
		`<script src="scorm_api.js"></script>`,
		`id="content-frame"`,
		`sandbox="allow-same-origin allow-scripts allow-forms"`,
		"updateProgress",
		"pageChanged",
		"scorm-interaction",
		"scorm-complete",
		"beforeunload",
	} {
		if !strings.Contains(wrapper, part) {
			t.Errorf("wrapper template should contain %q", part)
		}
	}

	script, err := loader.LoadScript(ScriptRuntime)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(script, "{{.Config}}") {
		t.Error("runtime script should take its configuration from {{.Config}}")
	}
}

// ---------------------------------------------------------------------------
// TestLoad - Dispatch by kind
// ---------------------------------------------------------------------------

func TestLoad(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()
	tests := []struct {
		kind    Kind
		name    string
		wantErr error
	}{
		{KindStyle, StyleContent, nil},
		{KindTemplate, TemplateFallback, nil},
		{KindScript, ScriptRuntime, nil},
		{KindStyle, TemplateWrapper, ErrStyleNotFound},
		{KindTemplate, StyleContent, ErrTemplateNotFound},
		{KindScript, "nope", ErrScriptNotFound},
		{Kind(9), "wrapper", ErrInvalidAssetName},
	}

	for _, tt := range tests {
		src, err := Load(loader, tt.kind, tt.name)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load(%d, %q) error = %v, want %v", tt.kind, tt.name, err, tt.wantErr)
			}
			continue
		}
		if err != nil || src == "" {
			t.Errorf("Load(%d, %q) = %d bytes, %v", tt.kind, tt.name, len(src), err)
		}
	}

	for _, sentinel := range []error{ErrStyleNotFound, ErrTemplateNotFound, ErrScriptNotFound} {
		if !errors.Is(sentinel, ErrNotFound) {
			t.Errorf("%v should match ErrNotFound", sentinel)
		}
	}
}
