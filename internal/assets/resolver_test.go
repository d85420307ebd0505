package assets

import (
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestAssetResolver - Override layer over the embedded assets
// ---------------------------------------------------------------------------

func TestAssetResolver(t *testing.T) {
	t.Parallel()

	t.Run("embedded only", func(t *testing.T) {
		t.Parallel()

		r, err := NewAssetResolver("")
		if err != nil {
			t.Fatal(err)
		}
		if r.HasOverrides() {
			t.Error("HasOverrides() = true without a directory")
		}
		if err := Check(r); err != nil {
			t.Errorf("Check() = %v", err)
		}
	})

	t.Run("invalid directory", func(t *testing.T) {
		t.Parallel()

		if _, err := NewAssetResolver("/nonexistent/doc2scorm/assets"); !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("error = %v, want ErrInvalidBasePath", err)
		}
	})

	dir := t.TempDir()
	writeOverride(t, dir, KindTemplate, TemplateWrapper, `<html class="branded">{{.Title}}</html>`)
	writeOverride(t, dir, KindTemplate, "extra", `<p>extra</p>`)
	r, err := NewAssetResolver(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !r.HasOverrides() {
		t.Error("HasOverrides() = false with a directory")
	}

	tests := []struct {
		name    string
		kind    Kind
		asset   string
		want    string
		wantErr error
	}{
		{"override wins", KindTemplate, TemplateWrapper, `class="branded"`, nil},
		{"override only", KindTemplate, "extra", "extra", nil},
		{"falls back to embedded template", KindTemplate, TemplateFallback, "{{.Message}}", nil},
		{"falls back to embedded style", KindStyle, StyleContent, "font-family", nil},
		{"falls back to embedded script", KindScript, ScriptRuntime, "{{.Config}}", nil},
		{"missing everywhere", KindStyle, "brand", "", ErrStyleNotFound},
		{"invalid name is not retried", KindTemplate, "../wrapper", "", ErrInvalidAssetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Load(r, tt.kind, tt.asset)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("content = %q, want substring %q", got, tt.want)
			}
		})
	}
}

// staticLoader answers every lookup with the same result.
type staticLoader struct {
	src string
	err error
}

func (s staticLoader) LoadStyle(string) (string, error)    { return s.src, s.err }
func (s staticLoader) LoadTemplate(string) (string, error) { return s.src, s.err }
func (s staticLoader) LoadScript(string) (string, error)   { return s.src, s.err }

func TestAssetResolver_ReadErrorStopsLookup(t *testing.T) {
	t.Parallel()

	r := &AssetResolver{layers: []AssetLoader{
		staticLoader{err: ErrAssetRead},
		staticLoader{src: "never reached"},
	}}
	if _, err := r.LoadTemplate(TemplateWrapper); !errors.Is(err, ErrAssetRead) {
		t.Errorf("error = %v, want ErrAssetRead", err)
	}

	r = &AssetResolver{layers: []AssetLoader{
		staticLoader{err: ErrTemplateNotFound},
		staticLoader{src: "second layer"},
	}}
	if got, err := r.LoadTemplate(TemplateWrapper); err != nil || got != "second layer" {
		t.Errorf("LoadTemplate() = %q, %v, want second layer", got, err)
	}
}
