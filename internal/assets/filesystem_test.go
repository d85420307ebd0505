package assets

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestNewFilesystemLoader - Directory checks
// ---------------------------------------------------------------------------

func TestNewFilesystemLoader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"directory", dir, false},
		{"empty path", "", true},
		{"missing", filepath.Join(dir, "absent"), true},
		{"file", file, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, err := NewFilesystemLoader(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidBasePath) {
					t.Errorf("error = %v, want ErrInvalidBasePath", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !filepath.IsAbs(l.Dir()) {
				t.Errorf("Dir() = %q, want absolute", l.Dir())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestFilesystemLoader_Load - Reading overrides
// ---------------------------------------------------------------------------

func TestFilesystemLoader_Load(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeOverride(t, dir, KindStyle, StyleContent, "body { color: navy; }")
	writeOverride(t, dir, KindTemplate, TemplateWrapper, "<html>{{.Title}}</html>")
	writeOverride(t, dir, KindScript, ScriptRuntime, "var cfg = {{.Config}};")
	writeOverride(t, dir, KindTemplate, "huge", strings.Repeat("x", maxAssetSize+1))

	l, err := NewFilesystemLoader(dir)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		load    func() (string, error)
		want    string
		wantErr error
	}{
		{"style", func() (string, error) { return l.LoadStyle(StyleContent) }, "navy", nil},
		{"template", func() (string, error) { return l.LoadTemplate(TemplateWrapper) }, "{{.Title}}", nil},
		{"script", func() (string, error) { return l.LoadScript(ScriptRuntime) }, "{{.Config}}", nil},
		{"missing template", func() (string, error) { return l.LoadTemplate(TemplateFallback) }, "", ErrTemplateNotFound},
		{"missing directory", func() (string, error) { return l.LoadScript("other") }, "", ErrScriptNotFound},
		{"invalid name", func() (string, error) { return l.LoadStyle("../content") }, "", ErrInvalidAssetName},
		{"too large", func() (string, error) { return l.LoadTemplate("huge") }, "", ErrAssetRead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.load()
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

// ---------------------------------------------------------------------------
// TestFilesystemLoader_SymlinkEscape - Links cannot leave the directory
// ---------------------------------------------------------------------------

func TestFilesystemLoader_SymlinkEscape(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	outside := filepath.Join(t.TempDir(), "secret.css")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "styles"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(dir, "styles", "content.css")); err != nil {
		t.Fatal(err)
	}

	l, err := NewFilesystemLoader(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := l.LoadStyle(StyleContent)
	if !errors.Is(err, ErrAssetRead) {
		t.Errorf("LoadStyle() = %q, %v, want ErrAssetRead", got, err)
	}
}
