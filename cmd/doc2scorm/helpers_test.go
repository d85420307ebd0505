package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	doc2scorm "github.com/alnah/go-doc2scorm"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Environment, rasterizer and fixtures
// ---------------------------------------------------------------------------

// testEnv is an Environment whose output is captured.
type testEnv struct {
	*Environment
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newTestEnv returns an environment with no DOC2SCORM_* variables, a fixed
// clock, every tool found and a fake rasterizer.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &testEnv{
		Environment: &Environment{
			Now:         func() time.Time { return now },
			Stdout:      stdout,
			Stderr:      stderr,
			LookupEnv:   func(string) (string, bool) { return "", false },
			LookPath:    func(name string) (string, error) { return "/usr/bin/" + name, nil },
			BrowserPath: func() (string, bool) { return "/usr/bin/chromium", true },
			Rasterizer:  &fakeRasterizer{pages: 2},
		},
		stdout: stdout,
		stderr: stderr,
	}
}

// withEnvVars makes LookupEnv answer from vars.
func (e *testEnv) withEnvVars(vars map[string]string) *testEnv {
	e.LookupEnv = func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
	return e
}

// fakeRasterizer renders blank pages so PDF input needs no poppler.
type fakeRasterizer struct {
	pages    int
	countErr error

	mu       sync.Mutex
	rendered int
}

func (f *fakeRasterizer) PageCount(context.Context, string) (int, error) {
	return f.pages, f.countErr
}

func (f *fakeRasterizer) RenderPage(_ context.Context, _ string, _ int, _ float64, dst string) error {
	f.mu.Lock()
	f.rendered++
	f.mu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		return err
	}
	return os.WriteFile(dst, buf.Bytes(), 0o644)
}

var errPopplerMissing = fmt.Errorf("%w: starting pdfinfo: executable file not found", doc2scorm.ErrRasterizer)

const (
	sampleHTML = `<!DOCTYPE html>
<html><head><title>Fire Safety</title></head>
<body><h1>Fire Safety</h1><p>Know your exits.</p><img src="img/exit.png"></body></html>`

	sampleMarkdown = "# Ladder Safety\n\nThree points of contact.\n"

	samplePDF = "%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n"
)

// writeFile creates a file with its parent directories.
func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// writePNG writes a small valid PNG image.
func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	writeFile(t, path, buf.String())
}

// buildPackage converts sampleHTML through the CLI and returns the package
// path.
func buildPackage(t *testing.T, version string) string {
	t.Helper()
	dir := t.TempDir()
	input := writeFile(t, filepath.Join(dir, "fire.html"), sampleHTML)
	writePNG(t, filepath.Join(dir, "img", "exit.png"))
	output := filepath.Join(dir, "fire.zip")

	env := newTestEnv(t)
	code := run(context.Background(), []string{"doc2scorm", "convert", input, "-o", output, "-V", version}, env.Environment)
	if code != ExitSuccess {
		t.Fatalf("convert exit = %d, stderr: %s", code, env.stderr.String())
	}
	return output
}
