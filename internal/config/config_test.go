package config

// Notes:
// - Named-config resolution changes the working directory and
//   XDG_CONFIG_HOME, so those tests do not run in parallel.
// - Runtime conversion is checked against shim.Options values, not the
//   rendered script.

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-doc2scorm/internal/scorm"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

// ---------------------------------------------------------------------------
// TestDefaultConfig
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() unexpected error: %v", err)
	}
	v, err := cfg.Version()
	if err != nil || v != scorm.V2004 {
		t.Errorf("Version() = %q, %v, want 2004", v, err)
	}
	if n, err := cfg.MaxInputBytes(); err != nil || n != 0 {
		t.Errorf("MaxInputBytes() = %d, %v, want library default (0)", n, err)
	}
	opts, err := cfg.RuntimeOptions()
	if err != nil {
		t.Fatalf("RuntimeOptions() unexpected error: %v", err)
	}
	if opts.CompletionThreshold != 0 || opts.Discover.MaxHops != 0 {
		t.Errorf("RuntimeOptions() = %+v, want zero values (library defaults)", opts)
	}
}

// ---------------------------------------------------------------------------
// TestLoadConfig - Files
// ---------------------------------------------------------------------------

func TestLoadConfig_FullFile(t *testing.T) {
	t.Parallel()

	p := writeConfig(t, t.TempDir(), "course.yaml", `
conversion:
  scormVersion: "1.2"
  maxInputSize: 25MB
  tempDir: /var/tmp/scorm
  retainWorkDir: true
  workers: 4
html:
  skipAssets: true
pdf:
  scale: 2
  maxPageWidth: 1600
  includeOriginal: true
  pdftoppm: /opt/poppler/bin/pdftoppm
docx:
  dwellSeconds: 20
runtime:
  completionThreshold: 0.8
  scrollComplete: 95
  dwellComplete: 2m
  commitInterval: 1m
  discovery:
    prefer: ["1.2", "2004"]
    maxHops: 7
    attempts: 5
    backoff: 250ms
    skipOpener: true
output:
  defaultDir: ./packages
assets:
  basePath: ./theme
`)

	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error: %v", err)
	}

	if v, _ := cfg.Version(); v != scorm.V12 {
		t.Errorf("Version() = %q, want 1.2", v)
	}
	if n, _ := cfg.MaxInputBytes(); n != 25_000_000 {
		t.Errorf("MaxInputBytes() = %d, want 25000000", n)
	}
	if !cfg.Conversion.RetainWorkDir || cfg.Conversion.Workers != 4 || cfg.Conversion.TempDir != "/var/tmp/scorm" {
		t.Errorf("Conversion = %+v", cfg.Conversion)
	}
	if !cfg.HTML.SkipAssets {
		t.Error("HTML.SkipAssets = false, want true")
	}
	if cfg.PDF.Scale != 2 || cfg.PDF.MaxPageWidth != 1600 || !cfg.PDF.IncludeOriginal || cfg.PDF.PDFToPPM != "/opt/poppler/bin/pdftoppm" {
		t.Errorf("PDF = %+v", cfg.PDF)
	}
	if cfg.DOCX.DwellSeconds != 20 {
		t.Errorf("DOCX.DwellSeconds = %d, want 20", cfg.DOCX.DwellSeconds)
	}
	if cfg.Output.DefaultDir != "./packages" || cfg.Assets.BasePath != "./theme" {
		t.Errorf("Output = %+v, Assets = %+v", cfg.Output, cfg.Assets)
	}

	opts, err := cfg.RuntimeOptions()
	if err != nil {
		t.Fatalf("RuntimeOptions() unexpected error: %v", err)
	}
	if opts.CompletionThreshold != 0.8 || opts.ScrollComplete != 95 {
		t.Errorf("thresholds = %v/%d", opts.CompletionThreshold, opts.ScrollComplete)
	}
	if opts.DwellComplete != 2*time.Minute || opts.CommitInterval != time.Minute || opts.SessionTimeInterval != 0 {
		t.Errorf("durations = %v/%v/%v", opts.DwellComplete, opts.CommitInterval, opts.SessionTimeInterval)
	}
	d := opts.Discover
	if len(d.Prefer) != 2 || d.Prefer[0] != scorm.V12 || d.MaxHops != 7 || d.Attempts != 5 || d.Backoff != 250*time.Millisecond || !d.SkipOpener {
		t.Errorf("Discover = %+v", d)
	}
}

func TestLoadConfig_PartialKeepsDefaults(t *testing.T) {
	t.Parallel()

	p := writeConfig(t, t.TempDir(), "pdf-only.yaml", "pdf:\n  includeOriginal: true\n")
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error: %v", err)
	}
	if cfg.Conversion.ScormVersion != "2004" {
		t.Errorf("ScormVersion = %q, want default 2004", cfg.Conversion.ScormVersion)
	}
	if !cfg.PDF.IncludeOriginal {
		t.Error("PDF.IncludeOriginal = false, want true")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"unknown field", "conversion:\n  scormVersoin: \"1.2\"\n", ErrConfigParse},
		{"wrong type", "pdf:\n  scale: big\n", ErrConfigParse},
		{"empty file", "", ErrConfigParse},
		{"bad version", "conversion:\n  scormVersion: \"3\"\n", scorm.ErrInvalidVersion},
		{"bad size", "conversion:\n  maxInputSize: lots\n", ErrInvalidValue},
		{"zero size", "conversion:\n  maxInputSize: 0B\n", ErrInvalidValue},
		{"scale too small", "pdf:\n  scale: 0.1\n", ErrInvalidValue},
		{"negative width", "pdf:\n  maxPageWidth: -1\n", ErrInvalidValue},
		{"dwell too long", "docx:\n  dwellSeconds: 7200\n", ErrInvalidValue},
		{"too many workers", "conversion:\n  workers: 500\n", ErrInvalidValue},
		{"bad duration", "runtime:\n  commitInterval: soon\n", ErrInvalidValue},
		{"negative duration", "runtime:\n  dwellComplete: -5s\n", ErrInvalidValue},
		{"threshold above one", "runtime:\n  completionThreshold: 1.5\n", ErrInvalidValue},
		{"negative threshold", "runtime:\n  progressCap: -0.5\n", ErrInvalidValue},
		{"bad prefer", "runtime:\n  discovery:\n    prefer: [\"2.0\"]\n", ErrInvalidValue},
		{"too many hops", "runtime:\n  discovery:\n    maxHops: 1000\n", ErrInvalidValue},
		{"long path", "output:\n  defaultDir: " + strings.Repeat("a", MaxPathLength+1) + "\n", ErrFieldTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := writeConfig(t, t.TempDir(), "c.yaml", tt.content)
			_, err := LoadConfig(p)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadConfig() error = %v, want ErrConfigNotFound", err)
	}
	if _, err := LoadConfig(""); !errors.Is(err, ErrEmptyConfigName) {
		t.Errorf("LoadConfig(\"\") error = %v, want ErrEmptyConfigName", err)
	}
}

func TestLoadConfig_TooLarge(t *testing.T) {
	t.Parallel()

	p := writeConfig(t, t.TempDir(), "big.yaml", "# "+strings.Repeat("x", MaxFileSize)+"\n")
	if _, err := LoadConfig(p); !errors.Is(err, ErrConfigParse) {
		t.Errorf("LoadConfig() error = %v, want ErrConfigParse", err)
	}
}

// ---------------------------------------------------------------------------
// TestLoadConfig - Named configs
// ---------------------------------------------------------------------------

func TestLoadConfig_ByName(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME drives os.UserConfigDir on linux only")
	}

	work := t.TempDir()
	xdg := t.TempDir()
	t.Chdir(work)
	t.Setenv("XDG_CONFIG_HOME", xdg)

	writeConfig(t, xdg, filepath.Join(AppDirName, "team.yml"), "conversion:\n  scormVersion: \"1.2\"\n")
	cfg, err := LoadConfig("team")
	if err != nil {
		t.Fatalf("LoadConfig(team) unexpected error: %v", err)
	}
	if cfg.Conversion.ScormVersion != "1.2" {
		t.Errorf("user config not loaded: %+v", cfg.Conversion)
	}

	writeConfig(t, work, "team.yaml", "conversion:\n  scormVersion: \"2004\"\n")
	cfg, err = LoadConfig("team")
	if err != nil {
		t.Fatalf("LoadConfig(team) unexpected error: %v", err)
	}
	if cfg.Conversion.ScormVersion != "2004" {
		t.Error("config in the working directory should win")
	}

	_, err = LoadConfig("absent")
	var nf *NotFoundError
	if !errors.As(err, &nf) || !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("LoadConfig(absent) error = %v, want *NotFoundError", err)
	}
	want := []string{
		"absent.yaml",
		"absent.yml",
		filepath.Join(xdg, AppDirName, "absent.yaml"),
		filepath.Join(xdg, AppDirName, "absent.yml"),
	}
	if strings.Join(nf.Tried, "|") != strings.Join(want, "|") {
		t.Errorf("Tried = %v, want %v", nf.Tried, want)
	}
}

// ---------------------------------------------------------------------------
// TestMarshal - Round trip through LoadConfig
// ---------------------------------------------------------------------------

func TestMarshal(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.PDF.Scale = 3
	cfg.Runtime.Discovery.Prefer = []string{"1.2"}
	data, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}
	p := writeConfig(t, t.TempDir(), "out.yaml", string(data))
	back, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("LoadConfig(marshaled) unexpected error: %v\n%s", err, data)
	}
	if back.PDF.Scale != 3 || len(back.Runtime.Discovery.Prefer) != 1 {
		t.Errorf("round trip lost values: %+v", back)
	}
}
