// Package config loads doc2scorm settings from YAML files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alnah/go-doc2scorm/internal/scorm"
	"github.com/alnah/go-doc2scorm/internal/shim"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength     = 4096
	MaxSizeLength     = 20 // "10MB", "512 KiB"
	MaxDurationLength = 20 // "60s", "1m30s"
	MaxToolLength     = 1024
)

// Value ranges.
const (
	MinPDFScale     = 0.5
	MaxPDFScale     = 6.0
	MaxDwellSeconds = 3600
	MaxWorkers      = 64
	MaxDiscoverHops = 100
)

// AppDirName is the directory under the user config dir searched for
// named configs.
const AppDirName = "go-doc2scorm"

// Config holds all configuration for package generation.
type Config struct {
	Conversion ConversionConfig `yaml:"conversion"`
	HTML       HTMLConfig       `yaml:"html"`
	PDF        PDFConfig        `yaml:"pdf"`
	DOCX       DOCXConfig       `yaml:"docx"`
	Runtime    RuntimeConfig    `yaml:"runtime"`
	Output     OutputConfig     `yaml:"output"`
	Assets     AssetsConfig     `yaml:"assets"`
}

// ConversionConfig defines assembly options.
type ConversionConfig struct {
	ScormVersion  string `yaml:"scormVersion"`  // "1.2" or "2004" (default: "2004")
	MaxInputSize  string `yaml:"maxInputSize"`  // e.g. "10MB" (default: 10 MiB)
	TempDir       string `yaml:"tempDir"`       // Empty = system temp dir
	RetainWorkDir bool   `yaml:"retainWorkDir"` // Keep the work dir for debugging
	Workers       int    `yaml:"workers"`       // Batch workers (0 = auto)
}

// HTMLConfig defines HTML normalization options.
type HTMLConfig struct {
	SkipAssets bool `yaml:"skipAssets"` // Do not copy referenced local files
}

// PDFConfig defines PDF rasterization options.
type PDFConfig struct {
	Scale           float64 `yaml:"scale"`           // Page scale (default: 2.5)
	MaxPageWidth    int     `yaml:"maxPageWidth"`    // Pixels, 0 = no limit
	IncludeOriginal bool    `yaml:"includeOriginal"` // Package the PDF with a download link
	PDFInfo         string  `yaml:"pdfinfo"`         // Tool path (default: "pdfinfo")
	PDFToPPM        string  `yaml:"pdftoppm"`        // Tool path (default: "pdftoppm")
}

// DOCXConfig defines Word document options.
type DOCXConfig struct {
	DwellSeconds int `yaml:"dwellSeconds"` // Seconds before completion (default: 10)
}

// RuntimeConfig tunes the tracking script. Zero values keep the defaults.
type RuntimeConfig struct {
	CompletionThreshold float64         `yaml:"completionThreshold"`
	ProgressCap         float64         `yaml:"progressCap"`
	ScrollComplete      int             `yaml:"scrollComplete"`
	DwellComplete       string          `yaml:"dwellComplete"`
	DwellScroll         int             `yaml:"dwellScroll"`
	DwellInterval       string          `yaml:"dwellInterval"`
	SessionTimeInterval string          `yaml:"sessionTimeInterval"`
	CommitInterval      string          `yaml:"commitInterval"`
	Debug               bool            `yaml:"debug"`
	Discovery           DiscoveryConfig `yaml:"discovery"`
}

// DiscoveryConfig bounds the search for the LMS API.
type DiscoveryConfig struct {
	Prefer     []string `yaml:"prefer"`     // Versions in lookup order
	MaxHops    int      `yaml:"maxHops"`    // Parent windows walked (default: 10)
	Attempts   int      `yaml:"attempts"`   // Full searches (default: 3)
	Backoff    string   `yaml:"backoff"`    // Linear backoff step (default: 500ms)
	SkipOpener bool     `yaml:"skipOpener"` // Do not search opener windows
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // Empty = next to the source
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Empty = use embedded assets
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Conversion: ConversionConfig{ScormVersion: string(scorm.DefaultVersion)},
	}
}

// Validate checks lengths, ranges and the syntax of every string value.
// Called automatically by LoadConfig and ApplyEnv.
func (c *Config) Validate() error {
	lengths := []struct {
		field string
		value string
		max   int
	}{
		{"conversion.maxInputSize", c.Conversion.MaxInputSize, MaxSizeLength},
		{"conversion.tempDir", c.Conversion.TempDir, MaxPathLength},
		{"pdf.pdfinfo", c.PDF.PDFInfo, MaxToolLength},
		{"pdf.pdftoppm", c.PDF.PDFToPPM, MaxToolLength},
		{"runtime.dwellComplete", c.Runtime.DwellComplete, MaxDurationLength},
		{"runtime.dwellInterval", c.Runtime.DwellInterval, MaxDurationLength},
		{"runtime.sessionTimeInterval", c.Runtime.SessionTimeInterval, MaxDurationLength},
		{"runtime.commitInterval", c.Runtime.CommitInterval, MaxDurationLength},
		{"runtime.discovery.backoff", c.Runtime.Discovery.Backoff, MaxDurationLength},
		{"output.defaultDir", c.Output.DefaultDir, MaxPathLength},
		{"assets.basePath", c.Assets.BasePath, MaxPathLength},
	}
	for _, l := range lengths {
		if err := validateFieldLength(l.field, l.value, l.max); err != nil {
			return err
		}
	}

	if _, err := c.Version(); err != nil {
		return fmt.Errorf("conversion.scormVersion: %w", err)
	}
	if _, err := c.MaxInputBytes(); err != nil {
		return err
	}
	if c.Conversion.Workers < 0 || c.Conversion.Workers > MaxWorkers {
		return fmt.Errorf("%w: conversion.workers must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Conversion.Workers)
	}
	if c.PDF.Scale != 0 && (c.PDF.Scale < MinPDFScale || c.PDF.Scale > MaxPDFScale) {
		return fmt.Errorf("%w: pdf.scale must be between %.1f and %.1f, got %.2f", ErrInvalidValue, MinPDFScale, MaxPDFScale, c.PDF.Scale)
	}
	if c.PDF.MaxPageWidth < 0 {
		return fmt.Errorf("%w: pdf.maxPageWidth must not be negative, got %d", ErrInvalidValue, c.PDF.MaxPageWidth)
	}
	if c.DOCX.DwellSeconds < 0 || c.DOCX.DwellSeconds > MaxDwellSeconds {
		return fmt.Errorf("%w: docx.dwellSeconds must be between 0 and %d, got %d", ErrInvalidValue, MaxDwellSeconds, c.DOCX.DwellSeconds)
	}
	if d := c.Runtime.Discovery; d.MaxHops < 0 || d.MaxHops > MaxDiscoverHops || d.Attempts < 0 {
		return fmt.Errorf("%w: runtime.discovery: maxHops must be between 0 and %d and attempts not negative", ErrInvalidValue, MaxDiscoverHops)
	}

	if r := c.Runtime; r.CompletionThreshold < 0 || r.ProgressCap < 0 || r.ScrollComplete < 0 || r.DwellScroll < 0 {
		return fmt.Errorf("%w: runtime thresholds must not be negative", ErrInvalidValue)
	}

	opts, err := c.RuntimeOptions()
	if err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("%w: runtime: %v", ErrInvalidValue, err)
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// Version returns the configured SCORM version.
func (c *Config) Version() (scorm.Version, error) {
	return scorm.ParseVersion(c.Conversion.ScormVersion)
}

// MaxInputBytes parses conversion.maxInputSize. Zero means the library
// default.
func (c *Config) MaxInputBytes() (int64, error) {
	s := strings.TrimSpace(c.Conversion.MaxInputSize)
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: conversion.maxInputSize: %v", ErrInvalidValue, err)
	}
	if n == 0 || n > 1<<40 {
		return 0, fmt.Errorf("%w: conversion.maxInputSize out of range: %s", ErrInvalidValue, s)
	}
	return int64(n), nil
}

// RuntimeOptions converts the runtime section to tracking options.
func (c *Config) RuntimeOptions() (shim.Options, error) {
	r := c.Runtime
	var durations [5]time.Duration
	for i, f := range []struct {
		field string
		value string
	}{
		{"runtime.dwellComplete", r.DwellComplete},
		{"runtime.dwellInterval", r.DwellInterval},
		{"runtime.sessionTimeInterval", r.SessionTimeInterval},
		{"runtime.commitInterval", r.CommitInterval},
		{"runtime.discovery.backoff", r.Discovery.Backoff},
	} {
		d, err := parseDuration(f.field, f.value)
		if err != nil {
			return shim.Options{}, err
		}
		durations[i] = d
	}

	prefer := make([]scorm.Version, 0, len(r.Discovery.Prefer))
	for _, p := range r.Discovery.Prefer {
		v, err := scorm.ParseVersion(p)
		if err != nil || strings.TrimSpace(p) == "" {
			return shim.Options{}, fmt.Errorf("%w: runtime.discovery.prefer: %q", ErrInvalidValue, p)
		}
		prefer = append(prefer, v)
	}

	return shim.Options{
		CompletionThreshold: r.CompletionThreshold,
		ProgressCap:         r.ProgressCap,
		ScrollComplete:      r.ScrollComplete,
		DwellComplete:       durations[0],
		DwellScroll:         r.DwellScroll,
		DwellInterval:       durations[1],
		SessionTimeInterval: durations[2],
		CommitInterval:      durations[3],
		Debug:               r.Debug,
		Discover: shim.DiscoverOptions{
			Prefer:     prefer,
			MaxHops:    r.Discovery.MaxHops,
			Attempts:   r.Discovery.Attempts,
			Backoff:    durations[4],
			SkipOpener: r.Discovery.SkipOpener,
		},
	}, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s: %q is not a positive duration", ErrInvalidValue, field, s)
	}
	return d, nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := unmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, <user config dir>/go-doc2scorm/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, AppDirName, name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", &NotFoundError{Tried: triedPaths}
}

// NotFoundError lists the locations searched for a named config.
type NotFoundError struct {
	Tried []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: tried %s", ErrConfigNotFound, strings.Join(e.Tried, ", "))
}

// Unwrap lets errors.Is match ErrConfigNotFound.
func (e *NotFoundError) Unwrap() error {
	return ErrConfigNotFound
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
