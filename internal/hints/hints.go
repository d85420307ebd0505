// Package hints builds the one-line suggestions appended to CLI errors,
// formatted as "\n  hint: <text>".
package hints

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alnah/go-doc2scorm/internal/fileutil"
)

const prefix = "\n  hint: "

// Getenv reads one environment variable; "" means unset.
type Getenv func(key string) string

var ciVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "BUILDKITE"}

// InCI reports whether any well-known CI variable is set.
func InCI(getenv Getenv) bool {
	return slices.ContainsFunc(ciVars, func(k string) bool { return getenv(k) != "" })
}

// InContainer reports whether the process runs in a Docker container.
// Tests replace it.
var InContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// BrowserLaunch suggests fixes for a browser that would not start. Advice
// already followed in the environment is left out.
func BrowserLaunch(getenv Getenv) string {
	var parts []string
	if getenv("ROD_NO_SANDBOX") != "1" && (InContainer() || InCI(getenv)) {
		parts = append(parts, "set ROD_NO_SANDBOX=1 inside containers and CI")
	}
	if getenv("ROD_BROWSER_BIN") == "" {
		parts = append(parts, "point ROD_BROWSER_BIN at a Chrome or Chromium binary")
	}
	return join(append(parts, "or replay with verify --simulate, which needs no browser")...)
}

// Rasterizer points at the poppler tools behind PDF conversion.
func Rasterizer() string {
	return join("install poppler-utils (pdfinfo, pdftoppm) or set pdf.pdfinfo and pdf.pdftoppm in the config")
}

// ConfigNotFound suggests --config, and creating the file in the user
// config directory when that location was searched.
func ConfigNotFound(tried []string) string {
	i := slices.IndexFunc(tried, func(p string) bool {
		return strings.Contains(p, ".config/go-doc2scorm")
	})
	if i < 0 {
		return join("pass --config /path/to/course.yaml")
	}
	return join("pass --config /path/to/course.yaml or create " + tried[i])
}

// OutputDir covers a package that could not be written.
func OutputDir() string {
	return join("make sure the output directory's parent exists and is writable")
}

// InputTooLarge suggests raising the size limit, naming it when known.
func InputTooLarge(limit string) string {
	if limit != "" {
		limit = " (" + limit + ")"
	}
	return join("raise the limit" + limit + " with --max-size or DOC2SCORM_MAX_INPUT_SIZE")
}

// UnsupportedType lists the accepted input types.
func UnsupportedType(supported []string) string {
	if len(supported) == 0 {
		return ""
	}
	return join("supported: "+strings.Join(supported, ", "), "force a type with --type")
}

// MissingAssets explains how to get referenced files into the package.
func MissingAssets(n int) string {
	switch {
	case n <= 0:
		return ""
	case n == 1:
		return join("1 referenced file was not found next to the document", "keep assets beside it or use --no-resources")
	}
	return join(fmt.Sprintf("%d referenced files were not found next to the document", n), "keep assets beside it or use --no-resources")
}

func join(parts ...string) string {
	if len(parts) == 0 {
		return ""
	}
	return prefix + strings.Join(parts, "; ")
}
