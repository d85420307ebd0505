package main

import (
	"errors"
	"os"

	doc2scorm "github.com/alnah/go-doc2scorm"
	"github.com/alnah/go-doc2scorm/internal/archive"
	"github.com/alnah/go-doc2scorm/internal/config"
	"github.com/alnah/go-doc2scorm/internal/hints"
	"github.com/alnah/go-doc2scorm/internal/player"
)

// Exit codes for the doc2scorm CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Success
	ExitGeneral = 1 // Conversion or verification failure
	ExitUsage   = 2 // Invalid flags, config, or input
	ExitIO      = 3 // File not found, permission denied, unreadable package
	ExitTool    = 4 // Browser or PDF tool errors
)

// exitCodeFor returns the exit code for err. Callers wrap with %w so
// errors.Is sees the sentinel.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, player.ErrBrowserConnect) ||
		errors.Is(err, player.ErrPageLoad) ||
		errors.Is(err, doc2scorm.ErrRasterizer) {
		return ExitTool
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, archive.ErrNotArchive) ||
		errors.Is(err, archive.ErrEntryNotFound) {
		return ExitIO
	}

	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrUnsupportedShell) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, doc2scorm.ErrInvalidInput) ||
		errors.Is(err, doc2scorm.ErrInvalidVersion) ||
		errors.Is(err, doc2scorm.ErrInvalidAssetPath) {
		return ExitUsage
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error, getenv hints.Getenv) string {
	var notFound *config.NotFoundError
	switch {
	case errors.As(err, &notFound):
		return hints.ConfigNotFound(notFound.Tried)
	case errors.Is(err, player.ErrBrowserConnect):
		return hints.BrowserLaunch(getenv)
	case errors.Is(err, doc2scorm.ErrRasterizer):
		return hints.Rasterizer()
	case errors.Is(err, doc2scorm.ErrInputTooLarge):
		return hints.InputTooLarge("")
	case errors.Is(err, doc2scorm.ErrUnsupportedType):
		names := make([]string, len(doc2scorm.FileTypes))
		for i, ft := range doc2scorm.FileTypes {
			names[i] = string(ft)
		}
		return hints.UnsupportedType(names)
	case errors.Is(err, ErrWriteOutput):
		return hints.OutputDir()
	}
	return ""
}
