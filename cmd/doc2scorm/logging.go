package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// newLogger builds the CLI logger. Warnings show by default, -v adds
// debug output and -q keeps errors only.
func newLogger(w io.Writer, f commonFlags) (*log.Logger, error) {
	var formatter log.Formatter
	switch strings.ToLower(f.logFormat) {
	case "", "text":
		formatter = log.TextFormatter
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		return nil, fmt.Errorf("%w: unknown log format %q (text, json, logfmt)", ErrUsage, f.logFormat)
	}

	level := log.WarnLevel
	switch {
	case f.quiet:
		level = log.ErrorLevel
	case f.verbose:
		level = log.DebugLevel
	}

	return log.NewWithOptions(w, log.Options{
		Prefix:          "doc2scorm",
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: f.verbose,
	}), nil
}
