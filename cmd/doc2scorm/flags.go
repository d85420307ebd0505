package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-doc2scorm/internal/player"
)

// ErrUsage wraps flag parsing and argument count errors.
var ErrUsage = errors.New("usage error")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config    string
	quiet     bool
	verbose   bool
	logFormat string
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common      commonFlags
	output      string
	title       string
	version     string
	docType     string
	workers     int
	noResources bool
	pdfScale    float64
	includePDF  bool
	maxSize     string
	keepWorkDir bool
	assetPath   string
	dwell       int
}

// inspectFlags holds flags for the inspect command.
type inspectFlags struct {
	common commonFlags
	json   bool
}

// verifyFlags holds flags for the verify command.
type verifyFlags struct {
	common   commonFlags
	json     bool
	simulate bool
	dwell    time.Duration
	timeout  time.Duration
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs and timing")
	fs.StringVar(&f.logFormat, "log-format", "text", "log format: text, json, logfmt")
}

// addConvertFlags registers convert flags. Completion reuses it.
func addConvertFlags(fs *flag.FlagSet, f *convertFlags) {
	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.StringVarP(&f.title, "title", "t", "", "course title (default: from the document)")
	fs.StringVarP(&f.version, "scorm-version", "V", "", "SCORM version: 1.2, 2004")
	fs.StringVar(&f.docType, "type", "", "input type: html, htm, pdf, docx, md (default: from extension)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.BoolVar(&f.noResources, "no-resources", false, "do not copy files referenced by HTML")
	fs.Float64Var(&f.pdfScale, "pdf-scale", 0, "PDF page render scale (0.5-6.0)")
	fs.BoolVar(&f.includePDF, "include-pdf", false, "package the original PDF with a download link")
	fs.StringVar(&f.maxSize, "max-size", "", "maximum input size, e.g. 10MB")
	fs.BoolVar(&f.keepWorkDir, "keep-workdir", false, "keep the work directory for debugging")
	fs.StringVar(&f.assetPath, "asset-path", "", "custom asset directory")
	fs.IntVar(&f.dwell, "dwell-seconds", 0, "DOCX seconds before completion")
	addCommonFlags(fs, &f.common)
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string, stderr io.Writer) (*convertFlags, *flag.FlagSet, []string, error) {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &convertFlags{}
	addConvertFlags(fs, f)
	fs.Usage = func() { printConvertUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, usageError(err)
	}
	return f, fs, fs.Args(), nil
}

// addInspectFlags registers inspect flags.
func addInspectFlags(fs *flag.FlagSet, f *inspectFlags) {
	fs.BoolVar(&f.json, "json", false, "print the report as JSON")
	addCommonFlags(fs, &f.common)
}

func parseInspectFlags(args []string, stderr io.Writer) (*inspectFlags, []string, error) {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &inspectFlags{}
	addInspectFlags(fs, f)
	fs.Usage = func() { printInspectUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, usageError(err)
	}
	return f, fs.Args(), nil
}

// addVerifyFlags registers verify flags.
func addVerifyFlags(fs *flag.FlagSet, f *verifyFlags) {
	fs.BoolVar(&f.json, "json", false, "print the report as JSON")
	fs.BoolVar(&f.simulate, "simulate", false, "run the tracking model without a browser")
	fs.DurationVar(&f.dwell, "dwell", player.DefaultDwell, "time spent on the content before and after scrolling")
	fs.DurationVar(&f.timeout, "timeout", player.DefaultTimeout, "browser page timeout")
	addCommonFlags(fs, &f.common)
}

func parseVerifyFlags(args []string, stderr io.Writer) (*verifyFlags, []string, error) {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &verifyFlags{}
	addVerifyFlags(fs, f)
	fs.Usage = func() { printVerifyUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, usageError(err)
	}
	return f, fs.Args(), nil
}

// usageError keeps flag.ErrHelp intact so -h exits cleanly.
func usageError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}

// singlePackageArg returns the only positional argument.
func singlePackageArg(cmd string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: %s takes exactly one package path, got %d", ErrUsage, cmd, len(args))
	}
	return args[0], nil
}
