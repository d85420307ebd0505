package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alnah/go-doc2scorm/internal/archive"
	"github.com/alnah/go-doc2scorm/internal/player"
	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// ErrVerifyFailed is returned when the played attempt is incomplete or the
// data model rejected a call.
var ErrVerifyFailed = errors.New("package verification failed")

// verifyReport combines the static checks and the played attempt.
type verifyReport struct {
	Package *PackageReport `json:"package"`
	Run     *player.Report `json:"run,omitempty"`
	Passed  bool           `json:"passed"`
}

// runVerifyCmd checks a package statically, then plays it in a headless
// browser or, with --simulate, through the Go tracking model.
func runVerifyCmd(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseVerifyFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	logger, err := newLogger(env.Stderr, flags.common)
	if err != nil {
		return err
	}
	path, err := singlePackageArg("verify", positional)
	if err != nil {
		return err
	}

	pkgReport, zr, err := inspectPackage(path)
	if err != nil {
		return err
	}
	report := &verifyReport{Package: pkgReport}
	if !pkgReport.OK() {
		printVerifyReport(env.Stdout, report, flags)
		return ErrPackageChecks
	}
	v := scorm.Version(pkgReport.Version)

	if flags.simulate {
		cfg, err := loadConfig(flags.common.config, env)
		if err != nil {
			return err
		}
		rt, err := cfg.RuntimeOptions()
		if err != nil {
			return err
		}
		report.Run, err = player.Simulate(ctx, v, player.SimulateOptions{Runtime: rt, Logger: logger, Now: env.Now})
		if err != nil {
			return fmt.Errorf("simulating: %w", err)
		}
	} else {
		dir, err := os.MkdirTemp("", "doc2scorm-verify-*")
		if err != nil {
			return fmt.Errorf("creating work directory: %w", err)
		}
		defer os.RemoveAll(dir)

		if err := archive.Extract(zr, dir, archive.DefaultExtractLimit); err != nil {
			return fmt.Errorf("extracting %s: %w", path, err)
		}

		b := player.NewBrowser(flags.timeout)
		defer b.Close()
		logger.Debug("playing package", "path", path, "version", v, "dwell", flags.dwell)
		if report.Run, err = player.Verify(ctx, b, dir, v, flags.dwell, logger); err != nil {
			return err
		}
	}

	report.Passed = report.Run.Passed()
	printVerifyReport(env.Stdout, report, flags)
	if !report.Passed {
		return ErrVerifyFailed
	}
	return nil
}

func printVerifyReport(w io.Writer, r *verifyReport, flags *verifyFlags) {
	if flags.json {
		_ = writeJSON(w, r)
		return
	}
	if flags.common.quiet && r.Passed {
		return
	}

	printPackageReport(w, r.Package, flags.common.verbose)
	if r.Run == nil {
		return
	}

	s := r.Run.Snapshot
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Attempt (%s)\n", r.Run.Mode)
	fmt.Fprintf(w, "  Initialized:  %t\n", s.Initialized)
	fmt.Fprintf(w, "  Terminated:   %t\n", s.Terminated)
	fmt.Fprintf(w, "  Completion:   %s\n", s.Completion)
	if s.Success != "" {
		fmt.Fprintf(w, "  Success:      %s\n", s.Success)
	}
	if s.Progress != "" {
		fmt.Fprintf(w, "  Progress:     %s\n", s.Progress)
	}
	fmt.Fprintf(w, "  Session time: %s\n", s.SessionTime)
	fmt.Fprintf(w, "  Commits:      %d\n", s.Commits)
	fmt.Fprintf(w, "  Calls:        %d\n", s.Calls)

	if flags.common.verbose {
		for _, c := range r.Run.Calls {
			fmt.Fprintf(w, "    %s(%s %s) = %s [%s]\n", c.Method, c.Element, c.Value, c.Result, c.Error)
		}
	}
	for _, c := range r.Run.Rejected {
		fmt.Fprintf(w, "  [ERROR] %s %s=%q rejected with code %s\n", c.Method, c.Element, c.Value, c.Error)
	}

	fmt.Fprintln(w)
	if r.Passed {
		fmt.Fprintln(w, "Status: Passed")
	} else {
		fmt.Fprintln(w, "Status: Failed")
	}
}
