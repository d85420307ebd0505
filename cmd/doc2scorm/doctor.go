package main

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/alnah/go-doc2scorm/internal/config"
	"github.com/alnah/go-doc2scorm/internal/hints"
)

// Check levels. Only levelError makes doctor exit non-zero: HTML, DOCX and
// Markdown conversion and verify --simulate need neither poppler nor Chrome.
const (
	levelOK    = "ok"
	levelWarn  = "warn"
	levelError = "error"
)

// diagnosis is one line of the doctor report.
type diagnosis struct {
	Section string `json:"section"`
	Name    string `json:"name"`
	Level   string `json:"level"`
	Detail  string `json:"detail"`
}

type doctorReport struct {
	Status    string      `json:"status"` // ready, warnings or errors
	Platform  string      `json:"platform"`
	Container bool        `json:"container"`
	CI        bool        `json:"ci"`
	Checks    []diagnosis `json:"checks"`
}

func (r *doctorReport) add(section, name, level, detail string) {
	r.Checks = append(r.Checks, diagnosis{section, name, level, detail})
}

// count returns how many checks ended at level.
func (r *doctorReport) count(level string) int {
	n := 0
	for _, d := range r.Checks {
		if d.Level == level {
			n++
		}
	}
	return n
}

// runDoctorCmd executes the doctor command and returns an exit code.
func runDoctorCmd(args []string, env *Environment) int {
	asJSON := false
	for _, arg := range args {
		switch arg {
		case "--json":
			asJSON = true
		case "-h", "--help":
			printDoctorUsage(env.Stdout)
			return ExitSuccess
		default:
			fmt.Fprintf(env.Stderr, "error: %v: unknown doctor argument %q\n", ErrUsage, arg)
			return ExitUsage
		}
	}

	r := runDoctor(env)
	if asJSON {
		_ = writeJSON(env.Stdout, r)
	} else {
		printDoctorReport(env.Stdout, r)
	}
	if r.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor runs every check against env.
func runDoctor(env *Environment) *doctorReport {
	r := &doctorReport{
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Container: hints.InContainer(),
		CI:        hints.InCI(env.getenv),
	}

	for _, tool := range []string{"pdfinfo", "pdftoppm"} {
		if p, err := env.LookPath(tool); err == nil {
			r.add("PDF tools", tool, levelOK, p)
		} else {
			r.add("PDF tools", tool, levelWarn, "not found: PDF input is unavailable (install poppler-utils)")
		}
	}

	if p, ok := env.BrowserPath(); ok {
		r.add("Browser", "chrome", levelOK, p)
	} else {
		r.add("Browser", "chrome", levelWarn, "not found: verify downloads one on first run, or use verify --simulate")
	}
	if (r.Container || r.CI) && env.getenv("ROD_NO_SANDBOX") != "1" {
		r.add("Browser", "sandbox", levelWarn, "container or CI detected: set ROD_NO_SANDBOX=1 for verify")
	}

	tmp := cmp.Or(env.getenv(config.EnvTempDir), os.TempDir())
	if err := checkWritable(tmp); err != nil {
		r.add("System", "work directory", levelError, fmt.Sprintf("%s is not writable: %v", tmp, err))
	} else {
		r.add("System", "work directory", levelOK, tmp)
	}

	switch {
	case r.count(levelError) > 0:
		r.Status = "errors"
	case r.count(levelWarn) > 0:
		r.Status = "warnings"
	default:
		r.Status = "ready"
	}
	return r
}

// checkWritable creates and removes a scratch directory under dir, the way
// a conversion does.
func checkWritable(dir string) error {
	scratch, err := os.MkdirTemp(dir, "doc2scorm-doctor-")
	if err != nil {
		return err
	}
	return os.Remove(scratch)
}

func printDoctorReport(w io.Writer, r *doctorReport) {
	fmt.Fprintf(w, "doc2scorm doctor (%s", r.Platform)
	if r.Container {
		fmt.Fprint(w, ", container")
	}
	if r.CI {
		fmt.Fprint(w, ", CI")
	}
	fmt.Fprintln(w, ")")

	section := ""
	for _, d := range r.Checks {
		if d.Section != section {
			section = d.Section
			fmt.Fprintf(w, "\n%s\n", section)
		}
		tag := map[string]string{levelOK: "[OK]", levelWarn: "[WARN]", levelError: "[ERROR]"}[d.Level]
		fmt.Fprintf(w, "  %s %s: %s\n", tag, d.Name, d.Detail)
	}
	fmt.Fprintln(w)

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready")
	case "warnings":
		fmt.Fprintf(w, "Status: Ready with %d warning(s)\n", r.count(levelWarn))
	default:
		fmt.Fprintf(w, "Status: Not ready (%d error(s))\n", r.count(levelError))
	}
}
