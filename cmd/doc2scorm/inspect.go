package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zip"

	"github.com/alnah/go-doc2scorm/internal/archive"
	"github.com/alnah/go-doc2scorm/internal/manifest"
	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// ErrPackageChecks is returned when a static package check fails.
var ErrPackageChecks = errors.New("package checks failed")

// maxManifestSize bounds the manifest read from a package.
const maxManifestSize = 4 << 20

// Check is one static verification of a package.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// PackageReport describes a package and the outcome of its static checks.
type PackageReport struct {
	Path       string   `json:"path"`
	Size       int      `json:"size"`
	Identifier string   `json:"identifier"`
	Version    string   `json:"version"`
	Title      string   `json:"title"`
	Entry      string   `json:"entry"`
	Files      []string `json:"files"`
	Checks     []Check  `json:"checks"`
}

// OK reports whether every check passed.
func (r *PackageReport) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// runInspectCmd prints a package summary and its static checks.
func runInspectCmd(args []string, env *Environment) error {
	flags, positional, err := parseInspectFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	path, err := singlePackageArg("inspect", positional)
	if err != nil {
		return err
	}

	report, _, err := inspectPackage(path)
	if err != nil {
		return err
	}

	if flags.json {
		if err := writeJSON(env.Stdout, report); err != nil {
			return err
		}
	} else if !flags.common.quiet || !report.OK() {
		printPackageReport(env.Stdout, report, flags.common.verbose)
	}

	if !report.OK() {
		return ErrPackageChecks
	}
	return nil
}

// inspectPackage reads the package at path, parses its manifest and runs
// the static checks. The opened archive is returned for extraction.
func inspectPackage(path string) (*PackageReport, *zip.Reader, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided package path
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrReadInput, err)
	}
	zr, err := archive.Open(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	raw, err := archive.ReadEntry(zr, scorm.ManifestFile, maxManifestSize)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	pkg, err := manifest.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	names := archive.Names(zr)
	report := &PackageReport{
		Path:       path,
		Size:       len(data),
		Identifier: pkg.Identifier,
		Version:    pkg.Version.String(),
		Title:      pkg.Title,
		Entry:      pkg.Entry(),
		Files:      names,
		Checks:     checkPackage(pkg, names),
	}
	return report, zr, nil
}

// checkPackage compares the manifest with the archive listing.
func checkPackage(pkg *manifest.Package, names []string) []Check {
	listed := pkg.Files()
	inZip := func(name string) bool { return slices.Contains(names, name) }

	var checks []Check

	checks = append(checks, Check{
		Name:   "version",
		OK:     pkg.Version.Valid(),
		Detail: detailIf(!pkg.Version.Valid(), "manifest declares no SCORM 1.2 or 2004 schema"),
	})

	var notInZip []string
	for _, f := range listed {
		if !inZip(f) {
			notInZip = append(notInZip, f)
		}
	}
	checks = append(checks, Check{
		Name:   "manifest files archived",
		OK:     len(notInZip) == 0,
		Detail: detailIf(len(notInZip) > 0, "not in archive: "+strings.Join(notInZip, ", ")),
	})

	var unlisted []string
	for _, n := range names {
		if n != scorm.ManifestFile && !slices.Contains(listed, n) {
			unlisted = append(unlisted, n)
		}
	}
	checks = append(checks, Check{
		Name:   "archive files listed",
		OK:     len(unlisted) == 0,
		Detail: detailIf(len(unlisted) > 0, "not in manifest: "+strings.Join(unlisted, ", ")),
	})

	entry := pkg.Entry()
	checks = append(checks, Check{
		Name:   "launch file",
		OK:     entry != "" && inZip(entry),
		Detail: detailIf(entry == "" || !inZip(entry), fmt.Sprintf("href %q missing from archive", entry)),
	})

	checks = append(checks, Check{
		Name:   "runtime script",
		OK:     inZip(scorm.ShimFile),
		Detail: detailIf(!inZip(scorm.ShimFile), scorm.ShimFile+" missing from archive"),
	})

	checks = append(checks, scormTypeCheck(pkg))
	return checks
}

// scormTypeCheck expects adlcp:scormtype on 1.2 and adlcp:scormType on
// 2004, with the value "sco".
func scormTypeCheck(pkg *manifest.Package) Check {
	c := Check{Name: "scorm type", OK: true}
	if len(pkg.Resources) == 0 {
		return Check{Name: c.Name, Detail: "manifest has no resource"}
	}
	want := "scormType"
	if pkg.Version == scorm.V12 {
		want = "scormtype"
	}
	res := pkg.Resources[0]
	switch {
	case res.SCORMTypeAttr == "":
		c.OK, c.Detail = false, "resource has no adlcp:"+want+" attribute"
	case res.SCORMTypeAttr != want:
		c.OK, c.Detail = false, fmt.Sprintf("attribute adlcp:%s, want adlcp:%s for SCORM %s", res.SCORMTypeAttr, want, pkg.Version)
	case res.SCORMType != manifest.SCOType:
		c.OK, c.Detail = false, fmt.Sprintf("value %q, want %q", res.SCORMType, manifest.SCOType)
	}
	return c
}

func detailIf(cond bool, detail string) string {
	if cond {
		return detail
	}
	return ""
}

// printPackageReport outputs a human-readable report.
func printPackageReport(w io.Writer, r *PackageReport, verbose bool) {
	fmt.Fprintf(w, "%s (%s)\n", r.Path, humanize.Bytes(uint64(r.Size)))
	fmt.Fprintf(w, "  Title:      %s\n", r.Title)
	fmt.Fprintf(w, "  Identifier: %s\n", r.Identifier)
	fmt.Fprintf(w, "  SCORM:      %s\n", r.Version)
	fmt.Fprintf(w, "  Launch:     %s\n", r.Entry)
	fmt.Fprintf(w, "  Files:      %d\n", len(r.Files))
	if verbose {
		for _, f := range r.Files {
			fmt.Fprintf(w, "    %s\n", f)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Checks")
	for _, c := range r.Checks {
		if c.OK {
			fmt.Fprintf(w, "  [OK] %s\n", c.Name)
		} else {
			fmt.Fprintf(w, "  [ERROR] %s: %s\n", c.Name, c.Detail)
		}
	}
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
