package doc2scorm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/alnah/go-doc2scorm/internal/archive"
	"github.com/alnah/go-doc2scorm/internal/fileutil"
	"github.com/alnah/go-doc2scorm/internal/manifest"
	"github.com/alnah/go-doc2scorm/internal/pipeline"
	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// workDirPattern names the per-conversion working directory.
const workDirPattern = "doc2scorm-*"

// packageFile is the archive written inside the working directory.
const packageFile = "package.zip"

// assembly owns the state of one conversion: the working directory, the
// resource tree and the package descriptor. It moves through the stages
// in order; Failed is absorbing.
type assembly struct {
	conv   *Converter
	req    *request
	logger *log.Logger

	stage   Stage
	events  []StageEvent
	workDir string

	desc     manifest.Descriptor
	out      *pipeline.Output
	manifest []byte
	files    []string
	pkg      []byte
}

func (c *Converter) newAssembly(req *request) *assembly {
	return &assembly{conv: c, req: req, logger: c.logger}
}

type stageStep struct {
	stage Stage
	run   func(context.Context) error
}

// run executes every stage and returns the finished package. The working
// directory is removed on every path, panics included, unless retained.
func (a *assembly) run(ctx context.Context) (res *Result, err error) {
	workDir, err := os.MkdirTemp(a.conv.cfg.tempDir, workDirPattern)
	if err != nil {
		return nil, a.fail(fmt.Errorf("%w: creating working directory: %v", ErrAssembly, err))
	}
	a.workDir = workDir
	defer a.cleanup()
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, a.fail(fmt.Errorf("%w: %v", ErrInternal, r))
		}
	}()

	a.desc = manifest.Descriptor{
		Version:   a.req.version,
		CourseID:  a.conv.newID(),
		EntryFile: scorm.EntryFile,
	}
	a.logger = a.conv.logger.With("course", a.desc.CourseID)

	steps := []stageStep{
		{StageNormalizing, a.normalize},
		{StageWrapping, a.wrap},
		{StageManifesting, a.describe},
		{StageArchiving, a.archive},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, a.fail(err)
		}
		if err := a.enter(step.stage); err != nil {
			return nil, a.fail(err)
		}
		start := a.conv.now()
		if err := step.run(ctx); err != nil {
			return nil, a.fail(err)
		}
		a.finish(a.conv.now().Sub(start))
	}
	if err := a.enter(StageDone); err != nil {
		return nil, a.fail(err)
	}
	return a.result(), nil
}

// enter moves to the next stage. Only the immediate successor is legal;
// Failed is reached through fail.
func (a *assembly) enter(next Stage) error {
	if a.stage == StageFailed || next == StageFailed || next != a.stage+1 {
		return fmt.Errorf("%w: illegal stage transition %s -> %s", ErrInternal, a.stage, next)
	}
	a.stage = next
	a.logger.Debug("stage", "stage", next)
	return nil
}

func (a *assembly) finish(d time.Duration) {
	a.events = append(a.events, StageEvent{Stage: a.stage, Duration: d})
	a.logger.Debug("stage complete", "stage", a.stage, "duration", d)
}

// fail records the failure once and wraps err with the failing stage.
func (a *assembly) fail(err error) error {
	if a.stage == StageFailed {
		return err
	}
	failed := a.stage
	a.stage = StageFailed
	a.events = append(a.events, StageEvent{Stage: failed, Err: err.Error()})
	a.logger.Error("conversion failed", "stage", failed, "err", err)
	return &StageError{Stage: failed, Err: err}
}

func (a *assembly) cleanup() {
	if a.workDir == "" {
		return
	}
	if a.conv.cfg.retainWorkDir {
		a.logger.Info("working directory retained", "path", a.workDir)
		return
	}
	if err := os.RemoveAll(a.workDir); err != nil {
		a.logger.Warn("removing working directory", "path", a.workDir, "err", err)
	}
}

func (a *assembly) resourcesDir() string {
	return filepath.Join(a.workDir, scorm.ResourcesDir)
}

func (a *assembly) normalize(ctx context.Context) error {
	src := pipeline.Source{
		Content:   a.req.Content,
		FileName:  a.req.FileName,
		SourceDir: a.req.SourceDir,
		Title:     a.req.Title,
		WorkDir:   a.workDir,
	}
	out, err := a.conv.normalizer(a.req).Normalize(ctx, src, a.resourcesDir())
	if err != nil {
		return err
	}
	if out.Tree == nil || !out.Tree.Contains(out.Entry) {
		return fmt.Errorf("%w: normalizer did not register entry %q", ErrAssembly, out.Entry)
	}
	a.out = out
	a.desc.Title = pipeline.CleanTitle(a.title())

	if len(out.MissingAssets) > 0 {
		a.logger.Warn("missing assets", "count", len(out.MissingAssets), "paths", strings.Join(out.MissingAssets, ", "))
	}
	if out.Degraded {
		a.logger.Warn("content degraded", "entry", out.Entry)
	}
	a.logger.Info("normalized",
		"type", a.req.fileType,
		"entry", out.Entry,
		"files", out.Tree.Len(),
		"input", humanize.Bytes(uint64(len(a.req.Content))))
	return nil
}

// title picks the first non-blank of the explicit title, the document's
// own title and the file base name. Blank everywhere yields the
// untitled placeholder once cleaned.
func (a *assembly) title() string {
	base := strings.TrimSuffix(filepath.Base(a.req.FileName), filepath.Ext(a.req.FileName))
	if a.req.FileName == "" {
		base = ""
	}
	for _, t := range []string{a.req.Title, a.out.Title, base} {
		if strings.TrimSpace(t) != "" {
			return t
		}
	}
	return ""
}

func (a *assembly) wrap(context.Context) error {
	w := pipeline.Wrapper{Assets: a.conv.assetLoader, Runtime: a.conv.cfg.runtime}
	index, script, err := w.Build(a.desc, a.out.Entry, a.out.Kind)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAssembly, err)
	}
	if err := fileutil.WriteFile(filepath.Join(a.workDir, scorm.EntryFile), index); err != nil {
		return fmt.Errorf("%w: %v", ErrAssembly, err)
	}
	if err := fileutil.WriteFile(filepath.Join(a.workDir, scorm.ShimFile), script); err != nil {
		return fmt.Errorf("%w: %v", ErrAssembly, err)
	}
	return nil
}

func (a *assembly) describe(context.Context) error {
	fsys := os.DirFS(a.workDir)
	data, err := manifest.Build(a.desc, a.out.Tree, fsys)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAssembly, err)
	}
	files, err := manifest.FileList(a.desc, a.out.Tree, fsys)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAssembly, err)
	}
	if err := fileutil.WriteFile(filepath.Join(a.workDir, scorm.ManifestFile), data); err != nil {
		return fmt.Errorf("%w: %v", ErrAssembly, err)
	}
	a.manifest = data
	a.files = append([]string{scorm.ManifestFile}, files...)
	a.logger.Debug("manifest written", "files", len(files), "size", humanize.Bytes(uint64(len(data))))
	return nil
}

func (a *assembly) archive(ctx context.Context) error {
	pkgPath := filepath.Join(a.workDir, packageFile)
	if err := archive.WriteFile(pkgPath, a.workDir, a.files, a.conv.now()); err != nil {
		return archiveError(err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	listed, err := archive.List(pkgPath)
	if err != nil {
		return archiveError(err)
	}
	if !sameEntries(listed, a.files) {
		return fmt.Errorf("%w: archive lists %d entries, manifest declares %d", ErrAssembly, len(listed), len(a.files))
	}

	pkg, err := os.ReadFile(pkgPath) // #nosec G304 -- path inside our working directory
	if err != nil {
		return fmt.Errorf("%w: reading package: %v", ErrArchive, err)
	}
	a.pkg = pkg
	a.logger.Info("package assembled",
		"version", a.desc.Version,
		"entries", len(listed),
		"size", humanize.Bytes(uint64(len(pkg))))
	return nil
}

// sameEntries reports whether both lists hold the same names.
func sameEntries(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	g := slices.Clone(got)
	w := slices.Clone(want)
	slices.Sort(g)
	slices.Sort(w)
	return slices.Equal(g, w)
}

func (a *assembly) result() *Result {
	res := &Result{
		Package:       a.pkg,
		Manifest:      a.manifest,
		Files:         a.files,
		CourseID:      a.desc.CourseID,
		Version:       a.desc.Version.String(),
		Title:         a.desc.Title,
		Degraded:      a.out.Degraded,
		MissingAssets: a.out.MissingAssets,
		Pages:         a.out.Pages,
		Stages:        a.events,
	}
	if a.conv.cfg.retainWorkDir {
		res.WorkDir = a.workDir
	}
	return res
}
