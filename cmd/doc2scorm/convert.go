package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	flag "github.com/spf13/pflag"

	doc2scorm "github.com/alnah/go-doc2scorm"
	"github.com/alnah/go-doc2scorm/internal/config"
	"github.com/alnah/go-doc2scorm/internal/fileutil"
	"github.com/alnah/go-doc2scorm/internal/hints"
	"github.com/alnah/go-doc2scorm/internal/pipeline"
)

// Sentinel errors for convert.
var (
	ErrNoInput            = errors.New("no input specified")
	ErrReadInput          = errors.New("failed to read input file")
	ErrWriteOutput        = errors.New("failed to write package")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// Pool abstracts converter pool operations for testability.
type Pool interface {
	Acquire(ctx context.Context) (*doc2scorm.Converter, error)
	Release(*doc2scorm.Converter)
	Size() int
}

// Compile-time interface implementation check.
var _ Pool = (*doc2scorm.ConverterPool)(nil)

// ConversionResult holds the outcome of a single conversion.
type ConversionResult struct {
	InputPath  string
	OutputPath string
	Result     *doc2scorm.Result
	Err        error
	Duration   time.Duration
}

// conversionParams groups settings shared by every file of a batch.
type conversionParams struct {
	title   string
	version string
}

// runConvertCmd packages one file or every supported file of a directory.
func runConvertCmd(ctx context.Context, args []string, env *Environment) error {
	flags, fs, positional, err := parseConvertFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	logger, err := newLogger(env.Stderr, flags.common)
	if err != nil {
		return err
	}
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	cfg, err := loadConfig(flags.common.config, env)
	if err != nil {
		return err
	}
	if err := mergeFlags(fs, flags, cfg); err != nil {
		return err
	}

	inputPath, err := resolveInputPath(positional)
	if err != nil {
		return err
	}
	var forced doc2scorm.FileType
	if flags.docType != "" {
		if forced, err = doc2scorm.ParseFileType(flags.docType); err != nil {
			return err
		}
	}

	files, err := discoverFiles(inputPath, resolveOutputDir(flags.output, cfg), forced)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no supported documents found in %s", ErrNoInput, inputPath)
	}

	opts, err := converterOptions(cfg, logger, env)
	if err != nil {
		return err
	}
	version, err := cfg.Version()
	if err != nil {
		return err
	}

	size := min(doc2scorm.ResolvePoolSize(cfg.Conversion.Workers), len(files))
	logger.Debug("converting", "files", len(files), "workers", size, "version", version)
	pool := doc2scorm.NewConverterPool(size, opts...)
	defer pool.Close()

	results := convertBatch(ctx, pool, files, &conversionParams{title: flags.title, version: version.String()})

	failed := printResults(results, flags.common, env)
	switch {
	case failed == 0:
		return nil
	case len(results) == 1:
		return results[0].Err
	default:
		return fmt.Errorf("%d conversion(s) failed", failed)
	}
}

// loadConfig reads the named config, or the defaults, then applies
// DOC2SCORM_* overrides.
func loadConfig(name string, env *Environment) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if name != "" {
		var err error
		if cfg, err = config.LoadConfig(name); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(env.LookupEnv); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

// mergeFlags applies explicitly set flags over the config (CLI wins) and
// validates the result.
func mergeFlags(fs *flag.FlagSet, f *convertFlags, cfg *config.Config) error {
	if fs.Changed("scorm-version") {
		cfg.Conversion.ScormVersion = f.version
	}
	if fs.Changed("workers") {
		cfg.Conversion.Workers = f.workers
	}
	if fs.Changed("max-size") {
		cfg.Conversion.MaxInputSize = f.maxSize
	}
	if fs.Changed("keep-workdir") {
		cfg.Conversion.RetainWorkDir = f.keepWorkDir
	}
	if fs.Changed("no-resources") {
		cfg.HTML.SkipAssets = f.noResources
	}
	if fs.Changed("pdf-scale") {
		cfg.PDF.Scale = f.pdfScale
	}
	if fs.Changed("include-pdf") {
		cfg.PDF.IncludeOriginal = f.includePDF
	}
	if fs.Changed("asset-path") {
		cfg.Assets.BasePath = f.assetPath
	}
	if fs.Changed("dwell-seconds") {
		cfg.DOCX.DwellSeconds = f.dwell
	}
	return cfg.Validate()
}

// converterOptions translates the config into converter options.
func converterOptions(cfg *config.Config, logger *log.Logger, env *Environment) ([]doc2scorm.Option, error) {
	runtimeOpts, err := cfg.RuntimeOptions()
	if err != nil {
		return nil, err
	}
	maxBytes, err := cfg.MaxInputBytes()
	if err != nil {
		return nil, err
	}

	opts := []doc2scorm.Option{
		doc2scorm.WithLogger(logger),
		doc2scorm.WithRuntimeOptions(runtimeOpts),
		doc2scorm.WithHTMLOptions(doc2scorm.HTMLOptions{SkipAssets: cfg.HTML.SkipAssets}),
		doc2scorm.WithPDFOptions(doc2scorm.PDFOptions{
			Scale:           cfg.PDF.Scale,
			MaxPageWidth:    cfg.PDF.MaxPageWidth,
			IncludeOriginal: cfg.PDF.IncludeOriginal,
		}),
		doc2scorm.WithDOCXOptions(doc2scorm.DOCXOptions{DwellSeconds: cfg.DOCX.DwellSeconds}),
		doc2scorm.WithRasterizer(rasterizerFor(cfg, env)),
	}
	if cfg.Conversion.TempDir != "" {
		opts = append(opts, doc2scorm.WithTempDir(cfg.Conversion.TempDir))
	}
	if cfg.Conversion.RetainWorkDir {
		opts = append(opts, doc2scorm.WithRetainWorkDir(true))
	}
	if maxBytes > 0 {
		opts = append(opts, doc2scorm.WithMaxInputSize(maxBytes))
	}
	if cfg.Assets.BasePath != "" {
		opts = append(opts, doc2scorm.WithAssetPath(cfg.Assets.BasePath))
	}
	return opts, nil
}

// rasterizerFor returns the injected rasterizer or poppler with the
// configured tool paths.
func rasterizerFor(cfg *config.Config, env *Environment) doc2scorm.Rasterizer {
	if env.Rasterizer != nil {
		return env.Rasterizer
	}
	r := pipeline.NewPopplerRasterizer()
	if cfg.PDF.PDFInfo != "" {
		r.PDFInfo = cfg.PDF.PDFInfo
	}
	if cfg.PDF.PDFToPPM != "" {
		r.PDFToPPM = cfg.PDF.PDFToPPM
	}
	return r
}

// resolveInputPath returns the single positional input.
func resolveInputPath(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", ErrNoInput
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("%w: convert takes one file or directory, got %d", ErrUsage, len(args))
	}
}

// resolveOutputDir picks the output location: flag, then config.
func resolveOutputDir(flagOutput string, cfg *config.Config) string {
	if flagOutput != "" {
		return flagOutput
	}
	return cfg.Output.DefaultDir
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > config.MaxWorkers {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, config.MaxWorkers)
	}
	return nil
}

// convertBatch processes files concurrently using the converter pool.
func convertBatch(ctx context.Context, pool Pool, files []FileToConvert, params *conversionParams) []ConversionResult {
	if len(files) == 0 {
		return nil
	}

	concurrency := min(pool.Size(), len(files))
	results := make([]ConversionResult, len(files))
	var wg sync.WaitGroup
	jobs := make(chan int, len(files))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			conv, err := pool.Acquire(ctx)
			if err != nil {
				// No converter for this worker; fail the jobs it would take.
				for idx := range jobs {
					results[idx] = ConversionResult{InputPath: files[idx].InputPath, Err: err}
				}
				return
			}
			defer pool.Release(conv)

			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = ConversionResult{InputPath: files[idx].InputPath, Err: ctx.Err()}
					continue
				}
				results[idx] = convertFile(ctx, conv, files[idx], params)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// convertFile packages a single file and writes the archive.
func convertFile(ctx context.Context, conv *doc2scorm.Converter, f FileToConvert, params *conversionParams) ConversionResult {
	start := time.Now()
	result := ConversionResult{InputPath: f.InputPath, OutputPath: f.OutputPath}
	defer func() { result.Duration = time.Since(start) }()

	content, err := os.ReadFile(f.InputPath) // #nosec G304 -- discovered path
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrReadInput, err)
		return result
	}

	sourceDir, err := filepath.Abs(filepath.Dir(f.InputPath))
	if err != nil {
		sourceDir = filepath.Dir(f.InputPath)
	}

	res, err := conv.Convert(ctx, doc2scorm.Input{
		Content:   content,
		FileName:  filepath.Base(f.InputPath),
		Type:      f.Type,
		Title:     params.title,
		Version:   params.version,
		SourceDir: sourceDir,
	})
	if err != nil {
		result.Err = err
		return result
	}
	result.Result = res

	if err := fileutil.WriteFile(f.OutputPath, res.Package); err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return result
}

// ResultSummary holds the count of succeeded and failed conversions.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

// countResults tallies succeeded and failed conversions.
func countResults(results []ConversionResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// printResults outputs conversion results and returns the failure count.
func printResults(results []ConversionResult, common commonFlags, env *Environment) int {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			if len(results) > 1 {
				fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.InputPath, r.Err)
			}
			continue
		}
		if common.quiet {
			continue
		}

		res := r.Result
		if n := len(res.MissingAssets); n > 0 {
			fmt.Fprintf(env.Stderr, "warning: %s: missing %v%s\n", r.InputPath, res.MissingAssets, hints.MissingAssets(n))
		}
		if res.Degraded {
			fmt.Fprintf(env.Stderr, "warning: %s: content was packaged in degraded form\n", r.InputPath)
		}

		if common.verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%q, SCORM %s, %s, %v)\n",
				r.InputPath, r.OutputPath, res.Title, res.Version,
				humanize.Bytes(uint64(len(res.Package))), r.Duration.Round(time.Millisecond))
			if res.WorkDir != "" {
				fmt.Fprintf(env.Stdout, "  work directory kept at %s\n", res.WorkDir)
			}
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !common.quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}
	return summary.Failed
}
