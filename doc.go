// Package doc2scorm packages HTML, PDF, DOCX and Markdown documents as
// SCORM 1.2 or SCORM 2004 (4th edition) content packages.
//
// # Quick Start
//
// Create a converter, convert a document, and write the archive:
//
//	conv, err := doc2scorm.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	result, err := conv.Convert(ctx, doc2scorm.Input{
//	    Content:   content,
//	    FileName:  "lesson.html",
//	    SourceDir: "/path/to/lesson", // for relative images and stylesheets
//	    Version:   "1.2",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("lesson.zip", result.Package, 0644)
//
// # Package Layout
//
// Every package holds:
//
//	imsmanifest.xml   SCORM manifest describing one SCO
//	index.html        tracking wrapper that frames the content
//	scorm_api.js      runtime that finds the LMS API and reports progress
//	resources/        the normalized content and its assets
//
// # Assembly Stages
//
// A conversion runs these stages in order, in a private working directory
// removed afterwards:
//
//  1. Normalizing: the document becomes self-contained HTML under
//     resources/ (HTML cleanup and asset copy, PDF pages rasterized with
//     poppler, DOCX behind a download viewer, Markdown rendered first)
//  2. Wrapping: index.html and scorm_api.js are rendered
//  3. Manifesting: imsmanifest.xml lists every packaged file
//  4. Archiving: the ZIP is written and checked against the manifest
//
// A failure at any stage returns a *StageError naming the stage; input
// errors are reported before any file is written and match ErrInvalidInput.
//
// # Configuration
//
// Use functional options to customize the converter:
//
//	conv, err := doc2scorm.NewConverter(
//	    doc2scorm.WithTempDir("/var/tmp"),
//	    doc2scorm.WithPDFOptions(doc2scorm.PDFOptions{Scale: 2, IncludeOriginal: true}),
//	    doc2scorm.WithAssetPath("/path/to/custom/assets"),
//	)
//
// # Parallel Processing
//
// For batch conversion, use ConverterPool to bound concurrency:
//
//	pool := doc2scorm.NewConverterPool(4)
//	defer pool.Close()
//
//	conv, err := pool.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Release(conv)
//	result, err := conv.Convert(ctx, input)
//
// # External Tools
//
// PDF conversion runs pdfinfo and pdftoppm from poppler-utils. Use
// WithRasterizer to supply another implementation.
package doc2scorm
