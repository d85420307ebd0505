// Package pipeline turns source documents into the content of a SCORM
// package and builds the tracking wrapper around it.
//
// Each input type has a Normalizer that writes its pages and assets into
// the package's resources/ directory and registers them in a resource.Tree:
//   - HTMLNormalizer decodes to UTF-8, merges inline styles and scripts,
//     strips comments, adds a Content-Security-Policy and copies local assets
//   - MarkdownNormalizer renders Markdown with Goldmark, then hands the
//     document to the HTML normalizer
//   - PDFNormalizer rasterizes every page and renders a scrolling viewer
//   - DOCXNormalizer validates the document and renders a download viewer
//
// Wrapper renders the package entry page (index.html) and the runtime
// script (scorm_api.js) that connect the content to the LMS.
//
// Archiving and the manifest are handled by the root doc2scorm package;
// this package only knows about files below resources/.
package pipeline
