// Package assets provides the page templates, the runtime script and the
// stylesheet written into every SCORM package.
//
// Assets are addressed by kind and name:
//
//	styles/{name}.css       content
//	templates/{name}.html   wrapper, pdf_viewer, docx_viewer, fallback
//	scripts/{name}.js       scorm_api
//
// EmbeddedLoader serves the copies compiled into the binary. A
// FilesystemLoader reads the same layout from a directory through
// os.OpenInRoot. AssetResolver stacks the directory over the embedded
// copies, so one template can be replaced while the rest keep their
// defaults. Call Check once after building a resolver: it parses every
// template so a broken override is reported up front.
package assets
