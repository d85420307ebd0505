package pipeline

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"

	"github.com/alnah/go-doc2scorm/internal/archive"
	"github.com/alnah/go-doc2scorm/internal/assets"
	"github.com/alnah/go-doc2scorm/internal/fileutil"
	"github.com/alnah/go-doc2scorm/internal/resource"
)

// DOCX defaults.
const (
	DefaultDwellSeconds = 10
	DOCXViewerEntry     = "viewer.html"
	docxDocumentPart    = "word/document.xml"
	docxCorePart        = "docProps/core.xml"
	corePartLimit       = 1 << 20
)

// DOCXOptions configures the DOCX normalizer.
type DOCXOptions struct {
	// DwellSeconds is the time on the viewer after which the content
	// reports completion.
	DwellSeconds int
}

// DOCXNormalizer packages a Word document behind a download viewer.
type DOCXNormalizer struct {
	Options DOCXOptions
	Assets  assets.AssetLoader
	Logger  *log.Logger
}

// Normalize validates the document, copies it and writes the viewer.
func (n *DOCXNormalizer) Normalize(ctx context.Context, src Source, dstDir string) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(src.Content), int64(len(src.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: DOCX is not a zip archive: %v", ErrNormalization, err)
	}
	if !hasEntry(zr, docxDocumentPart) {
		return nil, fmt.Errorf("%w: DOCX has no %s", ErrNormalization, docxDocumentPart)
	}

	out := &Output{Tree: resource.New(), Entry: DOCXViewerEntry, Kind: KindDOCX, Pages: 1}
	out.Title = coreTitle(zr)

	name := fileutil.ReplaceExt(fileutil.SanitizeFileName(src.FileName, "document.docx"), ".docx")
	if err := writeAs(out.Tree, resource.Other, dstDir, name, src.Content); err != nil {
		return nil, err
	}

	dwell := n.Options.DwellSeconds
	if dwell <= 0 {
		dwell = DefaultDwellSeconds
	}
	title := src.Title
	if strings.TrimSpace(title) == "" {
		title = out.Title
	}
	viewer, err := renderTemplate(n.Assets, assets.TemplateDOCXViewer, struct {
		CSP      string
		Title    string
		FileName string
		Size     string
		Href     string
		DwellMs  int
	}{ContentCSP, CleanTitle(title), name, humanize.Bytes(uint64(len(src.Content))), name, dwell * 1000})
	if err != nil {
		return nil, err
	}
	if err := writePage(out.Tree, dstDir, DOCXViewerEntry, viewer); err != nil {
		return nil, err
	}
	loggerOrDiscard(n.Logger).Debug("DOCX normalized", "file", name, "size", humanize.Bytes(uint64(len(src.Content))))
	return out, nil
}

func hasEntry(zr *zip.Reader, name string) bool {
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// coreTitle reads dc:title from the core properties part, or "".
func coreTitle(zr *zip.Reader) string {
	data, err := archive.ReadEntry(zr, docxCorePart, corePartLimit)
	if err != nil {
		return ""
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "title" {
			continue
		}
		var title string
		if err := dec.DecodeElement(&title, &start); err != nil {
			return ""
		}
		return strings.Join(strings.Fields(title), " ")
	}
}

var _ Normalizer = (*DOCXNormalizer)(nil)
