package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-doc2scorm/internal/assets"
	"github.com/alnah/go-doc2scorm/internal/fileutil"
	"github.com/alnah/go-doc2scorm/internal/resource"
)

// PDF defaults.
const (
	DefaultPDFScale  = 2.5
	PDFViewerEntry   = "viewer.html"
	PDFOriginalName  = "document.pdf"
	pdfImagesDirName = "images"
)

// PDFOptions configures the PDF normalizer.
type PDFOptions struct {
	// Scale multiplies the page size in points; 2.5 renders at 180 DPI.
	Scale float64
	// MaxPageWidth downscales wider page images when positive.
	MaxPageWidth int
	// IncludeOriginal packages the PDF itself with a download link.
	IncludeOriginal bool
}

// PDFNormalizer rasterizes a PDF and renders a scrolling page viewer.
type PDFNormalizer struct {
	Options    PDFOptions
	Rasterizer Rasterizer
	Assets     assets.AssetLoader
	Logger     *log.Logger
}

type pdfPage struct {
	Number int
	Image  string
}

// Normalize renders every page to resources/images and writes the viewer.
// A PDF whose pages cannot be counted fails with ErrNormalization; a page
// that fails to render becomes an error block in the viewer.
func (n *PDFNormalizer) Normalize(ctx context.Context, src Source, dstDir string) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := loggerOrDiscard(n.Logger)
	rast := n.Rasterizer
	if rast == nil {
		rast = NewPopplerRasterizer()
	}
	scale := n.Options.Scale
	if scale <= 0 {
		scale = DefaultPDFScale
	}

	pdfPath, cleanup, err := fileutil.WriteTempFile(src.WorkDir, src.Content, "pdf")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	total, err := rast.PageCount(ctx, pdfPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: reading PDF: %w", ErrNormalization, err)
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: PDF has no pages", ErrNormalization)
	}
	logger.Debug("rasterizing PDF", "file", src.FileName, "pages", total, "scale", scale)

	out := &Output{Tree: resource.New(), Entry: PDFViewerEntry, Kind: KindPDF, Pages: total}
	pages := make([]pdfPage, 0, total)
	failed := 0
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := n.renderPage(ctx, rast, pdfPath, i, scale, dstDir, out.Tree)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("page failed to render", "file", src.FileName, "page", i, "err", err)
			failed++
		}
		pages = append(pages, page)
	}
	out.Degraded = failed > 0

	original := ""
	if n.Options.IncludeOriginal {
		if err := writeAs(out.Tree, resource.Other, dstDir, PDFOriginalName, src.Content); err != nil {
			return nil, err
		}
		original = PDFOriginalName
	}

	viewer, err := renderTemplate(n.Assets, assets.TemplatePDFViewer, struct {
		CSP        string
		Title      string
		Original   string
		Pages      []pdfPage
		TotalPages int
	}{ContentCSP, CleanTitle(src.Title), original, pages, total})
	if err != nil {
		return nil, err
	}
	if err := writePage(out.Tree, dstDir, PDFViewerEntry, viewer); err != nil {
		return nil, err
	}
	logger.Debug("PDF normalized", "file", src.FileName, "pages", total, "failed", failed)
	return out, nil
}

// renderPage rasterizes page i and registers its image. On failure the
// returned page has no image.
func (n *PDFNormalizer) renderPage(ctx context.Context, rast Rasterizer, pdfPath string, i int, scale float64, dstDir string, tree *resource.Tree) (pdfPage, error) {
	page := pdfPage{Number: i}
	rel := fmt.Sprintf("%s/page%d.png", pdfImagesDirName, i)
	dst, err := fileutil.SafeJoin(dstDir, rel)
	if err != nil {
		return page, err
	}
	if err := ensureDir(filepath.Dir(dst)); err != nil {
		return page, err
	}
	if err := rast.RenderPage(ctx, pdfPath, i, scale, dst); err != nil {
		return page, err
	}
	if n.Options.MaxPageWidth > 0 {
		if _, err := downscalePNG(dst, n.Options.MaxPageWidth); err != nil {
			loggerOrDiscard(n.Logger).Warn("page kept at full size", "page", i, "err", err)
		}
	}
	if err := tree.Add(rel); err != nil {
		return page, err
	}
	page.Image = rel
	return page, nil
}

var _ Normalizer = (*PDFNormalizer)(nil)
