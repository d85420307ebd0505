package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/alnah/go-doc2scorm/internal/assets"
)

// highlightStyle is the chroma style of fenced code blocks.
const highlightStyle = "github"

// Highlight placeholders use Unicode Private Use Area characters. They
// pass through Goldmark unchanged and become <mark> tags afterwards, so
// raw HTML rendering stays disabled.
const (
	markStart = "\uE000"
	markEnd   = "\uE001"
)

var (
	crlfOrCR           = regexp.MustCompile(`\r\n?`)
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
	highlightPattern   = regexp.MustCompile(`==(.*?)==`)
	atxHeading         = regexp.MustCompile(`(?m)^#\s+(.+?)\s*#*\s*$`)
)

// documentTemplate wraps Goldmark's fragment in a complete HTML5 page.
const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
%s
</style>
</head>
<body>
%s
</body>
</html>`

// MarkdownNormalizer renders Markdown to HTML and normalizes the result
// like any HTML document.
type MarkdownNormalizer struct {
	HTML   HTMLNormalizer
	Assets assets.AssetLoader
	Logger *log.Logger

	md goldmark.Markdown
}

// NewMarkdownNormalizer returns a normalizer with GFM, footnotes, syntax
// highlighting and heading ids enabled.
func NewMarkdownNormalizer(opts HTMLOptions, loader assets.AssetLoader, logger *log.Logger) *MarkdownNormalizer {
	return &MarkdownNormalizer{
		HTML:   HTMLNormalizer{Options: opts, Assets: loader, Logger: logger},
		Assets: loader,
		Logger: logger,
		md:     newGoldmark(),
	}
}

func newGoldmark() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(gmhtml.WithXHTML()),
	)
}

// Normalize converts the Markdown source and delegates to the HTML
// normalizer. The entry keeps the source base name with .html.
func (n *MarkdownNormalizer) Normalize(ctx context.Context, src Source, dstDir string) (*Output, error) {
	text, _, err := DecodeText(src.Content)
	if err != nil {
		return nil, err
	}
	doc, err := n.ToHTML(ctx, text, src.Title)
	if err != nil {
		return nil, err
	}
	h := n.HTML
	if h.Logger == nil {
		h.Logger = n.Logger
	}
	if h.Assets == nil {
		h.Assets = n.Assets
	}
	src.Content = []byte(doc)
	return h.Normalize(ctx, src, dstDir)
}

// ToHTML converts Markdown to a standalone HTML document carrying the
// content stylesheet. The title defaults to the first level-one heading.
// Goldmark has no context support, so conversion runs in a goroutine.
func (n *MarkdownNormalizer) ToHTML(ctx context.Context, content, title string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	md := n.md
	if md == nil {
		md = newGoldmark()
	}
	content = preprocessMarkdown(content)
	if strings.TrimSpace(title) == "" {
		title = firstHeading(content)
	}
	css, err := n.stylesheet()
	if err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var buf bytes.Buffer
		if err := md.Convert([]byte(content), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: markdown: %v", ErrNormalization, err)}
			return
		}
		body := convertMarkPlaceholders(buf.String())
		done <- result{html: fmt.Sprintf(documentTemplate, html.EscapeString(title), sanitizeCSS(css), body)}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// stylesheet joins the content style and the highlighting classes.
func (n *MarkdownNormalizer) stylesheet() (string, error) {
	base, err := loaderOrEmbedded(n.Assets).LoadStyle(assets.StyleContent)
	if err != nil {
		return "", fmt.Errorf("loading content style: %w", err)
	}
	var buf strings.Builder
	buf.WriteString(base)
	buf.WriteString("\n")
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(highlightStyle)); err != nil {
		return "", fmt.Errorf("writing highlight style: %w", err)
	}
	return buf.String(), nil
}

// preprocessMarkdown normalizes line endings, turns ==text== into
// highlight placeholders and limits blank lines to two.
func preprocessMarkdown(content string) string {
	content = crlfOrCR.ReplaceAllString(content, "\n")
	content = highlightPattern.ReplaceAllString(content, markStart+"$1"+markEnd)
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

func convertMarkPlaceholders(content string) string {
	return strings.NewReplacer(markStart, "<mark>", markEnd, "</mark>").Replace(content)
}

// sanitizeCSS escapes sequences that could close the <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// firstHeading returns the text of the first "# " heading, or "".
func firstHeading(content string) string {
	m := atxHeading.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return strings.NewReplacer(markStart, "", markEnd, "").Replace(m[1])
}

var _ Normalizer = (*MarkdownNormalizer)(nil)
