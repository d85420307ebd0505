package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-doc2scorm/internal/assets"
	"github.com/alnah/go-doc2scorm/internal/resource"
)

// transparentGIF replaces the source of images whose file is missing.
const transparentGIF = "data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"

// FallbackMessage is the text of the page written when a document cannot
// be processed.
const FallbackMessage = "This content could not be displayed. Please contact the course author."

// HTMLOptions configures the HTML normalizer.
type HTMLOptions struct {
	// SkipAssets leaves local references untouched and copies nothing.
	SkipAssets bool
}

// HTMLNormalizer cleans an HTML document and copies its local assets.
type HTMLNormalizer struct {
	Options HTMLOptions
	Assets  assets.AssetLoader
	Logger  *log.Logger
}

// assetAttr is an element attribute that may reference a local file.
type assetAttr struct {
	selector string
	attr     string
}

var assetAttrs = []assetAttr{
	{"img[src]", "src"},
	{"link[href]", "href"},
	{"script[src]", "src"},
	{"source[src]", "src"},
	{"video[src]", "src"},
	{"video[poster]", "poster"},
	{"audio[src]", "src"},
	{"embed[src]", "src"},
	{"object[data]", "data"},
	{"input[type=image][src]", "src"},
}

// linkRels are the link relations whose target is packaged.
var linkRels = []string{"stylesheet", "icon", "preload"}

// Normalize writes the cleaned document to dstDir. Processing failures
// never fail the call: the fallback page is written instead and the
// output is marked degraded. Only cancellation and write errors are
// returned.
func (n *HTMLNormalizer) Normalize(ctx context.Context, src Source, dstDir string) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := loggerOrDiscard(n.Logger)
	out := &Output{Tree: resource.New(), Entry: EntryName(src.FileName), Kind: KindHTML}

	page, err := n.process(src, dstDir, out)
	if err != nil {
		logger.Warn("HTML processing failed, writing fallback page", "file", src.FileName, "err", err)
		return n.fallback(src, dstDir, out)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := writePage(out.Tree, dstDir, out.Entry, page); err != nil {
		return nil, err
	}
	for _, m := range out.MissingAssets {
		logger.Warn("missing asset", "file", src.FileName, "ref", m)
	}
	return out, nil
}

// process runs every transformation and renders the result. A panic in
// the parser or a transformation is reported as an error.
func (n *HTMLNormalizer) process(src Source, dstDir string, out *Output) (page []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			page, err = nil, fmt.Errorf("%w: panic: %v", ErrNormalization, r)
		}
	}()

	text, _, err := DecodeText(src.Content)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing HTML: %v", ErrNormalization, err)
	}
	out.Title = strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")

	var copier *assetCopier
	if !n.Options.SkipAssets {
		copier = newAssetCopier(src.SourceDir, dstDir, out.Tree)
	}

	mergeStyles(doc, copier)
	mergeScripts(doc)
	stripComments(doc.Get(0))
	setCSP(doc)
	if copier != nil {
		copyAssets(doc, copier)
		copier.drainStyles()
		out.MissingAssets = copier.missing
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc.Get(0)); err != nil {
		return nil, fmt.Errorf("%w: rendering HTML: %v", ErrNormalization, err)
	}
	return buf.Bytes(), nil
}

// fallback writes the skeleton page in place of the document.
func (n *HTMLNormalizer) fallback(src Source, dstDir string, out *Output) (*Output, error) {
	page, err := FallbackPage(n.Assets, src.Title)
	if err != nil {
		return nil, err
	}
	out.Tree = resource.New()
	out.MissingAssets = nil
	out.Degraded = true
	if err := writePage(out.Tree, dstDir, out.Entry, page); err != nil {
		return nil, err
	}
	return out, nil
}

// FallbackPage renders the skeleton page shown when content is unusable.
func FallbackPage(loader assets.AssetLoader, title string) ([]byte, error) {
	return renderTemplate(loader, assets.TemplateFallback, struct {
		CSP     string
		Title   string
		Message string
	}{ContentCSP, CleanTitle(title), FallbackMessage})
}

// mergeStyles moves every <style> into a single one at the end of <head>.
func mergeStyles(doc *goquery.Document, copier *assetCopier) {
	styles := doc.Find("style")
	if styles.Length() == 0 {
		return
	}
	texts := make([]string, 0, styles.Length())
	styles.Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, s.Text())
	})
	styles.Remove()

	css := strings.Join(texts, "\n")
	if copier != nil {
		copier.copyCSSRefs("", css)
	}
	doc.Find("head").First().AppendNodes(rawElement(atom.Style, css))
}

// mergeScripts moves every inline JavaScript <script> into a single one at
// the end of <body>. Scripts with src or a data type stay in place.
func mergeScripts(doc *goquery.Document) {
	var texts []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, hasSrc := s.Attr("src"); hasSrc {
			return
		}
		if !isJavaScriptType(s.AttrOr("type", "")) {
			return
		}
		texts = append(texts, s.Text())
		s.Remove()
	})
	if len(texts) == 0 {
		return
	}
	doc.Find("body").First().AppendNodes(rawElement(atom.Script, strings.Join(texts, "\n")))
}

func isJavaScriptType(t string) bool {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", "text/javascript", "application/javascript", "text/ecmascript", "application/ecmascript":
		return true
	}
	return false
}

func rawElement(a atom.Atom, text string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

// stripComments removes every comment node below n.
func stripComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			stripComments(c)
		}
		c = next
	}
}

// setCSP replaces any Content-Security-Policy meta with ContentCSP as the
// first child of <head>.
func setCSP(doc *goquery.Document) {
	doc.Find("meta[http-equiv]").Each(func(_ int, s *goquery.Selection) {
		if strings.EqualFold(strings.TrimSpace(s.AttrOr("http-equiv", "")), "content-security-policy") {
			s.Remove()
		}
	})
	meta := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Meta,
		Data:     "meta",
		Attr: []html.Attribute{
			{Key: "http-equiv", Val: "Content-Security-Policy"},
			{Key: "content", Val: ContentCSP},
		},
	}
	doc.Find("head").First().PrependNodes(meta)
}

// copyAssets copies every local file referenced by an asset attribute.
// Missing images get a transparent placeholder; other elements lose the
// attribute. Both keep the original value in data-missing-src.
func copyAssets(doc *goquery.Document, copier *assetCopier) {
	for _, a := range assetAttrs {
		doc.Find(a.selector).Each(func(_ int, s *goquery.Selection) {
			if goquery.NodeName(s) == "link" && !hasPackagedRel(s.AttrOr("rel", "")) {
				return
			}
			ref := s.AttrOr(a.attr, "")
			if !isLocalRef(ref) || copier.copy("", ref) {
				return
			}
			s.SetAttr("data-missing-src", ref)
			if name := goquery.NodeName(s); name == "img" || name == "input" {
				s.SetAttr(a.attr, transparentGIF)
				return
			}
			s.RemoveAttr(a.attr)
		})
	}
}

func hasPackagedRel(rel string) bool {
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		for _, r := range linkRels {
			if token == r {
				return true
			}
		}
	}
	return false
}

var _ Normalizer = (*HTMLNormalizer)(nil)
