package pipeline

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/alnah/go-doc2scorm/internal/fileutil"
	"github.com/alnah/go-doc2scorm/internal/resource"
)

// isLocalRef reports whether ref points at a file next to the document:
// not a URL with a scheme, not protocol-relative, not a fragment, not a
// data URI and not an absolute path.
func isLocalRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "//") {
		return false
	}
	if strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, `\`) || filepath.IsAbs(ref) {
		return false
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		return false
	}
	// Schemes url.Parse refuses ("data:..." with odd bytes, "C:foo").
	if i := strings.IndexByte(ref, ':'); i > 0 && !strings.ContainsAny(ref[:i], "/?#") {
		return false
	}
	return true
}

// cleanRef turns a local reference into a clean path relative to base
// (itself relative to the source root). ok is false when the reference
// leaves the source root.
func cleanRef(base, ref string) (rel string, ok bool) {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if unescaped, err := url.PathUnescape(ref); err == nil {
		ref = unescaped
	}
	ref = strings.ReplaceAll(ref, `\`, "/")
	if ref == "" {
		return "", false
	}
	rel = path.Clean(path.Join(base, ref))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || strings.HasPrefix(rel, "/") {
		return "", false
	}
	if resource.ValidatePath(rel) != nil {
		return "", false
	}
	return rel, true
}

// assetCopier copies the local files a document references into the
// resources directory, keeping their relative layout so the references
// stay valid without rewriting.
type assetCopier struct {
	sourceDir string
	dstDir    string
	tree      *resource.Tree
	missing   []string
	seen      map[string]bool
	styles    []string
}

func newAssetCopier(sourceDir, dstDir string, tree *resource.Tree) *assetCopier {
	return &assetCopier{
		sourceDir: sourceDir,
		dstDir:    dstDir,
		tree:      tree,
		seen:      map[string]bool{},
	}
}

// copy resolves ref against the directory base and copies the target.
// It reports false when the asset is missing or escapes the source root.
func (c *assetCopier) copy(base, ref string) bool {
	rel, ok := cleanRef(base, ref)
	if !ok || c.sourceDir == "" {
		c.markMissing(ref)
		return false
	}
	if c.seen[rel] {
		return true
	}

	src := filepath.Join(c.sourceDir, filepath.FromSlash(rel))
	if !fileutil.IsPathUnderDir(src, c.sourceDir) || !fileutil.FileExists(src) {
		c.markMissing(ref)
		return false
	}
	dst, err := fileutil.SafeJoin(c.dstDir, rel)
	if err != nil {
		c.markMissing(ref)
		return false
	}
	if _, err := fileutil.CopyFile(src, dst); err != nil {
		c.markMissing(ref)
		return false
	}
	if err := c.tree.Add(rel); err != nil {
		c.markMissing(ref)
		return false
	}
	c.seen[rel] = true
	if resource.Classify(rel) == resource.CSS {
		c.styles = append(c.styles, rel)
	}
	return true
}

func (c *assetCopier) markMissing(ref string) {
	for _, m := range c.missing {
		if m == ref {
			return
		}
	}
	c.missing = append(c.missing, ref)
}

// cssRefPattern matches url(...) references and @import strings.
var cssRefPattern = regexp.MustCompile(`url\(\s*(?:"([^"]*)"|'([^']*)'|([^)"'\s]+))\s*\)|@import\s+(?:"([^"]*)"|'([^']*)')`)

// cssRefs extracts every local reference of a stylesheet.
func cssRefs(css string) []string {
	var refs []string
	for _, m := range cssRefPattern.FindAllStringSubmatch(css, -1) {
		for _, g := range m[1:] {
			if g != "" && isLocalRef(g) {
				refs = append(refs, g)
				break
			}
		}
	}
	return refs
}

// copyCSSRefs copies what css references, resolved against base.
func (c *assetCopier) copyCSSRefs(base, css string) {
	for _, ref := range cssRefs(css) {
		c.copy(base, ref)
	}
}

// drainStyles follows the references of every copied stylesheet,
// including stylesheets discovered on the way.
func (c *assetCopier) drainStyles() {
	for len(c.styles) > 0 {
		rel := c.styles[0]
		c.styles = c.styles[1:]
		data, err := os.ReadFile(filepath.Join(c.dstDir, filepath.FromSlash(rel))) // #nosec G304 -- path built from a validated resource path
		if err != nil {
			continue
		}
		c.copyCSSRefs(path.Dir(rel), string(data))
	}
}
