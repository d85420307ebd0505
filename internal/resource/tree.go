// Package resource holds the categorized file tree that a conversion
// produces under the package's resources/ directory.
package resource

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Sentinel errors for tree operations.
var (
	ErrInvalidPath     = errors.New("invalid resource path")
	ErrUnknownCategory = errors.New("unknown resource category")
)

// Category groups resource files by kind.
type Category int

// Categories in manifest order.
const (
	HTML Category = iota
	CSS
	JS
	Images
	Fonts
	Other
)

// Categories lists every category in the order files are emitted.
var Categories = []Category{HTML, CSS, JS, Images, Fonts, Other}

var categoryNames = [...]string{"html", "css", "js", "images", "fonts", "other"}

// String returns the lowercase category name.
func (c Category) String() string {
	if c < HTML || c > Other {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// extensionCategories maps lowercase file extensions to categories.
var extensionCategories = map[string]Category{
	".html":  HTML,
	".htm":   HTML,
	".xhtml": HTML,
	".css":   CSS,
	".js":    JS,
	".mjs":   JS,
	".png":   Images,
	".jpg":   Images,
	".jpeg":  Images,
	".gif":   Images,
	".svg":   Images,
	".webp":  Images,
	".bmp":   Images,
	".ico":   Images,
	".avif":  Images,
	".woff":  Fonts,
	".woff2": Fonts,
	".ttf":   Fonts,
	".otf":   Fonts,
	".eot":   Fonts,
}

// Classify returns the category for a file path based on its extension.
func Classify(p string) Category {
	if c, ok := extensionCategories[strings.ToLower(path.Ext(p))]; ok {
		return c
	}
	return Other
}

// Tree is an ordered, de-duplicated set of resource paths per category.
// Paths are relative to the resources/ root and use forward slashes.
// The zero value is not usable; create with New.
type Tree struct {
	files map[Category][]string
	seen  map[string]Category
}

// New creates an empty Tree.
func New() *Tree {
	return &Tree{
		files: make(map[Category][]string, len(Categories)),
		seen:  make(map[string]Category),
	}
}

// Add registers p under the category derived from its extension.
func (t *Tree) Add(p string) error {
	return t.AddAs(Classify(p), p)
}

// AddAs registers p under an explicit category.
// Adding a path that is already present is a no-op, whatever its category.
func (t *Tree) AddAs(c Category, p string) error {
	if c < HTML || c > Other {
		return fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	if err := ValidatePath(p); err != nil {
		return err
	}
	if _, ok := t.seen[p]; ok {
		return nil
	}
	t.seen[p] = c
	t.files[c] = append(t.files[c], p)
	return nil
}

// Files returns a copy of the paths registered under c.
func (t *Tree) Files(c Category) []string {
	return append([]string(nil), t.files[c]...)
}

// Paths returns every registered path in category order.
func (t *Tree) Paths() []string {
	out := make([]string, 0, len(t.seen))
	for _, c := range Categories {
		out = append(out, t.files[c]...)
	}
	return out
}

// Contains reports whether p has been registered.
func (t *Tree) Contains(p string) bool {
	_, ok := t.seen[p]
	return ok
}

// Len returns the number of registered paths.
func (t *Tree) Len() int {
	return len(t.seen)
}

// ValidatePath checks that p is a clean, relative, forward-slash path
// that cannot escape the resources root.
func ValidatePath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.ContainsAny(p, "\\\x00") {
		return fmt.Errorf("%w: %q contains a backslash or NUL byte", ErrInvalidPath, p)
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: %q is absolute", ErrInvalidPath, p)
	}
	if len(p) >= 2 && p[1] == ':' {
		return fmt.Errorf("%w: %q has a drive letter", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "":
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, p)
		case ".", "..":
			return fmt.Errorf("%w: %q has a dot segment", ErrInvalidPath, p)
		}
	}
	return nil
}
