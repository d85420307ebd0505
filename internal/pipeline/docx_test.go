package pipeline

// Notes:
// - Documents are assembled in memory with only the parts the normalizer
//   reads; Word itself would add many more.

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/alnah/go-doc2scorm/internal/archive"
)

const coreXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
 xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:creator>Author</dc:creator>
<dc:title>  Quarterly
  Review </dc:title>
</cp:coreProperties>`

func buildDOCX(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		if err := archive.WriteBytesEntry(zw, name, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// ---------------------------------------------------------------------------
// TestDOCXNormalizer - Viewer and copied document
// ---------------------------------------------------------------------------

func TestDOCXNormalizer(t *testing.T) {
	t.Parallel()

	doc := buildDOCX(t, map[string]string{
		"word/document.xml": "<w:document/>",
		"docProps/core.xml": coreXML,
	})
	n := &DOCXNormalizer{Options: DOCXOptions{DwellSeconds: 3}}
	dst := t.TempDir()

	out, err := n.Normalize(context.Background(), Source{Content: doc, FileName: "Q3 review.docx"}, dst)
	if err != nil {
		t.Fatalf("Normalize() unexpected error: %v", err)
	}
	if out.Entry != DOCXViewerEntry || out.Kind != KindDOCX || out.Pages != 1 {
		t.Errorf("Output = %+v", out)
	}
	if out.Title != "Quarterly Review" {
		t.Errorf("Title = %q, want %q", out.Title, "Quarterly Review")
	}
	if got := out.Tree.Paths(); !reflect.DeepEqual(got, []string{"viewer.html", "Q3_review.docx"}) {
		t.Errorf("Tree.Paths() = %v", got)
	}

	copied, err := os.ReadFile(filepath.Join(dst, "Q3_review.docx"))
	if err != nil || !bytes.Equal(copied, doc) {
		t.Errorf("document not copied verbatim (err=%v)", err)
	}
	viewer := readFile(t, filepath.Join(dst, DOCXViewerEntry))
	for _, want := range []string{
		"<title>Quarterly Review</title>",
		`href="Q3_review.docx"`,
		"Q3_review.docx (",
		"3000",
		"Content-Security-Policy",
	} {
		if !strings.Contains(viewer, want) {
			t.Errorf("viewer missing %q", want)
		}
	}
}

func TestDOCXNormalizer_TitleAndDefaults(t *testing.T) {
	t.Parallel()

	doc := buildDOCX(t, map[string]string{"word/document.xml": "<w:document/>"})
	n := &DOCXNormalizer{}
	dst := t.TempDir()

	out, err := n.Normalize(context.Background(), Source{Content: doc, Title: "Given Title"}, dst)
	if err != nil {
		t.Fatalf("Normalize() unexpected error: %v", err)
	}
	if out.Title != "" {
		t.Errorf("Title without core part = %q, want empty", out.Title)
	}
	if !out.Tree.Contains("document.docx") {
		t.Errorf("Tree.Paths() = %v, want document.docx", out.Tree.Paths())
	}
	viewer := readFile(t, filepath.Join(dst, DOCXViewerEntry))
	if !strings.Contains(viewer, "<title>Given Title</title>") {
		t.Error("source title should win")
	}
	if !strings.Contains(viewer, "10000") {
		t.Error("viewer should use the default dwell time")
	}
}

// ---------------------------------------------------------------------------
// TestDOCXNormalizer - Invalid documents
// ---------------------------------------------------------------------------

func TestDOCXNormalizer_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content []byte
	}{
		{"not a zip", []byte("plain text")},
		{"zip without document part", buildDOCX(t, map[string]string{"docProps/core.xml": coreXML})},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := &DOCXNormalizer{}
			dst := t.TempDir()
			_, err := n.Normalize(context.Background(), Source{Content: tt.content, FileName: "x.docx"}, dst)
			if !errors.Is(err, ErrNormalization) {
				t.Errorf("Normalize() error = %v, want ErrNormalization", err)
			}
			if entries, _ := os.ReadDir(dst); len(entries) != 0 {
				t.Errorf("nothing should be written on failure, got %v", entries)
			}
		})
	}
}

func TestCoreTitle_Malformed(t *testing.T) {
	t.Parallel()

	doc := buildDOCX(t, map[string]string{"docProps/core.xml": "<cp:coreProperties><dc:title>Open"})
	zr, err := zip.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.Fatal(err)
	}
	if got := coreTitle(zr); got != "" {
		t.Errorf("coreTitle() = %q, want empty", got)
	}
}
