package main

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	doc2scorm "github.com/alnah/go-doc2scorm"
)

// ---------------------------------------------------------------------------
// TestResolveOutputPath - Package path for each input
// ---------------------------------------------------------------------------

func TestResolveOutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		outputDir string
		baseDir   string
		want      string
	}{
		{"beside input", "docs/fire.html", "", "", filepath.Join("docs", "fire.zip")},
		{"explicit zip", "docs/fire.html", "out/course.zip", "", "out/course.zip"},
		{"output directory", "docs/fire.html", "out", "", filepath.Join("out", "fire.zip")},
		{"mirrors subdirectories", "docs/m2/ladders.md", "out", "docs", filepath.Join("out", "m2", "ladders.zip")},
		{"double extension keeps first part", "docs/guide.v2.pdf", "out", "", filepath.Join("out", "guide.v2.zip")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := resolveOutputPath(tt.input, tt.outputDir, tt.baseDir); got != tt.want {
				t.Errorf("resolveOutputPath(%q, %q, %q) = %q, want %q", tt.input, tt.outputDir, tt.baseDir, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestDisambiguate - Colliding base names get the source extension
// ---------------------------------------------------------------------------

func TestDisambiguate(t *testing.T) {
	t.Parallel()

	files := []FileToConvert{
		{InputPath: "intro.html", OutputPath: "out/intro.zip"},
		{InputPath: "intro.PDF", OutputPath: "out/intro.zip"},
		{InputPath: "ladders.md", OutputPath: "out/ladders.zip"},
	}
	disambiguate(files)

	want := []string{"out/intro-html.zip", "out/intro-pdf.zip", "out/ladders.zip"}
	for i, f := range files {
		if f.OutputPath != want[i] {
			t.Errorf("files[%d].OutputPath = %q, want %q", i, f.OutputPath, want[i])
		}
	}
}

// ---------------------------------------------------------------------------
// TestDiscoverFiles - Single file and directory discovery
// ---------------------------------------------------------------------------

func TestDiscoverFiles(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.html"), sampleHTML)
	writeFile(t, filepath.Join(src, "b.HTM"), sampleHTML)
	writeFile(t, filepath.Join(src, "c.markdown"), sampleMarkdown)
	writeFile(t, filepath.Join(src, "d.docx"), "PK\x03\x04")
	writeFile(t, filepath.Join(src, "README"), "no extension")
	writeFile(t, filepath.Join(src, "image.png"), "png")
	writeFile(t, filepath.Join(src, ".git", "x.html"), sampleHTML)
	writeFile(t, filepath.Join(src, "sub", "e.pdf"), samplePDF)

	t.Run("directory", func(t *testing.T) {
		t.Parallel()

		files, err := discoverFiles(src, "", "")
		if err != nil {
			t.Fatalf("discoverFiles: %v", err)
		}
		var names []string
		types := map[string]doc2scorm.FileType{}
		for _, f := range files {
			rel, _ := filepath.Rel(src, f.InputPath)
			names = append(names, rel)
			types[rel] = f.Type
		}
		want := []string{"a.html", "b.HTM", "c.markdown", "d.docx", filepath.Join("sub", "e.pdf")}
		slices.Sort(names)
		if !slices.Equal(names, want) {
			t.Errorf("discovered %v, want %v", names, want)
		}
		if types["c.markdown"] != doc2scorm.TypeMarkdown || types["b.HTM"] != doc2scorm.TypeHTM {
			t.Errorf("types = %v", types)
		}
	})

	t.Run("single file with forced type", func(t *testing.T) {
		t.Parallel()

		files, err := discoverFiles(filepath.Join(src, "README"), "", doc2scorm.TypeMarkdown)
		if err != nil {
			t.Fatalf("discoverFiles: %v", err)
		}
		if len(files) != 1 || files[0].Type != doc2scorm.TypeMarkdown {
			t.Errorf("files = %+v", files)
		}
		if want := filepath.Join(src, "README.zip"); files[0].OutputPath != want {
			t.Errorf("OutputPath = %q, want %q", files[0].OutputPath, want)
		}
	})

	t.Run("single file without extension", func(t *testing.T) {
		t.Parallel()

		_, err := discoverFiles(filepath.Join(src, "README"), "", "")
		if !errors.Is(err, doc2scorm.ErrUnsupportedType) {
			t.Errorf("error = %v, want ErrUnsupportedType", err)
		}
	})

	t.Run("directory into zip path", func(t *testing.T) {
		t.Parallel()

		_, err := discoverFiles(src, "course.zip", "")
		if !errors.Is(err, ErrUsage) {
			t.Errorf("error = %v, want ErrUsage", err)
		}
	})

	t.Run("missing path", func(t *testing.T) {
		t.Parallel()

		_, err := discoverFiles(filepath.Join(src, "absent"), "", "")
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("error = %v, want os.ErrNotExist", err)
		}
	})
}
