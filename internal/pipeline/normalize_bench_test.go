//go:build bench

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// BenchmarkMarkdownToHTML measures Markdown rendering with highlighting.
func BenchmarkMarkdownToHTML(b *testing.B) {
	n := NewMarkdownNormalizer(HTMLOptions{}, nil, nil)
	ctx := context.Background()

	inputs := []struct {
		name    string
		content string
	}{
		{"minimal", "# Hello\n\nWorld"},
		{"headings", generateHeadingsMarkdown(20)},
		{"code_blocks", generateCodeBlocksMarkdown(10)},
		{"mixed_small", generateMixedMarkdown(10)},
		{"mixed_large", generateMixedMarkdown(200)},
	}

	for _, input := range inputs {
		b.Run(input.name, func(b *testing.B) {
			b.ReportAllocs()

			for b.Loop() {
				if _, err := n.ToHTML(ctx, input.content, ""); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkHTMLNormalize measures the DOM pass on documents of growing
// size. Assets are skipped so only parsing and rendering are timed.
func BenchmarkHTMLNormalize(b *testing.B) {
	n := &HTMLNormalizer{Options: HTMLOptions{SkipAssets: true}}
	ctx := context.Background()

	for _, sections := range []int{1, 10, 100, 500} {
		content := []byte(generateHTMLDocument(sections))
		b.Run(fmt.Sprintf("sections_%d", sections), func(b *testing.B) {
			dst := b.TempDir()
			b.ReportAllocs()
			b.SetBytes(int64(len(content)))

			for b.Loop() {
				if _, err := n.Normalize(ctx, Source{Content: content, FileName: "page.html"}, dst); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkMarkdownNormalizeParallel measures concurrent full normalization.
func BenchmarkMarkdownNormalizeParallel(b *testing.B) {
	n := NewMarkdownNormalizer(HTMLOptions{SkipAssets: true}, nil, nil)
	ctx := context.Background()
	content := []byte(generateMixedMarkdown(20))

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		dst := b.TempDir()
		for pb.Next() {
			if _, err := n.Normalize(ctx, Source{Content: content, FileName: "lesson.md"}, dst); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

func generateHeadingsMarkdown(count int) string {
	var sb strings.Builder
	for i := range count {
		sb.WriteString(strings.Repeat("#", (i%6)+1))
		fmt.Fprintf(&sb, " Heading %d\n\nSome content under this heading.\n\n", i+1)
	}
	return sb.String()
}

func generateCodeBlocksMarkdown(count int) string {
	var sb strings.Builder
	for range count {
		sb.WriteString("## Code Example\n\n```go\nfunc example() {\n    for i := range 10 {\n        process(i)\n    }\n}\n```\n\n")
	}
	return sb.String()
}

func generateMixedMarkdown(sections int) string {
	var sb strings.Builder
	sb.WriteString("# Course Title\n\nIntroduction with **bold**, *italic* and ==highlighted== text.\n\n")
	for i := range sections {
		fmt.Fprintf(&sb, "## Lesson %d\n\n", i+1)
		sb.WriteString("A paragraph with [a link](https://example.com) and `inline code`.\n\n")
		sb.WriteString("- Item one\n- Item two\n- Item three\n\n")
		if i%3 == 0 {
			sb.WriteString("```go\nfunc main() {\n    fmt.Println(\"Hello\")\n}\n```\n\n")
		}
		if i%5 == 0 {
			sb.WriteString("| A | B | C |\n|---|---|---|\n| 1 | 2 | 3 |\n\n")
		}
	}
	return sb.String()
}

func generateHTMLDocument(sections int) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html><html><head><title>Bench</title><style>p{margin:0}</style></head><body>")
	for i := range sections {
		fmt.Fprintf(&sb, "<!-- section %d --><h2>Section %d</h2><p>Text <b>bold</b></p>", i, i)
		fmt.Fprintf(&sb, "<script>var s%d = %d;</script><style>.s%d{color:red}</style>", i, i, i)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}
