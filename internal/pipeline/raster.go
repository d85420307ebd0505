package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"github.com/alnah/go-doc2scorm/internal/fileutil"
	"github.com/alnah/go-doc2scorm/internal/process"
)

// pointsPerInch converts a PDF scale factor to a raster resolution.
const pointsPerInch = 72

// Rasterizer turns PDF pages into PNG images.
type Rasterizer interface {
	PageCount(ctx context.Context, pdfPath string) (int, error)
	RenderPage(ctx context.Context, pdfPath string, page int, scale float64, dst string) error
}

// CommandRunner runs an external program and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs in their own process group and kills the whole
// group when ctx is canceled.
type ExecRunner struct{}

// Run executes name with args.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := exec.Command(name, args...) // #nosec G204 -- tool names come from configuration, not content
	process.SetProcessGroup(cmd)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting %s: %v", ErrRasterizer, name, err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		process.KillProcessGroup(cmd.Process.Pid)
		<-done
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v: %s", ErrRasterizer, name, err, strings.TrimSpace(stderr.String()))
		}
		return stdout.Bytes(), nil
	}
}

// PopplerRasterizer rasterizes with the Poppler command line tools.
type PopplerRasterizer struct {
	Runner   CommandRunner
	PDFInfo  string // default "pdfinfo"
	PDFToPPM string // default "pdftoppm"
}

// NewPopplerRasterizer returns a rasterizer using the tools on PATH.
func NewPopplerRasterizer() *PopplerRasterizer {
	return &PopplerRasterizer{Runner: ExecRunner{}, PDFInfo: "pdfinfo", PDFToPPM: "pdftoppm"}
}

func (p *PopplerRasterizer) runner() CommandRunner {
	if p.Runner == nil {
		return ExecRunner{}
	}
	return p.Runner
}

// PageCount reads the "Pages:" line of pdfinfo.
func (p *PopplerRasterizer) PageCount(ctx context.Context, pdfPath string) (int, error) {
	out, err := p.runner().Run(ctx, orDefault(p.PDFInfo, "pdfinfo"), pdfPath)
	if err != nil {
		return 0, err
	}
	return parsePageCount(out)
}

func parsePageCount(info []byte) (int, error) {
	sc := bufio.NewScanner(bytes.NewReader(info))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok || strings.TrimSpace(key) != "Pages" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("%w: bad page count %q", ErrRasterizer, strings.TrimSpace(value))
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: page count not reported", ErrRasterizer)
}

// RenderPage renders one page (1-based) to dst, which must end in .png.
func (p *PopplerRasterizer) RenderPage(ctx context.Context, pdfPath string, page int, scale float64, dst string) error {
	dpi := int(math.Round(scale * pointsPerInch))
	prefix := strings.TrimSuffix(dst, ".png")
	n := strconv.Itoa(page)
	_, err := p.runner().Run(ctx, orDefault(p.PDFToPPM, "pdftoppm"),
		"-png", "-r", strconv.Itoa(dpi), "-f", n, "-l", n, "-singlefile", pdfPath, prefix)
	if err != nil {
		return err
	}
	if !fileutil.FileExists(dst) {
		return fmt.Errorf("%w: page %d produced no image", ErrRasterizer, page)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// downscalePNG shrinks the image at path to maxWidth, keeping its aspect
// ratio. Narrower images are left alone.
func downscalePNG(path string, maxWidth int) (bool, error) {
	f, err := os.Open(path) // #nosec G304 -- rasterizer output inside the work dir
	if err != nil {
		return false, err
	}
	img, err := png.Decode(f)
	_ = f.Close()
	if err != nil {
		return false, fmt.Errorf("decoding %s: %w", path, err)
	}

	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return false, nil
	}
	height := max(1, b.Dy()*maxWidth/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return false, fmt.Errorf("encoding %s: %w", path, err)
	}
	return true, fileutil.WriteFile(path, buf.Bytes())
}

var _ Rasterizer = (*PopplerRasterizer)(nil)
