package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// TesseractOCR shells out to the tesseract binary.
type TesseractOCR struct {
	binary   string
	language string
}

func NewTesseractOCR(binary, language string) *TesseractOCR {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &TesseractOCR{binary: binary, language: language}
}

func (t *TesseractOCR) Recognize(ctx context.Context, imagePath string) (string, error) {
	cmd := exec.CommandContext(ctx, t.binary, imagePath, "stdout", "-l", t.language)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// PopplerRasterizer renders pages with pdftoppm into a temporary directory.
type PopplerRasterizer struct {
	binary string
	dpi    int
}

func NewPopplerRasterizer(binary string, dpi int) *PopplerRasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 200
	}
	return &PopplerRasterizer{binary: binary, dpi: dpi}
}

func (p *PopplerRasterizer) Rasterize(ctx context.Context, path string) ([]string, func(), error) {
	dir, err := os.MkdirTemp("", "rasterize-*")
	if err != nil {
		return nil, nil, fmt.Errorf("creating raster dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, p.binary, "-r", strconv.Itoa(p.dpi), "-png", path, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	pages, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if len(pages) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("pdftoppm produced no pages")
	}
	sort.Slice(pages, func(i, j int) bool { return pageIndex(pages[i]) < pageIndex(pages[j]) })
	return pages, cleanup, nil
}

// pageIndex parses the page number pdftoppm appends (page-1.png, page-01.png, ...).
func pageIndex(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	idx := strings.LastIndex(base, "-")
	n, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return 0
	}
	return n
}
