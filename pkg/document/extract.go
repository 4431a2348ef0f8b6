package document

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// TextExtractor returns the text layer of each page of a PDF.
type TextExtractor interface {
	ExtractPages(ctx context.Context, path string) ([]string, error)
}

// Rasterizer renders each PDF page to an image file. cleanup removes them.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string) (pages []string, cleanup func(), err error)
}

// OCREngine recognises text in an image file.
type OCREngine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// PDFTextExtractor reads embedded text with github.com/ledongthuc/pdf.
type PDFTextExtractor struct{}

func NewPDFTextExtractor() *PDFTextExtractor {
	return &PDFTextExtractor{}
}

// ExtractPages recovers from reader panics, which malformed PDFs can trigger.
func (e *PDFTextExtractor) ExtractPages(ctx context.Context, path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
