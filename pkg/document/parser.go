package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/logger"
	"github.com/synaptica-ai/clinical-assistant/pkg/observability/metrics"
)

// ErrorPrefix starts every diagnostic string the parser returns in place of text.
const ErrorPrefix = "Error parsing"

var errInvalidUTF8 = errors.New("file is not valid UTF-8")

// Parser turns an uploaded file into text. It never fails: problems come back
// as an "Error parsing ..." string so the upload is still recorded.
type Parser struct {
	extractor  TextExtractor
	rasterizer Rasterizer
	ocr        OCREngine
}

func NewParser(extractor TextExtractor, rasterizer Rasterizer, ocr OCREngine) *Parser {
	return &Parser{extractor: extractor, rasterizer: rasterizer, ocr: ocr}
}

// Extension returns the lower-cased text after the last dot of filename.
func Extension(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return strings.ToLower(filename[i+1:])
	}
	return strings.ToLower(filename)
}

// IsParseFailure reports whether text is a diagnostic rather than content.
func IsParseFailure(text string) bool {
	return strings.HasPrefix(text, ErrorPrefix)
}

func (p *Parser) Parse(ctx context.Context, path, filename string) (text string) {
	log := logger.WithFields(map[string]interface{}{"component": "document_parser", "filename": filename})
	defer func() {
		if r := recover(); r != nil {
			text = fmt.Sprintf("%s document: %v", ErrorPrefix, r)
		}
		if IsParseFailure(text) {
			metrics.IncParseFailure()
			log.WithField("result", text).Warn("document parse failed")
		} else {
			metrics.IncDocumentParsed()
		}
	}()

	switch Extension(filename) {
	case "pdf":
		return p.parsePDF(ctx, path, log)
	case "txt":
		return p.parseText(path)
	default:
		return p.parseImage(ctx, path)
	}
}

// ParseBytes spools data to a temporary file named after filename and parses it.
func (p *Parser) ParseBytes(ctx context.Context, data []byte, filename string) string {
	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(filename))
	if err != nil {
		return fmt.Sprintf("%s document: %v", ErrorPrefix, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Sprintf("%s document: %v", ErrorPrefix, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Sprintf("%s document: %v", ErrorPrefix, err)
	}
	return p.Parse(ctx, tmp.Name(), filename)
}

func (p *Parser) parsePDF(ctx context.Context, path string, log *logrus.Entry) string {
	pages, err := p.extractor.ExtractPages(ctx, path)
	if err == nil {
		var b strings.Builder
		for _, page := range pages {
			b.WriteString(page)
			b.WriteString("\n")
		}
		if text := b.String(); strings.TrimSpace(text) != "" {
			return text
		}
	} else {
		log.WithError(err).Warn("pdf text extraction failed, trying OCR")
	}

	metrics.IncOCRFallback()
	return p.parsePDFWithOCR(ctx, path)
}

func (p *Parser) parsePDFWithOCR(ctx context.Context, path string) string {
	images, cleanup, err := p.rasterizer.Rasterize(ctx, path)
	if err != nil {
		return fmt.Sprintf("%s PDF with OCR: %v", ErrorPrefix, err)
	}
	defer cleanup()

	var b strings.Builder
	for _, img := range images {
		text, err := p.ocr.Recognize(ctx, img)
		if err != nil {
			return fmt.Sprintf("%s PDF with OCR: %v", ErrorPrefix, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

func (p *Parser) parseText(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("%s text file: %v", ErrorPrefix, err)
	}
	if !utf8.Valid(data) {
		return fmt.Sprintf("%s text file: %v", ErrorPrefix, errInvalidUTF8)
	}
	return string(data)
}

func (p *Parser) parseImage(ctx context.Context, path string) string {
	text, err := p.ocr.Recognize(ctx, path)
	if err != nil {
		return fmt.Sprintf("%s image with OCR: %v", ErrorPrefix, err)
	}
	return text
}
