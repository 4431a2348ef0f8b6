package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

var (
	documentsParsed       atomic.Int64
	documentParseFailures atomic.Int64
	ocrFallbacks          atomic.Int64
	chatBackendAnswers    atomic.Int64
	chatFallbackAnswers   atomic.Int64
	chatBackendFailures   atomic.Int64
	validationRejections  atomic.Int64
)

func IncDocumentParsed()     { documentsParsed.Add(1) }
func IncParseFailure()       { documentParseFailures.Add(1) }
func IncOCRFallback()        { ocrFallbacks.Add(1) }
func IncBackendAnswer()      { chatBackendAnswers.Add(1) }
func IncFallbackAnswer()     { chatFallbackAnswers.Add(1) }
func IncBackendFailure()     { chatBackendFailures.Add(1) }
func IncValidationRejected() { validationRejections.Add(1) }

type Snapshot struct {
	DocumentsParsed       int64
	DocumentParseFailures int64
	OCRFallbacks          int64
	ChatBackendAnswers    int64
	ChatFallbackAnswers   int64
	ChatBackendFailures   int64
	ValidationRejections  int64
}

func Current() Snapshot {
	return Snapshot{
		DocumentsParsed:       documentsParsed.Load(),
		DocumentParseFailures: documentParseFailures.Load(),
		OCRFallbacks:          ocrFallbacks.Load(),
		ChatBackendAnswers:    chatBackendAnswers.Load(),
		ChatFallbackAnswers:   chatFallbackAnswers.Load(),
		ChatBackendFailures:   chatBackendFailures.Load(),
		ValidationRejections:  validationRejections.Load(),
	}
}

type counter struct {
	name string
	help string
	val  int64
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	writeCounters(w, Current())
}

func writeCounters(w io.Writer, s Snapshot) {
	counters := []counter{
		{"clinical_documents_parsed_total", "Documents whose text was extracted.", s.DocumentsParsed},
		{"clinical_document_parse_failures_total", "Documents stored with a parse diagnostic instead of text.", s.DocumentParseFailures},
		{"clinical_document_ocr_fallbacks_total", "PDFs without a usable text layer that were sent to OCR.", s.OCRFallbacks},
		{"clinical_chat_backend_answers_total", "Chat answers produced by the generation backend.", s.ChatBackendAnswers},
		{"clinical_chat_fallback_answers_total", "Chat answers produced by the keyword responder.", s.ChatFallbackAnswers},
		{"clinical_chat_backend_failures_total", "Generation backend calls that errored.", s.ChatBackendFailures},
		{"clinical_validation_rejections_total", "Submissions rejected by finding validators.", s.ValidationRejections},
	}
	for _, c := range counters {
		fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", c.name)
		fmt.Fprintf(w, "%s %d\n", c.name, c.val)
	}
}
