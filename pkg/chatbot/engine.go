package chatbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/logger"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
	"github.com/synaptica-ai/clinical-assistant/pkg/observability/metrics"
	"github.com/synaptica-ai/clinical-assistant/pkg/patientctx"
)

const (
	// AnswerCue closes the prompt and marks where the answer starts in echoed output.
	AnswerCue = "Answer:"
	// MaxAnswerLength caps backend answers in runes.
	MaxAnswerLength = 500

	SourceBackend   = "backend"
	SourceResponder = "responder"
)

// GenerateParams bounds a single generation call.
type GenerateParams struct {
	MaxNewTokens       int
	Temperature        float64
	DoSample           bool
	NumReturnSequences int
}

func DefaultGenerateParams() GenerateParams {
	return GenerateParams{MaxNewTokens: 200, Temperature: 0.7, DoSample: true, NumReturnSequences: 1}
}

// Backend produces candidate continuations for a prompt.
type Backend interface {
	Generate(ctx context.Context, prompt string, params GenerateParams) ([]string, error)
}

// Loader builds the backend once at startup.
type Loader func() (Backend, error)

type Engine struct {
	backend   Backend
	responder *Responder
	params    GenerateParams
}

// NewEngine never fails. A loader that errors or panics leaves the engine in
// deterministic mode.
func NewEngine(load Loader, responder *Responder, params GenerateParams) *Engine {
	if responder == nil {
		responder = NewResponder(DefaultBuckets())
	}
	if params.NumReturnSequences <= 0 {
		params.NumReturnSequences = 1
	}
	return &Engine{backend: loadBackend(load), responder: responder, params: params}
}

func loadBackend(load Loader) (backend Backend) {
	if load == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithField("panic", r).Warn("Generation backend loader panicked, using keyword responder")
			backend = nil
		}
	}()
	b, err := load()
	if err != nil {
		logger.Log.WithError(err).Warn("Generation backend unavailable, using keyword responder")
		return nil
	}
	if b != nil {
		logger.Log.Info("Generation backend loaded")
	}
	return b
}

// HasBackend reports whether answers can come from the generation backend.
func (e *Engine) HasBackend() bool {
	return e.backend != nil
}

// BuildPrompt wraps the context block and question in the fixed template.
func BuildPrompt(promptContext, question string) string {
	return fmt.Sprintf("Medical Context:\n%s\n\nQuestion: %s\n\n%s", promptContext, question, AnswerCue)
}

// Answer returns a reply for question about the patient in pc.
func (e *Engine) Answer(ctx context.Context, question string, pc *models.PatientContext) string {
	answer, _ := e.AnswerWithSource(ctx, question, pc)
	return answer
}

// AnswerWithSource also reports which path produced the reply.
func (e *Engine) AnswerWithSource(ctx context.Context, question string, pc *models.PatientContext) (string, string) {
	promptContext := patientctx.BuildPromptContext(pc)
	log := logger.Log.WithField("component", "chatbot")
	if pc != nil {
		log = logger.ForPatient("chatbot", pc.Patient.ID)
	}

	if e.backend != nil {
		if answer := e.generate(ctx, log, BuildPrompt(promptContext, question)); answer != "" {
			metrics.IncBackendAnswer()
			return answer, SourceBackend
		}
	}

	metrics.IncFallbackAnswer()
	return e.responder.Respond(question, promptContext), SourceResponder
}

func (e *Engine) generate(ctx context.Context, log *logrus.Entry, prompt string) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncBackendFailure()
			log.WithField("panic", r).Error("Generation backend panicked")
			answer = ""
		}
	}()

	outputs, err := e.backend.Generate(ctx, prompt, e.params)
	if err != nil {
		metrics.IncBackendFailure()
		log.WithError(err).Warn("Error generating response")
		return ""
	}
	if len(outputs) == 0 {
		return ""
	}
	return ExtractAnswer(outputs[0], prompt)
}

// ExtractAnswer pulls the reply out of raw backend output: text after the last
// answer cue, else the output with an echoed prompt removed, else the output.
func ExtractAnswer(generated, prompt string) string {
	var answer string
	switch {
	case strings.Contains(generated, AnswerCue):
		answer = generated[strings.LastIndex(generated, AnswerCue)+len(AnswerCue):]
	case prompt != "" && strings.Contains(generated, prompt):
		answer = strings.ReplaceAll(generated, prompt, "")
	default:
		answer = generated
	}
	return patientctx.Truncate(strings.TrimSpace(answer), MaxAnswerLength)
}
