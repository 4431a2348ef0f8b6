package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/synaptica-ai/clinical-assistant/pkg/chatbot"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/config"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/httpclient"
	"github.com/synaptica-ai/clinical-assistant/pkg/dlp"
)

func TestGenerateSendsBoundedRequest(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Answer: hydrate"}}]}`))
	}))
	defer srv.Close()

	client := NewClient(httpclient.New(5*time.Second), srv.URL+"/", "secret", "test-model")
	out, err := client.Generate(context.Background(), "prompt", chatbot.DefaultGenerateParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0] != "Answer: hydrate" {
		t.Fatalf("unexpected output %v", out)
	}
	if got.Model != "test-model" || got.MaxTokens != 200 || got.Temperature != 0.7 || got.N != 1 {
		t.Fatalf("unexpected request %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "prompt" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
}

func TestGenerateReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	client := NewClient(httpclient.New(5*time.Second), srv.URL, "", "m")
	if _, err := client.Generate(context.Background(), "p", chatbot.DefaultGenerateParams()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestGenerateRejectsEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := NewClient(httpclient.New(5*time.Second), srv.URL, "", "m")
	if _, err := client.Generate(context.Background(), "p", chatbot.DefaultGenerateParams()); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestLoadDisabledFallsBackToResponder(t *testing.T) {
	cfg := &config.Config{LLMEnabled: false}
	if _, err := Load(cfg)(); err != ErrDisabled {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}

	engine := chatbot.NewEngine(Load(cfg), nil, chatbot.DefaultGenerateParams())
	if engine.HasBackend() {
		t.Fatal("expected deterministic engine when disabled")
	}
}

func TestLoadEnabled(t *testing.T) {
	cfg := &config.Config{LLMEnabled: true, LLMBaseURL: "http://localhost:1", LLMModelName: "m", LLMTimeout: time.Second}
	backend, err := Load(cfg)()
	if err != nil || backend == nil {
		t.Fatalf("expected backend, got %v", err)
	}
}

func TestGenerateRedactsPrompt(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	redactor, err := dlp.NewRedactor(dlp.DefaultRules())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client := NewClient(httpclient.New(5*time.Second), srv.URL, "", "m").WithRedactor(redactor)
	if _, err := client.Generate(context.Background(), "SSN 123-45-6789", chatbot.DefaultGenerateParams()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "SSN ***-**-****" {
		t.Fatalf("expected redacted prompt, got %+v", got.Messages)
	}
}
