package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/synaptica-ai/clinical-assistant/pkg/chatbot"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/config"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/httpclient"
	"github.com/synaptica-ai/clinical-assistant/pkg/dlp"
)

// ErrDisabled is returned by Load when no backend is configured.
var ErrDisabled = errors.New("generation backend disabled")

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	redactor   *dlp.Redactor
}

func NewClient(httpClient *http.Client, baseURL, apiKey, model string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

// WithRedactor masks identifiers in every prompt before it is sent.
func (c *Client) WithRedactor(r *dlp.Redactor) *Client {
	c.redactor = r
	return c
}

// Load returns a chatbot loader bound to cfg.
func Load(cfg *config.Config) chatbot.Loader {
	return func() (chatbot.Backend, error) {
		if !cfg.LLMEnabled {
			return nil, ErrDisabled
		}
		if cfg.LLMBaseURL == "" || cfg.LLMModelName == "" {
			return nil, errors.New("LLM_BASE_URL and LLM_MODEL_NAME are required")
		}
		client := NewClient(httpclient.New(cfg.LLMTimeout), cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
		if cfg.LLMRedactPHI {
			rules, err := dlp.LoadRules(cfg.DLPRulesPath)
			if err != nil {
				return nil, fmt.Errorf("loading redaction rules: %w", err)
			}
			redactor, err := dlp.NewRedactor(rules)
			if err != nil {
				return nil, err
			}
			client.WithRedactor(redactor)
		}
		return client, nil
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	N           int           `json:"n,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) Generate(ctx context.Context, prompt string, params chatbot.GenerateParams) ([]string, error) {
	temperature := params.Temperature
	if !params.DoSample {
		temperature = 0
	}
	payload, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: c.redactor.Redact(prompt)}},
		MaxTokens:   params.MaxNewTokens,
		Temperature: temperature,
		N:           params.NumReturnSequences,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var result completionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode completion (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if result.Error != nil && result.Error.Message != "" {
			return nil, fmt.Errorf("completion failed (status %d): %s", resp.StatusCode, result.Error.Message)
		}
		return nil, fmt.Errorf("completion failed with status %d", resp.StatusCode)
	}
	if len(result.Choices) == 0 {
		return nil, errors.New("no response from LLM")
	}

	out := make([]string, 0, len(result.Choices))
	for _, choice := range result.Choices {
		out = append(out, choice.Message.Content)
	}
	return out, nil
}
