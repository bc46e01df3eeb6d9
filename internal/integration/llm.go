package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/valter-silva-au/maestro/pkg/models"
)

const (
	anthropicVersion     = "2023-06-01"
	maxResponseBytes     = 10 << 20
	ollamaCheckTimeout   = 5 * time.Second
	defaultOllamaGate    = 3
	ollamaTemperature    = 0.7
	ollamaTopP           = 0.9
	ollamaMaxTokens      = 4000
	anthropicUserMessage = "user"
)

// LLMClient produces a completion for a prompt.
type LLMClient interface {
	Complete(ctx context.Context, req models.CompletionRequest) (string, error)
	Name() string
}

// --- Anthropic ---

// AnthropicClient calls the Anthropic messages API.
type AnthropicClient struct {
	cfg  models.AnthropicConfig
	http *http.Client
}

// NewAnthropicClient creates a client for the messages API.
func NewAnthropicClient(cfg models.AnthropicConfig) *AnthropicClient {
	return &AnthropicClient{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (c *AnthropicClient) Name() string { return models.ProviderAnthropic }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends the prompt as a single user message and returns the text of
// the first content block. The request's model override is ignored.
func (c *AnthropicClient) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		Messages:  []anthropicMessage{{Role: anthropicUserMessage, Content: req.Prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("encoding anthropic request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	data, err := doRequest(c.http, httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decoding anthropic response: %w", err)
	}
	for _, block := range resp.Content {
		if block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic response contained no text")
}

// --- Ollama ---

// OllamaClient calls a local Ollama server. Calls are gated by a weighted
// semaphore so at most MaxConcurrent requests are in flight.
type OllamaClient struct {
	cfg  models.OllamaConfig
	http *http.Client
	gate *semaphore.Weighted
}

// NewOllamaClient creates an Ollama client.
func NewOllamaClient(cfg models.OllamaConfig) *OllamaClient {
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = defaultOllamaGate
	}
	return &OllamaClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		gate: semaphore.NewWeighted(int64(limit)),
	}
}

func (c *OllamaClient) Name() string { return models.ProviderOllama }

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Complete posts to /api/generate, waiting for a free slot first.
func (c *OllamaClient) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for ollama slot: %w", err)
	}
	defer c.gate.Release(1)

	model := c.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	body, err := json.Marshal(ollamaRequest{
		Model:  model,
		Prompt: req.Prompt,
		Options: ollamaOptions{
			Temperature: ollamaTemperature,
			TopP:        ollamaTopP,
			MaxTokens:   ollamaMaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/generate"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	data, err := doRequest(c.http, httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request for model %s: %w", model, err)
	}
	var resp ollamaResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decoding ollama response: %w", err)
	}
	return resp.Response, nil
}

// Available reports whether the server answers /api/tags with a model list.
func (c *OllamaClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, ollamaCheckTimeout)
	defer cancel()
	_, err := c.listModels(ctx)
	return err == nil
}

// listModels returns the names of the models installed on the server.
func (c *OllamaClient) listModels(ctx context.Context) ([]string, error) {
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for ollama slot: %w", err)
	}
	defer c.gate.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/tags"), nil)
	if err != nil {
		return nil, fmt.Errorf("creating ollama tags request: %w", err)
	}
	data, err := doRequest(c.http, req)
	if err != nil {
		return nil, fmt.Errorf("listing ollama models: %w", err)
	}
	var tags ollamaTagsResponse
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("decoding ollama tags: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (c *OllamaClient) url(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

// --- Mock ---

// MockClient returns a canned markdown response derived from the prompt.
type MockClient struct {
	Delay time.Duration
}

func (c *MockClient) Name() string { return models.ProviderMock }

// Complete waits for Delay and returns a deterministic response.
func (c *MockClient) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return mockResponse(req.Prompt), nil
}

func mockResponse(prompt string) string {
	title := "Task"
	var criteria []string
	inCriteria := false
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "TASK:"):
			title = strings.TrimSpace(strings.TrimPrefix(line, "TASK:"))
		case line == "ACCEPTANCE CRITERIA:":
			inCriteria = true
		case inCriteria && strings.HasPrefix(line, "- "):
			criteria = append(criteria, strings.TrimPrefix(line, "- "))
		case inCriteria:
			inCriteria = false
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString("## Executive Summary\n")
	b.WriteString("Generated offline without an LLM backend. Replace with a real provider for substantive content.\n\n")
	if len(criteria) > 0 {
		b.WriteString("## Acceptance Criteria Coverage\n")
		for _, c := range criteria {
			fmt.Fprintf(&b, "- [x] %s\n", c)
		}
		b.WriteString("\n")
	}
	b.WriteString("## Next Steps\n- Review the generated content\n- Validate against the success indicators\n")
	return b.String()
}

// --- Fallback ---

// FallbackClient uses Ollama when the server is reachable and the mock
// client otherwise. Availability is checked once, on first use.
type FallbackClient struct {
	ollama *OllamaClient
	mock   *MockClient

	once   sync.Once
	chosen LLMClient
}

// NewFallbackClient creates a client that picks between ollama and mock.
func NewFallbackClient(ollama *OllamaClient, mock *MockClient) *FallbackClient {
	return &FallbackClient{ollama: ollama, mock: mock}
}

// Name returns the selected backend's name, probing if needed.
func (c *FallbackClient) Name() string {
	return c.resolve(context.Background()).Name()
}

func (c *FallbackClient) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	return c.resolve(ctx).Complete(ctx, req)
}

func (c *FallbackClient) resolve(ctx context.Context) LLMClient {
	c.once.Do(func() {
		if c.ollama != nil && c.ollama.Available(ctx) {
			c.chosen = c.ollama
			return
		}
		c.chosen = c.mock
	})
	return c.chosen
}

// NewLLMClient builds the client selected by cfg.Provider. With "auto" it
// prefers Anthropic when an API key is set, then a reachable Ollama server,
// then the mock client.
func NewLLMClient(cfg models.LLMConfig) (LLMClient, error) {
	switch cfg.Provider {
	case models.ProviderAnthropic:
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return NewAnthropicClient(cfg.Anthropic), nil
	case models.ProviderOllama:
		return NewOllamaClient(cfg.Ollama), nil
	case models.ProviderMock:
		return &MockClient{}, nil
	case models.ProviderAuto, "":
		if cfg.Anthropic.APIKey != "" {
			return NewAnthropicClient(cfg.Anthropic), nil
		}
		return NewFallbackClient(NewOllamaClient(cfg.Ollama), &MockClient{}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func doRequest(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
