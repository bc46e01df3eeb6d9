package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valter-silva-au/maestro/pkg/models"
)

func TestAnthropicClient_Complete(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"generated answer"}]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(models.AnthropicConfig{
		APIKey: "secret", Model: "claude-3-sonnet-20240229", MaxTokens: 4000, BaseURL: srv.URL + "/", Timeout: time.Second,
	})
	out, err := c.Complete(context.Background(), models.CompletionRequest{Prompt: "hello", Model: "ignored"})
	require.NoError(t, err)

	assert.Equal(t, "generated answer", out)
	assert.Equal(t, "claude-3-sonnet-20240229", got.Model)
	assert.Equal(t, 4000, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[0].Content)
	assert.Equal(t, models.ProviderAnthropic, c.Name())
}

func TestAnthropicClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		errMsg string
	}{
		{"http error", http.StatusUnauthorized, `{"error":"bad key"}`, "status 401"},
		{"bad json", http.StatusOK, `not json`, "decoding anthropic response"},
		{"no text", http.StatusOK, `{"content":[]}`, "no text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewAnthropicClient(models.AnthropicConfig{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second})
			_, err := c.Complete(context.Background(), models.CompletionRequest{Prompt: "p"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestOllamaClient_Complete(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"llama3.2:3b","response":"local answer","done":true}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(models.OllamaConfig{BaseURL: srv.URL, Model: "llama3.2:3b", Timeout: time.Second})
	out, err := c.Complete(context.Background(), models.CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)

	assert.Equal(t, "local answer", out)
	assert.Equal(t, "llama3.2:3b", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, ollamaTemperature, got.Options.Temperature)
	assert.Equal(t, ollamaTopP, got.Options.TopP)
	assert.Equal(t, ollamaMaxTokens, got.Options.MaxTokens)
}

func TestOllamaClient_ModelOverride(t *testing.T) {
	var model string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		model = req.Model
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(models.OllamaConfig{BaseURL: srv.URL, Model: "llama3.2:3b"})
	_, err := c.Complete(context.Background(), models.CompletionRequest{Prompt: "p", Model: "codellama:7b"})
	require.NoError(t, err)
	assert.Equal(t, "codellama:7b", model)
}

func TestOllamaClient_GateLimitsConcurrency(t *testing.T) {
	var (
		inFlight int32
		peak     int32
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(models.OllamaConfig{BaseURL: srv.URL, Model: "m", MaxConcurrent: 2, Timeout: 5 * time.Second})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Complete(context.Background(), models.CompletionRequest{Prompt: "p"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestOllamaClient_GateRespectsContext(t *testing.T) {
	c := NewOllamaClient(models.OllamaConfig{BaseURL: "http://127.0.0.1:1", MaxConcurrent: 1})
	require.True(t, c.gate.TryAcquire(1))
	defer c.gate.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Complete(ctx, models.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "waiting for ollama slot")
}

func TestOllamaClient_AvailableListsModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:3b"},{"name":"codellama:7b"}]}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(models.OllamaConfig{BaseURL: srv.URL})
	assert.True(t, c.Available(context.Background()))

	names, err := c.listModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.2:3b", "codellama:7b"}, names)
}

func TestOllamaClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	assert.False(t, NewOllamaClient(models.OllamaConfig{BaseURL: srv.URL}).Available(context.Background()))

	srv.Close()
	c := NewOllamaClient(models.OllamaConfig{BaseURL: srv.URL})
	assert.False(t, c.Available(context.Background()))
	_, err := c.listModels(context.Background())
	assert.Error(t, err)
}

func TestOllamaClient_UnavailableWithoutModelList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not ollama</html>`))
	}))
	defer srv.Close()

	assert.False(t, NewOllamaClient(models.OllamaConfig{BaseURL: srv.URL}).Available(context.Background()))
}

func TestMockClient_Complete(t *testing.T) {
	prompt := "You are a tester\n\nTASK: Write tests\nGOAL: cover\n\nACCEPTANCE CRITERIA:\n- First\n- Second\n\nCOMPLEXITY: Medium\n"
	c := &MockClient{}

	out, err := c.Complete(context.Background(), models.CompletionRequest{Prompt: prompt})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Write tests\n"))
	assert.Contains(t, out, "- [x] First\n- [x] Second\n")
	assert.NotContains(t, out, "COMPLEXITY")
	assert.Equal(t, models.ProviderMock, c.Name())
}

func TestMockClient_NoTitle(t *testing.T) {
	out := mockResponse("no structure here")
	assert.True(t, strings.HasPrefix(out, "# Task\n"))
	assert.NotContains(t, out, "Acceptance Criteria Coverage")
}

func TestMockClient_DelayHonorsContext(t *testing.T) {
	c := &MockClient{Delay: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Complete(ctx, models.CompletionRequest{Prompt: "p"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFallbackClient(t *testing.T) {
	calls := int32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			atomic.AddInt32(&calls, 1)
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"response":"from ollama"}`))
	}))
	defer srv.Close()

	c := NewFallbackClient(NewOllamaClient(models.OllamaConfig{BaseURL: srv.URL}), &MockClient{})
	assert.Equal(t, models.ProviderOllama, c.Name())
	out, err := c.Complete(context.Background(), models.CompletionRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "from ollama", out)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "availability is checked once")
}

func TestFallbackClient_UsesMockWhenOllamaDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewFallbackClient(NewOllamaClient(models.OllamaConfig{BaseURL: srv.URL}), &MockClient{})
	assert.Equal(t, models.ProviderMock, c.Name())

	out, err := c.Complete(context.Background(), models.CompletionRequest{Prompt: "TASK: Offline"})
	require.NoError(t, err)
	assert.Contains(t, out, "# Offline")
}

func TestNewLLMClient(t *testing.T) {
	tests := []struct {
		name     string
		cfg      models.LLMConfig
		wantType any
		errMsg   string
	}{
		{"anthropic", models.LLMConfig{Provider: models.ProviderAnthropic, Anthropic: models.AnthropicConfig{APIKey: "k"}}, &AnthropicClient{}, ""},
		{"anthropic without key", models.LLMConfig{Provider: models.ProviderAnthropic}, nil, "requires an API key"},
		{"ollama", models.LLMConfig{Provider: models.ProviderOllama}, &OllamaClient{}, ""},
		{"mock", models.LLMConfig{Provider: models.ProviderMock}, &MockClient{}, ""},
		{"auto with key", models.LLMConfig{Provider: models.ProviderAuto, Anthropic: models.AnthropicConfig{APIKey: "k"}}, &AnthropicClient{}, ""},
		{"auto without key", models.LLMConfig{Provider: models.ProviderAuto}, &FallbackClient{}, ""},
		{"empty provider", models.LLMConfig{}, &FallbackClient{}, ""},
		{"unknown", models.LLMConfig{Provider: "gpt"}, nil, "unknown llm provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewLLMClient(tt.cfg)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, c)
		})
	}
}
