package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time check that OllamaProvider implements Generator.
var _ Generator = (*OllamaProvider)(nil)

// newOllamaTestProvider creates an OllamaProvider pointed at the test server.
func newOllamaTestProvider(t *testing.T, serverURL string, maxRetries int) *OllamaProvider {
	t.Helper()
	provider := NewOllamaProvider(OllamaConfig{Model: "llama3.1", BaseURL: serverURL}, 0.3, 10*time.Second, maxRetries)
	provider.retryDelay = time.Millisecond
	return provider
}

func TestOllamaProvider_Generate(t *testing.T) {
	t.Run("successful generation returns response text", func(t *testing.T) {
		var receivedReq generateRequest

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/generate", r.URL.Path)

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &receivedReq))

			json.NewEncoder(w).Encode(generateResponse{
				Model:    "llama3.1",
				Response: "The paper introduces a new attention mechanism.",
				Done:     true,
			})
		}))
		t.Cleanup(server.Close)

		provider := newOllamaTestProvider(t, server.URL, 0)
		result, err := provider.Generate(context.Background(), Request{
			System: "You are a precise research assistant.",
			Prompt: "What is the contribution?",
		})

		require.NoError(t, err)
		assert.Equal(t, "The paper introduces a new attention mechanism.", result)

		assert.Equal(t, "llama3.1", receivedReq.Model)
		assert.Equal(t, "What is the contribution?", receivedReq.Prompt)
		assert.Equal(t, "You are a precise research assistant.", receivedReq.System)
		assert.False(t, receivedReq.Stream)
		assert.Equal(t, 0.3, receivedReq.Options.Temperature)
	})

	t.Run("returns error on empty response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(generateResponse{Model: "llama3.1", Done: true})
		}))
		t.Cleanup(server.Close)

		provider := newOllamaTestProvider(t, server.URL, 0)
		_, err := provider.Generate(context.Background(), Request{Prompt: "q"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty response")
	})

	t.Run("surfaces model not found without retry", func(t *testing.T) {
		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(ollamaErrorResponse{Error: "model 'nope' not found"})
		}))
		t.Cleanup(server.Close)

		provider := newOllamaTestProvider(t, server.URL, 3)
		_, err := provider.Generate(context.Background(), Request{Prompt: "q"})

		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "ollama", apiErr.Provider)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Equal(t, "model 'nope' not found", apiErr.Message)
	})

	t.Run("retries server errors then succeeds", func(t *testing.T) {
		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(generateResponse{Response: "ok", Done: true})
		}))
		t.Cleanup(server.Close)

		provider := newOllamaTestProvider(t, server.URL, 2)
		result, err := provider.Generate(context.Background(), Request{Prompt: "q"})

		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("context cancellation stops retry wait", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(server.Close)

		provider := newOllamaTestProvider(t, server.URL, 5)
		provider.retryDelay = time.Second

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := provider.Generate(ctx, Request{Prompt: "q"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "context cancelled")
	})
}

func TestNewOllamaProvider_Defaults(t *testing.T) {
	provider := NewOllamaProvider(OllamaConfig{}, 0.3, 0, -1)

	assert.Equal(t, defaultOllamaBaseURL, provider.baseURL)
	assert.Equal(t, defaultOllamaModel, provider.model)
	assert.Equal(t, 0, provider.maxRetries)
	assert.Equal(t, 5*time.Minute, provider.httpClient.Timeout)
	assert.Equal(t, "ollama", provider.Provider())
	assert.Equal(t, "llama3.1", provider.Model())
}
