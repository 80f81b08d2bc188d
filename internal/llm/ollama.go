package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default values for the Ollama provider.
const (
	defaultOllamaBaseURL    = "http://localhost:11434"
	defaultOllamaModel      = "llama3.1"
	defaultOllamaRetryDelay = time.Second
)

// generateRequest is the request body for the Ollama generate API.
type generateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

// ollamaOptions carries model runtime options for the Ollama API.
type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

// generateResponse is the response body from the Ollama generate API.
type generateResponse struct {
	Model     string `json:"model"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int    `json:"eval_count"`
}

// ollamaErrorResponse is the error payload from the Ollama API.
type ollamaErrorResponse struct {
	Error string `json:"error"`
}

// OllamaProvider implements Generator against a local Ollama server.
type OllamaProvider struct {
	httpClient  *http.Client
	model       string
	baseURL     string
	temperature float64
	maxRetries  int
	retryDelay  time.Duration
}

// OllamaConfig holds the parameters needed to create an Ollama provider.
// This is defined in the llm package to avoid importing the config package.
type OllamaConfig struct {
	// Model is the model identifier (e.g., "llama3.1").
	Model string
	// BaseURL is the Ollama server URL (empty means http://localhost:11434).
	BaseURL string
}

// NewOllamaProvider creates a new Ollama text generation provider.
//
// Ollama runs locally and needs no API key. Responses are requested with
// streaming disabled so the full completion arrives in one body.
func NewOllamaProvider(cfg OllamaConfig, temperature float64, timeout time.Duration, maxRetries int) *OllamaProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}

	if timeout <= 0 {
		// Local inference on CPU can be slow; give it room.
		timeout = 5 * time.Minute
	}

	if maxRetries < 0 {
		maxRetries = 0
	}

	return &OllamaProvider{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		model:       model,
		baseURL:     baseURL,
		temperature: temperature,
		maxRetries:  maxRetries,
		retryDelay:  defaultOllamaRetryDelay,
	}
}

// Generate produces a completion for the request using the Ollama server.
//
// Transient errors are retried up to maxRetries times with a backoff that
// grows linearly per attempt.
func (p *OllamaProvider) Generate(ctx context.Context, req Request) (string, error) {
	genReq := generateRequest{
		Model:  p.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
		Options: ollamaOptions{
			Temperature: p.temperature,
		},
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("ollama: context cancelled during retry wait: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		result, err := p.doRequest(ctx, genReq)
		if err == nil {
			return result, nil
		}

		if !isTransientError(err) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("ollama: exhausted %d retries: %w", p.maxRetries, lastErr)
}

// Provider returns the name of the LLM provider.
func (p *OllamaProvider) Provider() string {
	return "ollama"
}

// Model returns the model identifier being used.
func (p *OllamaProvider) Model() string {
	return p.model
}

// doRequest performs a single API request to the Ollama generate endpoint.
func (p *OllamaProvider) doRequest(ctx context.Context, genReq generateRequest) (string, error) {
	body, err := json.Marshal(genReq)
	if err != nil {
		return "", fmt.Errorf("ollama: failed to marshal request: %w", err)
	}

	endpoint := p.baseURL + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", &APIError{
			Provider:   "ollama",
			StatusCode: 0,
			Message:    fmt.Sprintf("request failed: %v", err),
			Type:       "network_error",
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("ollama: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", parseOllamaAPIError(resp.StatusCode, respBody)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("ollama: failed to unmarshal response: %w", err)
	}

	if genResp.Response == "" {
		return "", fmt.Errorf("ollama: empty response from model")
	}

	return genResp.Response, nil
}

// parseOllamaAPIError parses an Ollama API error from the response status code and body.
func parseOllamaAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "ollama",
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp ollamaErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		apiErr.Message = errResp.Error
	}

	return apiErr
}
