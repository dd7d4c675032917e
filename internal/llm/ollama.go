package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ollama calls a locally hosted Ollama server.
type Ollama struct {
	BaseURL string
	model   string
	HTTP    *http.Client
}

// NewOllama creates a client with configurable timeout. Local models are
// slow on first load, so the default is generous.
func NewOllama(baseURL, model string, timeout time.Duration) *Ollama {
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Ollama{
		BaseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (o *Ollama) Provider() string { return ProviderOllama }
func (o *Ollama) Model() string    { return o.model }

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int32   `json:"num_predict,omitempty"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaGenerateResponse struct {
	Model      string `json:"model"`
	Response   string `json:"response"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason"`
}

// Generate posts a non-streaming request to /api/generate.
func (o *Ollama) Generate(ctx context.Context, req Request) (string, error) {
	body, _ := json.Marshal(ollamaGenerateRequest{
		Model:  o.model,
		Prompt: req.Prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxOutputTokens,
		},
	})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", &UpstreamError{Provider: ProviderOllama, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.HTTP.Do(httpReq)
	if err != nil {
		return "", &UpstreamError{Provider: ProviderOllama, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &UpstreamError{Provider: ProviderOllama, Err: fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(bodyBytes)))}
	}

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &UpstreamError{Provider: ProviderOllama, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	text, err := ExtractText(out.toResponse())
	if err != nil {
		return "", &UpstreamError{Provider: ProviderOllama, Err: err}
	}
	return text, nil
}

func (r ollamaGenerateResponse) toResponse() *Response {
	reason := r.DoneReason
	if reason == "" && r.Done {
		reason = "stop"
	}
	return &Response{Candidates: []Candidate{{
		FinishReason: reason,
		Content:      &Content{Parts: []Part{{Text: r.Response}}},
	}}}
}

// Ping lists the local models and checks the configured one is pulled.
func (o *Ollama) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := o.HTTP.Do(req)
	if err != nil {
		return &UpstreamError{Provider: ProviderOllama, Err: fmt.Errorf("unavailable: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &UpstreamError{Provider: ProviderOllama, Err: fmt.Errorf("unhealthy: %s", resp.Status)}
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return &UpstreamError{Provider: ProviderOllama, Err: fmt.Errorf("failed to decode tags: %w", err)}
	}
	for _, m := range tags.Models {
		if m.Name == o.model || strings.TrimSuffix(m.Name, ":latest") == o.model {
			return nil
		}
	}
	return &UpstreamError{Provider: ProviderOllama, Err: fmt.Errorf("model %q is not pulled", o.model)}
}
