// Package llm talks to the text generation backends used for attendance
// insights. Both backends reduce their replies to Response so text extraction
// and empty-reply handling behave the same regardless of provider.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Request is a single generation call.
type Request struct {
	// Operation labels the call in logs and metrics, e.g. "course_summary".
	Operation       string
	Prompt          string
	Temperature     float32
	MaxOutputTokens int32
}

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Backend is a Generator bound to a concrete provider and model.
type Backend interface {
	Generator
	Provider() string
	Model() string
	// Ping checks the backend is reachable and the model is usable.
	Ping(ctx context.Context) error
}

// Response is a provider-neutral view of a generation reply. Every level may
// be missing: a reply can have no candidates, a candidate no content, and
// content no text parts.
type Response struct {
	Candidates []Candidate
}

type Candidate struct {
	FinishReason string
	Content      *Content
}

type Content struct {
	Parts []Part
}

// Part is one fragment of candidate content. Non-text parts have empty Text.
type Part struct {
	Text string
}

// ExtractText concatenates the text parts of the first candidate that yields
// any text. The result is trimmed.
func ExtractText(resp *Response) (string, error) {
	if resp == nil {
		return "", &EmptyResponseError{}
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			return text, nil
		}
	}
	reasons := make([]string, 0, len(resp.Candidates))
	for _, c := range resp.Candidates {
		reasons = append(reasons, c.FinishReason)
	}
	return "", &EmptyResponseError{Candidates: len(resp.Candidates), FinishReasons: reasons}
}

// EmptyResponseError reports a reply without any text.
type EmptyResponseError struct {
	Candidates    int
	FinishReasons []string
}

func (e *EmptyResponseError) Error() string {
	if len(e.FinishReasons) == 0 {
		return "received empty response"
	}
	return fmt.Sprintf("received empty response (%d candidates, finish reasons: %s)",
		e.Candidates, strings.Join(e.FinishReasons, ", "))
}

// UpstreamError wraps any failure to obtain text from a provider.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("failed to call %s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
