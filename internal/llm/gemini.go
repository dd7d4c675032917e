package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini generates text with a hosted Gemini model.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini client authenticated with apiKey.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

func (g *Gemini) Provider() string { return ProviderGemini }
func (g *Gemini) Model() string    { return g.model }

// Generate sends one prompt. The generation settings are per call, so a fresh
// model handle is configured each time.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(req.Temperature)
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(req.MaxOutputTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", &UpstreamError{Provider: ProviderGemini, Err: err}
	}
	text, err := ExtractText(fromGenai(resp))
	if err != nil {
		return "", &UpstreamError{Provider: ProviderGemini, Err: err}
	}
	return text, nil
}

// Ping counts the tokens of a fixed string, which needs a valid key and model
// but does not bill a generation.
func (g *Gemini) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := g.client.GenerativeModel(g.model).CountTokens(ctx, genai.Text("health check")); err != nil {
		return &UpstreamError{Provider: ProviderGemini, Err: err}
	}
	return nil
}

// Close releases the underlying connection.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func fromGenai(resp *genai.GenerateContentResponse) *Response {
	out := &Response{}
	if resp == nil {
		return out
	}
	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		cand := Candidate{FinishReason: c.FinishReason.String()}
		if c.Content != nil {
			cand.Content = &Content{}
			for _, p := range c.Content.Parts {
				var part Part
				if t, ok := p.(genai.Text); ok {
					part.Text = string(t)
				}
				cand.Content.Parts = append(cand.Content.Parts, part)
			}
		}
		out.Candidates = append(out.Candidates, cand)
	}
	return out
}
