package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// contentClient is the slice of genai.Models the adapter uses.
type contentClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini generates answers with Google's Gemini API.
type Gemini struct {
	client contentClient
	config *genai.GenerateContentConfig
	caller
}

var _ Generator = (*Gemini)(nil)

// NewGemini creates a Gemini generator. An API key is required.
func NewGemini(ctx context.Context, cfg Config, opts Options) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return newGemini(client.Models, cfg, opts), nil
}

func newGemini(client contentClient, cfg Config, opts Options) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	config := &genai.GenerateContentConfig{}
	if cfg.MaxTokens > 0 {
		config.MaxOutputTokens = int32(cfg.MaxTokens)
	}
	if cfg.Temperature != nil {
		t := float32(*cfg.Temperature)
		config.Temperature = &t
	}
	return &Gemini{
		client: client,
		config: config,
		caller: newCaller("gemini", cfg.Model, cfg, opts),
	}
}

func (g *Gemini) Name() string { return "gemini" }

// Generate sends prompt as a single user turn.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	return g.run(ctx, func(ctx context.Context) (string, int, error) {
		resp, err := g.client.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
		if err != nil {
			return "", geminiStatus(err), err
		}
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", 0, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return responseText(resp), 0, nil
	})
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part != nil && !part.Thought {
				b.WriteString(part.Text)
			}
		}
		// Only the first candidate is used.
		break
	}
	return b.String()
}

// geminiStatus recovers an HTTP status from a genai error message.
func geminiStatus(err error) int {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthenticated"):
		return http.StatusUnauthorized
	case strings.Contains(msg, "403") || strings.Contains(msg, "permission denied"):
		return http.StatusForbidden
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found"):
		return http.StatusNotFound
	case strings.Contains(msg, "429") || strings.Contains(msg, "resource exhausted") || strings.Contains(msg, "resource_exhausted"):
		return http.StatusTooManyRequests
	case strings.Contains(msg, "500"):
		return http.StatusInternalServerError
	case strings.Contains(msg, "503"):
		return http.StatusServiceUnavailable
	}
	return 0
}
