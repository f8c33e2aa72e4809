package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultAnthropicModel = "claude-3-5-haiku-latest"

type messageClient interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Anthropic generates answers with the Anthropic Messages API.
type Anthropic struct {
	client    messageClient
	maxTokens int64
	temp      *float64
	caller
}

var _ Generator = (*Anthropic)(nil)

// NewAnthropic creates an Anthropic generator. An API key is required.
func NewAnthropic(cfg Config, opts Options) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	// Retries are handled by the caller.
	options = append(options, option.WithMaxRetries(0))
	client := anthropic.NewClient(options...)
	return newAnthropic(&client.Messages, cfg, opts), nil
}

func newAnthropic(client messageClient, cfg Config, opts Options) *Anthropic {
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		// The Messages API requires max_tokens.
		maxTokens = DefaultMaxTokens
	}
	return &Anthropic{
		client:    client,
		maxTokens: int64(maxTokens),
		temp:      cfg.Temperature,
		caller:    newCaller("anthropic", cfg.Model, cfg, opts),
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Generate(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if a.temp != nil {
		params.Temperature = anthropic.Float(*a.temp)
	}

	return a.run(ctx, func(ctx context.Context) (string, int, error) {
		msg, err := a.client.New(ctx, params)
		if err != nil {
			var apiErr *anthropic.Error
			if errors.As(err, &apiErr) {
				return "", apiErr.StatusCode, err
			}
			return "", 0, err
		}
		var b strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				b.WriteString(block.Text)
			}
		}
		return b.String(), 0, nil
	})
}
