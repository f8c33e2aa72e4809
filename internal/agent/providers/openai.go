package providers

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = openai.GPT4oMini

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI generates answers with the OpenAI chat completions API or any
// compatible endpoint.
type OpenAI struct {
	client      chatClient
	maxTokens   int
	temperature float32
	caller
}

var _ Generator = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI generator. An API key is required.
func NewOpenAI(cfg Config, opts Options) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newOpenAI(openai.NewClientWithConfig(clientCfg), cfg, opts), nil
}

func newOpenAI(client chatClient, cfg Config, opts Options) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	o := &OpenAI{
		client:    client,
		maxTokens: cfg.MaxTokens,
		caller:    newCaller("openai", cfg.Model, cfg, opts),
	}
	if cfg.Temperature != nil {
		o.temperature = float32(*cfg.Temperature)
	}
	return o
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: o.temperature,
	}
	if o.maxTokens > 0 {
		req.MaxTokens = o.maxTokens
	}

	return o.run(ctx, func(ctx context.Context) (string, int, error) {
		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", openAIStatus(err), err
		}
		if len(resp.Choices) == 0 {
			return "", 0, nil
		}
		choice := resp.Choices[0]
		if choice.FinishReason == openai.FinishReasonContentFilter {
			return "", 0, errors.New("content_filter: answer withheld")
		}
		return choice.Message.Content, 0, nil
	})
}

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
