package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIBackend implements LLMBackend with the OpenAI chat completions API
// or any endpoint compatible with it.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// OpenAIOption configures the OpenAIBackend.
type OpenAIOption func(*openai.ClientConfig, *OpenAIBackend)

// WithOpenAIBaseURL overrides the API base URL (".../v1").
func WithOpenAIBaseURL(u string) OpenAIOption {
	return func(cfg *openai.ClientConfig, _ *OpenAIBackend) {
		cfg.BaseURL = u
	}
}

// WithOpenAIModel sets the default model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(_ *openai.ClientConfig, b *OpenAIBackend) {
		b.model = model
	}
}

// WithOpenAIHTTPClient overrides the HTTP client.
func WithOpenAIHTTPClient(c *http.Client) OpenAIOption {
	return func(cfg *openai.ClientConfig, _ *OpenAIBackend) {
		cfg.HTTPClient = c
	}
}

// NewOpenAIBackend creates an OpenAI backend authenticated with apiKey.
func NewOpenAIBackend(apiKey string, opts ...OpenAIOption) *OpenAIBackend {
	cfg := openai.DefaultConfig(apiKey)
	b := &OpenAIBackend{model: defaultOpenAIModel}
	for _, opt := range opts {
		opt(&cfg, b)
	}
	b.client = openai.NewClientWithConfig(cfg)
	return b
}

// Name returns the backend name.
func (*OpenAIBackend) Name() string {
	return "openai"
}

// Generate implements LLMBackend.
func (b *OpenAIBackend) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = b.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemMsg != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemMsg,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:               model,
		Messages:            messages,
		MaxCompletionTokens: req.MaxTokens,
	}
	if req.Temperature > 0 {
		chatReq.Temperature = float32(req.Temperature)
	}

	resp, err := b.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return GenerateResponse{}, fmt.Errorf("openai API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return GenerateResponse{}, fmt.Errorf("calling openai API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return GenerateResponse{}, errors.New("empty choices from openai API")
	}

	return GenerateResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
