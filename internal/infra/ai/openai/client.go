package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	domai "github.com/bryanwahyu/neurolint/internal/domain/ai"
	"github.com/bryanwahyu/neurolint/internal/domain/analysis"
	"github.com/bryanwahyu/neurolint/internal/infra/ai/backoff"
	"github.com/bryanwahyu/neurolint/internal/infra/ai/prompt"
)

const (
	DefaultModel = "gpt-4-turbo-preview"
	maxTokens    = 4000
	temperature  = 0.1
)

type Client struct {
	*openai.Client
	model string
}

// NewClient builds a chat completion client. baseURL may be empty.
func NewClient(apiKey, model, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), model: model}
}

func (c *Client) Name() string  { return string(domai.ProviderChatGPT) }
func (c *Client) Model() string { return c.model }

func (c *Client) Analyze(ctx context.Context, code, language string) (*analysis.Result, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt(language)},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(code, language)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
		req.Temperature = temperature
	}

	var content string
	err := backoff.Do(ctx, backoff.MaxRetries, func() error {
		resp, err := c.CreateChatCompletion(ctx, req)
		if err != nil {
			return mapError(err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("%w: no choices in completion", domai.ErrMalformedResponse)
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prompt.ParseResult(content)
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// mapError turns SDK errors carrying an HTTP status into *backoff.StatusError
// so retry and status mapping match the other providers.
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &backoff.StatusError{Provider: "OpenAI", Code: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &backoff.StatusError{Provider: "OpenAI", Code: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return fmt.Errorf("failed to create chat completion: %w", err)
}
