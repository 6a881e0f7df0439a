// Package anthropic calls the Claude messages API.
package anthropic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	domai "github.com/bryanwahyu/neurolint/internal/domain/ai"
	"github.com/bryanwahyu/neurolint/internal/domain/analysis"
	"github.com/bryanwahyu/neurolint/internal/infra/ai/backoff"
	"github.com/bryanwahyu/neurolint/internal/infra/ai/prompt"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-opus-20240229"
	APIVersion     = "2023-06-01"
	maxTokens      = 4000
)

type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// NewClient returns a Claude client. Empty model and baseURL use the defaults.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) *Client {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string  { return string(domai.ProviderClaude) }
func (c *Client) Model() string { return c.model }

func (c *Client) Analyze(ctx context.Context, code, language string) (*analysis.Result, error) {
	payload, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    prompt.GetSystemPrompt(language),
		Messages:  []message{{Role: "user", Content: prompt.GetUserPrompt(code, language)}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var text string
	err = backoff.Do(ctx, backoff.MaxRetries, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", APIVersion)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		if err := backoff.CheckStatus("Claude", resp.StatusCode, body); err != nil {
			return err
		}

		var out messagesResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("%w: %v", domai.ErrMalformedResponse, err)
		}
		var sb strings.Builder
		for _, b := range out.Content {
			if b.Type == "text" {
				sb.WriteString(b.Text)
			}
		}
		text = sb.String()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prompt.ParseResult(text)
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}
