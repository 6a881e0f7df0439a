// Package ollama talks to a self-hosted Ollama server; no API key is needed.
package ollama

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

const DefaultModel = "codellama"

type Client struct {
	endpoint string
	model    string
	http     *http.Client
}

func NewClient(endpoint, model string, timeout time.Duration) *Client {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		model:    model,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string  { return string(domai.ProviderOllama) }
func (c *Client) Model() string { return c.model }

func (c *Client) Analyze(ctx context.Context, code, language string) (*analysis.Result, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt.Combined(code, language),
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var text string
	err = backoff.Do(ctx, backoff.MaxRetries, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("sending request to ollama: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		if err := backoff.CheckStatus("Ollama", resp.StatusCode, body); err != nil {
			return err
		}

		var out generateResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("%w: %v", domai.ErrMalformedResponse, err)
		}
		text = out.Response
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prompt.ParseResult(text)
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}
