// Package factory picks the provider client for a user's settings.
package factory

import (
	"fmt"
	"strings"
	"time"

	domai "github.com/bryanwahyu/neurolint/internal/domain/ai"
	"github.com/bryanwahyu/neurolint/internal/domain/settings"
	"github.com/bryanwahyu/neurolint/internal/infra/ai/anthropic"
	"github.com/bryanwahyu/neurolint/internal/infra/ai/ollama"
	"github.com/bryanwahyu/neurolint/internal/infra/ai/openai"
)

// Options carries server-side defaults. A user's settings.Model overrides
// the model for whichever provider they picked.
type Options struct {
	OpenAIModel      string
	OpenAIBaseURL    string
	AnthropicModel   string
	AnthropicBaseURL string
	OllamaModel      string
	Timeout          time.Duration
}

// New builds the provider named by s.LLMProvider.
func New(s settings.UserSettings, opts Options) (domai.Provider, error) {
	model := strings.TrimSpace(s.Model)
	switch domai.ProviderKind(strings.ToLower(strings.TrimSpace(s.LLMProvider))) {
	case domai.ProviderChatGPT:
		if strings.TrimSpace(s.OpenAIAPIKey) == "" {
			return nil, fmt.Errorf("%w: OpenAI API key is required", domai.ErrProviderNotConfigured)
		}
		return openai.NewClient(s.OpenAIAPIKey, pick(model, opts.OpenAIModel), opts.OpenAIBaseURL), nil
	case domai.ProviderClaude:
		if strings.TrimSpace(s.AnthropicAPIKey) == "" {
			return nil, fmt.Errorf("%w: Anthropic API key is required", domai.ErrProviderNotConfigured)
		}
		return anthropic.NewClient(s.AnthropicAPIKey, pick(model, opts.AnthropicModel), opts.AnthropicBaseURL, opts.Timeout), nil
	case domai.ProviderOllama:
		if strings.TrimSpace(s.OllamaEndpoint) == "" {
			return nil, fmt.Errorf("%w: Ollama endpoint is required", domai.ErrProviderNotConfigured)
		}
		return ollama.NewClient(s.OllamaEndpoint, pick(model, opts.OllamaModel), opts.Timeout), nil
	case "":
		return nil, fmt.Errorf("%w: no LLM provider selected", domai.ErrProviderNotConfigured)
	default:
		return nil, fmt.Errorf("%w: %q", domai.ErrInvalidProvider, s.LLMProvider)
	}
}

func pick(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
