package ai

import (
	"context"

	"github.com/bryanwahyu/neurolint/internal/domain/analysis"
)

// ProviderKind is the llmProvider value stored in user settings.
type ProviderKind string

const (
	ProviderChatGPT ProviderKind = "chatgpt"
	ProviderClaude  ProviderKind = "claude"
	ProviderOllama  ProviderKind = "ollama"
)

// ValidProviderKinds lists the selectable backends.
func ValidProviderKinds() []ProviderKind {
	return []ProviderKind{ProviderChatGPT, ProviderClaude, ProviderOllama}
}

// IsValidProviderKind checks if the given provider kind is valid
func IsValidProviderKind(k string) bool {
	for _, v := range ValidProviderKinds() {
		if string(v) == k {
			return true
		}
	}
	return false
}

// Provider analyzes source code with one remote LLM backend.
type Provider interface {
	Analyze(ctx context.Context, code, language string) (*analysis.Result, error)
	Name() string
	Model() string
}
