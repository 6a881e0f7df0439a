package settings

import (
	"context"
	"errors"
	"net/url"
	"strings"

	domai "github.com/bryanwahyu/neurolint/internal/domain/ai"
	domain "github.com/bryanwahyu/neurolint/internal/domain/settings"
	"github.com/bryanwahyu/neurolint/internal/domain/shared"
	"github.com/bryanwahyu/neurolint/internal/domain/users"
)

// Profiles reads the account a settings document belongs to.
type Profiles interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

type Service struct {
	Repo  domain.Repository
	Users Profiles
}

// Get returns the stored document or defaults seeded from the profile.
// API keys are returned unmasked; callers mask before responding.
func (s *Service) Get(ctx context.Context, userID string) (*domain.UserSettings, error) {
	us, err := s.Repo.Get(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		d := domain.Defaults()
		us = &d
	} else if err != nil {
		return nil, err
	}
	if us.UserSettings.Name == "" || us.UserSettings.Email == "" {
		if u, err := s.Users.GetByID(ctx, userID); err == nil {
			if us.UserSettings.Name == "" {
				us.UserSettings.Name = u.FullName
			}
			if us.UserSettings.Email == "" {
				us.UserSettings.Email = u.Email
			}
		}
	}
	return us, nil
}

// Put validates and stores in. Masked key values keep the stored key.
func (s *Service) Put(ctx context.Context, userID string, in domain.UserSettings) (*domain.UserSettings, error) {
	in.LLMProvider = strings.ToLower(strings.TrimSpace(in.LLMProvider))
	if in.LLMProvider != "" && !domai.IsValidProviderKind(in.LLMProvider) {
		return nil, shared.Invalid("llmProvider", "must be one of chatgpt, claude, ollama")
	}
	in.OllamaEndpoint = strings.TrimSpace(in.OllamaEndpoint)
	if in.OllamaEndpoint != "" {
		if err := validateEndpoint(in.OllamaEndpoint); err != nil {
			return nil, err
		}
	}
	switch in.UserSettings.Theme {
	case "":
		in.UserSettings.Theme = domain.ThemeSystem
	case domain.ThemeLight, domain.ThemeDark, domain.ThemeSystem:
	default:
		return nil, shared.Invalid("userSettings.theme", "must be light, dark or system")
	}
	in.Model = strings.TrimSpace(in.Model)

	if domain.IsMasked(in.OpenAIAPIKey) || domain.IsMasked(in.AnthropicAPIKey) {
		prev, err := s.Repo.Get(ctx, userID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if prev == nil {
			prev = &domain.UserSettings{}
		}
		if domain.IsMasked(in.OpenAIAPIKey) {
			in.OpenAIAPIKey = prev.OpenAIAPIKey
		}
		if domain.IsMasked(in.AnthropicAPIKey) {
			in.AnthropicAPIKey = prev.AnthropicAPIKey
		}
	}

	if err := s.Repo.Upsert(ctx, userID, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

func (s *Service) Delete(ctx context.Context, userID string) error {
	return s.Repo.Delete(ctx, userID)
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return shared.Invalid("ollamaEndpoint", "must be an http(s) URL")
	}
	return nil
}
