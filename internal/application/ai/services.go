package ai

import (
	"context"
	"fmt"

	domai "github.com/bryanwahyu/neurolint/internal/domain/ai"
	"github.com/bryanwahyu/neurolint/internal/domain/analysis"
	"github.com/bryanwahyu/neurolint/internal/domain/settings"
	"github.com/bryanwahyu/neurolint/internal/infra/ai/factory"
	"github.com/bryanwahyu/neurolint/internal/infra/ai/secrets"
)

// Factory builds a provider for a user's settings. factory.New in production.
type Factory func(s settings.UserSettings, opts factory.Options) (domai.Provider, error)

// Service resolves providers and runs one analysis through them.
type Service struct {
	Factory    Factory
	Options    factory.Options
	SecretScan bool
}

func NewService(opts factory.Options, secretScan bool) *Service {
	return &Service{Factory: factory.New, Options: opts, SecretScan: secretScan}
}

// Resolve picks the provider for s.
func (s *Service) Resolve(us settings.UserSettings) (domai.Provider, error) {
	return s.Factory(us, s.Options)
}

// Run calls p and returns a normalized result with secret findings merged in.
func (s *Service) Run(ctx context.Context, p domai.Provider, code, language string) (*analysis.Result, error) {
	res, err := p.Analyze(ctx, code, language)
	if err != nil {
		return nil, fmt.Errorf("%s analysis failed: %w", p.Name(), err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: empty result from %s", domai.ErrMalformedResponse, p.Name())
	}
	res.Normalize()
	if s.SecretScan {
		found := secrets.Scan(code)
		before := len(res.Security)
		res.Merge(analysis.CategorySecurity, found)
		// the model missed credentials; its score cannot stand
		if len(res.Security) > before {
			if derived := analysis.ScoreFromIssues(res); derived < res.Score {
				res.Score = derived
			}
		}
	}
	return res, nil
}
