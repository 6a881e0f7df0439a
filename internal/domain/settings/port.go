package settings

import "context"

// Repository port for the settings document. Get returns shared.ErrNotFound
// when the user never saved settings.
type Repository interface {
	Get(ctx context.Context, userID string) (*UserSettings, error)
	Upsert(ctx context.Context, userID string, s *UserSettings) error
	Delete(ctx context.Context, userID string) error
}
