package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	json "github.com/goccy/go-json"

	"github.com/bryanwahyu/neurolint/internal/domain/settings"
	"github.com/bryanwahyu/neurolint/internal/domain/shared"
)

// SettingsRepository stores the settings document as JSON.
type SettingsRepository struct{ conn }

func NewSettingsRepository(db *sql.DB, d Dialect) *SettingsRepository {
	return &SettingsRepository{conn{db: db, d: d}}
}

func (r *SettingsRepository) Get(ctx context.Context, userID string) (*settings.UserSettings, error) {
	var raw []byte
	err := r.queryRow(ctx, `SELECT settings FROM user_settings WHERE user_id=? LIMIT 1`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s settings.UserSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepository) Upsert(ctx context.Context, userID string, s *settings.UserSettings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	q := r.d.Upsert("user_settings", []string{"user_id", "settings", "updated_at"}, "user_id", []string{"settings", "updated_at"})
	_, err = r.exec(ctx, q, userID, string(raw), ts(time.Now()))
	return err
}

func (r *SettingsRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.exec(ctx, `DELETE FROM user_settings WHERE user_id=?`, userID)
	return err
}
