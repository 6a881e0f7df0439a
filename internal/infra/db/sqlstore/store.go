package sqlstore

import (
	"context"
	"database/sql"
	"time"
)

// conn pairs a handle with its dialect; every repository embeds one.
type conn struct {
	db *sql.DB
	d  Dialect
}

func (c conn) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, c.d.Rebind(q), args...)
}

func (c conn) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, c.d.Rebind(q), args...)
}

func (c conn) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, c.d.Rebind(q), args...)
}

// Store bundles the repositories over one database.
type Store struct {
	DB         *sql.DB
	Dialect    Dialect
	Users      *UserRepository
	Tokens     *TokenRepository
	Settings   *SettingsRepository
	Workspaces *WorkspaceRepository
	History    *HistoryRepository
}

func New(db *sql.DB, d Dialect) *Store {
	return &Store{
		DB:         db,
		Dialect:    d,
		Users:      NewUserRepository(db, d),
		Tokens:     NewTokenRepository(db, d),
		Settings:   NewSettingsRepository(db, d),
		Workspaces: NewWorkspaceRepository(db, d),
		History:    NewHistoryRepository(db, d),
	}
}

// Ping is used by the readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// ts normalises times before they hit the database: UTC, microsecond precision
// (MySQL DATETIME(6) keeps no more).
func ts(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Truncate(time.Microsecond)
}

// affected turns a zero-row write into ErrNotFound.
func affected(res sql.Result, err error, notFound error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
