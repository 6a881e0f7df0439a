package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bryanwahyu/neurolint/internal/domain/shared"
	"github.com/bryanwahyu/neurolint/internal/domain/users"
)

type UserRepository struct{ conn }

func NewUserRepository(db *sql.DB, d Dialect) *UserRepository {
	return &UserRepository{conn{db: db, d: d}}
}

const userCols = `id, email, full_name, avatar_url, password_hash, subscription, usage_count, email_verified, created_at`

func (r *UserRepository) Create(ctx context.Context, u *users.User) error {
	if u.Subscription == "" {
		u.Subscription = users.PlanFree
	}
	u.CreatedAt = ts(u.CreatedAt)
	_, err := r.exec(ctx, `
INSERT INTO users (id, email, full_name, avatar_url, password_hash, subscription, usage_count, email_verified, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.FullName, u.AvatarURL, u.PasswordHash, string(u.Subscription),
		u.UsageCount, u.EmailVerified, u.CreatedAt, u.CreatedAt,
	)
	if IsUniqueViolation(err) {
		return users.ErrEmailExists
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.one(ctx, `SELECT `+userCols+` FROM users WHERE id=? LIMIT 1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.one(ctx, `SELECT `+userCols+` FROM users WHERE email=? LIMIT 1`, email)
}

func (r *UserRepository) one(ctx context.Context, q string, arg any) (*users.User, error) {
	var u users.User
	var plan string
	err := r.queryRow(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &u.PasswordHash, &plan,
		&u.UsageCount, &u.EmailVerified, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Subscription = users.Plan(plan)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.exec(ctx, `UPDATE users SET password_hash=?, updated_at=? WHERE id=?`, hash, ts(time.Now()), id)
	return affected(res, err, shared.ErrNotFound)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, fullName, avatarURL string) error {
	res, err := r.exec(ctx, `UPDATE users SET full_name=?, avatar_url=?, updated_at=? WHERE id=?`, fullName, avatarURL, ts(time.Now()), id)
	return affected(res, err, shared.ErrNotFound)
}

func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	res, err := r.exec(ctx, `UPDATE users SET email_verified=?, updated_at=? WHERE id=?`, true, ts(time.Now()), id)
	return affected(res, err, shared.ErrNotFound)
}

func (r *UserRepository) IncrementUsage(ctx context.Context, id string) error {
	res, err := r.exec(ctx, `UPDATE users SET usage_count=usage_count+1, updated_at=? WHERE id=?`, ts(time.Now()), id)
	return affected(res, err, shared.ErrNotFound)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	_, err := r.exec(ctx, `DELETE FROM users WHERE id=?`, id)
	return err
}

type TokenRepository struct{ conn }

func NewTokenRepository(db *sql.DB, d Dialect) *TokenRepository {
	return &TokenRepository{conn{db: db, d: d}}
}

func (r *TokenRepository) Save(ctx context.Context, t *users.Token) error {
	t.CreatedAt = ts(t.CreatedAt)
	_, err := r.exec(ctx, `INSERT INTO auth_tokens (token_hash, user_id, kind, expires_at, created_at) VALUES (?,?,?,?,?)`,
		t.Hash, t.UserID, string(t.Kind), ts(t.ExpiresAt), t.CreatedAt)
	return err
}

func (r *TokenRepository) Get(ctx context.Context, hash string) (*users.Token, error) {
	var t users.Token
	var kind string
	err := r.queryRow(ctx, `SELECT token_hash, user_id, kind, expires_at, created_at FROM auth_tokens WHERE token_hash=? LIMIT 1`, hash).
		Scan(&t.Hash, &t.UserID, &kind, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Kind = users.TokenKind(kind)
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

func (r *TokenRepository) Delete(ctx context.Context, hash string) error {
	_, err := r.exec(ctx, `DELETE FROM auth_tokens WHERE token_hash=?`, hash)
	return err
}

// DeleteForUser removes tokens of one kind; an empty kind removes all of them.
func (r *TokenRepository) DeleteForUser(ctx context.Context, userID string, kind users.TokenKind) error {
	if kind == "" {
		_, err := r.exec(ctx, `DELETE FROM auth_tokens WHERE user_id=?`, userID)
		return err
	}
	_, err := r.exec(ctx, `DELETE FROM auth_tokens WHERE user_id=? AND kind=?`, userID, string(kind))
	return err
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.exec(ctx, `DELETE FROM auth_tokens WHERE expires_at < ?`, ts(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
