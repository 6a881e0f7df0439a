package users

import (
	"context"
	"time"
)

// Repository persists accounts. Create returns ErrEmailExists on a duplicate email.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	UpdateProfile(ctx context.Context, id, fullName, avatarURL string) error
	MarkVerified(ctx context.Context, id string) error
	IncrementUsage(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// TokenRepository persists hashed tokens.
type TokenRepository interface {
	Save(ctx context.Context, t *Token) error
	Get(ctx context.Context, hash string) (*Token, error)
	Delete(ctx context.Context, hash string) error
	DeleteForUser(ctx context.Context, userID string, kind TokenKind) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
