package users

import (
	"errors"
	"time"
)

// Plan of a user
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// User is an account.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	PasswordHash  string    `json:"-"`
	Subscription  Plan      `json:"subscription"`
	UsageCount    int64     `json:"usage_count"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// TokenKind distinguishes session tokens from one-shot tokens.
type TokenKind string

const (
	TokenSession TokenKind = "session"
	TokenSignup  TokenKind = "signup"
	TokenReset   TokenKind = "reset"
)

// Token is stored by hash only; the raw value is handed to the client once.
type Token struct {
	Hash      string
	UserID    string
	Kind      TokenKind
	ExpiresAt time.Time
	CreatedAt time.Time
}

var (
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// ErrOAuthDisabled is returned when no OAuth client is configured.
var ErrOAuthDisabled = errors.New("oauth sign-in is not configured")
