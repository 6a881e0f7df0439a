package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/bryanwahyu/neurolint/internal/application"
	"github.com/bryanwahyu/neurolint/internal/domain/analysis"
	"github.com/bryanwahyu/neurolint/internal/domain/settings"
	"github.com/bryanwahyu/neurolint/internal/domain/shared"
	"github.com/bryanwahyu/neurolint/internal/domain/users"
	"github.com/bryanwahyu/neurolint/internal/domain/workspaces"
)

const (
	minPasswordLen = 8
	// bcrypt ignores bytes past 72
	maxPasswordLen = 72
	verifyTTL      = 24 * time.Hour
)

// Service implements sign-up, sessions, password reset and GitHub OAuth.
type Service struct {
	Users      users.Repository
	Tokens     users.TokenRepository
	Settings   settings.Repository
	Workspaces workspaces.Repository
	History    analysis.HistoryRepository
	Mailer     Mailer
	Clock      application.Clock
	Logger     *zap.Logger

	TokenTTL  time.Duration
	ResetTTL  time.Duration
	PublicURL string
	// ResetURL is the frontend page that reads ?token= and POSTs it to
	// /v1/auth/password/reset. Defaults to PublicURL + /reset-password.
	ResetURL string

	// OAuth is nil when GitHub sign-in is off.
	OAuth     *oauth2.Config
	GitHubAPI string
}

// Session is handed to the client after sign-in.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *users.User `json:"user"`
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", shared.Invalid("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", shared.Invalid("email", "invalid email address")
	}
	return email, nil
}

func checkPassword(p string) error {
	if len(p) < minPasswordLen {
		return shared.Invalid("password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	if len(p) > maxPasswordLen {
		return shared.Invalid("password", fmt.Sprintf("password must be at most %d bytes", maxPasswordLen))
	}
	return nil
}

func hashPassword(p string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// HashToken is how raw tokens are stored.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

func newToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

func (s *Service) issue(ctx context.Context, userID string, kind users.TokenKind, ttl time.Duration) (string, time.Time, error) {
	raw, err := newToken()
	if err != nil {
		return "", time.Time{}, err
	}
	now := s.now()
	t := &users.Token{Hash: HashToken(raw), UserID: userID, Kind: kind, ExpiresAt: now.Add(ttl), CreatedAt: now}
	if err := s.Tokens.Save(ctx, t); err != nil {
		return "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}
	return raw, t.ExpiresAt, nil
}

// consume validates a one-shot token and deletes it.
func (s *Service) consume(ctx context.Context, raw string, kind users.TokenKind) (*users.Token, error) {
	if raw == "" {
		return nil, users.ErrInvalidToken
	}
	t, err := s.Tokens.Get(ctx, HashToken(raw))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, users.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if err := s.Tokens.Delete(ctx, t.Hash); err != nil {
		return nil, err
	}
	if t.Kind != kind || !s.now().Before(t.ExpiresAt) {
		return nil, users.ErrInvalidToken
	}
	return t, nil
}

func (s *Service) session(ctx context.Context, u *users.User) (*Session, error) {
	raw, exp, err := s.issue(ctx, u.ID, users.TokenSession, s.TokenTTL)
	if err != nil {
		return nil, err
	}
	return &Session{Token: raw, ExpiresAt: exp, User: u}, nil
}

func (s *Service) link(path string, q url.Values) string {
	base := strings.TrimRight(s.PublicURL, "/")
	return base + path + "?" + q.Encode()
}

func (s *Service) resetLink(raw string) string {
	if s.ResetURL == "" {
		return s.link("/reset-password", url.Values{"token": {raw}})
	}
	u, err := url.Parse(s.ResetURL)
	if err != nil {
		return s.link("/reset-password", url.Values{"token": {raw}})
	}
	q := u.Query()
	q.Set("token", raw)
	u.RawQuery = q.Encode()
	return u.String()
}

// SignUp creates a password account and mails a verification link.
func (s *Service) SignUp(ctx context.Context, email, password, name string) (*users.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &users.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(name),
		PasswordHash: hash,
		Subscription: users.PlanFree,
		CreatedAt:    s.now(),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}

	raw, _, err := s.issue(ctx, u.ID, users.TokenSignup, verifyTTL)
	if err != nil {
		return nil, err
	}
	link := s.link("/v1/auth/callback", url.Values{"token": {raw}, "type": {string(users.TokenSignup)}})
	if err := s.Mailer.Send(ctx, u.Email, "Verify your email", "Confirm your account: "+link); err != nil {
		s.log().Warn("send verification failed", zap.String("user_id", u.ID), zap.Error(err))
	}
	return u, nil
}

// VerifyEmail redeems a signup token.
func (s *Service) VerifyEmail(ctx context.Context, raw string) (*users.User, error) {
	t, err := s.consume(ctx, raw, users.TokenSignup)
	if err != nil {
		return nil, err
	}
	if err := s.Users.MarkVerified(ctx, t.UserID); err != nil {
		return nil, err
	}
	return s.Users.GetByID(ctx, t.UserID)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, users.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, users.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, users.ErrInvalidCredentials
	}
	return s.session(ctx, u)
}

func (s *Service) SignOut(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	return s.Tokens.Delete(ctx, HashToken(raw))
}

// Authenticate resolves a bearer session token to its user.
func (s *Service) Authenticate(ctx context.Context, raw string) (*users.User, error) {
	if raw == "" {
		return nil, users.ErrUnauthorized
	}
	t, err := s.Tokens.Get(ctx, HashToken(raw))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, users.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if t.Kind != users.TokenSession || !s.now().Before(t.ExpiresAt) {
		return nil, users.ErrUnauthorized
	}
	u, err := s.Users.GetByID(ctx, t.UserID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, users.ErrUnauthorized
	}
	return u, err
}

// ForgotPassword mails a reset link. Unknown emails succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.Tokens.DeleteForUser(ctx, u.ID, users.TokenReset); err != nil {
		return err
	}
	raw, _, err := s.issue(ctx, u.ID, users.TokenReset, s.ResetTTL)
	if err != nil {
		return err
	}
	if err := s.Mailer.Send(ctx, u.Email, "Reset your password", "Reset your password: "+s.resetLink(raw)); err != nil {
		s.log().Warn("send reset failed", zap.String("user_id", u.ID), zap.Error(err))
	}
	return nil
}

// ResetPassword redeems a reset token and signs out every session.
func (s *Service) ResetPassword(ctx context.Context, raw, newPassword string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}
	t, err := s.consume(ctx, raw, users.TokenReset)
	if err != nil {
		return err
	}
	if err := s.setPassword(ctx, t.UserID, newPassword); err != nil {
		return err
	}
	return s.Tokens.DeleteForUser(ctx, t.UserID, users.TokenSession)
}

func (s *Service) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}
	return s.setPassword(ctx, userID, newPassword)
}

func (s *Service) setPassword(ctx context.Context, userID, p string) error {
	hash, err := hashPassword(p)
	if err != nil {
		return err
	}
	return s.Users.UpdatePassword(ctx, userID, hash)
}

// DeleteAccount removes everything the user owns.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.Settings.Delete(ctx, userID); err != nil {
		return err
	}
	if err := s.Workspaces.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}
	if err := s.History.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}
	if err := s.Tokens.DeleteForUser(ctx, userID, ""); err != nil {
		return err
	}
	return s.Users.Delete(ctx, userID)
}

// PurgeExpired drops expired tokens of every kind.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.Tokens.DeleteExpired(ctx, s.now())
}
