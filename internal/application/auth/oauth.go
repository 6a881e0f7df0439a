package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/bryanwahyu/neurolint/internal/domain/shared"
	"github.com/bryanwahyu/neurolint/internal/domain/users"
)

// DefaultGitHubAPI is the REST base for profile lookups.
const DefaultGitHubAPI = "https://api.github.com"

// NewGitHubOAuth returns nil when clientID is empty.
func NewGitHubOAuth(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if clientID == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"read:user", "user:email"},
		Endpoint:     github.Endpoint,
	}
}

// NewState returns a random value for the OAuth state parameter.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// OAuthURL is where the browser goes to start GitHub sign-in.
func (s *Service) OAuthURL(state string) (string, error) {
	if s.OAuth == nil {
		return "", users.ErrOAuthDisabled
	}
	return s.OAuth.AuthCodeURL(state), nil
}

type githubUser struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// OAuthCallback exchanges the code, links or creates the account by email and
// opens a session.
func (s *Service) OAuthCallback(ctx context.Context, code string) (*Session, error) {
	if s.OAuth == nil {
		return nil, users.ErrOAuthDisabled
	}
	if code == "" {
		return nil, shared.Invalid("code", "code is required")
	}
	tok, err := s.OAuth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange failed: %v", users.ErrUnauthorized, err)
	}
	client := s.OAuth.Client(ctx, tok)

	var gu githubUser
	if err := s.githubGet(ctx, client, "/user", &gu); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(gu.Email))
	if email == "" {
		var emails []githubEmail
		if err := s.githubGet(ctx, client, "/user/emails", &emails); err != nil {
			return nil, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = strings.ToLower(e.Email)
				break
			}
		}
	}
	if email == "" {
		return nil, fmt.Errorf("%w: github account has no verified email", users.ErrUnauthorized)
	}
	name := gu.Name
	if name == "" {
		name = gu.Login
	}

	u, err := s.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		u = &users.User{
			ID:            uuid.NewString(),
			Email:         email,
			FullName:      name,
			AvatarURL:     gu.AvatarURL,
			Subscription:  users.PlanFree,
			EmailVerified: true,
			CreatedAt:     s.now(),
		}
		if err := s.Users.Create(ctx, u); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case !u.EmailVerified:
		// nobody proved they own this address before GitHub did
		if err := s.reclaim(ctx, u, name, gu.AvatarURL); err != nil {
			return nil, err
		}
	default:
		if u.FullName == "" || u.AvatarURL == "" {
			if u.FullName == "" {
				u.FullName = name
			}
			if u.AvatarURL == "" {
				u.AvatarURL = gu.AvatarURL
			}
			if err := s.Users.UpdateProfile(ctx, u.ID, u.FullName, u.AvatarURL); err != nil {
				return nil, err
			}
		}
	}
	return s.session(ctx, u)
}

// reclaim hands an unverified account to the verified GitHub identity. The
// password, sessions, pending links and everything stored under the account
// are dropped.
func (s *Service) reclaim(ctx context.Context, u *users.User, name, avatar string) error {
	if err := s.Tokens.DeleteForUser(ctx, u.ID, ""); err != nil {
		return err
	}
	if err := s.Users.UpdatePassword(ctx, u.ID, ""); err != nil {
		return err
	}
	if err := s.Settings.Delete(ctx, u.ID); err != nil {
		return err
	}
	if err := s.Workspaces.DeleteAllForUser(ctx, u.ID); err != nil {
		return err
	}
	if err := s.History.DeleteAllForUser(ctx, u.ID); err != nil {
		return err
	}
	if err := s.Users.UpdateProfile(ctx, u.ID, name, avatar); err != nil {
		return err
	}
	if err := s.Users.MarkVerified(ctx, u.ID); err != nil {
		return err
	}
	u.PasswordHash = ""
	u.FullName = name
	u.AvatarURL = avatar
	u.EmailVerified = true
	return nil
}

func (s *Service) githubGet(ctx context.Context, client *http.Client, path string, out any) error {
	base := s.GitHubAPI
	if base == "" {
		base = DefaultGitHubAPI
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: github %s returned %d", users.ErrUnauthorized, path, resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
