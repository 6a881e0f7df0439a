package httpserver

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bryanwahyu/neurolint/internal/application/auth"
	"github.com/bryanwahyu/neurolint/internal/domain/shared"
	"github.com/bryanwahyu/neurolint/internal/domain/users"
	"github.com/bryanwahyu/neurolint/internal/middleware"
)

const stateCookie = "oauth_state"

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// POST /v1/auth/signup
func (r *Router) handleSignUp(w http.ResponseWriter, req *http.Request) error {
	var body credentials
	if err := decode(w, req, &body); err != nil {
		return err
	}
	u, err := r.Auth.SignUp(req.Context(), body.Email, body.Password, middleware.SanitizeString(body.FullName))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, map[string]any{
		"user":    u,
		"message": "check your email to verify the account",
	})
}

// POST /v1/auth/signin
func (r *Router) handleSignIn(w http.ResponseWriter, req *http.Request) error {
	var body credentials
	if err := decode(w, req, &body); err != nil {
		return err
	}
	sess, err := r.Auth.SignIn(req.Context(), body.Email, body.Password)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, sessionBody(sess))
}

func sessionBody(s *auth.Session) map[string]any {
	return map[string]any{
		"token":      s.Token,
		"token_type": "Bearer",
		"expires_at": s.ExpiresAt,
		"expires_in": expiresIn(s.ExpiresAt),
		"user":       s.User,
	}
}

// POST /v1/auth/signout
func (r *Router) handleSignOut(w http.ResponseWriter, req *http.Request) error {
	if err := r.Auth.SignOut(req.Context(), middleware.BearerToken(req)); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// POST /v1/auth/password/forgot
func (r *Router) handleForgotPassword(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	if strings.TrimSpace(body.Email) == "" {
		return shared.Invalid("email", "email is required")
	}
	if err := r.Auth.ForgotPassword(req.Context(), body.Email); err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "if the account exists, a reset link has been sent",
	})
}

// POST /v1/auth/password/reset
func (r *Router) handleResetPassword(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	if err := r.Auth.ResetPassword(req.Context(), body.Token, body.Password); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /v1/auth/oauth/github
func (r *Router) handleOAuthStart(w http.ResponseWriter, req *http.Request) error {
	state, err := auth.NewState()
	if err != nil {
		return err
	}
	link, err := r.Auth.OAuthURL(state)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/v1/auth",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   r.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, req, link, http.StatusTemporaryRedirect)
	return nil
}

// GET /v1/auth/callback?code=&state= (OAuth) or ?token=&type=signup (email verification)
func (r *Router) handleCallback(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()

	if token := q.Get("token"); token != "" {
		if t := q.Get("type"); t != "" && t != string(users.TokenSignup) {
			return shared.Invalid("type", "unsupported callback type")
		}
		u, err := r.Auth.VerifyEmail(req.Context(), token)
		if err != nil {
			return err
		}
		if r.SuccessRedirect != "" {
			http.Redirect(w, req, r.SuccessRedirect+"?verified=1", http.StatusFound)
			return nil
		}
		return writeJSON(w, http.StatusOK, map[string]any{"verified": true, "user": u})
	}

	code := q.Get("code")
	if code == "" {
		return shared.Invalid("code", "code or token is required")
	}
	c, err := req.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		return shared.Invalid("state", "invalid oauth state")
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/v1/auth", MaxAge: -1, Expires: time.Unix(0, 0)})

	sess, err := r.Auth.OAuthCallback(req.Context(), code)
	if err != nil {
		return err
	}
	if r.SuccessRedirect != "" {
		// fragment keeps the token out of server logs and Referer headers
		frag := url.Values{"token": {sess.Token}, "expires_in": {strconv.FormatInt(expiresIn(sess.ExpiresAt), 10)}}
		http.Redirect(w, req, r.SuccessRedirect+"#"+frag.Encode(), http.StatusFound)
		return nil
	}
	return writeJSON(w, http.StatusOK, sessionBody(sess))
}

// GET /v1/me
func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, u)
}

// DELETE /v1/me
func (r *Router) handleDeleteMe(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	if err := r.Auth.DeleteAccount(req.Context(), u.ID); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// PUT /v1/me/password
func (r *Router) handleUpdatePassword(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	var body struct {
		Password string `json:"password"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	if err := r.Auth.UpdatePassword(req.Context(), u.ID, body.Password); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
