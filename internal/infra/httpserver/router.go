package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/neurolint/internal/application/analysis"
	appauth "github.com/bryanwahyu/neurolint/internal/application/auth"
	appsettings "github.com/bryanwahyu/neurolint/internal/application/settings"
	appws "github.com/bryanwahyu/neurolint/internal/application/workspaces"
	domai "github.com/bryanwahyu/neurolint/internal/domain/ai"
	"github.com/bryanwahyu/neurolint/internal/domain/shared"
	"github.com/bryanwahyu/neurolint/internal/domain/users"
	"github.com/bryanwahyu/neurolint/internal/middleware"
)

// maxBodyBytes caps request bodies; analyze payloads are limited again by the service.
const maxBodyBytes = 4 << 20

// Deps are the services the router exposes.
type Deps struct {
	Auth       *appauth.Service
	Analysis   *appanalysis.Service
	Workspaces *appws.Service
	Settings   *appsettings.Service

	Metrics *middleware.Metrics
	Limiter *middleware.RateLimiter
	Health  map[string]middleware.HealthChecker
	Logger  *zap.Logger

	CORSOrigins []string
	// SuccessRedirect, when set, is where the browser lands after OAuth or
	// email verification instead of a JSON body.
	SuccessRedirect string
	// SecureCookies marks the oauth state cookie Secure.
	SecureCookies bool
}

type Router struct {
	Deps
	log *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	if d.Metrics == nil {
		d.Metrics = middleware.NewMetrics()
	}
	r := &Router{Deps: d, log: d.Logger}
	if r.log == nil {
		r.log = zap.NewNop()
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.RequestLogger(r.log))
	mux.Use(chimw.Recoverer)
	mux.Use(d.Metrics.Middleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(d.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mux.Get("/health", middleware.HealthHandler(d.Health))
	mux.Get("/healthz/live", middleware.LivenessHandler)
	mux.Get("/healthz/ready", middleware.HealthHandler(d.Health))
	mux.Get("/metrics", d.Metrics.Handler)

	limit := func(next http.Handler) http.Handler { return next }
	if d.Limiter != nil {
		limit = middleware.RateLimit(d.Limiter)
	}

	mux.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(pub chi.Router) {
			pub.Use(limit)
			pub.Post("/auth/signup", r.wrap(r.handleSignUp))
			pub.Post("/auth/signin", r.wrap(r.handleSignIn))
			pub.Post("/auth/signout", r.wrap(r.handleSignOut))
			pub.Post("/auth/password/forgot", r.wrap(r.handleForgotPassword))
			pub.Post("/auth/password/reset", r.wrap(r.handleResetPassword))
			pub.Get("/auth/oauth/github", r.wrap(r.handleOAuthStart))
			pub.Get("/auth/callback", r.wrap(r.handleCallback))
		})

		v1.Group(func(priv chi.Router) {
			priv.Use(middleware.BearerAuth(d.Auth))
			priv.Use(limit)

			priv.Get("/me", r.wrap(r.handleMe))
			priv.Delete("/me", r.wrap(r.handleDeleteMe))
			priv.Put("/me/password", r.wrap(r.handleUpdatePassword))

			priv.Get("/settings", r.wrap(r.handleGetSettings))
			priv.Put("/settings", r.wrap(r.handlePutSettings))

			priv.Post("/analyze", r.wrap(r.handleAnalyze))
			priv.Get("/analyses", r.wrap(r.handleListAnalyses))
			priv.Get("/analyses/summary", r.wrap(r.handleSummary))
			priv.Get("/analyses/{id}", r.wrap(r.handleGetAnalysis))
			priv.Delete("/analyses/{id}", r.wrap(r.handleDeleteAnalysis))
			priv.Get("/analyses/{id}/report", r.wrap(r.handleReport))

			priv.Get("/workspaces", r.wrap(r.handleListWorkspaces))
			priv.Post("/workspaces", r.wrap(r.handleCreateWorkspace))
			priv.Get("/workspaces/{id}", r.wrap(r.handleGetWorkspace))
			priv.Put("/workspaces/{id}", r.wrap(r.handleUpdateWorkspace))
			priv.Delete("/workspaces/{id}", r.wrap(r.handleDeleteWorkspace))
		})
	})

	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return mux
}

func corsOrigins(in []string) []string {
	if len(in) == 0 {
		return []string{"http://localhost:3000"}
	}
	return in
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, msg := r.classify(err)
			if status == http.StatusTooManyRequests {
				w.Header().Set("Retry-After", "60")
			}
			if status >= 500 {
				r.log.Error("request failed",
					zap.String("path", req.URL.Path),
					zap.String("request_id", chimw.GetReqID(req.Context())),
					zap.Error(err))
			}
			middleware.WriteError(w, status, msg)
		}
	}
}

// classify maps service errors to a status and a client-safe message.
func (r *Router) classify(err error) (int, string) {
	var ve *shared.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "not found"
	case errors.Is(err, users.ErrInvalidCredentials):
		return http.StatusUnauthorized, users.ErrInvalidCredentials.Error()
	case errors.Is(err, users.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, users.ErrInvalidToken):
		return http.StatusBadRequest, users.ErrInvalidToken.Error()
	case errors.Is(err, users.ErrEmailExists):
		return http.StatusConflict, "An account with this email already exists"
	case errors.Is(err, users.ErrOAuthDisabled):
		return http.StatusNotFound, users.ErrOAuthDisabled.Error()
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "ai quota exceeded"
	case errors.Is(err, domai.ErrProviderNotConfigured), errors.Is(err, domai.ErrInvalidProvider):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domai.ErrUpstreamAuth), errors.Is(err, domai.ErrMalformedResponse):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func decode(w http.ResponseWriter, req *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return shared.Invalid("", "request body too large")
		}
		return shared.Invalid("", "invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func currentUser(req *http.Request) (*users.User, error) {
	u, ok := middleware.UserFromContext(req.Context())
	if !ok {
		return nil, users.ErrUnauthorized
	}
	return u, nil
}

func pathID(req *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(req, "id"))
	if err := middleware.ValidateID(id); err != nil {
		return "", err
	}
	return id, nil
}

func expiresIn(t time.Time) int64 {
	return int64(time.Until(t).Seconds())
}
