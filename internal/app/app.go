// Package app wires config into services and the HTTP handler.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bryanwahyu/neurolint/internal/application"
	appai "github.com/bryanwahyu/neurolint/internal/application/ai"
	appanalysis "github.com/bryanwahyu/neurolint/internal/application/analysis"
	appauth "github.com/bryanwahyu/neurolint/internal/application/auth"
	appsettings "github.com/bryanwahyu/neurolint/internal/application/settings"
	appws "github.com/bryanwahyu/neurolint/internal/application/workspaces"
	"github.com/bryanwahyu/neurolint/internal/config"
	"github.com/bryanwahyu/neurolint/internal/infra/ai/factory"
	"github.com/bryanwahyu/neurolint/internal/infra/cache"
	"github.com/bryanwahyu/neurolint/internal/infra/db"
	"github.com/bryanwahyu/neurolint/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/neurolint/internal/infra/httpserver"
	"github.com/bryanwahyu/neurolint/internal/infra/storage"
	"github.com/bryanwahyu/neurolint/internal/middleware"
)

// App holds the long-lived resources of the API process.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *sql.DB
	Store   *sqlstore.Store
	Redis   *redis.Client
	Reports *storage.Store
	Limiter *middleware.RateLimiter
	Auth    *appauth.Service
	Handler http.Handler
}

// ProviderOptions maps the ai config block to factory options.
func ProviderOptions(cfg *config.Config) factory.Options {
	return factory.Options{
		OpenAIModel:      cfg.AI.OpenAIModel,
		OpenAIBaseURL:    cfg.AI.OpenAIBaseURL,
		AnthropicModel:   cfg.AI.AnthropicModel,
		AnthropicBaseURL: cfg.AI.AnthropicBaseURL,
		OllamaModel:      cfg.AI.OllamaModel,
		Timeout:          time.Duration(cfg.AI.TimeoutSec) * time.Second,
	}
}

// OpenStore connects the database and applies pending migrations.
func OpenStore(ctx context.Context, cfg *config.Config) (*sql.DB, *sqlstore.Store, []int, error) {
	dialect, err := sqlstore.DialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, nil, nil, err
	}
	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open %s: %w", cfg.Database.Driver, err)
	}
	store := sqlstore.New(conn, dialect)
	applied, err := store.Migrate(ctx)
	if err != nil {
		conn.Close()
		return nil, nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return conn, store, applied, nil
}

// New connects every configured backend. Redis and MinIO are optional.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log}

	conn, store, applied, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DB, a.Store = conn, store
	log.Info("database ready", zap.String("driver", cfg.Database.Driver), zap.Ints("migrations_applied", applied))

	health := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: conn},
	}

	var resultCache *cache.Redis
	if cfg.Redis.Addr != "" {
		rc, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.Redis = rc
		resultCache = cache.NewRedis(rc, cfg.CacheTTL())
		health["redis"] = resultCache
		log.Info("redis cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	if cfg.Minio.Endpoint != "" {
		st, err := storage.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("minio: %w", err)
		}
		a.Reports = st
		health["minio"] = st
		log.Info("report archive enabled", zap.String("bucket", cfg.Minio.BucketName))
	}

	clock := application.SystemClock{}
	a.Auth = &appauth.Service{
		Users:      store.Users,
		Tokens:     store.Tokens,
		Settings:   store.Settings,
		Workspaces: store.Workspaces,
		History:    store.History,
		Mailer:     appauth.LogMailer{Logger: log.Named("mail")},
		Clock:      clock,
		Logger:     log.Named("auth"),
		TokenTTL:   time.Duration(cfg.Auth.TokenTTLHours) * time.Hour,
		ResetTTL:   time.Duration(cfg.Auth.ResetTTLMinutes) * time.Minute,
		PublicURL:  cfg.Auth.PublicURL,
		ResetURL:   cfg.Auth.ResetURL,
		OAuth:      appauth.NewGitHubOAuth(cfg.Auth.GitHub.ClientID, cfg.Auth.GitHub.ClientSecret, cfg.Auth.GitHub.RedirectURL),
	}

	analysisSvc := &appanalysis.Service{
		History:  store.History,
		Settings: store.Settings,
		Users:    store.Users,
		AI:       appai.NewService(ProviderOptions(cfg), cfg.AI.SecretScan),
		Clock:    clock,
		Logger:   log.Named("analysis"),
		Limits: appanalysis.Limits{
			MaxCodeBytes: cfg.AI.MaxCodeBytes,
			FreeMonthly:  cfg.AI.FreeMonthly,
			Timeout:      cfg.AnalyzeTimeout(),
		},
	}
	// typed nils must not leak into the interfaces
	if resultCache != nil {
		analysisSvc.Cache = resultCache
	}
	if a.Reports != nil {
		analysisSvc.Reports = a.Reports
	}

	a.Limiter = middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate, 10*time.Minute)
	a.Handler = httpserver.NewRouter(httpserver.Deps{
		Auth:            a.Auth,
		Analysis:        analysisSvc,
		Workspaces:      &appws.Service{Repo: store.Workspaces, Clock: clock},
		Settings:        &appsettings.Service{Repo: store.Settings, Users: store.Users},
		Metrics:         middleware.NewMetrics(),
		Limiter:         a.Limiter,
		Health:          health,
		Logger:          log.Named("http"),
		CORSOrigins:     cfg.Server.CORSOrigins,
		SuccessRedirect: cfg.Auth.SuccessRedirect,
		SecureCookies:   strings.HasPrefix(cfg.Auth.PublicURL, "https:"),
	})
	return a, nil
}

// PurgeTokens drops expired tokens every interval until ctx is done.
func (a *App) PurgeTokens(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.Auth.PurgeExpired(ctx)
			if err != nil {
				a.Logger.Warn("purge tokens failed", zap.Error(err))
				continue
			}
			if n > 0 {
				a.Logger.Debug("purged expired tokens", zap.Int64("count", n))
			}
		}
	}
}

func (a *App) Close() {
	if a.Limiter != nil {
		a.Limiter.Stop()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
