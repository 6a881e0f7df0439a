// Package db opens the configured SQL database.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bryanwahyu/neurolint/internal/config"
	"github.com/bryanwahyu/neurolint/internal/infra/db/mysql"
	"github.com/bryanwahyu/neurolint/internal/infra/db/postgres"
	"github.com/bryanwahyu/neurolint/internal/infra/db/sqlite"
)

// Open returns a *sql.DB based on the configured driver.
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return sqlite.Connect(ctx, cfg.Database.Path)
	case "mysql":
		return mysql.Connect(ctx, cfg.MySQLDSN())
	case "postgres", "pgx":
		return postgres.Connect(ctx, cfg.Database.Driver, cfg.PostgresDSN())
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", cfg.Database.Driver)
	}
}
