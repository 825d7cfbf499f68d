// Package storage opens the shared Postgres pool and applies schema migrations.
package storage

import (
	"context"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"newsletter-go/internal/config"
)

const driverName = "pgx"

var ErrEmptyDatabaseName = errors.New("database name is empty")

// Open creates the process-wide connection pool. The pool bounds concurrent
// connections with MaxOpenConns and queues callers past the bound.
// When PingOnStartup is set the first connection is established eagerly.
func Open(ctx context.Context, settings config.Database) (*sqlx.DB, error) {
	if settings.Name == "" {
		return nil, ErrEmptyDatabaseName
	}

	db, err := sqlx.Open(driverName, settings.ConnectionString().Expose())
	if err != nil {
		return nil, fmt.Errorf("failed to open database pool: %w", err)
	}

	db.SetMaxOpenConns(settings.MaxOpenConns)
	db.SetMaxIdleConns(settings.MaxIdleConns)
	db.SetConnMaxLifetime(settings.ConnMaxLifetime)

	if !settings.PingOnStartup {
		return db, nil
	}

	ctx, cancel := context.WithTimeout(ctx, settings.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database %s:%d: %w", settings.Host, settings.Port, err)
	}

	return db, nil
}
