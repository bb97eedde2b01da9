// Package migrate applies the embedded schema migrations with goose.
package migrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"ruconnect/migrations"
)

// Up brings the schema to the latest version. goose speaks
// database/sql, so the pgx pool is bridged through stdlib; the wrapper
// shares the pool's connections and is closed when done.
func Up(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close migration db handle", "error", err)
		}
	}()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(newSlogAdapter(ctx, logger))

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// slogAdapter routes goose's Printf-style logging through slog.
type slogAdapter struct {
	ctx    context.Context
	logger *slog.Logger
}

func newSlogAdapter(ctx context.Context, logger *slog.Logger) goose.Logger {
	return &slogAdapter{ctx: ctx, logger: logger}
}

func (a *slogAdapter) Fatalf(format string, v ...any) {
	a.logger.ErrorContext(a.ctx, fmt.Sprintf(format, v...))
}

func (a *slogAdapter) Printf(format string, v ...any) {
	a.logger.InfoContext(a.ctx, fmt.Sprintf(format, v...))
}
