package dbmigrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the embedded SQL migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Run executes a goose command (up, down, status, version) against dbURL.
func Run(ctx context.Context, command string, dbURL string, logger zerolog.Logger) error {
	if dbURL == "" {
		return fmt.Errorf("database URL is empty")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, Migrations())
	if err != nil {
		return fmt.Errorf("init goose: %w", err)
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("goose up failed: %w", err)
		}
		for _, r := range results {
			logger.Info().Str("migration", r.Source.Path).Dur("took", r.Duration).Msg("applied")
		}
		if len(results) == 0 {
			logger.Info().Msg("no migrations to apply")
		}
	case "down":
		r, err := provider.Down(ctx)
		if err != nil {
			return fmt.Errorf("goose down failed: %w", err)
		}
		logger.Info().Str("migration", r.Source.Path).Msg("rolled back")
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("goose status failed: %w", err)
		}
		for _, s := range statuses {
			logger.Info().Str("migration", s.Source.Path).Str("state", string(s.State)).Msg("status")
		}
	case "version":
		v, err := provider.GetDBVersion(ctx)
		if err != nil {
			return fmt.Errorf("goose version failed: %w", err)
		}
		logger.Info().Int64("version", v).Msg("database version")
	default:
		return fmt.Errorf("unsupported migrate command %q (use up, down, status, version)", command)
	}

	return nil
}
