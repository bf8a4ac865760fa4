package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Config holds connection settings for an embedded file or a remote libsql server.
type Config struct {
	DSN       string // "file:path/to.db" or libsql://host
	AuthToken string // remote only
}

// Open connects to libsql, creating the database directory for embedded files,
// and verifies connectivity.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*sql.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	if path, ok := strings.CutPrefix(dsn, "file:"); ok {
		path, _, _ = strings.Cut(path, "?")
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("could not create database directory %s: %w", dir, err)
		}
		logger.Info().Str("path", path).Msg("Connecting to embedded libsql")
	} else {
		dsn = withAuthToken(dsn, cfg.AuthToken)
		logger.Info().Str("dsn", cfg.DSN).Msg("Connecting to remote libsql")
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		db.Close()
		return nil, fmt.Errorf("basic connectivity test failed: %w", err)
	}

	return db, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectTurso, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	for _, r := range results {
		logger.Info().
			Str("migration", r.Source.Path).
			Dur("duration", r.Duration).
			Msg("Applied migration")
	}

	return nil
}

func withAuthToken(dsn, token string) string {
	if token == "" {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "authToken=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("authToken", token)
	u.RawQuery = q.Encode()
	return u.String()
}
