package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "soundware.db")

	db, err := Open(ctx, Config{DSN: "file:" + path}, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(ctx, db, zerolog.Nop()))
	// Migrations are idempotent
	require.NoError(t, Migrate(ctx, db, zerolog.Nop()))

	for _, table := range []string{"conversation_turns", "playlists"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestWithAuthToken(t *testing.T) {
	assert.Equal(t, "libsql://db.example.io", withAuthToken("libsql://db.example.io", ""))
	assert.Equal(t, "libsql://db.example.io?authToken=abc", withAuthToken("libsql://db.example.io", "abc"))
	assert.Equal(t, "libsql://db.example.io?authToken=a%2Bb&tls=1", withAuthToken("libsql://db.example.io?tls=1", "a+b"))
}
