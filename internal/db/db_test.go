package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	db, err := New(dir)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(filepath.Join(dir, FileName))
	assert.NoError(t, err)
}

func TestOpen_SchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.SetSetting("sort", "title:asc"))
	first.Close()

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()
	value, err := second.GetSetting("sort")
	require.NoError(t, err)
	assert.Equal(t, "title:asc", value)
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)

	value, err := db.GetSetting("missing")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, db.SetSetting("sort", "title:asc"))
	require.NoError(t, db.SetSetting("sort", "priority:desc"))
	value, err = db.GetSetting("sort")
	require.NoError(t, err)
	assert.Equal(t, "priority:desc", value)
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	value, err := db.GetToken(ctx, "access_token")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, db.SetToken(ctx, "access_token", "a1", time.Now().Add(time.Hour)))
	require.NoError(t, db.SetToken(ctx, "access_token", "a2", time.Now().Add(time.Hour)))
	value, err = db.GetToken(ctx, "access_token")
	require.NoError(t, err)
	assert.Equal(t, "a2", value)

	require.NoError(t, db.RemoveToken(ctx, "access_token"))
	require.NoError(t, db.RemoveToken(ctx, "access_token"))
	value, err = db.GetToken(ctx, "access_token")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestTokens_ExpiredRowsAreDropped(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.SetToken(ctx, "refresh_token", "old", time.Now().Add(-time.Minute)))

	value, err := db.GetToken(ctx, "refresh_token")
	require.NoError(t, err)
	assert.Empty(t, value)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM tokens").Scan(&n))
	assert.Zero(t, n)
}
