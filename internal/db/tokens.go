package db

import (
	"context"
	"database/sql"
	"time"
)

// GetToken returns a stored token, or "" when it is missing or expired.
// Expired rows are deleted on read.
func (db *DB) GetToken(ctx context.Context, name string) (string, error) {
	var value string
	var expiresAt int64
	err := db.QueryRowContext(ctx, "SELECT value, expires_at FROM tokens WHERE name = ?", name).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if !time.Now().Before(time.Unix(expiresAt, 0)) {
		return "", db.RemoveToken(ctx, name)
	}
	return value, nil
}

// SetToken stores a token with its expiry, replacing any previous value
func (db *DB) SetToken(ctx context.Context, name, value string, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO tokens (name, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, name, value, expiresAt.Unix())
	return err
}

// RemoveToken deletes a token
func (db *DB) RemoveToken(ctx context.Context, name string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM tokens WHERE name = ?", name)
	return err
}
