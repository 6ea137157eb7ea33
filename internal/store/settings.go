package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/erazemk/izposoja/internal/db"
)

// GetJWTSecret returns the token signing secret, generating and storing one
// on first use. The insert is a no-op when another process won the race,
// and the value is always read back.
func GetJWTSecret(ctx context.Context, q db.Querier) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES ('jwt_secret', ?) ON CONFLICT (key) DO NOTHING`,
		hex.EncodeToString(buf),
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	var secret string
	err = q.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'jwt_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}
