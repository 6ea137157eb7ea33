package store

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/izposoja/internal/db"
)

// RevokeToken blocks a session token until it expires. Expired
// revocations are pruned on the way.
func RevokeToken(ctx context.Context, q db.Querier, jti string, expiresAt time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?) ON CONFLICT (jti) DO NOTHING`,
		jti, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	_, _ = q.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, time.Now().UTC(),
	)

	return nil
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func IsTokenRevoked(ctx context.Context, q db.Querier, jti string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return count > 0, nil
}
