// Package revocation tracks revoked access token IDs (JTIs) until the
// tokens would have expired on their own. Logout and session revocation
// write here; the auth middleware reads on every request.
package revocation

import (
	"context"
	"fmt"
	"time"

	"ruconnect/pkg/platform/sentinel"
)

// TokenRevocationList records token JTIs that must no longer be
// accepted, each with a TTL matching the token's remaining lifetime.
type TokenRevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	RevokeSessionTokens(ctx context.Context, sessionID string, jtis []string, ttl time.Duration) error
}

// Clock abstracts time.Now for testability.
type Clock func() time.Time

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
