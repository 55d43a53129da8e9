// Package tokenstore keeps ids (jti) of access tokens that were revoked
// before their natural expiry: logged out or rotated by refresh.
// Entries are kept only as long as the token itself would live.
package tokenstore

import (
	"context"
	"time"
)

type Store interface {
	// Revoke token id for ttl
	// Revoking for non-positive ttl is a no-op: the token is dead anyway
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// Check whether token id was revoked
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
