// Package revokedtokens declares the server-side revocation list for
// session tokens, keyed by token ID (jti).
package revokedtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/server/models"
)

// Repository defines operations for revoking tokens and checking revocation.
type Repository interface {
	// Revoke records the token as revoked until its expiry. Revoking an
	// already revoked token is not an error.
	Revoke(ctx context.Context, token *models.RevokedToken) error

	// IsRevoked reports whether the token ID is on the list.
	IsRevoked(ctx context.Context, id string) (bool, error)

	// PurgeExpired deletes entries whose token expired before now and
	// returns how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
