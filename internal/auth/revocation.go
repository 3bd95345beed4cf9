// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"
)

// RevocationList records session tokens that were signed out before they
// expired. It is optional; without one, sign-out only clears the client's
// cookie and the token itself stays valid.
type RevocationList interface {
	// Revoke marks tokenID as revoked until the given time.
	Revoke(ctx context.Context, tokenID string, until time.Time) error

	// IsRevoked reports whether tokenID was revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
