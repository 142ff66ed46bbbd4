// Package vault talks to the external settlement system: an on-chain
// session vault reached through slow, fallible, blocking transactions. The
// core consults it through three calls bound to the same account key, each
// idempotent at the vault's discretion but never deduplicated here.
package vault

import (
	"context"
	"errors"
)

// Vault is the external settlement contract surface.
type Vault interface {
	// OpenSession registers a new allowance with the vault and returns the
	// confirming transaction reference.
	OpenSession(ctx context.Context, id, user, merchant string, allowance int64) (string, error)

	// AccountSpend records the new cumulative off-chain total for the
	// session. The value is the already-committed local total, never a
	// speculative one.
	AccountSpend(ctx context.Context, id string, newTotal int64) (string, error)

	// Settle finalizes the session's net spend and releases the remainder.
	Settle(ctx context.Context, id string) (string, error)
}

// ErrUnavailable is returned when the vault cannot be reached at all, as
// opposed to the vault rejecting a call.
var ErrUnavailable = errors.New("settlement vault unavailable")
