package contracts

import (
	"context"
	"time"
)

// EphemeralStore is a volatile keyed store with TTL expiry, backing
// presence and typing state. Last write wins; a lapsed TTL clears the
// entry implicitly.
type EphemeralStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns "" with a nil error for absent or expired keys.
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
