package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers the result of a request keyed by a client-supplied key,
// so that a retried request is answered with the first result instead of being applied twice.
type IdempotencyStore interface {
	// Reserve claims key for ttl. It returns false when the key is already reserved or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete stores the result for a reserved key
	Complete(ctx context.Context, key, result string, ttl time.Duration) error

	// Lookup returns the stored result. An empty result with found=true means the key is reserved
	// but the first request has not finished yet.
	Lookup(ctx context.Context, key string) (result string, found bool, err error)

	// Release drops a reservation so the request can be retried after a failure
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a key and its result are remembered
	TTL time.Duration

	// Enabled determines whether idempotency keys are honoured
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
