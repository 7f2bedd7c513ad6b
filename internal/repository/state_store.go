package repository

import (
	"context"
	"time"
)

// StateStore abstracts short-lived key-value state such as refund tickets.
// Implementations: Redis (shared across instances) or in-memory (single instance).
type StateStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Take returns the value and deletes the key in one step. Only one of
	// several concurrent callers receives the value; the rest get nil.
	Take(ctx context.Context, key string) ([]byte, error)
}
