// Package cache stores serialized analysis results keyed by content hash.
package cache

import (
	"context"
	"time"
)

// KeyPrefix namespaces analysis entries in shared key-value stores.
const KeyPrefix = "analysis:"

// Store is a key-value store with per-entry expiry. Get reports a miss with
// found=false and a nil error; errors are reserved for backend failures.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Name() string
}

// Key builds the storage key for a cache id.
func Key(cacheID string) string {
	return KeyPrefix + cacheID
}
