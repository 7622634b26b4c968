// Package lease coordinates refreshes across processes sharing one persistence
// backend. A lease is advisory: holding it means "someone is already refreshing
// this key", not exclusive ownership of the entry.
package lease

import (
	"context"
	"time"
)

// Lease abstracts where refresh leases live.
// Use Local for a single process, or Redis for replicas sharing a store.
type Lease interface {
	// Acquire takes the lease for key for at most ttl. It reports false when
	// another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release gives the lease back. Releasing a lease held by someone else,
	// or one that already expired, is a no-op.
	Release(ctx context.Context, key string) error
	Close(context.Context) error
}
