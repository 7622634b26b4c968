package swrcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/lease"
	pr "github.com/unkn0wn-root/swrcache/provider"
	"github.com/unkn0wn-root/swrcache/transport"
)

// Normalizer turns a raw upstream body into the value that is stored and
// emitted. It must be pure: same input, same output, no side effects.
type Normalizer[V any] func(raw []byte) (V, error)

type SetCostFunc func(storageKey string, raw []byte) int64

// Job is one key to warm with Prefetch.
type Job struct {
	Key     string
	Request transport.Request
	TTL     time.Duration
}

// Fetcher is the cache-first API for one resource type.
// V is the normalized value type. Persistence goes through a Codec[V].
type Fetcher[V any] interface {
	// Load emits the cached value (if any) and then, unless it was fresh, the
	// refresh outcome. The channel is buffered and always closed; callers
	// may stop reading at any time.
	Load(ctx context.Context, key string, req transport.Request, ttl time.Duration) <-chan Result[V]
	// Get returns the first emission of Load.
	Get(ctx context.Context, key string, req transport.Request, ttl time.Duration) Result[V]
	// Peek reads storage only.
	Peek(ctx context.Context, key string, ttl time.Duration) (Result[V], bool)
	// Subscribe delivers the outcome of every refresh of key until cancel is
	// called. Slow subscribers miss outcomes rather than block refreshes.
	Subscribe(key string) (results <-chan Result[V], cancel func())
	InFlight(key string) bool
	// Prefetch loads jobs with at most parallelism concurrent loads and waits
	// for their refreshes. It returns the joined refresh errors.
	Prefetch(ctx context.Context, jobs []Job, parallelism int) error
	// Invalidate deletes the stored entry for key.
	Invalidate(ctx context.Context, key string) error

	Namespace() string
	Close(context.Context) error
}

// Options configure a Fetcher.
// Namespace, Provider, Transport, Codec and Normalize are required; others have
// sensible defaults.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace, e.g. "fixtures", "standings"
	Provider  pr.Provider
	Transport transport.Transport
	Codec     c.Codec[V]
	Normalize Normalizer[V]

	Logger         Logger           // if nil, NopLogger is used
	Hooks          Hooks            // if nil, NopHooks is used
	Lease          lease.Lease      // nil => in-process de-duplication only
	LeaseTTL       time.Duration    // 0 => RefreshTimeout
	Retention      time.Duration    // provider TTL of entries; 0 => 7d, <0 => no expiry
	RefreshTimeout time.Duration    // 0 => 15s
	ComputeSetCost SetCostFunc      // default 1
	Now            func() time.Time // clock; default time.Now
	Disabled       bool             // skip storage entirely; every load goes to the network
	// LeaveOpen keeps Provider and Lease open on Close. Set it when they are
	// shared between fetchers.
	LeaveOpen bool
	// SubscriberBuffer is the per-subscriber channel size; 0 => 4.
	SubscriberBuffer int
}

func New[V any](opts Options[V]) (Fetcher[V], error) {
	return newFetcher[V](opts)
}
