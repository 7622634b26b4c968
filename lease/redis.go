package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only if this process still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis shares leases across replicas with SET NX PX. Every instance has a
// random owner token so one replica cannot release another's lease.
type Redis struct {
	rdb   redis.UniversalClient
	ns    string
	owner string
	// closeClient is false when the client is shared with a provider.
	closeClient bool

	mu     sync.Mutex
	tokens map[string]struct{}
}

var _ Lease = (*Redis)(nil)

// NewRedis creates a Redis-backed lease set. When closeClient is true Close
// also closes rdb.
func NewRedis(rdb redis.UniversalClient, namespace string, closeClient bool) *Redis {
	return &Redis{
		rdb:         rdb,
		ns:          namespace,
		owner:       uuid.NewString(),
		closeClient: closeClient,
		tokens:      make(map[string]struct{}),
	}
}

func (r *Redis) key(k string) string { return "lease:" + r.ns + ":" + k }

// Owner returns this instance's token.
func (r *Redis) Owner() string { return r.owner }

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, r.key(key), r.owner, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		r.mu.Lock()
		r.tokens[key] = struct{}{}
		r.mu.Unlock()
	}
	return ok, nil
}

func (r *Redis) Release(ctx context.Context, key string) error {
	r.mu.Lock()
	_, mine := r.tokens[key]
	delete(r.tokens, key)
	r.mu.Unlock()
	if !mine {
		return nil
	}
	err := releaseScript.Run(ctx, r.rdb, []string{r.key(key)}, r.owner).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}

func (r *Redis) Close(ctx context.Context) error {
	r.mu.Lock()
	keys := make([]string, 0, len(r.tokens))
	for k := range r.tokens {
		keys = append(keys, k)
	}
	r.mu.Unlock()
	for _, k := range keys {
		_ = r.Release(ctx, k)
	}
	if r.closeClient {
		return r.rdb.Close()
	}
	return nil
}
