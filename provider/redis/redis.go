package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

// Redis persists entries in Redis so they survive restarts and are shared by
// replicas. SET replaces the value atomically.
type Redis struct {
	rdb         goredis.UniversalClient
	prefix      string
	closeClient bool
	closeOnce   sync.Once
	closeErr    error
}

var _ pr.Provider = (*Redis)(nil)

type Config struct {
	Client goredis.UniversalClient
	// KeyPrefix is prepended to every key, e.g. "app1:" when several
	// deployments share one database.
	KeyPrefix   string
	CloseClient bool // set true only if this provider exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, prefix: cfg.KeyPrefix, closeClient: cfg.CloseClient}, nil
}

func (p *Redis) key(k string) string { return p.prefix + k }

// Ping checks connectivity; use it at startup to fail fast.
func (p *Redis) Ping(ctx context.Context) error {
	if err := p.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis provider: ping: %w", err)
	}
	return nil
}

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, p.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis provider: get: %w", err)
	}
	return b, true, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0 // KEEPTTL is not wanted; 0 means no expiry
	}
	if err := p.rdb.Set(ctx, p.key(key), value, ttl).Err(); err != nil {
		return false, fmt.Errorf("redis provider: set: %w", err)
	}
	return true, nil
}

func (p *Redis) Del(ctx context.Context, key string) error {
	if err := p.rdb.Del(ctx, p.key(key)).Err(); err != nil {
		return fmt.Errorf("redis provider: del: %w", err)
	}
	return nil
}

// Close releases the client when the provider owns it. Repeated calls return
// the first result.
func (p *Redis) Close(context.Context) error {
	p.closeOnce.Do(func() {
		if !p.closeClient {
			return
		}
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			p.closeErr = err
		}
	})
	return p.closeErr
}
