package app

import (
	"context"
	"fmt"
	"time"

	fs "cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/swrcache/internal/config"
	"github.com/unkn0wn-root/swrcache/lease"
	pr "github.com/unkn0wn-root/swrcache/provider"
	"github.com/unkn0wn-root/swrcache/provider/bigcache"
	"github.com/unkn0wn-root/swrcache/provider/firestore"
	"github.com/unkn0wn-root/swrcache/provider/gcs"
	"github.com/unkn0wn-root/swrcache/provider/memory"
	"github.com/unkn0wn-root/swrcache/provider/postgres"
	"github.com/unkn0wn-root/swrcache/provider/redis"
	"github.com/unkn0wn-root/swrcache/provider/ristretto"
)

// backend is the provider plus the resources built alongside it.
type backend struct {
	provider pr.Provider
	// rdb is set when the provider talks to redis; leases reuse it.
	rdb goredis.UniversalClient
	// sweep drops expired rows for stores that do not expire on their own.
	sweep func(context.Context) (int64, error)
}

func newRedisClient(c config.Redis) goredis.UniversalClient {
	return goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    []string{c.Addr},
		Password: c.Password,
		DB:       c.DB,
	})
}

func openBackend(ctx context.Context, c config.Cache) (*backend, error) {
	switch c.Backend {
	case "memory":
		return &backend{provider: memory.New(c.Memory.SweepInterval)}, nil
	case "bigcache":
		p, err := bigcache.New(bigcache.Config{
			LifeWindow:         c.BigCache.LifeWindow,
			HardMaxCacheSizeMB: c.BigCache.MaxMB,
		})
		if err != nil {
			return nil, fmt.Errorf("app: bigcache: %w", err)
		}
		return &backend{provider: p}, nil
	case "ristretto":
		p, err := ristretto.New(ristretto.Config{
			NumCounters: c.Ristretto.NumCounters,
			MaxCost:     c.Ristretto.MaxCost,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("app: ristretto: %w", err)
		}
		return &backend{provider: p}, nil
	case "redis":
		rdb := newRedisClient(c.Redis)
		p, err := redis.New(redis.Config{Client: rdb, KeyPrefix: c.Redis.KeyPrefix, CloseClient: true})
		if err != nil {
			return nil, err
		}
		if err := p.Ping(ctx); err != nil {
			_ = p.Close(ctx)
			return nil, err
		}
		return &backend{provider: p, rdb: rdb}, nil
	case "postgres":
		p, err := postgres.Open(ctx, postgres.WithDSN(c.Postgres.DSN), postgres.WithTable(c.Postgres.Table))
		if err != nil {
			return nil, err
		}
		return &backend{provider: p, sweep: p.Sweep}, nil
	case "firestore":
		client, err := fs.NewClient(ctx, c.Firestore.Project)
		if err != nil {
			return nil, fmt.Errorf("app: firestore: %w", err)
		}
		p, err := firestore.New(client, firestore.Config{Collection: c.Firestore.Collection, OwnsClient: true})
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return &backend{provider: p}, nil
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: gcs: %w", err)
		}
		p, err := gcs.New(client, gcs.Config{Bucket: c.GCS.Bucket, Prefix: c.GCS.Prefix, OwnsClient: true})
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return &backend{provider: p}, nil
	}
	return nil, fmt.Errorf("app: unknown cache backend %q", c.Backend)
}

// newLease returns nil for kind "none". A redis lease reuses the backend's
// client when there is one, otherwise it owns a client of its own.
func newLease(c config.Config, b *backend) lease.Lease {
	switch c.Lease.Kind {
	case "local":
		return lease.NewLocal(time.Minute)
	case "redis":
		if b.rdb != nil {
			return lease.NewRedis(b.rdb, c.Lease.Namespace, false)
		}
		return lease.NewRedis(newRedisClient(c.Cache.Redis), c.Lease.Namespace, true)
	}
	return nil
}
