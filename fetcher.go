package swrcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	c "github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/internal/util"
	"github.com/unkn0wn-root/swrcache/internal/wire"
	"github.com/unkn0wn-root/swrcache/lease"
	pr "github.com/unkn0wn-root/swrcache/provider"
	"github.com/unkn0wn-root/swrcache/transport"
)

const (
	defaultRetention      = 7 * 24 * time.Hour
	defaultRefreshTimeout = 15 * time.Second
	defaultSubBuffer      = 4
)

type fetcher[V any] struct {
	ns             string
	provider       pr.Provider
	transport      transport.Transport
	codec          c.Codec[V]
	normalize      Normalizer[V]
	log            Logger
	hooks          Hooks
	lease          lease.Lease
	leaseTTL       time.Duration
	retention      time.Duration
	refreshTimeout time.Duration
	computeSetCost SetCostFunc
	now            func() time.Time
	enabled        bool
	leaveOpen      bool
	subBuffer      int

	mu      sync.Mutex
	flights map[string]*flight[V]
	subs    map[string]map[uint64]chan Result[V]
	nextSub uint64
	closed  bool
	wg      sync.WaitGroup
}

// flight is one in-progress refresh. out is written once before done closes.
type flight[V any] struct {
	done   chan struct{}
	out    outcome[V]
	cached Result[V] // what the starter read from storage
	hit    bool
}

type outcome[V any] struct {
	value    V
	storedAt time.Time
	err      error
	warn     error
	// skipped: another process holds the lease; value/storedAt are the
	// starter's cached entry.
	skipped bool
}

func newFetcher[V any](opts Options[V]) (*fetcher[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("swrcache: provider is required")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("swrcache: transport is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("swrcache: codec is required")
	}
	if opts.Normalize == nil {
		return nil, fmt.Errorf("swrcache: normalize is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("swrcache: namespace is required")
	}

	f := &fetcher[V]{
		ns:        opts.Namespace,
		provider:  opts.Provider,
		transport: opts.Transport,
		codec:     opts.Codec,
		normalize: opts.Normalize,
		lease:     opts.Lease,
		enabled:   !opts.Disabled,
		leaveOpen: opts.LeaveOpen,
		flights:   make(map[string]*flight[V]),
		subs:      make(map[string]map[uint64]chan Result[V]),
	}

	// defaults
	f.log = coalesce[Logger](opts.Logger, NopLogger{})
	f.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	f.refreshTimeout = coalesce[time.Duration](opts.RefreshTimeout, defaultRefreshTimeout)
	f.leaseTTL = coalesce[time.Duration](opts.LeaseTTL, f.refreshTimeout)
	f.retention = coalesce[time.Duration](opts.Retention, defaultRetention)
	if f.retention < 0 {
		f.retention = 0 // provider: no expiry
	}
	f.subBuffer = coalesce[int](opts.SubscriberBuffer, defaultSubBuffer)

	if opts.Now != nil {
		f.now = opts.Now
	} else {
		f.now = time.Now
	}
	if opts.ComputeSetCost != nil {
		f.computeSetCost = opts.ComputeSetCost
	} else {
		f.computeSetCost = func(string, []byte) int64 { return 1 }
	}

	return f, nil
}

func (f *fetcher[V]) Namespace() string { return f.ns }

func (f *fetcher[V]) storageKey(key string) string { return util.Key("swr", f.ns, key) }

func validate(key string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl < 0 {
		return ErrNegativeTTL
	}
	return nil
}

func single[V any](err error) <-chan Result[V] {
	ch := make(chan Result[V], 1)
	ch <- Result[V]{Err: err}
	close(ch)
	return ch
}

// Load never blocks: the stream is buffered for the two emissions a load can
// produce.
func (f *fetcher[V]) Load(ctx context.Context, key string, req transport.Request, ttl time.Duration) <-chan Result[V] {
	if err := validate(key, ttl); err != nil {
		return single[V](err)
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return single[V](ErrClosed)
	}
	f.wg.Add(1)
	f.mu.Unlock()

	out := make(chan Result[V], 2)
	go f.load(ctx, key, req, ttl, out)
	return out
}

func (f *fetcher[V]) load(ctx context.Context, key string, req transport.Request, ttl time.Duration, out chan<- Result[V]) {
	defer f.wg.Done()
	defer close(out)

	emit := func(r Result[V]) {
		if ctx.Err() == nil {
			out <- r
		}
	}

	sk := f.storageKey(key)
	cached, hit := f.read(ctx, sk, ttl)
	if hit {
		emit(cached)
		if !cached.Stale {
			return
		}
	}

	fl, started := f.claim(key, cached, hit)
	if started {
		f.wg.Add(1)
		go f.refresh(context.WithoutCancel(ctx), key, sk, req, fl)
	} else {
		f.hooks.RefreshJoined(sk)
		if hit {
			// the in-flight refresh reports to subscribers
			return
		}
	}

	select {
	case <-fl.done:
	case <-ctx.Done():
		return
	}
	if fl.out.skipped && hit {
		return // cached value already emitted
	}
	emit(resolve(fl.out, cached, hit))
}

// claim registers a flight for key or returns the one already running.
func (f *fetcher[V]) claim(key string, cached Result[V], hit bool) (*flight[V], bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fl, ok := f.flights[key]; ok {
		return fl, false
	}
	fl := &flight[V]{done: make(chan struct{}), cached: cached, hit: hit}
	f.flights[key] = fl
	return fl, true
}

// resolve maps a refresh outcome to the emission for a caller that saw
// (cached, hit) in storage.
func resolve[V any](o outcome[V], cached Result[V], hit bool) Result[V] {
	switch {
	case o.skipped:
		return Result[V]{Value: o.value, Origin: OriginCache, Stale: true, StoredAt: o.storedAt}
	case o.err == nil:
		return Result[V]{Value: o.value, Origin: OriginNetwork, StoredAt: o.storedAt, Warn: o.warn}
	case hit:
		r := cached
		r.Stale = true
		r.Err = o.err
		return r
	default:
		return Result[V]{Origin: OriginNetwork, Stale: true, Err: o.err}
	}
}

func (f *fetcher[V]) refresh(ctx context.Context, key, sk string, req transport.Request, fl *flight[V]) {
	defer f.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, f.refreshTimeout)
	defer cancel()

	release := func() {}
	if fl.hit && f.lease != nil {
		ok, err := f.lease.Acquire(ctx, sk, f.leaseTTL)
		switch {
		case err != nil:
			f.log.Warn("lease acquire failed; refreshing anyway", Fields{"key": key, "err": err})
		case !ok:
			f.hooks.LeaseHeldElsewhere(sk)
			f.log.Debug("refresh skipped; lease held elsewhere", Fields{"key": key})
			f.finish(key, fl, outcome[V]{value: fl.cached.Value, storedAt: fl.cached.StoredAt, skipped: true})
			return
		default:
			release = func() {
				if err := f.lease.Release(context.WithoutCancel(ctx), sk); err != nil {
					f.log.Warn("lease release failed", Fields{"key": key, "err": err})
				}
			}
		}
	}

	f.hooks.RefreshStarted(sk)
	start := time.Now()
	o := f.fetch(ctx, key, sk, req)
	took := time.Since(start)
	release()

	if o.err != nil {
		kind := KindOf(o.err)
		f.hooks.RefreshFailed(sk, kind, took, o.err)
		f.log.Warn("refresh failed", Fields{"key": key, "kind": kind.String(), "took": took, "err": o.err})
	} else {
		f.hooks.RefreshSucceeded(sk, took)
		f.log.Debug("refreshed", Fields{"key": key, "took": took})
	}
	f.finish(key, fl, o)
}

func (f *fetcher[V]) fetch(ctx context.Context, key, sk string, req transport.Request) outcome[V] {
	raw, err := f.transport.Send(ctx, req)
	if err != nil {
		return outcome[V]{err: &FetchError{Key: key, Kind: transportKind(err), Err: err}}
	}
	v, err := f.normalize(raw)
	if err != nil {
		return outcome[V]{err: &FetchError{Key: key, Kind: KindMalformed, Err: err}}
	}
	storedAt := f.now()
	return outcome[V]{value: v, storedAt: storedAt, warn: f.store(ctx, key, sk, v, storedAt)}
}

// store overwrites the entry. Failures are returned as warnings; the value is
// still delivered.
func (f *fetcher[V]) store(ctx context.Context, key, sk string, v V, storedAt time.Time) error {
	if !f.enabled {
		return nil
	}
	payload, err := f.codec.Encode(v)
	if err != nil {
		f.log.Warn("encode failed; value not persisted", Fields{"key": key, "err": err})
		return &FetchError{Key: key, Kind: KindStorage, Err: err}
	}
	b, err := wire.Encode(wire.Entry{Codec: f.codec.Name(), StoredAt: storedAt, Payload: payload})
	if err != nil {
		return &FetchError{Key: key, Kind: KindStorage, Err: err}
	}
	ok, err := f.provider.Set(ctx, sk, b, f.computeSetCost(sk, b), f.retention)
	if err != nil {
		f.hooks.StoreFailed(sk, "set", err)
		f.log.Warn("cache write failed; value not persisted", Fields{"key": key, "err": err})
		return &FetchError{Key: key, Kind: KindStorage, Err: err}
	}
	if !ok {
		f.hooks.ProviderSetRejected(sk)
		f.log.Debug("cache write rejected by provider (pressure)", Fields{"key": key})
	}
	return nil
}

// finish publishes o, frees the key for the next refresh and notifies
// subscribers.
func (f *fetcher[V]) finish(key string, fl *flight[V], o outcome[V]) {
	fl.out = o

	f.mu.Lock()
	delete(f.flights, key)
	if !o.skipped {
		r := resolve(o, fl.cached, fl.hit)
		for _, ch := range f.subs[key] {
			select {
			case ch <- r:
			default: // slow subscriber
			}
		}
	}
	f.mu.Unlock()

	close(fl.done)
}

// read returns the decoded entry for sk. Errors and undecodable entries are
// misses; undecodable entries are deleted.
func (f *fetcher[V]) read(ctx context.Context, sk string, ttl time.Duration) (Result[V], bool) {
	var miss Result[V]
	if !f.enabled {
		return miss, false
	}
	raw, ok, err := f.provider.Get(ctx, sk)
	if err != nil {
		f.hooks.StoreFailed(sk, "get", err)
		f.log.Warn("cache read failed; treating as miss", Fields{"key": sk, "err": err})
		return miss, false
	}
	if !ok {
		f.hooks.CacheMiss(sk)
		return miss, false
	}

	e, err := wire.DecodeFor(raw, f.codec.Name())
	if err != nil {
		reason := "corrupt"
		if errors.Is(err, wire.ErrCodecChange) {
			reason = "codec_change"
		}
		f.heal(ctx, sk, reason)
		return miss, false
	}
	v, err := f.codec.Decode(e.Payload)
	if err != nil {
		f.heal(ctx, sk, "value_decode")
		return miss, false
	}

	age := e.Age(f.now())
	fresh := ttl > 0 && age <= ttl
	f.hooks.CacheServed(sk, !fresh, age)
	return Result[V]{Value: v, Origin: OriginCache, Stale: !fresh, StoredAt: e.StoredAt}, true
}

func (f *fetcher[V]) heal(ctx context.Context, sk, reason string) {
	f.hooks.CorruptEntry(sk, reason)
	if err := f.provider.Del(ctx, sk); err != nil {
		f.hooks.StoreFailed(sk, "del", err)
	}
	f.log.Debug("deleted undecodable entry", Fields{"key": sk, "reason": reason})
}

func (f *fetcher[V]) Get(ctx context.Context, key string, req transport.Request, ttl time.Duration) Result[V] {
	select {
	case r, ok := <-f.Load(ctx, key, req, ttl):
		if !ok {
			return Result[V]{Err: ctx.Err()}
		}
		return r
	case <-ctx.Done():
		return Result[V]{Err: ctx.Err()}
	}
}

func (f *fetcher[V]) Peek(ctx context.Context, key string, ttl time.Duration) (Result[V], bool) {
	if err := validate(key, ttl); err != nil {
		return Result[V]{Err: err}, false
	}
	return f.read(ctx, f.storageKey(key), ttl)
}

func (f *fetcher[V]) Subscribe(key string) (<-chan Result[V], func()) {
	ch := make(chan Result[V], f.subBuffer)

	f.mu.Lock()
	if f.closed || key == "" {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := f.nextSub
	f.nextSub++
	if f.subs[key] == nil {
		f.subs[key] = make(map[uint64]chan Result[V])
	}
	f.subs[key][id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if cur, ok := f.subs[key][id]; ok {
				delete(f.subs[key], id)
				if len(f.subs[key]) == 0 {
					delete(f.subs, key)
				}
				close(cur)
			}
		})
	}
}

func (f *fetcher[V]) InFlight(key string) bool {
	f.mu.Lock()
	_, ok := f.flights[key]
	f.mu.Unlock()
	return ok
}

// await blocks until the refresh of key in flight (if any) resolves.
func (f *fetcher[V]) await(ctx context.Context, key string) (outcome[V], bool) {
	f.mu.Lock()
	fl, ok := f.flights[key]
	f.mu.Unlock()
	if !ok {
		return outcome[V]{}, false
	}
	select {
	case <-fl.done:
		return fl.out, true
	case <-ctx.Done():
		return outcome[V]{}, false
	}
}

func (f *fetcher[V]) Prefetch(ctx context.Context, jobs []Job, parallelism int) error {
	if parallelism <= 0 {
		parallelism = 4
	}
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(parallelism)
	for _, j := range jobs {
		g.Go(func() error {
			var last Result[V]
			for r := range f.Load(ctx, j.Key, j.Request, j.TTL) {
				last = r
			}
			err := last.Err
			if last.Origin == OriginCache && last.Stale && err == nil {
				// joined someone else's refresh; wait for it
				if o, ok := f.await(ctx, j.Key); ok {
					err = o.err
				}
			}
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func (f *fetcher[V]) Invalidate(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	sk := f.storageKey(key)
	if err := f.provider.Del(ctx, sk); err != nil {
		f.hooks.StoreFailed(sk, "del", err)
		return &FetchError{Key: key, Kind: KindStorage, Err: err}
	}
	f.log.Debug("invalidated key", Fields{"key": key})
	return nil
}

// Close rejects new loads, waits for in-flight refreshes (bounded by ctx),
// closes subscriber streams and, unless LeaveOpen, the lease and provider.
func (f *fetcher[V]) Close(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	var waitErr error
	select {
	case <-done:
	case <-ctx.Done():
		waitErr = ctx.Err()
		f.log.Warn("close: refreshes still running", Fields{"ns": f.ns, "err": waitErr})
	}

	f.mu.Lock()
	for key, m := range f.subs {
		for id, ch := range m {
			close(ch)
			delete(m, id)
		}
		delete(f.subs, key)
	}
	f.mu.Unlock()

	if f.leaveOpen {
		return waitErr
	}
	// close lease first (best effort)
	if f.lease != nil {
		_ = f.lease.Close(ctx)
	}
	return errors.Join(waitErr, f.provider.Close(ctx))
}
