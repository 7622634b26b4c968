// Package asynchook moves hook work off the fetcher's hot path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    CorruptEvery: 10, // sample logs: ~every 10th self-heal
//	    ServedEvery:  100,
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	fixtures, _ := swrcache.New[[]football.Fixture](swrcache.Options[[]football.Fixture]{
//	    Namespace: "fixtures",
//	    Provider:  provider,
//	    Transport: transport,
//	    Codec:     codec.JSON[[]football.Fixture]{},
//	    Normalize: football.NormalizeFixtures,
//	    Hooks:     hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/swrcache"
)

type Hooks struct {
	inner   swrcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(inner swrcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are
// dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full
// or the hooks were closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) CacheServed(k string, stale bool, age time.Duration) {
	h.try(func() { h.inner.CacheServed(k, stale, age) })
}
func (h *Hooks) CacheMiss(k string)           { h.try(func() { h.inner.CacheMiss(k) }) }
func (h *Hooks) CorruptEntry(k, r string)     { h.try(func() { h.inner.CorruptEntry(k, r) }) }
func (h *Hooks) RefreshStarted(k string)      { h.try(func() { h.inner.RefreshStarted(k) }) }
func (h *Hooks) RefreshJoined(k string)       { h.try(func() { h.inner.RefreshJoined(k) }) }
func (h *Hooks) ProviderSetRejected(k string) { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) LeaseHeldElsewhere(k string)  { h.try(func() { h.inner.LeaseHeldElsewhere(k) }) }
func (h *Hooks) StoreFailed(k, op string, err error) {
	h.try(func() { h.inner.StoreFailed(k, op, err) })
}
func (h *Hooks) RefreshSucceeded(k string, took time.Duration) {
	h.try(func() { h.inner.RefreshSucceeded(k, took) })
}
func (h *Hooks) RefreshFailed(k string, kind swrcache.ErrorKind, took time.Duration, err error) {
	h.try(func() { h.inner.RefreshFailed(k, kind, took, err) })
}
