// Package memory is an in-process Provider: a mutex-guarded map with per-entry
// expiry and an optional sweep loop.
package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

const defaultSweep = time.Minute

type elem struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type Provider struct {
	mu sync.RWMutex
	m  map[string]elem

	closed  uint32
	stopCh  chan struct{}
	wg      sync.WaitGroup
	nowFunc func() time.Time
}

var _ pr.Provider = (*Provider)(nil)

// New creates a store. sweepInterval > 0 starts a background loop dropping
// expired entries; expired entries are also dropped lazily on Get.
func New(sweepInterval time.Duration) *Provider {
	p := &Provider{
		m:       make(map[string]elem),
		stopCh:  make(chan struct{}),
		nowFunc: time.Now,
	}
	if sweepInterval > 0 {
		p.wg.Add(1)
		go p.sweepLoop(sweepInterval)
	}
	return p
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	e, ok := p.m[key]
	p.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && p.nowFunc().After(e.exp) {
		p.mu.Lock()
		if cur, ok := p.m[key]; ok && cur.exp.Equal(e.exp) {
			delete(p.m, key)
		}
		p.mu.Unlock()
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if atomic.LoadUint32(&p.closed) != 0 {
		return false, nil
	}
	// own the bytes; callers may reuse their buffer
	buf := make([]byte, len(value))
	copy(buf, value)

	var exp time.Time
	if ttl > 0 {
		exp = p.nowFunc().Add(ttl)
	}
	p.mu.Lock()
	p.m[key] = elem{v: buf, exp: exp}
	p.mu.Unlock()
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
	return nil
}

// Len counts stored entries, expired ones included until swept.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}

func (p *Provider) Close(_ context.Context) error {
	if atomic.CompareAndSwapUint32(&p.closed, 0, 1) {
		close(p.stopCh)
		p.wg.Wait()
	}
	return nil
}

func (p *Provider) sweepLoop(interval time.Duration) {
	defer p.wg.Done()
	if interval <= 0 {
		interval = defaultSweep
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

func (p *Provider) sweep() {
	now := p.nowFunc()
	p.mu.Lock()
	for k, e := range p.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(p.m, k)
		}
	}
	p.mu.Unlock()
}
