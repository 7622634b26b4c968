package lease

import (
	"context"
	"sync"
	"time"
)

// Local keeps leases in-process.
// Optional cleanup loop prunes expired leases that were never released.
type Local struct {
	mu     sync.Mutex
	held   map[string]time.Time // key -> expiry
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	nowFunc func() time.Time
}

var _ Lease = (*Local)(nil)

func NewLocal(cleanupInterval time.Duration) *Local {
	l := &Local{
		held:    make(map[string]time.Time),
		nowFunc: time.Now,
	}
	if cleanupInterval > 0 {
		l.ticker = time.NewTicker(cleanupInterval)
		l.stopCh = make(chan struct{})
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			for {
				select {
				case <-l.ticker.C:
					l.Cleanup()
				case <-l.stopCh:
					return
				}
			}
		}()
	}
	return l
}

func (l *Local) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := l.nowFunc()
	l.mu.Lock()
	defer l.mu.Unlock()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return false, nil
	}
	l.held[key] = now.Add(ttl)
	return true, nil
}

func (l *Local) Release(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.held, key)
	l.mu.Unlock()
	return nil
}

// Held reports whether key is currently leased.
func (l *Local) Held(key string) bool {
	now := l.nowFunc()
	l.mu.Lock()
	exp, ok := l.held[key]
	l.mu.Unlock()
	return ok && now.Before(exp)
}

// Cleanup drops expired leases.
func (l *Local) Cleanup() {
	now := l.nowFunc()
	l.mu.Lock()
	for k, exp := range l.held {
		if !now.Before(exp) {
			delete(l.held, k)
		}
	}
	l.mu.Unlock()
}

func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

func (l *Local) Close(_ context.Context) error {
	l.once.Do(func() {
		if l.stopCh != nil {
			l.ticker.Stop() // stop ticker before waiting
			close(l.stopCh)
			l.wg.Wait()
		}
	})
	return nil
}
