package swrcache

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The fetcher calls them on hot paths.
type Hooks interface {
	// An entry was emitted from storage.
	CacheServed(storageKey string, stale bool, age time.Duration)
	// No usable entry for the key (absent or expired by the provider).
	CacheMiss(storageKey string)

	// An entry was deleted by the fetcher on read.
	// reason ∈ {"corrupt", "codec_change", "value_decode"}
	CorruptEntry(storageKey, reason string)

	// Refresh lifecycle. Joined fires for loads that attached to a refresh
	// already in flight.
	RefreshStarted(storageKey string)
	RefreshJoined(storageKey string)
	RefreshSucceeded(storageKey string, took time.Duration)
	RefreshFailed(storageKey string, kind ErrorKind, took time.Duration, err error)

	// Provider errors. op ∈ {"get", "set", "del"}
	StoreFailed(storageKey, op string, err error)
	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// Another process holds the refresh lease; the cached value was kept.
	LeaseHeldElsewhere(storageKey string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) CacheServed(string, bool, time.Duration)               {}
func (NopHooks) CacheMiss(string)                                      {}
func (NopHooks) CorruptEntry(string, string)                           {}
func (NopHooks) RefreshStarted(string)                                 {}
func (NopHooks) RefreshJoined(string)                                  {}
func (NopHooks) RefreshSucceeded(string, time.Duration)                {}
func (NopHooks) RefreshFailed(string, ErrorKind, time.Duration, error) {}
func (NopHooks) StoreFailed(string, string, error)                     {}
func (NopHooks) ProviderSetRejected(string)                            {}
func (NopHooks) LeaseHeldElsewhere(string)                             {}

// MultiHooks fans every event out to hs in order. Nil entries are skipped.
func MultiHooks(hs ...Hooks) Hooks {
	kept := make(multiHooks, 0, len(hs))
	for _, h := range hs {
		if h != nil {
			kept = append(kept, h)
		}
	}
	switch len(kept) {
	case 0:
		return NopHooks{}
	case 1:
		return kept[0]
	}
	return kept
}

type multiHooks []Hooks

func (m multiHooks) CacheServed(sk string, stale bool, age time.Duration) {
	for _, h := range m {
		h.CacheServed(sk, stale, age)
	}
}

func (m multiHooks) CacheMiss(sk string) {
	for _, h := range m {
		h.CacheMiss(sk)
	}
}

func (m multiHooks) CorruptEntry(sk, reason string) {
	for _, h := range m {
		h.CorruptEntry(sk, reason)
	}
}

func (m multiHooks) RefreshStarted(sk string) {
	for _, h := range m {
		h.RefreshStarted(sk)
	}
}

func (m multiHooks) RefreshJoined(sk string) {
	for _, h := range m {
		h.RefreshJoined(sk)
	}
}

func (m multiHooks) RefreshSucceeded(sk string, took time.Duration) {
	for _, h := range m {
		h.RefreshSucceeded(sk, took)
	}
}

func (m multiHooks) RefreshFailed(sk string, kind ErrorKind, took time.Duration, err error) {
	for _, h := range m {
		h.RefreshFailed(sk, kind, took, err)
	}
}

func (m multiHooks) StoreFailed(sk, op string, err error) {
	for _, h := range m {
		h.StoreFailed(sk, op, err)
	}
}

func (m multiHooks) ProviderSetRejected(sk string) {
	for _, h := range m {
		h.ProviderSetRejected(sk)
	}
}

func (m multiHooks) LeaseHeldElsewhere(sk string) {
	for _, h := range m {
		h.LeaseHeldElsewhere(sk)
	}
}
