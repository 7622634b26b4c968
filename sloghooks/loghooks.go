// Package sloghooks logs fetcher events through log/slog with sampling and key
// redaction.
package sloghooks

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/internal/util"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ServedEvery  uint64
	CorruptEvery uint64
	// Optional key redactor. Defaults to a SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	servedCtr  atomic.Uint64
	corruptCtr atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	return util.Digest(k)
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CacheServed(storageKey string, stale bool, age time.Duration) {
	if h.l == nil || !sample(h.opts.ServedEvery, &h.servedCtr) {
		return
	}
	h.l.Debug("swrcache.cache_served",
		"key", h.redact(storageKey),
		"stale", stale,
		"age", age)
}

func (h *Hooks) CacheMiss(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Debug("swrcache.cache_miss", "key", h.redact(storageKey))
}

func (h *Hooks) CorruptEntry(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.CorruptEvery, &h.corruptCtr) {
		return
	}
	h.l.Warn("swrcache.corrupt_entry",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) RefreshStarted(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Debug("swrcache.refresh_started", "key", h.redact(storageKey))
}

func (h *Hooks) RefreshJoined(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Debug("swrcache.refresh_joined", "key", h.redact(storageKey))
}

func (h *Hooks) RefreshSucceeded(storageKey string, took time.Duration) {
	if h.l == nil {
		return
	}
	h.l.Info("swrcache.refresh_succeeded",
		"key", h.redact(storageKey),
		"took", took)
}

func (h *Hooks) RefreshFailed(storageKey string, kind swrcache.ErrorKind, took time.Duration, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.refresh_failed",
		"key", h.redact(storageKey),
		"kind", kind.String(),
		"took", took,
		"err", err)
}

func (h *Hooks) StoreFailed(storageKey, op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("swrcache.store_failed",
		"key", h.redact(storageKey),
		"op", op,
		"err", err)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.provider_set_rejected", "key", h.redact(storageKey))
}

func (h *Hooks) LeaseHeldElsewhere(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Info("swrcache.lease_held_elsewhere", "key", h.redact(storageKey))
}
