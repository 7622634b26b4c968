// Package prom exports fetcher events as Prometheus metrics. Series are
// labelled by namespace only; keys never become label values.
package prom

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/swrcache"
)

type Hooks struct {
	served    *prometheus.CounterVec
	misses    *prometheus.CounterVec
	corrupt   *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	joined    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	storeErrs *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	leaseHeld *prometheus.CounterVec
}

var _ swrcache.Hooks = (*Hooks)(nil)

// New registers the collectors on reg. Wrap reg with
// prometheus.WrapRegistererWithPrefix to namespace them.
func New(reg prometheus.Registerer) (*Hooks, error) {
	h := &Hooks{
		served: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swrcache_served_total",
			Help: "Entries emitted from storage.",
		}, []string{"ns", "stale"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swrcache_misses_total",
			Help: "Loads with no stored entry.",
		}, []string{"ns"}),
		corrupt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swrcache_corrupt_entries_total",
			Help: "Entries deleted because they could not be decoded.",
		}, []string{"ns", "reason"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swrcache_refreshes_total",
			Help: "Completed refreshes by result.",
		}, []string{"ns", "result"}),
		joined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swrcache_refresh_joins_total",
			Help: "Loads that attached to a refresh already in flight.",
		}, []string{"ns"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swrcache_refresh_duration_seconds",
			Help:    "Refresh latency.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"ns"}),
		storeErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swrcache_store_errors_total",
			Help: "Provider errors by operation.",
		}, []string{"ns", "op"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swrcache_provider_set_rejected_total",
			Help: "Writes the provider declined under pressure.",
		}, []string{"ns"}),
		leaseHeld: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swrcache_lease_held_elsewhere_total",
			Help: "Refreshes skipped because another process held the lease.",
		}, []string{"ns"}),
	}
	for _, c := range []prometheus.Collector{
		h.served, h.misses, h.corrupt, h.refreshes, h.joined,
		h.duration, h.storeErrs, h.rejected, h.leaseHeld,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// namespace extracts <ns> from "swr:<ns>:<key>".
func namespace(storageKey string) string {
	rest, ok := strings.CutPrefix(storageKey, "swr:")
	if !ok {
		return "unknown"
	}
	ns, _, ok := strings.Cut(rest, ":")
	if !ok {
		return "unknown"
	}
	return ns
}

func (h *Hooks) CacheServed(k string, stale bool, _ time.Duration) {
	h.served.WithLabelValues(namespace(k), strconv.FormatBool(stale)).Inc()
}

func (h *Hooks) CacheMiss(k string)            { h.misses.WithLabelValues(namespace(k)).Inc() }
func (h *Hooks) RefreshStarted(string)         {}
func (h *Hooks) RefreshJoined(k string)        { h.joined.WithLabelValues(namespace(k)).Inc() }
func (h *Hooks) ProviderSetRejected(k string)  { h.rejected.WithLabelValues(namespace(k)).Inc() }
func (h *Hooks) LeaseHeldElsewhere(k string)   { h.leaseHeld.WithLabelValues(namespace(k)).Inc() }
func (h *Hooks) CorruptEntry(k, reason string) { h.corrupt.WithLabelValues(namespace(k), reason).Inc() }

func (h *Hooks) RefreshSucceeded(k string, took time.Duration) {
	ns := namespace(k)
	h.refreshes.WithLabelValues(ns, "ok").Inc()
	h.duration.WithLabelValues(ns).Observe(took.Seconds())
}

func (h *Hooks) RefreshFailed(k string, kind swrcache.ErrorKind, took time.Duration, _ error) {
	ns := namespace(k)
	h.refreshes.WithLabelValues(ns, kind.String()).Inc()
	h.duration.WithLabelValues(ns).Observe(took.Seconds())
}

func (h *Hooks) StoreFailed(k, op string, _ error) {
	h.storeErrs.WithLabelValues(namespace(k), op).Inc()
}
