// Package swrcache implements a cache-first fetcher: stale-while-revalidate
// over a local persistence provider, with per-key refresh de-duplication and
// pluggable normalization of upstream responses.
//
// Components:
//   - Provider: byte store with TTL (memory, BigCache, Ristretto, Redis,
//     PostgreSQL, Firestore, GCS).
//   - Transport: turns a request descriptor into a raw body (resty by default).
//   - Normalizer[V]: pure function from raw body to the stored value.
//   - Codec[V]: (de)serializes V <-> []byte for persistence.
//   - Lease: optional cross-process refresh coordination.
//
// Keys:
//
//	swr:<ns>:<key> - one framed entry per logical key
//
// Load pattern:
//
//	for r := range fetcher.Load(ctx, "standings:39", req, 5*time.Minute) {
//	    render(r.Value, r.Origin, r.Stale) // cached first, then network
//	}
//
// A fresh entry (age <= ttl, ttl > 0) is emitted once and no request is sent.
// A stale or missing entry triggers a refresh; concurrent loads of the same key
// share it. Failures never touch the stored entry.
package swrcache
