package swrcache

import "time"

// Origin tells where an emitted value came from.
type Origin uint8

const (
	OriginCache Origin = iota + 1
	OriginNetwork
)

func (o Origin) String() string {
	switch o {
	case OriginCache:
		return "cache"
	case OriginNetwork:
		return "network"
	default:
		return "none"
	}
}

// Result is one emission of a load.
//
//   - {OriginCache, Stale:false}: fresh entry, no refresh follows.
//   - {OriginCache, Stale:true}: stale entry, a refresh follows. Emitted again
//     with Err set when that refresh fails (the value is still the cached one).
//   - {OriginNetwork, Stale:false}: refresh succeeded. Warn is set when the
//     value could not be persisted.
//   - {OriginNetwork, Stale:true, Err}: refresh failed with nothing cached.
type Result[V any] struct {
	Value    V
	Origin   Origin
	Stale    bool
	StoredAt time.Time
	Err      error
	Warn     error
}

// HasValue reports whether Value carries data (cached or fetched).
func (r Result[V]) HasValue() bool {
	return r.Origin == OriginCache || (r.Origin == OriginNetwork && r.Err == nil)
}
