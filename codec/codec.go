// Package codec turns normalized values into the payload bytes stored in a
// cache entry and back.
package codec

// Codec encodes/decodes values V to []byte for storage.
// Name is written into every entry header; an entry whose codec name differs
// from the reader's is treated as a cache miss.
type Codec[V any] interface {
	Name() string
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
