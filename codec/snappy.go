package codec

import (
	"fmt"

	"github.com/golang/snappy"
)

// Snappy compresses the output of Inner with snappy block encoding.
// Its name is "<inner>+snappy" so compressed and plain entries never mix.
type Snappy[V any] struct {
	Inner Codec[V]
}

func (c Snappy[V]) Name() string { return c.Inner.Name() + "+snappy" }

func (c Snappy[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, b), nil
}

func (c Snappy[V]) Decode(b []byte) (V, error) {
	raw, err := snappy.Decode(nil, b)
	if err != nil {
		var zero V
		return zero, fmt.Errorf("snappy: %w", err)
	}
	return c.Inner.Decode(raw)
}
