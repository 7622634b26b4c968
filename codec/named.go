package codec

import "fmt"

// ForName builds one of the struct codecs by name: "json", "cbor" or "msgpack".
// compress wraps the result in Snappy; maxDecode > 0 wraps it in Limit.
func ForName[V any](name string, compress bool, maxDecode int) (Codec[V], error) {
	var c Codec[V]
	switch name {
	case "", "json":
		c = JSON[V]{}
	case "cbor":
		cb, err := NewCBOR[V](true)
		if err != nil {
			return nil, err
		}
		c = cb
	case "msgpack":
		c = Msgpack[V]{}
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
	if compress {
		c = Snappy[V]{Inner: c}
	}
	if maxDecode > 0 {
		c = Limit[V]{Inner: c, MaxDecode: maxDecode}
	}
	return c, nil
}
