package codec

// Bytes is an identity codec for []byte values, handy for resources that are
// cached exactly as the upstream returned them.
type Bytes struct{}

func (Bytes) Name() string                    { return "bytes" }
func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }

// Decode copies b; payloads handed out by providers may alias their buffers.
func (Bytes) Decode(b []byte) ([]byte, error) { return append([]byte(nil), b...), nil }

// String is a trivial codec for Go string values. It assumes UTF-8 and
// performs no validation.
type String struct{}

func (String) Name() string                    { return "string" }
func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
