package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version   byte = 1
	kindEntry byte = 1

	maxCodecLen = 0xFF
)

var (
	ErrCorrupt     = errors.New("swrcache: corrupt entry")
	ErrCodecName   = errors.New("swrcache: invalid codec name length")
	ErrCodecChange = errors.New("swrcache: entry written by another codec")
	magic4         = [...]byte{'S', 'W', 'R', 'C'}
)

// Entry is the persisted form of a cached value. It is replaced wholesale on
// refresh and never merged.
type Entry struct {
	Codec    string
	StoredAt time.Time
	Payload  []byte
}

// Age reports how old the entry is at now. Entries stored in the future
// (clock skew between replicas) have age 0.
func (e Entry) Age(now time.Time) time.Duration {
	d := now.Sub(e.StoredAt)
	if d < 0 {
		return 0
	}
	return d
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames an entry:
//
//	magic(4) | ver(1) | kind(1) | clen(1) | codec(clen) | storedAt(i64 be, unix nanos) | vlen(u32 be) | payload(vlen)
func Encode(e Entry) ([]byte, error) {
	if l := len(e.Codec); l == 0 || l > maxCodecLen {
		return nil, ErrCodecName
	}

	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 1 + len(e.Codec) + 8 + 4 + len(e.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)
	buf.WriteByte(byte(len(e.Codec)))
	buf.WriteString(e.Codec)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(e.StoredAt.UnixNano()))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])

	buf.Write(e.Payload)
	return buf.Bytes(), nil
}

// Decode parses a framed entry. Framing is strict: trailing bytes are corruption.
// The returned payload aliases b.
func Decode(b []byte) (Entry, error) {
	const fixed = 4 + 1 + 1 + 1
	if len(b) < fixed || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return Entry{}, ErrCorrupt
	}

	off := 6
	clen := int(b[off])
	off++
	if clen == 0 || clen > len(b)-off {
		return Entry{}, ErrCorrupt
	}
	codec := string(b[off : off+clen])
	off += clen

	if off+8 > len(b) {
		return Entry{}, ErrCorrupt
	}
	storedAt := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	if off+4 > len(b) {
		return Entry{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off {
		return Entry{}, ErrCorrupt
	}

	return Entry{
		Codec:    codec,
		StoredAt: time.Unix(0, storedAt),
		Payload:  b[off : off+vlen],
	}, nil
}

// DecodeFor is Decode plus a codec check.
func DecodeFor(b []byte, codec string) (Entry, error) {
	e, err := Decode(b)
	if err != nil {
		return Entry{}, err
	}
	if e.Codec != codec {
		return Entry{}, ErrCodecChange
	}
	return e, nil
}
