// Package gcs stores cache entries as objects in a Google Cloud Storage bucket.
//
// Each object body is an 8-byte big-endian expiry (unix nanos, 0 = none)
// followed by the value. A storage.Writer only publishes the object on Close,
// so readers never observe a partial write.
package gcs

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"

	"github.com/unkn0wn-root/swrcache/internal/util"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

const expiryLen = 8

// Objects abstracts the bucket operations the provider needs.
type Objects interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, body []byte) error
	Delete(ctx context.Context, name string) error
}

type Config struct {
	Bucket string
	Prefix string
	// OwnsClient closes the client on Close.
	OwnsClient bool
}

type Provider struct {
	objs    Objects
	prefix  string
	closeFn func() error
	nowFunc func() time.Time
}

var _ pr.Provider = (*Provider)(nil)

func New(client *storage.Client, cfg Config) (*Provider, error) {
	if client == nil {
		return nil, errors.New("gcs: client cannot be nil")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("gcs: bucket is required")
	}
	p := NewWithObjects(&bucket{h: client.Bucket(cfg.Bucket)}, cfg.Prefix)
	if cfg.OwnsClient {
		p.closeFn = client.Close
	}
	return p, nil
}

func NewWithObjects(o Objects, prefix string) *Provider {
	if prefix == "" {
		prefix = "swr"
	}
	return &Provider{objs: o, prefix: prefix, nowFunc: time.Now}
}

func (p *Provider) object(key string) string {
	return path.Join(p.prefix, util.SafeID(key))
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := p.objs.Read(ctx, p.object(key))
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("gcs read %s: %w", key, err)
	}
	if len(body) < expiryLen {
		// treat short objects as absent; the fetcher overwrites them on refresh
		return nil, false, nil
	}
	if exp := int64(binary.BigEndian.Uint64(body[:expiryLen])); exp != 0 && p.nowFunc().UnixNano() >= exp {
		return nil, false, nil
	}
	return body[expiryLen:], true, nil
}

func (p *Provider) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	body := make([]byte, expiryLen+len(value))
	if ttl > 0 {
		binary.BigEndian.PutUint64(body[:expiryLen], uint64(p.nowFunc().Add(ttl).UnixNano()))
	}
	copy(body[expiryLen:], value)
	if err := p.objs.Write(ctx, p.object(key), body); err != nil {
		return false, fmt.Errorf("gcs write %s: %w", key, err)
	}
	return true, nil
}

func (p *Provider) Del(ctx context.Context, key string) error {
	err := p.objs.Delete(ctx, p.object(key))
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s: %w", key, err)
	}
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	if p.closeFn != nil {
		return p.closeFn()
	}
	return nil
}

type bucket struct {
	h *storage.BucketHandle
}

func (b *bucket) Read(ctx context.Context, name string) ([]byte, error) {
	r, err := b.h.Object(name).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b *bucket) Write(ctx context.Context, name string, body []byte) error {
	w := b.h.Object(name).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (b *bucket) Delete(ctx context.Context, name string) error {
	return b.h.Object(name).Delete(ctx)
}
