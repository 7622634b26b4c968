// Package firestore stores cache entries as Firestore documents, one document
// per key. Suitable for low-volume deployments that already run on GCP; use
// the redis provider when read volume is high.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	fs "cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/unkn0wn-root/swrcache/internal/util"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

// Doc is the stored document shape. A zero ExpiresAt means no expiry.
type Doc struct {
	Key       string    `firestore:"k"`
	Value     []byte    `firestore:"v"`
	ExpiresAt time.Time `firestore:"expires_at"`
}

// Documents abstracts the collection so the provider can be tested without
// an emulator.
type Documents interface {
	Get(ctx context.Context, id string) (Doc, error)
	Set(ctx context.Context, id string, d Doc) error
	Delete(ctx context.Context, id string) error
}

type Config struct {
	Collection string
	// OwnsClient closes the client on Close.
	OwnsClient bool
}

type Provider struct {
	docs    Documents
	closeFn func() error
	nowFunc func() time.Time
}

var _ pr.Provider = (*Provider)(nil)

// New wraps a Firestore client and collection.
func New(client *fs.Client, cfg Config) (*Provider, error) {
	if client == nil {
		return nil, errors.New("firestore: client cannot be nil")
	}
	if cfg.Collection == "" {
		cfg.Collection = "swr_entries"
	}
	p := NewWithDocuments(&collection{ref: client.Collection(cfg.Collection)})
	if cfg.OwnsClient {
		p.closeFn = client.Close
	}
	return p, nil
}

// NewWithDocuments builds a provider over any Documents implementation.
func NewWithDocuments(d Documents) *Provider {
	return &Provider{docs: d, nowFunc: time.Now}
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	d, err := p.docs.Get(ctx, util.SafeID(key))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("firestore get %s: %w", key, err)
	}
	// hashed ids can collide in theory; the stored key settles it
	if d.Key != key {
		return nil, false, nil
	}
	if !d.ExpiresAt.IsZero() && !p.nowFunc().Before(d.ExpiresAt) {
		return nil, false, nil
	}
	return d.Value, true, nil
}

func (p *Provider) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	d := Doc{Key: key, Value: value}
	if ttl > 0 {
		d.ExpiresAt = p.nowFunc().Add(ttl).UTC()
	}
	if err := p.docs.Set(ctx, util.SafeID(key), d); err != nil {
		return false, fmt.Errorf("firestore set %s: %w", key, err)
	}
	return true, nil
}

func (p *Provider) Del(ctx context.Context, key string) error {
	err := p.docs.Delete(ctx, util.SafeID(key))
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("firestore delete %s: %w", key, err)
	}
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	if p.closeFn != nil {
		return p.closeFn()
	}
	return nil
}

type collection struct {
	ref *fs.CollectionRef
}

func (c *collection) Get(ctx context.Context, id string) (Doc, error) {
	snap, err := c.ref.Doc(id).Get(ctx)
	if err != nil {
		return Doc{}, err
	}
	var d Doc
	if err := snap.DataTo(&d); err != nil {
		return Doc{}, err
	}
	return d, nil
}

// Set overwrites the whole document, which Firestore applies atomically.
func (c *collection) Set(ctx context.Context, id string, d Doc) error {
	_, err := c.ref.Doc(id).Set(ctx, d)
	return err
}

func (c *collection) Delete(ctx context.Context, id string) error {
	_, err := c.ref.Doc(id).Delete(ctx)
	return err
}
