package firestore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeDocs struct {
	mu   sync.Mutex
	docs map[string]Doc
	err  error
}

func newFakeDocs() *fakeDocs { return &fakeDocs{docs: map[string]Doc{}} }

func (f *fakeDocs) Get(_ context.Context, id string) (Doc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Doc{}, f.err
	}
	d, ok := f.docs[id]
	if !ok {
		return Doc{}, status.Error(codes.NotFound, "no such document")
	}
	return d, nil
}

func (f *fakeDocs) Set(_ context.Context, id string, d Doc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.docs[id] = d
	return nil
}

func (f *fakeDocs) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return status.Error(codes.NotFound, "no such document")
	}
	delete(f.docs, id)
	return nil
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	p := NewWithDocuments(newFakeDocs())

	_, ok, err := p.Get(ctx, "swr:fixtures:fixtures:39:2024")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.Set(ctx, "swr:fixtures:fixtures:39:2024", []byte("v1"), 0, 0)
	require.NoError(t, err)
	require.True(t, ok)

	v, ok, err := p.Get(ctx, "swr:fixtures:fixtures:39:2024")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), v)

	require.NoError(t, p.Del(ctx, "swr:fixtures:fixtures:39:2024"))
	require.NoError(t, p.Del(ctx, "swr:fixtures:fixtures:39:2024"), "deleting a missing doc is not an error")
	_, ok, _ = p.Get(ctx, "swr:fixtures:fixtures:39:2024")
	assert.False(t, ok)
}

func TestExpiredDocIsMiss(t *testing.T) {
	ctx := context.Background()
	p := NewWithDocuments(newFakeDocs())
	now := time.Date(2024, 8, 16, 12, 0, 0, 0, time.UTC)
	p.nowFunc = func() time.Time { return now }

	_, err := p.Set(ctx, "k", []byte("v"), 0, time.Minute)
	require.NoError(t, err)

	now = now.Add(59 * time.Second)
	_, ok, _ := p.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = p.Get(ctx, "k")
	assert.False(t, ok)
}

func TestLongKeysAreHashed(t *testing.T) {
	ctx := context.Background()
	docs := newFakeDocs()
	p := NewWithDocuments(docs)

	key := "news/" + strings.Repeat("x", 300)
	_, err := p.Set(ctx, key, []byte("v"), 0, 0)
	require.NoError(t, err)

	for id, d := range docs.docs {
		assert.True(t, strings.HasPrefix(id, "h_"))
		assert.Equal(t, key, d.Key)
	}
	v, ok, err := p.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestBackendErrorsSurface(t *testing.T) {
	ctx := context.Background()
	docs := newFakeDocs()
	docs.err = status.Error(codes.Unavailable, "down")
	p := NewWithDocuments(docs)

	_, _, err := p.Get(ctx, "k")
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(errors.Unwrap(err)))

	_, err = p.Set(ctx, "k", []byte("v"), 0, 0)
	require.Error(t, err)
}
