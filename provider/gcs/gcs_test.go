package gcs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	mu   sync.Mutex
	objs map[string][]byte
}

func newFakeObjects() *fakeObjects { return &fakeObjects{objs: map[string][]byte{}} }

func (f *fakeObjects) Read(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objs[name]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return append([]byte(nil), b...), nil
}

func (f *fakeObjects) Write(_ context.Context, name string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objs[name] = append([]byte(nil), body...)
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objs[name]; !ok {
		return storage.ErrObjectNotExist
	}
	delete(f.objs, name)
	return nil
}

func TestRoundTripUnderPrefix(t *testing.T) {
	ctx := context.Background()
	objs := newFakeObjects()
	p := NewWithObjects(objs, "cache")

	ok, err := p.Set(ctx, "swr:standings:standings:39", []byte("table"), 0, 0)
	require.NoError(t, err)
	require.True(t, ok)

	for name := range objs.objs {
		assert.True(t, strings.HasPrefix(name, "cache/"), name)
	}

	v, ok, err := p.Get(ctx, "swr:standings:standings:39")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("table"), v)

	require.NoError(t, p.Del(ctx, "swr:standings:standings:39"))
	require.NoError(t, p.Del(ctx, "swr:standings:standings:39"))
	_, ok, err = p.Get(ctx, "swr:standings:standings:39")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	p := NewWithObjects(newFakeObjects(), "")
	now := time.Unix(1_700_000_000, 0)
	p.nowFunc = func() time.Time { return now }

	_, err := p.Set(ctx, "k", []byte("v"), 0, time.Second)
	require.NoError(t, err)
	_, ok, _ := p.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = p.Get(ctx, "k")
	assert.False(t, ok)
}

func TestShortObjectIsMiss(t *testing.T) {
	ctx := context.Background()
	objs := newFakeObjects()
	p := NewWithObjects(objs, "swr")
	objs.objs[p.object("k")] = []byte{1, 2}

	_, ok, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

type failingObjects struct{ fakeObjects }

func (*failingObjects) Read(context.Context, string) ([]byte, error) {
	return nil, errors.New("503 backend error")
}

func TestReadErrorSurfaces(t *testing.T) {
	p := NewWithObjects(&failingObjects{}, "")
	_, _, err := p.Get(context.Background(), "k")
	require.Error(t, err)
}
