package resty

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/swrcache/transport"
)

func TestSendPassesHeadersAndQuery(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/fixtures", r.URL.Path)
		assert.Equal(t, "39", r.URL.Query().Get("league"))
		assert.Equal(t, "secret", r.Header.Get("x-rapidapi-key"))
		assert.Equal(t, "swrcached", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"response":[]}`))
	}))
	defer ts.Close()

	c := New(WithBaseURL(ts.URL), WithHeader("User-Agent", "swrcached"))
	body, err := c.Send(context.Background(), transport.Get("/v3/fixtures").
		WithHeader("x-rapidapi-key", "secret").
		WithQuery("league", "39"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":[]}`, string(body))
}

func TestSendNon2xxIsStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("quota exceeded"))
	}))
	defer ts.Close()

	_, err := New().Send(context.Background(), transport.Get(ts.URL))
	var se *transport.StatusError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Equal(t, "quota exceeded", string(se.Body))
}

func TestRetryOn5xx(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	c := New(WithRetry(3, time.Millisecond))
	body, err := c.Send(context.Background(), transport.Get(ts.URL))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendHonoursContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := New().Send(ctx, transport.Get(ts.URL))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}
