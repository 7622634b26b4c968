package transport

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestBuildersCopy(t *testing.T) {
	base := Get("https://api.example.test/v3/fixtures")
	a := base.WithHeader("x-rapidapi-key", "secret").WithQuery("league", "39")
	b := a.WithQuery("season", "2024")

	assert.Nil(t, base.Header)
	assert.Nil(t, base.Query)
	assert.Equal(t, "39", a.Query.Get("league"))
	assert.Empty(t, a.Query.Get("season"), "WithQuery must not mutate the receiver")
	assert.Equal(t, "2024", b.Query.Get("season"))
	assert.Equal(t, "secret", b.Header.Get("x-rapidapi-key"))
}

func TestRequestStringOmitsHeaders(t *testing.T) {
	r := Get("https://api.example.test/v3/standings").
		WithHeader("x-rapidapi-key", "secret").
		WithQuery("league", "39")
	s := r.String()
	assert.Equal(t, "GET https://api.example.test/v3/standings?league=39", s)
	assert.NotContains(t, s, "secret")

	r2 := Request{Method: http.MethodPost, URL: "https://x.test/a?b=1"}.WithQuery("c", "2")
	assert.Equal(t, "POST https://x.test/a?b=1&c=2", r2.String())
}

func TestFuncAdapter(t *testing.T) {
	var tr Transport = Func(func(_ context.Context, req Request) ([]byte, error) {
		return []byte(req.URL), nil
	})
	b, err := tr.Send(context.Background(), Get("u"))
	require.NoError(t, err)
	assert.Equal(t, "u", string(b))
}

func TestStatusError(t *testing.T) {
	e := &StatusError{Code: 503, Body: []byte(strings.Repeat("x", 300))}
	assert.True(t, e.Temporary())
	assert.Contains(t, e.Error(), "http 503")
	assert.True(t, strings.HasSuffix(e.Error(), "..."))

	e = &StatusError{Code: 404}
	assert.False(t, e.Temporary())
	assert.Equal(t, "transport: http 404", e.Error())
}
