// Package transport is the network side of the fetcher: something that turns a
// request descriptor into a raw response body.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Request describes one upstream call. Credentials travel in Header and are
// never logged.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Query  url.Values
}

// Get builds a GET request for rawURL.
func Get(rawURL string) Request {
	return Request{Method: http.MethodGet, URL: rawURL}
}

// WithHeader returns a copy of r with header k set to v.
func (r Request) WithHeader(k, v string) Request {
	h := r.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set(k, v)
	r.Header = h
	return r
}

// WithQuery returns a copy of r with query parameter k set to v.
func (r Request) WithQuery(k, v string) Request {
	q := url.Values{}
	for key, vals := range r.Query {
		q[key] = append([]string(nil), vals...)
	}
	q.Set(k, v)
	r.Query = q
	return r
}

// String renders method and URL with the query. Headers are omitted.
func (r Request) String() string {
	m := r.Method
	if m == "" {
		m = http.MethodGet
	}
	if len(r.Query) == 0 {
		return m + " " + r.URL
	}
	sep := "?"
	if strings.Contains(r.URL, "?") {
		sep = "&"
	}
	return m + " " + r.URL + sep + r.Query.Encode()
}

// Transport performs a request and returns the raw body of a 2xx response.
// Non-2xx responses are reported as *StatusError.
type Transport interface {
	Send(ctx context.Context, req Request) ([]byte, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, req Request) ([]byte, error)

func (f Func) Send(ctx context.Context, req Request) ([]byte, error) { return f(ctx, req) }

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	if body == "" {
		return fmt.Sprintf("transport: http %d", e.Code)
	}
	return fmt.Sprintf("transport: http %d: %s", e.Code, body)
}

// Temporary reports whether retrying later may succeed (429 and 5xx).
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}
