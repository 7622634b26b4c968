// Package resty implements transport.Transport on top of go-resty.
package resty

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/unkn0wn-root/swrcache/transport"
)

type Options struct {
	BaseURL    string
	Headers    map[string]string
	Timeout    time.Duration // 0 => 10s
	RetryCount int           // retries on 429/5xx and connection errors
	RetryWait  time.Duration // 0 => 200ms
}

type Option func(*Options)

func WithBaseURL(u string) Option { return func(o *Options) { o.BaseURL = u } }

func WithHeader(k, v string) Option {
	return func(o *Options) {
		if o.Headers == nil {
			o.Headers = map[string]string{}
		}
		o.Headers[k] = v
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

func WithRetry(count int, wait time.Duration) Option {
	return func(o *Options) {
		if count >= 0 {
			o.RetryCount = count
		}
		if wait > 0 {
			o.RetryWait = wait
		}
	}
}

type Client struct {
	rc *resty.Client
}

var _ transport.Transport = (*Client)(nil)

func New(opts ...Option) *Client {
	cfg := Options{Timeout: 10 * time.Second, RetryWait: 200 * time.Millisecond}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	rc := resty.New()
	if cfg.BaseURL != "" {
		rc.SetBaseURL(cfg.BaseURL)
	}
	rc.SetTimeout(cfg.Timeout)
	if len(cfg.Headers) > 0 {
		rc.SetHeaders(cfg.Headers)
	}
	if cfg.RetryCount > 0 {
		rc.SetRetryCount(cfg.RetryCount).
			SetRetryWaitTime(cfg.RetryWait).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
			})
	}
	return &Client{rc: rc}
}

// NewFromClient wraps an already configured resty client.
func NewFromClient(rc *resty.Client) *Client { return &Client{rc: rc} }

func (c *Client) Send(ctx context.Context, req transport.Request) ([]byte, error) {
	r := c.rc.R().SetContext(ctx)
	for k, vals := range req.Header {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}

	method := req.Method
	if method == "" {
		method = resty.MethodGet
	}
	resp, err := r.Execute(method, req.URL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, &transport.StatusError{Code: resp.StatusCode(), Body: resp.Body()}
	}
	return resp.Body(), nil
}
