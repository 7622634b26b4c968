package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/swrcache"
)

type Options struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// Gatherer backs /metrics; nil leaves the route out.
	Gatherer prometheus.Gatherer
	Logger   swrcache.Logger
	// Now is used for the default week of /v1/fixtures?week=current.
	Now func() time.Time
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Address:         ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Logger:          swrcache.NopLogger{},
		Now:             time.Now,
	}
}

func WithAddress(addr string) Option {
	return func(o *Options) {
		if addr != "" {
			o.Address = addr
		}
	}
}

func WithTimeouts(read, write time.Duration) Option {
	return func(o *Options) {
		if read > 0 {
			o.ReadTimeout = read
		}
		if write > 0 {
			o.WriteTimeout = write
		}
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.ShutdownTimeout = d
		}
	}
}

func WithMetrics(g prometheus.Gatherer) Option {
	return func(o *Options) { o.Gatherer = g }
}

func WithLogger(l swrcache.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}
