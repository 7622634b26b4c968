// Package app wires the daemon: storage backend, lease, upstream transport,
// metrics and logging around the football service and its HTTP server.
package app

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/football"
	asynchook "github.com/unkn0wn-root/swrcache/hooks/async"
	"github.com/unkn0wn-root/swrcache/hooks/prom"
	"github.com/unkn0wn-root/swrcache/internal/config"
	"github.com/unkn0wn-root/swrcache/server"
	"github.com/unkn0wn-root/swrcache/sloghooks"
	"github.com/unkn0wn-root/swrcache/transport"
	"github.com/unkn0wn-root/swrcache/transport/resty"
)

const sweepEvery = 10 * time.Minute

type App struct {
	Config   *config.Config
	Logger   swrcache.Logger
	Service  *football.Service
	Server   *server.Server
	Registry *prometheus.Registry

	hooks   *asynchook.Hooks
	sweep   func(context.Context) (int64, error)
	logSync func() error
}

// Option adjusts Build; tests use them to replace outer dependencies.
type Option func(*buildOpts)

type buildOpts struct {
	logOut    io.Writer
	transport transport.Transport
}

// WithLogOutput redirects logs (default stderr).
func WithLogOutput(w io.Writer) Option { return func(o *buildOpts) { o.logOut = w } }

// WithTransport replaces the resty client used for upstream calls.
func WithTransport(t transport.Transport) Option { return func(o *buildOpts) { o.transport = t } }

func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	bo := buildOpts{logOut: os.Stderr}
	for _, o := range opts {
		o(&bo)
	}

	logger, logSync, err := newLogger(cfg.Log, bo.logOut)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, logSync: logSync}

	var hs []swrcache.Hooks
	if cfg.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		ph, err := prom.New(a.Registry)
		if err != nil {
			return nil, err
		}
		hs = append(hs, ph)
	}
	if cfg.Log.Events {
		sl, err := newSlog(cfg.Log, bo.logOut)
		if err != nil {
			return nil, err
		}
		hs = append(hs, sloghooks.New(sl, sloghooks.Options{ServedEvery: cfg.Log.ServedEvery, CorruptEvery: 1}))
	}
	var hooks swrcache.Hooks = swrcache.NopHooks{}
	if len(hs) > 0 {
		a.hooks = asynchook.New(swrcache.MultiHooks(hs...), cfg.Metrics.AsyncWorkers, cfg.Metrics.AsyncQueue)
		hooks = a.hooks
	}

	b, err := openBackend(ctx, cfg.Cache)
	if err != nil {
		a.closeHooks()
		return nil, err
	}
	a.sweep = b.sweep
	ls := newLease(*cfg, b)

	tr := bo.transport
	if tr == nil {
		tr = resty.New(
			resty.WithTimeout(cfg.Upstream.Timeout),
			resty.WithRetry(cfg.Upstream.Retries, cfg.Upstream.RetryWait),
		)
	}

	api := football.API{
		FootballBase: cfg.Upstream.FootballBase,
		FootballHost: cfg.Upstream.FootballHost,
		FootballKey:  cfg.Upstream.FootballKey,
		EPLBase:      cfg.Upstream.EPLBase,
		EPLHost:      cfg.Upstream.EPLHost,
		EPLKey:       cfg.Upstream.EPLKey,
	}
	ttl := cfg.Cache.TTL
	svc, err := football.NewService(b.provider, tr, api, football.Config{
		League:     cfg.League.ID,
		Season:     cfg.League.Season,
		TeamsLimit: cfg.League.TeamsLimit,
		TTL: football.TTLs{
			Fixtures:  ttl.Fixtures,
			Standings: ttl.Standings,
			Teams:     ttl.Teams,
			TeamInfo:  ttl.TeamInfo,
			News:      ttl.News,
			Stats:     ttl.Stats,
			Lineups:   ttl.Lineups,
		},
		Codec:          cfg.Cache.Codec,
		Compress:       cfg.Cache.Compress,
		MaxDecode:      cfg.Cache.MaxDecode,
		Lease:          ls,
		LeaseTTL:       cfg.Lease.TTL,
		Retention:      cfg.Cache.Retention,
		RefreshTimeout: cfg.Cache.RefreshTimeout,
		Disabled:       cfg.Cache.Disabled,
		Logger:         logger,
		Hooks:          hooks,
	})
	if err != nil {
		if ls != nil {
			_ = ls.Close(ctx)
		}
		_ = b.provider.Close(ctx)
		a.closeHooks()
		return nil, err
	}
	a.Service = svc

	sopts := []server.Option{
		server.WithAddress(cfg.HTTP.Addr),
		server.WithTimeouts(cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout),
		server.WithShutdownTimeout(cfg.HTTP.ShutdownTimeout),
		server.WithLogger(logger),
	}
	if a.Registry != nil {
		sopts = append(sopts, server.WithMetrics(a.Registry))
	}
	a.Server = server.New(svc, sopts...)

	logger.Info("app built", swrcache.Fields{
		"backend": cfg.Cache.Backend,
		"codec":   cfg.Cache.Codec,
		"lease":   cfg.Lease.Kind,
		"league":  cfg.League.ID,
		"season":  cfg.League.Season,
	})
	return a, nil
}

// Warm prefetches the list resources and, if configured, every team page.
func (a *App) Warm(ctx context.Context) error {
	p := a.Config.Warm.Parallelism
	start := time.Now()
	err := a.Service.Warm(ctx, p)
	if a.Config.Warm.Teams {
		err = errors.Join(err, a.Service.WarmTeams(ctx, p))
	}
	f := swrcache.Fields{"took": time.Since(start)}
	if err != nil {
		f["err"] = err
		a.Logger.Warn("warm finished with errors", f)
		return err
	}
	a.Logger.Info("warm finished", f)
	return nil
}

// Run serves HTTP until ctx is done. Warming and store sweeping run in the
// background.
func (a *App) Run(ctx context.Context) error {
	if a.Config.Warm.OnStart {
		go func() { _ = a.Warm(ctx) }()
	}
	if a.sweep != nil {
		go a.sweepLoop(ctx)
	}
	return a.Server.Start(ctx)
}

func (a *App) sweepLoop(ctx context.Context) {
	t := time.NewTicker(sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.sweep(ctx)
			if err != nil {
				a.Logger.Warn("sweep failed", swrcache.Fields{"err": err})
				continue
			}
			a.Logger.Debug("swept expired entries", swrcache.Fields{"n": n})
		}
	}
}

func (a *App) closeHooks() {
	if a.hooks != nil {
		a.hooks.Close()
		if d := a.hooks.Dropped(); d > 0 {
			a.Logger.Warn("hook events dropped", swrcache.Fields{"n": d})
		}
	}
}

// Close stops the service (waiting for refreshes up to ctx), then drains
// hooks and flushes logs.
func (a *App) Close(ctx context.Context) error {
	err := a.Service.Close(ctx)
	a.closeHooks()
	_ = a.logSync()
	return err
}
