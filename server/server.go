// Package server exposes the football data over HTTP. Every data route
// answers from the cache first and reports where the value came from in the
// envelope and the X-Cache header.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/football"
)

// Data is the read side of football.Service used by the handlers.
type Data interface {
	League() int
	Season() int
	Fixtures(ctx context.Context) swrcache.Result[[]football.Fixture]
	FixturesFor(ctx context.Context, league, season int) swrcache.Result[[]football.Fixture]
	FixtureDetail(ctx context.Context, id int64) swrcache.Result[football.FixtureDetail]
	Standings(ctx context.Context) swrcache.Result[[]football.Standing]
	Teams(ctx context.Context) swrcache.Result[[]football.Team]
	TeamInfo(ctx context.Context, id string) swrcache.Result[football.TeamInfo]
	News(ctx context.Context) swrcache.Result[[]football.Article]
	Article(ctx context.Context, id string) swrcache.Result[football.Article]
}

var _ Data = (*football.Service)(nil)

type Server struct {
	echo *echo.Echo
	data Data
	opts Options
	srv  *http.Server
}

func New(data Data, opts ...Option) *Server {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.Recover())
	e.Use(requestID())
	e.Use(accessLog(o.Logger))

	s := &Server{echo: e, data: data, opts: o}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.opts.Gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.echo.Group("/v1")
	v1.GET("/fixtures", s.fixtures)
	v1.GET("/fixtures/:id", s.fixtureDetail)
	v1.GET("/standings", s.standings)
	v1.GET("/teams", s.teams)
	v1.GET("/teams/:id", s.teamInfo)
	v1.GET("/news", s.news)
	v1.GET("/news/:id", s.article)
}

func (s *Server) Handler() http.Handler { return s.echo }

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         s.opts.Address,
		Handler:      s.echo,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.opts.Logger.Info("http server listening", swrcache.Fields{"addr": s.opts.Address})

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

const headerRequestID = "X-Request-ID"

func requestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(headerRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set("request_id", id)
			c.Response().Header().Set(headerRequestID, id)
			return next(c)
		}
	}
}

func accessLog(l swrcache.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			l.Debug("http request", swrcache.Fields{
				"request_id": c.Get("request_id"),
				"method":     c.Request().Method,
				"path":       c.Path(),
				"status":     c.Response().Status,
				"cache":      c.Response().Header().Get(headerCache),
				"took":       time.Since(start),
			})
			return nil
		}
	}
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = http.StatusText(code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	_ = c.JSON(code, envelope{Error: msg})
}
