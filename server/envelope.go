package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/football"
)

const headerCache = "X-Cache"

type envelope struct {
	Data     any        `json:"data"`
	Origin   string     `json:"origin,omitempty"`
	Stale    bool       `json:"stale"`
	StoredAt *time.Time `json:"stored_at,omitempty"`
	Error    string     `json:"error,omitempty"`
	Warning  string     `json:"warning,omitempty"`
}

func cacheHeader[V any](r swrcache.Result[V]) string {
	switch {
	case r.Origin == swrcache.OriginCache && r.Stale:
		return "STALE"
	case r.Origin == swrcache.OriginCache:
		return "HIT"
	default:
		return "MISS"
	}
}

// status maps a result to the response code: 200 whenever a value is
// available, 404 for unknown ids, 503 after shutdown began and 502 when the
// upstream failed with nothing cached.
func status[V any](r swrcache.Result[V]) int {
	switch {
	case r.HasValue():
		return http.StatusOK
	case errors.Is(r.Err, football.ErrUnknownFixture), errors.Is(r.Err, football.ErrUnknownArticle):
		return http.StatusNotFound
	case errors.Is(r.Err, swrcache.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func reply[V any](c echo.Context, r swrcache.Result[V]) error {
	env := envelope{Stale: r.Stale}
	if r.HasValue() {
		env.Data = r.Value
		env.Origin = r.Origin.String()
		if !r.StoredAt.IsZero() {
			at := r.StoredAt.UTC()
			env.StoredAt = &at
		}
		c.Response().Header().Set(headerCache, cacheHeader(r))
	}
	if r.Err != nil {
		env.Error = r.Err.Error()
	}
	if r.Warn != nil {
		env.Warning = r.Warn.Error()
	}
	return c.JSON(status(r), env)
}
