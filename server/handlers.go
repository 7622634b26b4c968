package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/unkn0wn-root/swrcache/football"
)

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid number "+strconv.Quote(raw))
	}
	return n, nil
}

// weekStart parses ?week=: "" means all fixtures, "current" the week of now,
// otherwise any date (YYYY-MM-DD) inside the wanted week.
func (s *Server) weekStart(raw string) (time.Time, bool, error) {
	switch raw {
	case "":
		return time.Time{}, false, nil
	case "current":
		return football.WeekOf(s.opts.Now().UTC()), true, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, false, echo.NewHTTPError(http.StatusBadRequest, "invalid week "+strconv.Quote(raw))
	}
	return football.WeekOf(d), true, nil
}

func (s *Server) fixtures(c echo.Context) error {
	league, err := intParam(c.QueryParam("league"), s.data.League())
	if err != nil {
		return err
	}
	season, err := intParam(c.QueryParam("season"), s.data.Season())
	if err != nil {
		return err
	}
	start, filter, err := s.weekStart(c.QueryParam("week"))
	if err != nil {
		return err
	}
	r := s.data.FixturesFor(c.Request().Context(), league, season)
	if filter && r.HasValue() {
		r.Value = football.FilterWeek(r.Value, start)
	}
	return reply(c, r)
}

func (s *Server) fixtureDetail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid fixture id")
	}
	return reply(c, s.data.FixtureDetail(c.Request().Context(), id))
}

func (s *Server) standings(c echo.Context) error {
	return reply(c, s.data.Standings(c.Request().Context()))
}

func (s *Server) teams(c echo.Context) error {
	return reply(c, s.data.Teams(c.Request().Context()))
}

func (s *Server) teamInfo(c echo.Context) error {
	return reply(c, s.data.TeamInfo(c.Request().Context(), c.Param("id")))
}

func (s *Server) news(c echo.Context) error {
	return reply(c, s.data.News(c.Request().Context()))
}

func (s *Server) article(c echo.Context) error {
	return reply(c, s.data.Article(c.Request().Context(), c.Param("id")))
}
