package football

import (
	"strconv"
	"strings"

	"github.com/unkn0wn-root/swrcache/transport"
)

const (
	DefaultFootballBase = "https://api-football-v1.p.rapidapi.com"
	DefaultFootballHost = "api-football-v1.p.rapidapi.com"
	DefaultEPLBase      = "https://english-premiere-league1.p.rapidapi.com"
	DefaultEPLHost      = "english-premiere-league1.p.rapidapi.com"
)

// API builds request descriptors for the two upstreams: api-football for
// fixtures, standings, statistics and lineups, and the EPL feed for teams and
// news. Keys are sent as x-rapidapi-key headers.
type API struct {
	FootballBase string
	FootballHost string
	FootballKey  string

	EPLBase string
	EPLHost string
	EPLKey  string
}

func (a API) football(path string) transport.Request {
	base := coalesceStr(a.FootballBase, DefaultFootballBase)
	host := coalesceStr(a.FootballHost, DefaultFootballHost)
	return rapid(transport.Get(join(base, path)), host, a.FootballKey)
}

func (a API) epl(path string) transport.Request {
	base := coalesceStr(a.EPLBase, DefaultEPLBase)
	host := coalesceStr(a.EPLHost, DefaultEPLHost)
	return rapid(transport.Get(join(base, path)), host, a.EPLKey)
}

func rapid(r transport.Request, host, key string) transport.Request {
	r = r.WithHeader("x-rapidapi-host", host)
	if key != "" {
		r = r.WithHeader("x-rapidapi-key", key)
	}
	return r
}

func join(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

func coalesceStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func (a API) Fixtures(league, season int) transport.Request {
	return a.football("/v3/fixtures").
		WithQuery("league", strconv.Itoa(league)).
		WithQuery("season", strconv.Itoa(season))
}

func (a API) Standings(league, season int) transport.Request {
	return a.football("/v3/standings").
		WithQuery("league", strconv.Itoa(league)).
		WithQuery("season", strconv.Itoa(season))
}

// Statistics is per fixture and team; both ids are required upstream.
func (a API) Statistics(fixture, team int64) transport.Request {
	return a.football("/v3/fixtures/statistics").
		WithQuery("fixture", itoa(fixture)).
		WithQuery("team", itoa(team))
}

func (a API) Lineups(fixture int64) transport.Request {
	return a.football("/v3/fixtures/lineups").WithQuery("fixture", itoa(fixture))
}

func (a API) Teams(limit int) transport.Request {
	return a.epl("/team/list").WithQuery("limit", strconv.Itoa(limit))
}

func (a API) TeamInfo(id string) transport.Request {
	return a.epl("/team/info").WithQuery("teamId", id)
}

func (a API) News() transport.Request { return a.epl("/news") }
