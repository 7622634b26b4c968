package football

import (
	"strconv"

	"github.com/unkn0wn-root/swrcache/internal/util"
)

// Cache keys, one per logical resource. Namespaces separate the resource
// types in storage, so keys only carry the parameters.

func FixturesKey(league, season int) string {
	return util.Key("fixtures", strconv.Itoa(league), strconv.Itoa(season))
}

func StandingsKey(league, season int) string {
	return util.Key("standings", strconv.Itoa(league), strconv.Itoa(season))
}

func TeamsKey(limit int) string { return util.Key("teams", strconv.Itoa(limit)) }
func TeamKey(id string) string  { return util.Key("team", id) }
func NewsKey() string           { return "news" }

func StatsKey(fixture, team int64) string {
	return util.Key("stats", itoa(fixture), itoa(team))
}

func LineupsKey(fixture int64) string { return util.Key("lineups", itoa(fixture)) }
