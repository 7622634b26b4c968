// Package football is the data layer for the league app: one cache-first
// fetcher per upstream resource, pure normalizers from upstream payloads to
// flat records, and the request descriptors that produce them.
package football

import "time"

// Side is one team in a fixture. Score is nil before kick-off.
type Side struct {
	ID    int64  `json:"id" cbor:"id" msgpack:"id"`
	Name  string `json:"name" cbor:"name" msgpack:"name"`
	Logo  string `json:"logo" cbor:"logo" msgpack:"logo"`
	Score *int   `json:"score" cbor:"score" msgpack:"score"`
}

type Fixture struct {
	ID          int64     `json:"id" cbor:"id" msgpack:"id"`
	Date        time.Time `json:"date" cbor:"date" msgpack:"date"`
	Home        Side      `json:"home" cbor:"home" msgpack:"home"`
	Away        Side      `json:"away" cbor:"away" msgpack:"away"`
	Venue       string    `json:"venue" cbor:"venue" msgpack:"venue"`
	Status      string    `json:"status" cbor:"status" msgpack:"status"`
	StatusShort string    `json:"status_short" cbor:"status_short" msgpack:"status_short"`
}

type TeamRef struct {
	ID   int64  `json:"id" cbor:"id" msgpack:"id"`
	Name string `json:"name" cbor:"name" msgpack:"name"`
	Logo string `json:"logo" cbor:"logo" msgpack:"logo"`
}

// Standing is one row of a league table.
type Standing struct {
	Rank         int     `json:"rank" cbor:"rank" msgpack:"rank"`
	Team         TeamRef `json:"team" cbor:"team" msgpack:"team"`
	Played       int     `json:"played" cbor:"played" msgpack:"played"`
	Win          int     `json:"win" cbor:"win" msgpack:"win"`
	Draw         int     `json:"draw" cbor:"draw" msgpack:"draw"`
	Lose         int     `json:"lose" cbor:"lose" msgpack:"lose"`
	GoalsFor     int     `json:"goals_for" cbor:"goals_for" msgpack:"goals_for"`
	GoalsAgainst int     `json:"goals_against" cbor:"goals_against" msgpack:"goals_against"`
	GoalsDiff    int     `json:"goals_diff" cbor:"goals_diff" msgpack:"goals_diff"`
	Points       int     `json:"points" cbor:"points" msgpack:"points"`
	// Form holds the last five results, oldest first, e.g. "WWDLW".
	Form string `json:"form" cbor:"form" msgpack:"form"`
}

type Zone string

const (
	ZoneNone            Zone = ""
	ZoneChampionsLeague Zone = "champions_league"
	ZoneEuropaLeague    Zone = "europa_league"
	ZoneRelegation      Zone = "relegation"
)

// Zone reports the qualification or relegation band of the row's rank in a
// 20-team table.
func (s Standing) Zone() Zone {
	switch {
	case s.Rank >= 1 && s.Rank <= 4:
		return ZoneChampionsLeague
	case s.Rank == 5:
		return ZoneEuropaLeague
	case s.Rank >= 18:
		return ZoneRelegation
	default:
		return ZoneNone
	}
}

type Team struct {
	ID          string   `json:"id" cbor:"id" msgpack:"id"`
	DisplayName string   `json:"display_name" cbor:"display_name" msgpack:"display_name"`
	Abbrev      string   `json:"abbrev,omitempty" cbor:"abbrev,omitempty" msgpack:"abbrev,omitempty"`
	Logos       []string `json:"logos" cbor:"logos" msgpack:"logos"`
}

type Link struct {
	Href        string `json:"href" cbor:"href" msgpack:"href"`
	Description string `json:"description" cbor:"description" msgpack:"description"`
}

type Event struct {
	Name string    `json:"name" cbor:"name" msgpack:"name"`
	Date time.Time `json:"date" cbor:"date" msgpack:"date"`
}

type TeamInfo struct {
	ID          string   `json:"id" cbor:"id" msgpack:"id"`
	DisplayName string   `json:"display_name" cbor:"display_name" msgpack:"display_name"`
	Location    string   `json:"location" cbor:"location" msgpack:"location"`
	Logos       []string `json:"logos" cbor:"logos" msgpack:"logos"`
	Links       []Link   `json:"links" cbor:"links" msgpack:"links"`
	NextEvent   []Event  `json:"next_event" cbor:"next_event" msgpack:"next_event"`
}

type Article struct {
	ID          string    `json:"id" cbor:"id" msgpack:"id"`
	Headline    string    `json:"headline" cbor:"headline" msgpack:"headline"`
	Description string    `json:"description" cbor:"description" msgpack:"description"`
	Published   time.Time `json:"published" cbor:"published" msgpack:"published"`
	Images      []string  `json:"images" cbor:"images" msgpack:"images"`
	Category    string    `json:"category,omitempty" cbor:"category,omitempty" msgpack:"category,omitempty"`
	Link        string    `json:"link,omitempty" cbor:"link,omitempty" msgpack:"link,omitempty"`
}

// Stat is one statistic; Value is "" when the upstream reported null.
type Stat struct {
	Type  string `json:"type" cbor:"type" msgpack:"type"`
	Value string `json:"value" cbor:"value" msgpack:"value"`
}

type TeamStats struct {
	Team  TeamRef `json:"team" cbor:"team" msgpack:"team"`
	Stats []Stat  `json:"stats" cbor:"stats" msgpack:"stats"`
}

// Value returns the statistic named typ, or "".
func (ts TeamStats) Value(typ string) string {
	for _, s := range ts.Stats {
		if s.Type == typ {
			return s.Value
		}
	}
	return ""
}

type Coach struct {
	ID    int64  `json:"id" cbor:"id" msgpack:"id"`
	Name  string `json:"name" cbor:"name" msgpack:"name"`
	Photo string `json:"photo" cbor:"photo" msgpack:"photo"`
}

type Player struct {
	ID     int64  `json:"id" cbor:"id" msgpack:"id"`
	Name   string `json:"name" cbor:"name" msgpack:"name"`
	Number int    `json:"number" cbor:"number" msgpack:"number"`
	Pos    string `json:"pos" cbor:"pos" msgpack:"pos"`
}

type Lineup struct {
	Team        TeamRef  `json:"team" cbor:"team" msgpack:"team"`
	Formation   string   `json:"formation" cbor:"formation" msgpack:"formation"`
	Coach       Coach    `json:"coach" cbor:"coach" msgpack:"coach"`
	StartXI     []Player `json:"start_xi" cbor:"start_xi" msgpack:"start_xi"`
	Substitutes []Player `json:"substitutes" cbor:"substitutes" msgpack:"substitutes"`
}

// FixtureDetail is the match page: the fixture plus both teams' statistics and
// the lineups (home first when published).
type FixtureDetail struct {
	Fixture   Fixture   `json:"fixture"`
	HomeStats TeamStats `json:"home_stats"`
	AwayStats TeamStats `json:"away_stats"`
	Lineups   []Lineup  `json:"lineups"`
	// Stale is set when any part came from an out-of-date entry.
	Stale bool `json:"stale"`
}
