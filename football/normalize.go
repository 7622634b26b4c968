package football

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEnvelope = errors.New("football: unexpected response envelope")
	ErrUpstream = errors.New("football: upstream reported errors")
)

// flexID accepts ids sent as JSON strings or numbers.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("football: id %s: %w", b, err)
	}
	*id = flexID(n.String())
	return nil
}

// flexTime accepts RFC 3339 timestamps and treats ""/null as zero.
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00"} {
		if v, err := time.Parse(layout, s); err == nil {
			*t = flexTime(v.UTC())
			return nil
		}
	}
	return fmt.Errorf("football: bad timestamp %q", s)
}

// flexURL accepts either a plain string or an object with an href/url field.
type flexURL string

func (u *flexURL) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*u = flexURL(s)
		return nil
	}
	var obj struct {
		Href string `json:"href"`
		URL  string `json:"url"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*u = flexURL(obj.Href)
	if *u == "" {
		*u = flexURL(obj.URL)
	}
	return nil
}

func urls(in []flexURL) []string {
	out := make([]string, 0, len(in))
	for _, u := range in {
		if u != "" {
			out = append(out, string(u))
		}
	}
	return out
}

// envelope is the api-football wrapper. errors is [] when fine and an
// object of messages otherwise.
type envelope[T any] struct {
	Errors   json.RawMessage `json:"errors"`
	Response *T              `json:"response"`
}

func unwrap[T any](raw []byte) (T, error) {
	var zero T
	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	if msg := upstreamErrors(env.Errors); msg != "" {
		return zero, fmt.Errorf("%w: %s", ErrUpstream, msg)
	}
	if env.Response == nil {
		return zero, fmt.Errorf("%w: missing response", ErrEnvelope)
	}
	return *env.Response, nil
}

func upstreamErrors(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err == nil && len(m) > 0 {
		parts := make([]string, 0, len(m))
		for k, v := range m {
			parts = append(parts, k+": "+v)
		}
		return strings.Join(parts, "; ")
	}
	var l []string
	if err := json.Unmarshal(raw, &l); err == nil && len(l) > 0 {
		return strings.Join(l, "; ")
	}
	return ""
}

type rawTeam struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

func (t rawTeam) ref() TeamRef { return TeamRef{ID: t.ID, Name: t.Name, Logo: t.Logo} }

type rawFixture struct {
	Fixture struct {
		ID    int64    `json:"id"`
		Date  flexTime `json:"date"`
		Venue struct {
			Name string `json:"name"`
		} `json:"venue"`
		Status struct {
			Long  string `json:"long"`
			Short string `json:"short"`
		} `json:"status"`
	} `json:"fixture"`
	Teams struct {
		Home rawTeam `json:"home"`
		Away rawTeam `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

// NormalizeFixtures projects /v3/fixtures into flat fixtures, keeping team ids
// for the statistics lookups.
func NormalizeFixtures(raw []byte) ([]Fixture, error) {
	rows, err := unwrap[[]rawFixture](raw)
	if err != nil {
		return nil, err
	}
	out := make([]Fixture, 0, len(rows))
	for _, r := range rows {
		out = append(out, Fixture{
			ID:          r.Fixture.ID,
			Date:        time.Time(r.Fixture.Date),
			Home:        Side{ID: r.Teams.Home.ID, Name: r.Teams.Home.Name, Logo: r.Teams.Home.Logo, Score: r.Goals.Home},
			Away:        Side{ID: r.Teams.Away.ID, Name: r.Teams.Away.Name, Logo: r.Teams.Away.Logo, Score: r.Goals.Away},
			Venue:       r.Fixture.Venue.Name,
			Status:      r.Fixture.Status.Long,
			StatusShort: r.Fixture.Status.Short,
		})
	}
	return out, nil
}

type rawStanding struct {
	Rank      int     `json:"rank"`
	Team      rawTeam `json:"team"`
	Points    int     `json:"points"`
	GoalsDiff int     `json:"goalsDiff"`
	Form      string  `json:"form"`
	All       struct {
		Played int `json:"played"`
		Win    int `json:"win"`
		Draw   int `json:"draw"`
		Lose   int `json:"lose"`
		Goals  struct {
			For     int `json:"for"`
			Against int `json:"against"`
		} `json:"goals"`
	} `json:"all"`
}

type rawLeague struct {
	League struct {
		Standings [][]rawStanding `json:"standings"`
	} `json:"league"`
}

// NormalizeStandings takes the first table of the first league in the
// response (response[0].league.standings[0]).
func NormalizeStandings(raw []byte) ([]Standing, error) {
	leagues, err := unwrap[[]rawLeague](raw)
	if err != nil {
		return nil, err
	}
	if len(leagues) == 0 || len(leagues[0].League.Standings) == 0 {
		return nil, fmt.Errorf("%w: no standings table", ErrEnvelope)
	}
	rows := leagues[0].League.Standings[0]
	out := make([]Standing, 0, len(rows))
	for _, r := range rows {
		out = append(out, Standing{
			Rank:         r.Rank,
			Team:         r.Team.ref(),
			Played:       r.All.Played,
			Win:          r.All.Win,
			Draw:         r.All.Draw,
			Lose:         r.All.Lose,
			GoalsFor:     r.All.Goals.For,
			GoalsAgainst: r.All.Goals.Against,
			GoalsDiff:    r.GoalsDiff,
			Points:       r.Points,
			Form:         lastN(r.Form, 5),
		})
	}
	return out, nil
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

type rawEPLTeam struct {
	ID           flexID    `json:"id"`
	DisplayName  string    `json:"displayName"`
	Abbreviation string    `json:"abbreviation"`
	Logos        []flexURL `json:"logos"`
}

// NormalizeTeams maps the /team/list array.
func NormalizeTeams(raw []byte) ([]Team, error) {
	var rows []rawEPLTeam
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	if rows == nil {
		return nil, fmt.Errorf("%w: null team list", ErrEnvelope)
	}
	out := make([]Team, 0, len(rows))
	for _, r := range rows {
		out = append(out, Team{
			ID:          string(r.ID),
			DisplayName: r.DisplayName,
			Abbrev:      r.Abbreviation,
			Logos:       urls(r.Logos),
		})
	}
	return out, nil
}

type rawTeamInfo struct {
	ID          flexID    `json:"id"`
	DisplayName string    `json:"displayName"`
	Location    string    `json:"location"`
	Logos       []flexURL `json:"logos"`
	Links       []struct {
		Href        string `json:"href"`
		Description string `json:"description"`
		Text        string `json:"text"`
	} `json:"links"`
	NextEvent []struct {
		Name string   `json:"name"`
		Date flexTime `json:"date"`
	} `json:"nextEvent"`
}

// NormalizeTeamInfo maps /team/info.
func NormalizeTeamInfo(raw []byte) (TeamInfo, error) {
	var r rawTeamInfo
	if err := json.Unmarshal(raw, &r); err != nil {
		return TeamInfo{}, fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	if r.ID == "" && r.DisplayName == "" {
		return TeamInfo{}, fmt.Errorf("%w: empty team", ErrEnvelope)
	}
	ti := TeamInfo{
		ID:          string(r.ID),
		DisplayName: r.DisplayName,
		Location:    r.Location,
		Logos:       urls(r.Logos),
		Links:       make([]Link, 0, len(r.Links)),
		NextEvent:   make([]Event, 0, len(r.NextEvent)),
	}
	for _, l := range r.Links {
		desc := l.Description
		if desc == "" {
			desc = l.Text
		}
		ti.Links = append(ti.Links, Link{Href: l.Href, Description: desc})
	}
	for _, e := range r.NextEvent {
		ti.NextEvent = append(ti.NextEvent, Event{Name: e.Name, Date: time.Time(e.Date)})
	}
	return ti, nil
}

type rawArticle struct {
	ID          flexID    `json:"id"`
	Headline    string    `json:"headline"`
	Description string    `json:"description"`
	Published   flexTime  `json:"published"`
	Images      []flexURL `json:"images"`
	Category    *struct {
		Description string `json:"description"`
	} `json:"category"`
	Link flexURL `json:"link"`
}

// NormalizeNews maps the /news array. Articles without an id are dropped
// since they cannot be addressed.
func NormalizeNews(raw []byte) ([]Article, error) {
	var rows []rawArticle
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	if rows == nil {
		return nil, fmt.Errorf("%w: null news list", ErrEnvelope)
	}
	out := make([]Article, 0, len(rows))
	for _, r := range rows {
		if r.ID == "" {
			continue
		}
		a := Article{
			ID:          string(r.ID),
			Headline:    r.Headline,
			Description: r.Description,
			Published:   time.Time(r.Published),
			Images:      urls(r.Images),
			Link:        string(r.Link),
		}
		if r.Category != nil {
			a.Category = r.Category.Description
		}
		out = append(out, a)
	}
	return out, nil
}

type rawStatistics struct {
	Team       rawTeam `json:"team"`
	Statistics []struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"statistics"`
}

// NormalizeStatistics maps /v3/fixtures/statistics for one team. Values are
// coerced to strings ("55%", "12", "" for null). An empty response (match not
// started) is an empty TeamStats, not an error.
func NormalizeStatistics(raw []byte) (TeamStats, error) {
	rows, err := unwrap[[]rawStatistics](raw)
	if err != nil {
		return TeamStats{}, err
	}
	if len(rows) == 0 {
		return TeamStats{Stats: []Stat{}}, nil
	}
	r := rows[0]
	ts := TeamStats{Team: r.Team.ref(), Stats: make([]Stat, 0, len(r.Statistics))}
	for _, s := range r.Statistics {
		ts.Stats = append(ts.Stats, Stat{Type: s.Type, Value: statValue(s.Value)})
	}
	return ts, nil
}

func statValue(v json.RawMessage) string {
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(v)
}

type rawPlayer struct {
	Player struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Number int    `json:"number"`
		Pos    string `json:"pos"`
	} `json:"player"`
}

type rawLineup struct {
	Team      rawTeam `json:"team"`
	Formation string  `json:"formation"`
	Coach     struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Photo string `json:"photo"`
	} `json:"coach"`
	StartXI     []rawPlayer `json:"startXI"`
	Substitutes []rawPlayer `json:"substitutes"`
}

func players(in []rawPlayer) []Player {
	out := make([]Player, 0, len(in))
	for _, p := range in {
		out = append(out, Player{ID: p.Player.ID, Name: p.Player.Name, Number: p.Player.Number, Pos: p.Player.Pos})
	}
	return out
}

// NormalizeLineups maps /v3/fixtures/lineups; the upstream lists the home
// team first.
func NormalizeLineups(raw []byte) ([]Lineup, error) {
	rows, err := unwrap[[]rawLineup](raw)
	if err != nil {
		return nil, err
	}
	out := make([]Lineup, 0, len(rows))
	for _, r := range rows {
		out = append(out, Lineup{
			Team:        r.Team.ref(),
			Formation:   r.Formation,
			Coach:       Coach{ID: r.Coach.ID, Name: r.Coach.Name, Photo: r.Coach.Photo},
			StartXI:     players(r.StartXI),
			Substitutes: players(r.Substitutes),
		})
	}
	return out, nil
}
