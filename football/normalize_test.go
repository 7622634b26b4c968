package football

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return b
}

func TestNormalizeFixtures(t *testing.T) {
	got, err := NormalizeFixtures(readTestdata(t, "fixtures.json"))
	require.NoError(t, err)
	require.Len(t, got, 3)

	first := got[0]
	assert.Equal(t, int64(1208021), first.ID)
	assert.True(t, first.Date.Equal(time.Date(2024, 8, 16, 19, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Manchester United", first.Home.Name)
	assert.Equal(t, int64(33), first.Home.ID)
	assert.Equal(t, int64(36), first.Away.ID)
	require.NotNil(t, first.Home.Score)
	assert.Equal(t, 1, *first.Home.Score)
	assert.Equal(t, "Old Trafford", first.Venue)
	assert.Equal(t, "Match Finished", first.Status)
	assert.Equal(t, "FT", first.StatusShort)

	assert.Nil(t, got[2].Home.Score, "not started: no score")
	assert.Nil(t, got[2].Away.Score)
}

func TestNormalizeIsPure(t *testing.T) {
	raw := readTestdata(t, "fixtures.json")
	a, err := NormalizeFixtures(raw)
	require.NoError(t, err)
	b, err := NormalizeFixtures(raw)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeEnvelopeErrors(t *testing.T) {
	_, err := NormalizeFixtures([]byte(`{"errors":[]}`))
	assert.ErrorIs(t, err, ErrEnvelope)

	_, err = NormalizeFixtures([]byte(`not json`))
	assert.ErrorIs(t, err, ErrEnvelope)

	_, err = NormalizeStandings(readTestdata(t, "upstream_error.json"))
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "Missing application key")

	_, err = NormalizeStandings([]byte(`{"errors":[],"response":[]}`))
	assert.ErrorIs(t, err, ErrEnvelope)

	_, err = NormalizeTeams([]byte(`null`))
	assert.ErrorIs(t, err, ErrEnvelope)

	_, err = NormalizeTeamInfo([]byte(`{}`))
	assert.ErrorIs(t, err, ErrEnvelope)
}

func TestNormalizeStandings(t *testing.T) {
	got, err := NormalizeStandings(readTestdata(t, "standings.json"))
	require.NoError(t, err)
	require.Len(t, got, 3)

	top := got[0]
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, TeamRef{ID: 40, Name: "Liverpool", Logo: "l40.png"}, top.Team)
	assert.Equal(t, 38, top.Played)
	assert.Equal(t, 86, top.GoalsFor)
	assert.Equal(t, 41, top.GoalsAgainst)
	assert.Equal(t, 45, top.GoalsDiff)
	assert.Equal(t, 84, top.Points)
	assert.Equal(t, "DLDWW", top.Form, "form keeps the last five")
	assert.Equal(t, "LLL", got[2].Form)

	assert.Equal(t, ZoneChampionsLeague, got[0].Zone())
	assert.Equal(t, ZoneEuropaLeague, got[1].Zone())
	assert.Equal(t, ZoneRelegation, got[2].Zone())
	assert.Equal(t, ZoneNone, Standing{Rank: 10}.Zone())
}

func TestNormalizeTeams(t *testing.T) {
	got, err := NormalizeTeams(readTestdata(t, "teams.json"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Team{ID: "359", DisplayName: "Arsenal", Abbrev: "ARS", Logos: []string{"https://a.espncdn.com/i/teamlogos/soccer/500/359.png"}}, got[0])
	assert.Equal(t, "363", got[1].ID, "numeric ids become strings")
	assert.Equal(t, []string{"https://a.espncdn.com/i/teamlogos/soccer/500/363.png"}, got[1].Logos)
}

func TestNormalizeTeamInfo(t *testing.T) {
	got, err := NormalizeTeamInfo(readTestdata(t, "teaminfo.json"))
	require.NoError(t, err)
	assert.Equal(t, "359", got.ID)
	assert.Equal(t, "Arsenal", got.DisplayName)
	require.Len(t, got.Links, 2)
	assert.Equal(t, "Clubhouse", got.Links[0].Description)
	assert.Equal(t, "Schedule", got.Links[1].Description)
	require.Len(t, got.NextEvent, 1)
	assert.True(t, got.NextEvent[0].Date.Equal(time.Date(2024, 11, 10, 16, 30, 0, 0, time.UTC)))
}

func TestNormalizeNews(t *testing.T) {
	got, err := NormalizeNews(readTestdata(t, "news.json"))
	require.NoError(t, err)
	require.Len(t, got, 2, "articles without id are dropped")

	a := got[0]
	assert.Equal(t, "42424242", a.ID)
	assert.Equal(t, "Premier League", a.Category)
	assert.Equal(t, []string{"https://img/1.jpg", "https://img/2.jpg"}, a.Images)
	assert.Equal(t, "https://www.espn.com/story/1", a.Link)
	assert.True(t, a.Published.Equal(time.Date(2025, 4, 27, 18, 2, 0, 0, time.UTC)))

	assert.True(t, got[1].Published.IsZero())
	assert.Empty(t, got[1].Images)
}

func TestNormalizeStatistics(t *testing.T) {
	got, err := NormalizeStatistics(readTestdata(t, "statistics.json"))
	require.NoError(t, err)
	assert.Equal(t, int64(33), got.Team.ID)
	assert.Equal(t, "5", got.Value("Shots on Goal"))
	assert.Equal(t, "55%", got.Value("Ball Possession"))
	assert.Equal(t, "", got.Value("Red Cards"))
	assert.Equal(t, "2.43", got.Value("expected_goals"))
	assert.Equal(t, "0.85", got.Value("Passes %"))
	assert.Equal(t, "", got.Value("missing"))

	empty, err := NormalizeStatistics([]byte(`{"errors":[],"response":[]}`))
	require.NoError(t, err)
	assert.Empty(t, empty.Stats)
}

func TestNormalizeLineups(t *testing.T) {
	got, err := NormalizeLineups(readTestdata(t, "lineups.json"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	home := got[0]
	assert.Equal(t, "3-4-2-1", home.Formation)
	assert.Equal(t, Coach{ID: 19, Name: "E. ten Hag", Photo: "c19.png"}, home.Coach)
	require.Len(t, home.StartXI, 1)
	assert.Equal(t, Player{ID: 526, Name: "A. Onana", Number: 24, Pos: "G"}, home.StartXI[0])
	require.Len(t, home.Substitutes, 1)
	assert.Empty(t, got[1].StartXI)
}
