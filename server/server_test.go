package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/football"
)

// fakeData answers from canned results.
type fakeData struct {
	fixtures swrcache.Result[[]football.Fixture]
	detail   swrcache.Result[football.FixtureDetail]
	table    swrcache.Result[[]football.Standing]
	teams    swrcache.Result[[]football.Team]
	info     swrcache.Result[football.TeamInfo]
	news     swrcache.Result[[]football.Article]
	article  swrcache.Result[football.Article]

	league, season int
	gotDetail      int64
	gotTeam        string
}

func (f *fakeData) League() int { return 39 }
func (f *fakeData) Season() int { return 2024 }

func (f *fakeData) Fixtures(ctx context.Context) swrcache.Result[[]football.Fixture] {
	return f.FixturesFor(ctx, 39, 2024)
}

func (f *fakeData) FixturesFor(_ context.Context, league, season int) swrcache.Result[[]football.Fixture] {
	f.league, f.season = league, season
	return f.fixtures
}

func (f *fakeData) FixtureDetail(_ context.Context, id int64) swrcache.Result[football.FixtureDetail] {
	f.gotDetail = id
	return f.detail
}

func (f *fakeData) Standings(context.Context) swrcache.Result[[]football.Standing] { return f.table }
func (f *fakeData) Teams(context.Context) swrcache.Result[[]football.Team]         { return f.teams }

func (f *fakeData) TeamInfo(_ context.Context, id string) swrcache.Result[football.TeamInfo] {
	f.gotTeam = id
	return f.info
}

func (f *fakeData) News(context.Context) swrcache.Result[[]football.Article] { return f.news }

func (f *fakeData) Article(context.Context, string) swrcache.Result[football.Article] {
	return f.article
}

type body struct {
	Data     json.RawMessage `json:"data"`
	Origin   string          `json:"origin"`
	Stale    bool            `json:"stale"`
	StoredAt *time.Time      `json:"stored_at"`
	Error    string          `json:"error"`
	Warning  string          `json:"warning"`
}

func get(t *testing.T, s *Server, target string) (*httptest.ResponseRecorder, body) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var b body
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b), rec.Body.String())
	}
	return rec, b
}

var storedAt = time.Date(2024, 8, 16, 18, 0, 0, 0, time.UTC)

func sampleFixtures() []football.Fixture {
	return []football.Fixture{
		{ID: 1, Date: time.Date(2024, 8, 16, 19, 0, 0, 0, time.UTC)},
		{ID: 2, Date: time.Date(2024, 8, 24, 14, 0, 0, 0, time.UTC)},
	}
}

func TestFixturesHit(t *testing.T) {
	d := &fakeData{fixtures: swrcache.Result[[]football.Fixture]{Value: sampleFixtures(), Origin: swrcache.OriginCache, StoredAt: storedAt}}
	rec, b := get(t, New(d), "/v1/fixtures")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get(headerCache))
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
	assert.Equal(t, "cache", b.Origin)
	assert.False(t, b.Stale)
	require.NotNil(t, b.StoredAt)
	assert.True(t, b.StoredAt.Equal(storedAt))

	var got []football.Fixture
	require.NoError(t, json.Unmarshal(b.Data, &got))
	assert.Len(t, got, 2)
	assert.Equal(t, 39, d.league)
	assert.Equal(t, 2024, d.season)
}

func TestFixturesWeekFilterAndParams(t *testing.T) {
	d := &fakeData{fixtures: swrcache.Result[[]football.Fixture]{Value: sampleFixtures(), Origin: swrcache.OriginNetwork}}
	now := func() time.Time { return time.Date(2024, 8, 22, 10, 0, 0, 0, time.UTC) }
	s := New(d, WithClock(now))

	rec, b := get(t, s, "/v1/fixtures?league=140&season=2023&week=2024-08-14")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get(headerCache))
	assert.Equal(t, 140, d.league)
	assert.Equal(t, 2023, d.season)
	var got []football.Fixture
	require.NoError(t, json.Unmarshal(b.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	_, b = get(t, s, "/v1/fixtures?week=current")
	require.NoError(t, json.Unmarshal(b.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestBadParams(t *testing.T) {
	s := New(&fakeData{})
	for _, target := range []string{
		"/v1/fixtures?league=abc",
		"/v1/fixtures?season=-1",
		"/v1/fixtures?week=yesterday",
		"/v1/fixtures/abc",
		"/v1/fixtures/0",
	} {
		rec, b := get(t, s, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.NotEmpty(t, b.Error, target)
	}
}

func TestStaleWithRefreshError(t *testing.T) {
	d := &fakeData{table: swrcache.Result[[]football.Standing]{
		Value:  []football.Standing{{Rank: 1}},
		Origin: swrcache.OriginCache,
		Stale:  true,
		Err:    errors.New("upstream timeout"),
	}}
	rec, b := get(t, New(d), "/v1/standings")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "STALE", rec.Header().Get(headerCache))
	assert.True(t, b.Stale)
	assert.Equal(t, "upstream timeout", b.Error)
}

func TestNetworkFailureNothingCached(t *testing.T) {
	err := &swrcache.FetchError{Key: "teams:20", Kind: swrcache.KindNetwork, Err: errors.New("dial tcp: refused")}
	d := &fakeData{teams: swrcache.Result[[]football.Team]{Origin: swrcache.OriginNetwork, Stale: true, Err: err}}
	rec, b := get(t, New(d), "/v1/teams")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, rec.Header().Get(headerCache))
	assert.Equal(t, "null", string(b.Data))
	assert.Contains(t, b.Error, "refused")
}

func TestUnknownIDs(t *testing.T) {
	d := &fakeData{
		detail:  swrcache.Result[football.FixtureDetail]{Err: football.ErrUnknownFixture},
		article: swrcache.Result[football.Article]{Err: football.ErrUnknownArticle},
	}
	s := New(d)

	rec, _ := get(t, s, "/v1/fixtures/777")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, int64(777), d.gotDetail)

	rec, _ = get(t, s, "/v1/news/x")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClosedIsUnavailable(t *testing.T) {
	d := &fakeData{news: swrcache.Result[[]football.Article]{Err: swrcache.ErrClosed}}
	rec, _ := get(t, New(d), "/v1/news")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTeamInfoWarning(t *testing.T) {
	d := &fakeData{info: swrcache.Result[football.TeamInfo]{
		Value:  football.TeamInfo{ID: "359", DisplayName: "Arsenal"},
		Origin: swrcache.OriginNetwork,
		Warn:   errors.New("store full"),
	}}
	rec, b := get(t, New(d), "/v1/teams/359")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "359", d.gotTeam)
	assert.Equal(t, "store full", b.Warning)
	assert.Equal(t, "network", b.Origin)
}

func TestRequestIDPropagates(t *testing.T) {
	s := New(&fakeData{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "abc-123")
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get(headerRequestID))
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "swrcache_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	rec := httptest.NewRecorder()
	New(&fakeData{}, WithMetrics(reg)).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "swrcache_test_total 1")

	rec = httptest.NewRecorder()
	New(&fakeData{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartAndShutdown(t *testing.T) {
	s := New(&fakeData{}, WithAddress("127.0.0.1:0"), WithShutdownTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
