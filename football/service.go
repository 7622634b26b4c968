package football

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/lease"
	pr "github.com/unkn0wn-root/swrcache/provider"
	"github.com/unkn0wn-root/swrcache/transport"
)

var (
	ErrUnknownFixture = errors.New("football: unknown fixture")
	ErrUnknownArticle = errors.New("football: unknown article")
)

// TTLs is the freshness window per resource.
type TTLs struct {
	Fixtures  time.Duration
	Standings time.Duration
	Teams     time.Duration
	TeamInfo  time.Duration
	News      time.Duration
	Stats     time.Duration
	Lineups   time.Duration
}

func (t TTLs) withDefaults() TTLs {
	def := func(v, d time.Duration) time.Duration {
		if v <= 0 {
			return d
		}
		return v
	}
	return TTLs{
		Fixtures:  def(t.Fixtures, 5*time.Minute),
		Standings: def(t.Standings, 10*time.Minute),
		Teams:     def(t.Teams, 24*time.Hour),
		TeamInfo:  def(t.TeamInfo, 5*time.Minute),
		News:      def(t.News, 15*time.Minute),
		Stats:     def(t.Stats, time.Minute),
		Lineups:   def(t.Lineups, 10*time.Minute),
	}
}

type Config struct {
	League     int // 39 is the Premier League
	Season     int
	TeamsLimit int // default 20
	TTL        TTLs

	Codec     string // json | cbor | msgpack
	Compress  bool
	MaxDecode int

	Lease          lease.Lease
	LeaseTTL       time.Duration
	Retention      time.Duration
	RefreshTimeout time.Duration
	Disabled       bool

	Logger swrcache.Logger
	Hooks  swrcache.Hooks
	Now    func() time.Time
}

// Service holds one fetcher per upstream resource over a shared provider.
// Build it once at startup and Close it on exit.
type Service struct {
	api      API
	cfg      Config
	ttl      TTLs
	provider pr.Provider

	fixtures  swrcache.Fetcher[[]Fixture]
	standings swrcache.Fetcher[[]Standing]
	teams     swrcache.Fetcher[[]Team]
	teamInfo  swrcache.Fetcher[TeamInfo]
	news      swrcache.Fetcher[[]Article]
	stats     swrcache.Fetcher[TeamStats]
	lineups   swrcache.Fetcher[[]Lineup]

	closeOnce sync.Once
}

func newFetcher[V any](ns string, p pr.Provider, t transport.Transport, cfg Config, norm swrcache.Normalizer[V]) (swrcache.Fetcher[V], error) {
	cd, err := codec.ForName[V](cfg.Codec, cfg.Compress, cfg.MaxDecode)
	if err != nil {
		return nil, err
	}
	return swrcache.New(swrcache.Options[V]{
		Namespace:      ns,
		Provider:       p,
		Transport:      t,
		Codec:          cd,
		Normalize:      norm,
		Logger:         cfg.Logger,
		Hooks:          cfg.Hooks,
		Lease:          cfg.Lease,
		LeaseTTL:       cfg.LeaseTTL,
		Retention:      cfg.Retention,
		RefreshTimeout: cfg.RefreshTimeout,
		Now:            cfg.Now,
		Disabled:       cfg.Disabled,
		LeaveOpen:      true,
	})
}

// NewService builds the fetchers. The service takes ownership of p and
// cfg.Lease and closes them in Close.
func NewService(p pr.Provider, t transport.Transport, api API, cfg Config) (*Service, error) {
	if cfg.League == 0 || cfg.Season == 0 {
		return nil, fmt.Errorf("football: league and season are required")
	}
	if cfg.TeamsLimit <= 0 {
		cfg.TeamsLimit = 20
	}
	s := &Service{api: api, cfg: cfg, ttl: cfg.TTL.withDefaults(), provider: p}

	var err error
	if s.fixtures, err = newFetcher[[]Fixture]("fixtures", p, t, cfg, NormalizeFixtures); err != nil {
		return nil, err
	}
	if s.standings, err = newFetcher[[]Standing]("standings", p, t, cfg, NormalizeStandings); err != nil {
		return nil, err
	}
	if s.teams, err = newFetcher[[]Team]("teams", p, t, cfg, NormalizeTeams); err != nil {
		return nil, err
	}
	if s.teamInfo, err = newFetcher[TeamInfo]("teaminfo", p, t, cfg, NormalizeTeamInfo); err != nil {
		return nil, err
	}
	if s.news, err = newFetcher[[]Article]("news", p, t, cfg, NormalizeNews); err != nil {
		return nil, err
	}
	if s.stats, err = newFetcher[TeamStats]("stats", p, t, cfg, NormalizeStatistics); err != nil {
		return nil, err
	}
	if s.lineups, err = newFetcher[[]Lineup]("lineups", p, t, cfg, NormalizeLineups); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) League() int { return s.cfg.League }
func (s *Service) Season() int { return s.cfg.Season }

func (s *Service) Fixtures(ctx context.Context) swrcache.Result[[]Fixture] {
	return s.FixturesFor(ctx, s.cfg.League, s.cfg.Season)
}

func (s *Service) FixturesFor(ctx context.Context, league, season int) swrcache.Result[[]Fixture] {
	return s.fixtures.Get(ctx, FixturesKey(league, season), s.api.Fixtures(league, season), s.ttl.Fixtures)
}

// FixturesForWeek returns the configured league's fixtures of the week
// containing ref.
func (s *Service) FixturesForWeek(ctx context.Context, ref time.Time) swrcache.Result[[]Fixture] {
	r := s.Fixtures(ctx)
	if r.HasValue() {
		r.Value = FilterWeek(r.Value, WeekOf(ref))
	}
	return r
}

// LoadFixtures streams both emissions (cached, then refreshed) for callers
// that render twice.
func (s *Service) LoadFixtures(ctx context.Context) <-chan swrcache.Result[[]Fixture] {
	l, y := s.cfg.League, s.cfg.Season
	return s.fixtures.Load(ctx, FixturesKey(l, y), s.api.Fixtures(l, y), s.ttl.Fixtures)
}

func (s *Service) Standings(ctx context.Context) swrcache.Result[[]Standing] {
	l, y := s.cfg.League, s.cfg.Season
	return s.standings.Get(ctx, StandingsKey(l, y), s.api.Standings(l, y), s.ttl.Standings)
}

func (s *Service) Teams(ctx context.Context) swrcache.Result[[]Team] {
	n := s.cfg.TeamsLimit
	return s.teams.Get(ctx, TeamsKey(n), s.api.Teams(n), s.ttl.Teams)
}

func (s *Service) TeamInfo(ctx context.Context, id string) swrcache.Result[TeamInfo] {
	return s.teamInfo.Get(ctx, TeamKey(id), s.api.TeamInfo(id), s.ttl.TeamInfo)
}

func (s *Service) News(ctx context.Context) swrcache.Result[[]Article] {
	return s.news.Get(ctx, NewsKey(), s.api.News(), s.ttl.News)
}

// Article looks id up in the news list. An id that is not in the list yields a
// result without a value and ErrUnknownArticle.
func (s *Service) Article(ctx context.Context, id string) swrcache.Result[Article] {
	list := s.News(ctx)
	if !list.HasValue() {
		return swrcache.Result[Article]{Origin: list.Origin, Stale: list.Stale, Err: list.Err}
	}
	for _, a := range list.Value {
		if a.ID == id {
			return swrcache.Result[Article]{
				Value:    a,
				Origin:   list.Origin,
				Stale:    list.Stale,
				StoredAt: list.StoredAt,
				Err:      list.Err,
				Warn:     list.Warn,
			}
		}
	}
	return swrcache.Result[Article]{Err: fmt.Errorf("%w: %s", ErrUnknownArticle, id)}
}

// FixtureDetail resolves the fixture from the fixtures list (team ids are
// needed by the statistics endpoint), then loads both teams' statistics and
// the lineups concurrently. Failures of the parts are reported in Warn; only a
// missing fixture fails the whole result.
func (s *Service) FixtureDetail(ctx context.Context, id int64) swrcache.Result[FixtureDetail] {
	list := s.Fixtures(ctx)
	if !list.HasValue() {
		return swrcache.Result[FixtureDetail]{Origin: list.Origin, Stale: list.Stale, Err: list.Err}
	}
	var fx Fixture
	found := false
	for _, f := range list.Value {
		if f.ID == id {
			fx, found = f, true
			break
		}
	}
	if !found {
		return swrcache.Result[FixtureDetail]{Err: fmt.Errorf("%w: %d", ErrUnknownFixture, id)}
	}

	var (
		home, away swrcache.Result[TeamStats]
		lineups    swrcache.Result[[]Lineup]
		g          errgroup.Group
	)
	g.Go(func() error {
		home = s.stats.Get(ctx, StatsKey(id, fx.Home.ID), s.api.Statistics(id, fx.Home.ID), s.ttl.Stats)
		return nil
	})
	g.Go(func() error {
		away = s.stats.Get(ctx, StatsKey(id, fx.Away.ID), s.api.Statistics(id, fx.Away.ID), s.ttl.Stats)
		return nil
	})
	g.Go(func() error {
		lineups = s.lineups.Get(ctx, LineupsKey(id), s.api.Lineups(id), s.ttl.Lineups)
		return nil
	})
	_ = g.Wait()

	d := FixtureDetail{
		Fixture:   fx,
		HomeStats: home.Value,
		AwayStats: away.Value,
		Lineups:   lineups.Value,
		Stale:     list.Stale || home.Stale || away.Stale || lineups.Stale,
	}
	if d.Lineups == nil {
		d.Lineups = []Lineup{}
	}
	out := swrcache.Result[FixtureDetail]{
		Value:    d,
		Origin:   list.Origin,
		Stale:    d.Stale,
		StoredAt: list.StoredAt,
		Err:      list.Err,
	}
	out.Warn = errors.Join(list.Warn, partErr(home.Err, home.Warn), partErr(away.Err, away.Warn), partErr(lineups.Err, lineups.Warn))
	return out
}

func partErr(err, warn error) error {
	if err != nil {
		return err
	}
	return warn
}

// Warm refreshes the list resources: fixtures, standings, teams and news.
func (s *Service) Warm(ctx context.Context, parallelism int) error {
	l, y, n := s.cfg.League, s.cfg.Season, s.cfg.TeamsLimit
	var (
		g    errgroup.Group
		errs [4]error
	)
	g.Go(func() error {
		errs[0] = s.fixtures.Prefetch(ctx, []swrcache.Job{{Key: FixturesKey(l, y), Request: s.api.Fixtures(l, y), TTL: s.ttl.Fixtures}}, parallelism)
		return nil
	})
	g.Go(func() error {
		errs[1] = s.standings.Prefetch(ctx, []swrcache.Job{{Key: StandingsKey(l, y), Request: s.api.Standings(l, y), TTL: s.ttl.Standings}}, parallelism)
		return nil
	})
	g.Go(func() error {
		errs[2] = s.teams.Prefetch(ctx, []swrcache.Job{{Key: TeamsKey(n), Request: s.api.Teams(n), TTL: s.ttl.Teams}}, parallelism)
		return nil
	})
	g.Go(func() error {
		errs[3] = s.news.Prefetch(ctx, []swrcache.Job{{Key: NewsKey(), Request: s.api.News(), TTL: s.ttl.News}}, parallelism)
		return nil
	})
	_ = g.Wait()
	return errors.Join(errs[:]...)
}

// WarmTeams prefetches the team info of every listed team.
func (s *Service) WarmTeams(ctx context.Context, parallelism int) error {
	teams := s.Teams(ctx)
	if !teams.HasValue() {
		return teams.Err
	}
	jobs := make([]swrcache.Job, 0, len(teams.Value))
	for _, t := range teams.Value {
		jobs = append(jobs, swrcache.Job{Key: TeamKey(t.ID), Request: s.api.TeamInfo(t.ID), TTL: s.ttl.TeamInfo})
	}
	return s.teamInfo.Prefetch(ctx, jobs, parallelism)
}

// Close closes every fetcher, then the lease and the provider.
func (s *Service) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		errs := []error{
			s.fixtures.Close(ctx),
			s.standings.Close(ctx),
			s.teams.Close(ctx),
			s.teamInfo.Close(ctx),
			s.news.Close(ctx),
			s.stats.Close(ctx),
			s.lineups.Close(ctx),
		}
		if s.cfg.Lease != nil {
			errs = append(errs, s.cfg.Lease.Close(ctx))
		}
		errs = append(errs, s.provider.Close(ctx))
		err = errors.Join(errs...)
	})
	return err
}
