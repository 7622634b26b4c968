// Package config loads the daemon configuration: a YAML file read by viper,
// SWR_* environment overrides, and defaults for everything else.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "SWR"

type Config struct {
	Log      Log      `yaml:"log"`
	HTTP     HTTP     `yaml:"http"`
	Upstream Upstream `yaml:"upstream"`
	League   League   `yaml:"league"`
	Cache    Cache    `yaml:"cache"`
	Lease    Lease    `yaml:"lease"`
	Metrics  Metrics  `yaml:"metrics"`
	Warm     Warm     `yaml:"warm"`
}

type Log struct {
	Backend string `yaml:"backend"` // zap | logrus | zerolog | slog
	Level   string `yaml:"level"`   // debug | info | warn | error
	Format  string `yaml:"format"`  // json | console
	// Events logs fetcher events (sampled, keys redacted) next to metrics.
	Events      bool   `yaml:"events"`
	ServedEvery uint64 `yaml:"served_every"`
}

type HTTP struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Upstream struct {
	FootballBase string        `yaml:"football_base"`
	FootballHost string        `yaml:"football_host"`
	FootballKey  string        `yaml:"football_key"`
	EPLBase      string        `yaml:"epl_base"`
	EPLHost      string        `yaml:"epl_host"`
	EPLKey       string        `yaml:"epl_key"`
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`
	RetryWait    time.Duration `yaml:"retry_wait"`
}

type League struct {
	ID         int `yaml:"id"`
	Season     int `yaml:"season"`
	TeamsLimit int `yaml:"teams_limit"`
}

type TTL struct {
	Fixtures  time.Duration `yaml:"fixtures"`
	Standings time.Duration `yaml:"standings"`
	Teams     time.Duration `yaml:"teams"`
	TeamInfo  time.Duration `yaml:"team_info"`
	News      time.Duration `yaml:"news"`
	Stats     time.Duration `yaml:"stats"`
	Lineups   time.Duration `yaml:"lineups"`
}

type Cache struct {
	Backend        string        `yaml:"backend"` // memory | bigcache | ristretto | redis | postgres | firestore | gcs
	Codec          string        `yaml:"codec"`   // json | cbor | msgpack
	Compress       bool          `yaml:"compress"`
	MaxDecode      int           `yaml:"max_decode"`
	Retention      time.Duration `yaml:"retention"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
	Disabled       bool          `yaml:"disabled"`
	TTL            TTL           `yaml:"ttl"`

	Memory    Memory    `yaml:"memory"`
	BigCache  BigCache  `yaml:"bigcache"`
	Ristretto Ristretto `yaml:"ristretto"`
	Redis     Redis     `yaml:"redis"`
	Postgres  Postgres  `yaml:"postgres"`
	Firestore Firestore `yaml:"firestore"`
	GCS       GCS       `yaml:"gcs"`
}

type Memory struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type BigCache struct {
	LifeWindow time.Duration `yaml:"life_window"`
	MaxMB      int           `yaml:"max_mb"`
}

type Ristretto struct {
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
}

type Redis struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type Postgres struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

type Firestore struct {
	Project    string `yaml:"project"`
	Collection string `yaml:"collection"`
}

type GCS struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

type Lease struct {
	Kind string        `yaml:"kind"` // none | local | redis
	TTL  time.Duration `yaml:"ttl"`
	// Namespace prefixes redis lease keys; replicas of one deployment share it.
	Namespace string `yaml:"namespace"`
}

type Metrics struct {
	Enabled      bool `yaml:"enabled"`
	AsyncQueue   int  `yaml:"async_queue"`
	AsyncWorkers int  `yaml:"async_workers"`
}

type Warm struct {
	OnStart     bool `yaml:"on_start"`
	Teams       bool `yaml:"teams"`
	Parallelism int  `yaml:"parallelism"`
}

var defaults = map[string]any{
	"log.backend":      "zap",
	"log.level":        "info",
	"log.format":       "json",
	"log.events":       false,
	"log.served_every": 100,

	"http.addr":             ":8080",
	"http.read_timeout":     "15s",
	"http.write_timeout":    "30s",
	"http.shutdown_timeout": "10s",

	"upstream.football_base": "https://api-football-v1.p.rapidapi.com",
	"upstream.football_host": "api-football-v1.p.rapidapi.com",
	"upstream.football_key":  "",
	"upstream.epl_base":      "https://english-premiere-league1.p.rapidapi.com",
	"upstream.epl_host":      "english-premiere-league1.p.rapidapi.com",
	"upstream.epl_key":       "",
	"upstream.timeout":       "10s",
	"upstream.retries":       1,
	"upstream.retry_wait":    "200ms",

	"league.id":          39,
	"league.season":      2024,
	"league.teams_limit": 20,

	"cache.backend":         "memory",
	"cache.codec":           "json",
	"cache.compress":        false,
	"cache.max_decode":      0,
	"cache.retention":       "168h",
	"cache.refresh_timeout": "15s",
	"cache.disabled":        false,

	"cache.ttl.fixtures":  "5m",
	"cache.ttl.standings": "10m",
	"cache.ttl.teams":     "24h",
	"cache.ttl.team_info": "5m",
	"cache.ttl.news":      "15m",
	"cache.ttl.stats":     "1m",
	"cache.ttl.lineups":   "10m",

	"cache.memory.sweep_interval":  "1m",
	"cache.bigcache.life_window":   "168h",
	"cache.bigcache.max_mb":        256,
	"cache.ristretto.num_counters": 100_000,
	"cache.ristretto.max_cost":     10_000,
	"cache.redis.addr":             "localhost:6379",
	"cache.redis.password":         "",
	"cache.redis.db":               0,
	"cache.redis.key_prefix":       "",
	"cache.postgres.dsn":           "",
	"cache.postgres.table":         "swr_entries",
	"cache.firestore.project":      "",
	"cache.firestore.collection":   "swr_entries",
	"cache.gcs.bucket":             "",
	"cache.gcs.prefix":             "swr",

	"lease.kind":      "local",
	"lease.ttl":       "0s",
	"lease.namespace": "swrcached",

	"metrics.enabled":       true,
	"metrics.async_queue":   1024,
	"metrics.async_workers": 2,

	"warm.on_start":    true,
	"warm.teams":       false,
	"warm.parallelism": 4,
}

// Load reads path (or, when path is empty, an optional swrcached.yaml in the
// working directory or /etc/swrcached), applies SWR_* overrides such as
// SWR_UPSTREAM_FOOTBALL_KEY and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("swrcached")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/swrcached")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	cfg := new(Config)
	decoderOpt := func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = true
		dc.TagName = "yaml"
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
	if err := v.Unmarshal(cfg, decoderOpt); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	backends = []string{"memory", "bigcache", "ristretto", "redis", "postgres", "firestore", "gcs"}
	codecs   = []string{"json", "cbor", "msgpack"}
	leases   = []string{"none", "local", "redis"}
	loggers  = []string{"zap", "logrus", "zerolog", "slog"}
	levels   = []string{"debug", "info", "warn", "error"}
	formats  = []string{"json", "console"}
)

func oneOf(field, v string, allowed []string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("config: %s %q must be one of %s", field, v, strings.Join(allowed, ", "))
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	add(oneOf("log.backend", c.Log.Backend, loggers))
	add(oneOf("log.level", c.Log.Level, levels))
	add(oneOf("log.format", c.Log.Format, formats))
	add(oneOf("cache.backend", c.Cache.Backend, backends))
	add(oneOf("cache.codec", c.Cache.Codec, codecs))
	add(oneOf("lease.kind", c.Lease.Kind, leases))

	if c.HTTP.Addr == "" {
		add(errors.New("config: http.addr is required"))
	}
	if c.League.ID <= 0 || c.League.Season <= 0 {
		add(errors.New("config: league.id and league.season must be positive"))
	}
	if c.Upstream.Retries < 0 {
		add(errors.New("config: upstream.retries must not be negative"))
	}
	if c.Cache.MaxDecode < 0 {
		add(errors.New("config: cache.max_decode must not be negative"))
	}

	switch c.Cache.Backend {
	case "redis":
		if c.Cache.Redis.Addr == "" {
			add(errors.New("config: cache.redis.addr is required for the redis backend"))
		}
	case "postgres":
		if c.Cache.Postgres.DSN == "" {
			add(errors.New("config: cache.postgres.dsn is required for the postgres backend"))
		}
	case "firestore":
		if c.Cache.Firestore.Project == "" {
			add(errors.New("config: cache.firestore.project is required for the firestore backend"))
		}
	case "gcs":
		if c.Cache.GCS.Bucket == "" {
			add(errors.New("config: cache.gcs.bucket is required for the gcs backend"))
		}
	}
	if c.Lease.Kind == "redis" && c.Cache.Redis.Addr == "" {
		add(errors.New("config: cache.redis.addr is required for redis leases"))
	}
	return errors.Join(errs...)
}

const redacted = "<redacted>"

// YAML renders the effective configuration with secrets redacted.
func (c Config) YAML() ([]byte, error) {
	hide := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	hide(&c.Upstream.FootballKey)
	hide(&c.Upstream.EPLKey)
	hide(&c.Cache.Redis.Password)
	hide(&c.Cache.Postgres.DSN)
	return yaml.Marshal(c)
}
