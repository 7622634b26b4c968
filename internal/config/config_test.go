package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "swrcached.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 39, cfg.League.ID)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "json", cfg.Cache.Codec)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL.Fixtures)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL.Teams)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.Retention)
	assert.Equal(t, 200*time.Millisecond, cfg.Upstream.RetryWait)
	assert.Equal(t, "local", cfg.Lease.Kind)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadFileAndEnv(t *testing.T) {
	p := writeFile(t, `
http:
  addr: "127.0.0.1:9090"
league:
  season: "2023"
cache:
  backend: redis
  codec: cbor
  compress: true
  ttl:
    standings: 30m
  redis:
    addr: "redis:6379"
lease:
  kind: redis
`)
	t.Setenv("SWR_UPSTREAM_FOOTBALL_KEY", "secret")
	t.Setenv("SWR_CACHE_TTL_NEWS", "1h")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.HTTP.Addr)
	assert.Equal(t, 2023, cfg.League.Season, "weakly typed input")
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.True(t, cfg.Cache.Compress)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL.Standings)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL.Lineups, "unset keys keep defaults")
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, "secret", cfg.Upstream.FootballKey)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.News)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	p := writeFile(t, "cache:\n  backnd: memory\n")
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backnd")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	bad := *cfg
	bad.Cache.Backend = "sqlite"
	bad.Cache.Codec = "xml"
	bad.League.Season = 0
	err = bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.backend")
	assert.Contains(t, err.Error(), "cache.codec")
	assert.Contains(t, err.Error(), "league.id")

	pg := *cfg
	pg.Cache.Backend = "postgres"
	assert.ErrorContains(t, pg.Validate(), "cache.postgres.dsn")

	gcs := *cfg
	gcs.Cache.Backend = "gcs"
	assert.ErrorContains(t, gcs.Validate(), "cache.gcs.bucket")

	fs := *cfg
	fs.Cache.Backend = "firestore"
	assert.ErrorContains(t, fs.Validate(), "cache.firestore.project")

	lease := *cfg
	lease.Lease.Kind = "redis"
	lease.Cache.Redis.Addr = ""
	assert.ErrorContains(t, lease.Validate(), "redis leases")
}

func TestYAMLRedactsSecrets(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Upstream.FootballKey = "k1"
	cfg.Cache.Postgres.DSN = "postgres://u:p@db/x"

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "k1")
	assert.NotContains(t, string(out), "u:p@db")
	assert.Contains(t, string(out), redacted)
	assert.Equal(t, "k1", cfg.Upstream.FootballKey, "receiver is not modified")

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	cache := back["cache"].(map[string]any)
	ttl := cache["ttl"].(map[string]any)
	assert.Equal(t, "5m0s", ttl["fixtures"])
}
