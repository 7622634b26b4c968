// Package postgres persists cache entries in a PostgreSQL table through
// database/sql and lib/pq. Each key is one row; Set is a single upsert, so a
// reader sees the old row or the new one.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

var (
	ErrMissingDSN = errors.New("postgres: DSN is required")
	ErrNilDB      = errors.New("postgres: db is nil")
)

type statements struct {
	create string
	get    string
	upsert string
	del    string
	sweep  string
}

func buildStatements(table string) statements {
	t := pq.QuoteIdentifier(table)
	return statements{
		create: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    expires_at TIMESTAMPTZ NULL
)`, t),
		get: fmt.Sprintf(`SELECT value FROM %s WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`, t),
		upsert: fmt.Sprintf(`INSERT INTO %s (key, value, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`, t),
		del:   fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, t),
		sweep: fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= now()`, t),
	}
}

type Provider struct {
	db      *sql.DB
	stmts   statements
	ownsDB  bool
	nowFunc func() time.Time
}

var _ pr.Provider = (*Provider)(nil)

// Open connects using opts, applies pool settings and creates the table.
// The returned provider owns the connection pool.
func Open(ctx context.Context, opts ...Option) (*Provider, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.DSN == "" {
		return nil, ErrMissingDSN
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	p := &Provider{db: db, stmts: buildStatements(cfg.Table), ownsDB: true, nowFunc: time.Now}
	if err := p.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// New wraps an existing pool. The caller keeps ownership of db and should call
// Migrate once.
func New(db *sql.DB, table string) (*Provider, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if table == "" {
		table = defaultOptions().Table
	}
	return &Provider{db: db, stmts: buildStatements(table), nowFunc: time.Now}, nil
}

// Migrate creates the entry table if it does not exist.
func (p *Provider) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, p.stmts.create); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := p.db.QueryRowContext(ctx, p.stmts.get, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, translate(err)
	}
	return v, true, nil
}

func (p *Provider) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var exp sql.NullTime
	if ttl > 0 {
		exp = sql.NullTime{Time: p.nowFunc().Add(ttl).UTC(), Valid: true}
	}
	if _, err := p.db.ExecContext(ctx, p.stmts.upsert, key, value, exp); err != nil {
		return false, translate(err)
	}
	return true, nil
}

func (p *Provider) Del(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, p.stmts.del, key)
	return translate(err)
}

// Sweep deletes expired rows and reports how many were removed.
func (p *Provider) Sweep(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, p.stmts.sweep)
	if err != nil {
		return 0, translate(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (p *Provider) Close(_ context.Context) error {
	if p.ownsDB {
		return p.db.Close()
	}
	return nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("postgres: %s (%s): %w", pqErr.Code.Name(), pqErr.Code, err)
	}
	return fmt.Errorf("postgres: %w", err)
}
