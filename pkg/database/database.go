package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of pgxpool.Pool the stores depend on. pgxmock's
// PgxPoolIface satisfies it too, which keeps store tests off the network.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Client holds the database connection pool
type Client struct {
	Pool    Pool
	closeFn func()
}

// NewClient creates a new database client and applies migrations
func NewClient(ctx context.Context, databaseURL string) (*Client, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed parsing database URL: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed opening connection to postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed pinging postgres: %w", err)
	}

	c := &Client{Pool: pool, closeFn: pool.Close}

	if err := c.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed creating schema resources: %w", err)
	}

	return c, nil
}

// Close closes the database connection
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// Ping checks if the database is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.Pool.Ping(ctx)
}

// Migrate applies the idempotent schema DDL.
func (c *Client) Migrate(ctx context.Context) error {
	_, err := c.Pool.Exec(ctx, migration)
	return err
}

const migration = `
CREATE TABLE IF NOT EXISTS agents (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	handle        TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT 'agent',
	online        BOOLEAN NOT NULL DEFAULT false,
	password_hash TEXT NOT NULL DEFAULT '',
	last_seen_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leads (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name              TEXT NOT NULL,
	contact           TEXT NOT NULL,
	problem           TEXT NOT NULL,
	recovery          BOOLEAN NOT NULL DEFAULT false,
	status            TEXT NOT NULL DEFAULT 'available',
	assigned_agent_id TEXT REFERENCES agents(id),
	payload           JSONB,
	source_file       TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	assigned_at       TIMESTAMPTZ,
	confirmed_at      TIMESTAMPTZ,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS distribution_configs (
	agent_id   TEXT PRIMARY KEY REFERENCES agents(id),
	weight     INTEGER NOT NULL DEFAULT 0,
	category   TEXT NOT NULL DEFAULT 'both',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS lead_assignments (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lead_id    TEXT NOT NULL REFERENCES leads(id),
	agent_id   TEXT NOT NULL REFERENCES agents(id),
	method     TEXT NOT NULL,
	algorithm  TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS system_configs (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS online_sessions (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	agent_id   TEXT NOT NULL REFERENCES agents(id),
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_leads_status_created ON leads(status, created_at);
CREATE INDEX IF NOT EXISTS idx_leads_agent ON leads(assigned_agent_id);
CREATE INDEX IF NOT EXISTS idx_assignments_created ON lead_assignments(created_at);
CREATE INDEX IF NOT EXISTS idx_assignments_agent ON lead_assignments(agent_id);
CREATE INDEX IF NOT EXISTS idx_agents_online ON agents(online, last_seen_at);
CREATE INDEX IF NOT EXISTS idx_sessions_agent_open ON online_sessions(agent_id) WHERE ended_at IS NULL;
`
