package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Client is a pooled Message DB client. Each operation checks out a
// connection, runs a single transaction and commits before release —
// write_message takes an advisory lock that is only released on commit.
type Client struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewClient creates a connection pool and verifies connectivity.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Message DB client connected",
		"host", cfg.Host, "port", cfg.Port, "database", cfg.Database)

	return &Client{pool: pool, cfg: cfg}, nil
}

// Close releases the connection pool.
func (c *Client) Close() {
	c.pool.Close()
}

// HealthCheck verifies connectivity and that the Message DB functions
// are installed.
func (c *Client) HealthCheck(ctx context.Context) error {
	var one int
	if err := c.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return &StoreError{Op: "health", Err: err}
	}

	var hasWriteMessage bool
	err := c.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_proc WHERE proname = 'write_message')",
	).Scan(&hasWriteMessage)
	if err != nil {
		return &StoreError{Op: "health", Err: err}
	}
	if !hasWriteMessage {
		return &StoreError{Op: "health", Err: fmt.Errorf("write_message function not found — is Message DB installed?")}
	}
	return nil
}
