// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"quote-engine/internal/common/config"
	"quote-engine/internal/common/errors"

	_ "github.com/lib/pq"
)

// analysisSchema holds one row per recorded comparison. The full result
// is kept as JSONB; the scalar columns support reporting queries.
const analysisSchema = `
CREATE TABLE IF NOT EXISTS quote_analyses (
    id               UUID PRIMARY KEY,
    request_id       TEXT NOT NULL,
    winner           TEXT,
    winner_total     NUMERIC(14, 2) NOT NULL DEFAULT 0,
    split_total      NUMERIC(14, 2) NOT NULL DEFAULT 0,
    savings          NUMERIC(14, 2) NOT NULL DEFAULT 0,
    savings_pct      NUMERIC(7, 2),
    issue_count      INTEGER NOT NULL,
    high_issue_count INTEGER NOT NULL,
    payload          JSONB NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_quote_analyses_request_id ON quote_analyses (request_id);
`

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens a pooled connection. Nothing is dialed until first use.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// EnsureSchema creates the analysis table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, analysisSchema); err != nil {
		return fmt.Errorf("ensure quote_analyses schema: %w", err)
	}
	return nil
}

// Ping reports an unreachable database as DATABASE_CONNECTION_FAILED.
func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
