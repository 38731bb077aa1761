// Package postgres builds the instrumented pgx pool shared by the stores.
package postgres

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds pool tuning flags.
type Config struct {
	MaxConns           int
	MinQueryLogMillis  int
	HealthCheckSeconds int
}

// RegisterFlags registers pool flags on fs.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.MaxConns, "db-max-conns", 8, "Maximum open database connections")
	fs.IntVar(&c.MinQueryLogMillis, "db-min-query-log-ms", 0, "Only log successful queries slower than this (0 logs all)")
	fs.IntVar(&c.HealthCheckSeconds, "db-health-check-seconds", 30, "Interval between idle connection health checks")
}

// Validate checks pool flags.
func (c *Config) Validate() error {
	if c.MaxConns < 1 {
		return fmt.Errorf("db-max-conns must be >= 1")
	}
	if c.MinQueryLogMillis < 0 {
		return fmt.Errorf("db-min-query-log-ms must be >= 0")
	}
	if c.HealthCheckSeconds < 1 {
		return fmt.Errorf("db-health-check-seconds must be >= 1")
	}
	return nil
}

// NewPool connects to databaseURL with otelpgx spans and per-query logging,
// and verifies the connection.
func NewPool(ctx context.Context, databaseURL string, c Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if c.MaxConns > 0 {
		pcfg.MaxConns = int32(c.MaxConns) //nolint:gosec // bounded by Validate
	}
	if c.HealthCheckSeconds > 0 {
		pcfg.HealthCheckPeriod = time.Duration(c.HealthCheckSeconds) * time.Second
	}
	pcfg.ConnConfig.Tracer = newQueryTracer(
		otelpgx.NewTracer(),
		time.Duration(c.MinQueryLogMillis)*time.Millisecond,
	)

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
