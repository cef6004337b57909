package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/config"
)

// NewRequestPool returns the connection pool serving the live web-request
// path.
func NewRequestPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	return newPool(ctx, cfg.URL, cfg.MaxConns, cfg.MinConns)
}

// NewWorkerPool returns a separate, smaller pool for background jobs. The
// worker path never shares connections with HTTP requests; a job that
// holds a connection for minutes must not starve the API.
func NewWorkerPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	return newPool(ctx, cfg.URL, cfg.WorkerMaxConns, 1)
}

func newPool(ctx context.Context, url string, maxConns, minConns int) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = int32(maxConns)
	poolCfg.MinConns = int32(minConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
