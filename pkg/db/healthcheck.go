package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Healthcheck returns a readiness check that pings the pool.
// Use with keel.WithReadinessCheck.
//
// Example:
//
//	keel.WithHealthChecks(
//	    keel.WithReadinessCheck("db", db.Healthcheck(pool)),
//	)
func Healthcheck(pool *pgxpool.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheck, err)
		}
		return nil
	}
}
