package infra

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	statusOK       = "ok"
	statusDisabled = "disabled"
)

// HealthReport is the reachability of each backing store. Backends running
// in memory report "disabled".
type HealthReport struct {
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
}

// OK reports whether every configured backend answered.
func (r HealthReport) OK() bool {
	return healthy(r.Postgres) && healthy(r.Redis)
}

// Err folds the report into an error for plain health checks.
func (r HealthReport) Err() error {
	var errs []error
	if !healthy(r.Postgres) {
		errs = append(errs, errors.New("postgres: "+r.Postgres))
	}
	if !healthy(r.Redis) {
		errs = append(errs, errors.New("redis: "+r.Redis))
	}
	return errors.Join(errs...)
}

// CheckHealth pings Postgres and Redis. Nil clients are skipped.
func CheckHealth(ctx context.Context, db *pgxpool.Pool, cache *redis.Client) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	report := HealthReport{Postgres: statusDisabled, Redis: statusDisabled}
	if db != nil {
		report.Postgres = statusOK
		if err := db.Ping(ctx); err != nil {
			report.Postgres = err.Error()
		}
	}
	if cache != nil {
		report.Redis = statusOK
		if err := cache.Ping(ctx).Err(); err != nil {
			report.Redis = err.Error()
		}
	}
	return report
}

func healthy(status string) bool {
	return status == statusOK || status == statusDisabled
}
