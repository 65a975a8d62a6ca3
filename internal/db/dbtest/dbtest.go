// Package dbtest connects repository tests to a throwaway PostgreSQL database.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/garment-costing/internal/config"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Config reads the *_TEST environment. ok is false when DB_HOST_TEST is unset,
// in which case database-backed tests are skipped.
func Config() (cfg config.PostgresConfig, ok bool) {
	host := os.Getenv("DB_HOST_TEST")
	if host == "" {
		return cfg, false
	}

	_, file, _, _ := runtime.Caller(0)
	migrations := filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")

	return config.PostgresConfig{
		Host:            host,
		Port:            envOr("DB_PORT_TEST", "5432"),
		User:            envOr("DB_USER_TEST", "postgres"),
		Password:        envOr("DB_PASSWORD_TEST", "123456"),
		DBName:          envOr("DB_NAME_TEST", "costing_test"),
		SSLMode:         envOr("DB_SSLMODE_TEST", "disable"),
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
		MigrationsPath:  migrations,
	}, true
}

// Open returns a migrated pool, or nil when no test database is configured.
func Open() (*pgxpool.Pool, error) {
	cfg, ok := Config()
	if !ok {
		return nil, nil
	}

	if err := db.ApplyMigrations(cfg); err != nil {
		return nil, fmt.Errorf("dbtest: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := db.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dbtest: %w", err)
	}
	log.Info().Msg("Test Database connection established.")
	return pg.Pool, nil
}

// Require skips the test when pool is nil.
func Require(tb testing.TB, pool *pgxpool.Pool) {
	tb.Helper()
	if pool == nil {
		tb.Skip("DB_HOST_TEST not set, skipping database test")
	}
}

// Truncate empties every mutable table. Reference tables are reseeded by the caller.
func Truncate(tb testing.TB, pool *pgxpool.Pool) {
	tb.Helper()
	_, err := pool.Exec(context.Background(), `
		TRUNCATE TABLE orders, bid_responses, bids,
			fabric_pricing, fabric_quantity, cutting, stitching, packaging, logo_printing,
			projects, machines, users,
			ref_fabric_consumption, ref_fabric_quantity_rates, ref_fabric_prices,
			ref_cutting_rates, ref_stitching_rates, ref_packaging_rates, ref_logo_prices
		RESTART IDENTITY CASCADE`)
	if err != nil {
		tb.Fatalf("failed to truncate tables: %v", err)
	}
}
