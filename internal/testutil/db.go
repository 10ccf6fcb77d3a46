// Package testutil provides shared helpers for integration tests.
// Helpers skip automatically when the required environment variables are not set.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/redis/go-redis/v9"

	"itinera/internal/infra"
)

const (
	dsnEnv   = "ITINERA_TEST_DSN"
	redisEnv = "ITINERA_TEST_REDIS_ADDR"
)

var migrateOnce sync.Once

// NewPool opens a pool against ITINERA_TEST_DSN with all migrations applied.
// The pool is closed when the test finishes.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := requireEnv(t, dsnEnv)

	var migrateErr error
	migrateOnce.Do(func() {
		migrateErr = infra.Migrate(context.Background(), dsn)
	})
	if migrateErr != nil {
		t.Fatalf("testutil.NewPool: migrate: %v", migrateErr)
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("testutil.NewPool: open pool: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// NewTx begins a transaction that is rolled back when the test finishes.
func NewTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := NewPool(t)
	tx, err := pool.Begin(context.Background())
	if err != nil {
		t.Fatalf("testutil.NewTx: begin: %v", err)
	}
	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})
	return tx
}

// NewSQLDB opens a *sql.DB through the pgx database/sql driver, for goose.
func NewSQLDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := requireEnv(t, dsnEnv)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("testutil.NewSQLDB: open: %v", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		t.Fatalf("testutil.NewSQLDB: ping: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// NewRedis connects to ITINERA_TEST_REDIS_ADDR and flushes the selected database on cleanup.
func NewRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := requireEnv(t, redisEnv)

	client, err := infra.NewRedis(context.Background(), addr)
	if err != nil {
		t.Fatalf("testutil.NewRedis: %v", err)
	}
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func requireEnv(t *testing.T, key string) string {
	t.Helper()
	v := os.Getenv(key)
	if v == "" {
		t.Skipf("%s not set; skipping integration test", key)
	}
	return v
}
