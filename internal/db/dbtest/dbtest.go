// Package dbtest connects repository integration tests to a disposable
// Postgres database described by DB_*_TEST variables.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/baharserene/internal/config"
	"github.com/vasiliy-maslov/baharserene/internal/db"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Config returns the test database settings. ok is false when DB_HOST_TEST
// is unset and the integration tests should be skipped.
func Config() (cfg config.PostgresConfig, ok bool) {
	host := os.Getenv("DB_HOST_TEST")
	if host == "" {
		return cfg, false
	}

	cfg = config.PostgresConfig{
		Host:            host,
		Port:            getEnv("DB_PORT_TEST", "5432"),
		User:            getEnv("DB_USER_TEST", "postgres"),
		Password:        getEnv("DB_PASSWORD_TEST", "123456"),
		DBName:          getEnv("DB_NAME_TEST", "baharserene_test"),
		SSLMode:         getEnv("DB_SSLMODE_TEST", "disable"),
		MaxConns:        5,
		MinConns:        0,
		MaxConnLifetime: 5 * time.Minute,
		MigrationsPath:  migrationsDir(),
	}
	return cfg, true
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// Run is meant to be called from TestMain. It migrates the test database,
// hands the pool to setPool and runs the tests. Without DB_HOST_TEST the
// pool stays nil and Truncate skips every integration test.
func Run(m *testing.M, setPool func(*pgxpool.Pool)) int {
	cfg, ok := Config()
	if !ok {
		fmt.Println("DB_HOST_TEST not set, skipping postgres integration tests")
		return m.Run()
	}

	if err := db.ApplyMigrations(cfg); err != nil {
		log.Error().Err(err).Msg("Failed to migrate test database")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := db.New(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("db_host", cfg.Host).Msg("Failed to connect to test database")
		return 1
	}
	defer pg.Close()

	setPool(pg.Pool)
	return m.Run()
}

// Truncate empties every storefront table before and after the calling test.
// It skips the test when no database is configured.
func Truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if pool == nil {
		t.Skip("DB_HOST_TEST not set")
	}

	tables := []string{
		"recently_viewed", "wishlist_items", "order_items", "orders",
		"coupons", "product_ratings", "products", "users",
	}
	query := "TRUNCATE TABLE " + strings.Join(tables, ", ") + " CASCADE"

	if _, err := pool.Exec(context.Background(), query); err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
	t.Cleanup(func() {
		if _, err := pool.Exec(context.Background(), query); err != nil {
			t.Errorf("Failed to truncate tables after test: %v", err)
		}
	})
}

// InsertUser stores a bare user row and returns its id.
func InsertUser(t *testing.T, pool *pgxpool.Pool, email, role string) uuid.UUID {
	t.Helper()

	id := uuid.Must(uuid.NewV4())
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, first_name, last_name, email, password_hash, role) VALUES ($1, 'Test', 'User', $2, 'x', $3)`,
		id, email, role)
	if err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	return id
}
