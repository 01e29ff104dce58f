// Package testutil provides test utilities for contextgc
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/youssefsiam38/contextgc/brainstore"
)

// TestDB wraps a PostgreSQL connection pool for testing
type TestDB struct {
	URL  string
	Pool *pgxpool.Pool
}

// NewTestDB creates a test database connection from DATABASE_URL env var
// and makes sure the brain-id table exists. The test is skipped when
// DATABASE_URL is not set.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("Failed to ping database: %v", err)
	}

	if _, err := pool.Exec(ctx, brainstore.Schema); err != nil {
		pool.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}

	return &TestDB{URL: dbURL, Pool: pool}
}

// Close closes the database connection
func (db *TestDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// OpenSQL opens a database/sql handle on the same database using lib/pq.
// The handle is closed when the test ends.
func (db *TestDB) OpenSQL(t *testing.T) *sql.DB {
	t.Helper()

	sqlDB, err := sql.Open("postgres", db.URL)
	if err != nil {
		t.Fatalf("Failed to open database/sql connection: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}
	return sqlDB
}

// SessionID returns a session ID unique to this test run, and removes its
// rows when the test ends.
func (db *TestDB) SessionID(t *testing.T) string {
	t.Helper()

	sessionID := "test-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(),
			`DELETE FROM contextgc_brain_ids WHERE session_id = $1`, sessionID)
	})
	return sessionID
}

// RequireIntegration skips the test if not running integration tests
func RequireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
}
