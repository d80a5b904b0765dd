// Package dbtest connects tests to a throwaway Postgres database.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"bookstore/pkg/database"
)

const lockKey = 7215

// tables lists every table in dependency order for truncation.
const tables = `feedback, sales_record, processed_payment, purchase_item, purchase_record,
	book, book_type, genre, publisher, membership, admin`

// Open connects to the database named by the PG* environment variables,
// applies the schema and empties every table. The test is skipped when no
// database is reachable.
func Open(t testing.TB) *database.DB {
	t.Helper()

	getenv := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getenv("PGHOST", "localhost"),
		getenv("PGPORT", "5432"),
		getenv("PGUSER", "user"),
		getenv("PGPASSWORD", "password"),
		getenv("PGDATABASE", "testdb"),
	)

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{URL: connStr, MaxOpenConns: 5})
	if err != nil {
		t.Skipf("skipping postgres tests: could not connect to postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Packages run their tests concurrently against the same database; the
	// advisory lock serializes them.
	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, lockKey)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockKey)
		conn.Close()
	})

	require.NoError(t, db.Migrate(ctx))
	_, err = db.ExecContext(ctx, `TRUNCATE TABLE `+tables+` RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return db
}
