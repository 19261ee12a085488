// Package pgtest hands out throwaway PostgreSQL databases to tests.
//
// Each NewDB call creates a database named pgtest_db_<UTC time>Z_<random>
// on the server at $PGTEST_URL (DefaultURL when unset) and drops it when the
// test ends. Databases left behind by crashed runs are dropped by later runs
// once they are older than MaxAge. Tests are skipped when no server can be
// reached.
package pgtest

import (
	"context"
	"database/sql"
	"math/rand"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
)

// DefaultURL is the control database used when $PGTEST_URL is unset.
var DefaultURL = "postgres://localhost/postgres?sslmode=disable"

// MaxAge is how old a leftover test database must be before it is dropped.
var MaxAge = 3 * time.Minute

const namePrefix = "pgtest_db_"

// NewDB returns a connection to a fresh, empty database. The database is
// closed and dropped in t's cleanup.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ctl, dbURL, err := control(ctx, os.Getenv("PGTEST_URL"))
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}

	dropStale(ctx, ctl, time.Now().Add(-MaxAge))

	name := dbName(time.Now())
	if _, err := ctl.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		ctl.Close()
		t.Fatalf("create test db: %v", err)
	}

	dbURL.Path = "/" + name
	db, err := sql.Open("postgres", dbURL.String())
	if err != nil {
		ctl.Close()
		t.Fatalf("open test db: %v", err)
	}

	t.Cleanup(func() {
		defer ctl.Close()
		db.Close()
		if _, err := ctl.Exec("DROP DATABASE IF EXISTS " + pq.QuoteIdentifier(name)); err != nil {
			t.Logf("drop %s: %v", name, err)
		}
	})

	return db
}

// control connects to the server's control database and checks that it
// answers.
func control(ctx context.Context, rawURL string) (*sql.DB, *url.URL, error) {
	if rawURL == "" {
		rawURL = DefaultURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open("postgres", rawURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, u, nil
}

// dropStale drops up to five test databases created before cutoff.
// Failures are ignored; the next run tries again.
func dropStale(ctx context.Context, ctl *sql.DB, cutoff time.Time) {
	const q = `
		SELECT datname FROM pg_database
		WHERE datname LIKE 'pgtest\_db\_%' AND datname < $1
		ORDER BY datname
		LIMIT 5`
	rows, err := ctl.QueryContext(ctx, q, stamp(cutoff))
	if err != nil {
		return
	}
	var names []string
	for rows.Next() {
		var name string
		if rows.Scan(&name) == nil {
			names = append(names, name)
		}
	}
	rows.Close()

	for _, name := range names {
		ctl.ExecContext(ctx, "DROP DATABASE IF EXISTS "+pq.QuoteIdentifier(name))
	}
}

// stamp is the part of a database name that orders it by creation time.
func stamp(t time.Time) string {
	return namePrefix + t.UTC().Format("20060102150405") + "Z_"
}

func dbName(now time.Time) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	var b strings.Builder
	b.WriteString(stamp(now))
	for i := 0; i < 10; i++ {
		b.WriteByte(letters[rand.Intn(len(letters))])
	}
	return b.String()
}
