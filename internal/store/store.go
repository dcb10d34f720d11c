// Package store persists output records in a relational database.
//
// Every document is keyed by its source file. Writing a record replaces the
// prior document row and all of its keyword, finding and category-score rows
// in one transaction, so a document is never visible in a half-replaced state.
// PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite) are supported.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested document does not exist
var ErrNotFound = errors.New("document not found")

// Store is a relational document store
type Store struct {
	db  *sql.DB
	d   dialect
	sb  sq.StatementBuilderType
	log logrus.FieldLogger
	now func() time.Time
}

// Open connects to the database and applies the schema.
// For sqlite, url is a file path or ":memory:".
func Open(ctx context.Context, driver, url string, log logrus.FieldLogger) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	dsn := url
	if d.name == "sqlite" {
		dsn = strings.TrimPrefix(dsn, "sqlite://")
		if dsn != ":memory:" && dsn != "" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if d.name == "sqlite" {
		// One connection keeps pragmas and ":memory:" databases consistent
		db.SetMaxOpenConns(1)
		for _, p := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 10000"} {
			if _, err := db.ExecContext(ctx, p); err != nil {
				db.Close()
				return nil, fmt.Errorf("%s: %w", p, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:  db,
		d:   d,
		sb:  sq.StatementBuilder.PlaceholderFormat(d.placeholder),
		log: log,
		now: time.Now,
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.WithField("driver", d.name).Debug("database ready")
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the dialect name
func (s *Store) Driver() string {
	return s.d.name
}

// Migrate creates tables, indexes and the overview view if missing
func (s *Store) Migrate(ctx context.Context) error {
	for _, query := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", firstLine(query), err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
