package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"regexp"
	"sync"

	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - postings table
const currentSchemaVersion = 1

// driverName is the sqlite3 driver variant with the regexp() function.
const driverName = "sqlite3_qrewrite"

var registerOnce sync.Once

// registerDriver installs the sqlite3 driver variant whose connections
// carry a regexp(pattern, value) function backing the REGEXP operator.
func registerDriver() {
	registerOnce.Do(func() {
		cache := &regexCache{compiled: make(map[string]*regexp.Regexp)}
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("regexp", cache.match, true)
			},
		})
	})
}

// regexCache memoizes compiled patterns across connections.
type regexCache struct {
	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

func (c *regexCache) match(pattern, value string) (bool, error) {
	c.mu.Lock()
	re, ok := c.compiled[pattern]
	if !ok {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			c.mu.Unlock()
			return false, err
		}
		c.compiled[pattern] = re
	}
	c.mu.Unlock()
	return re.MatchString(value), nil
}

// Store is a SQLite postings index.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path. Use
// ":memory:" for a throwaway index.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	registerDriver()

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and records the schema
// version. This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// queryContext runs a compiled query.
func (s *Store) queryContext(ctx context.Context, q Query) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, q.SQL, q.Args...)
}
