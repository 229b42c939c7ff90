package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/artprovider/internal/artwork"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added partial UNIQUE index on artwork.token
const currentSchemaVersion = 1

// maxOpenConns bounds the read pool. Writes are serialised separately by
// Store.writeMu, so extra connections only ever serve concurrent readers.
const maxOpenConns = 4

// ErrNotFound is returned when a row lookup matches nothing.
var ErrNotFound = errors.New("artwork not found")

// DataPathFunc returns the cache file path for a newly inserted row.
// hasPersistentURI selects between the evictable cache directory and the
// durable files directory.
type DataPathFunc func(id int64, hasPersistentURI bool) (string, error)

// Store is the artwork row store of one provider instance.
// Uses SQLite with WAL mode so readers never wait for the single writer.
type Store struct {
	db        *sql.DB
	authority string
	dataPath  DataPathFunc
	remove    func(path string) error
	logger    *slog.Logger

	// writeMu serialises every transaction. Batches never interleave.
	writeMu sync.Mutex

	stamps   *stampClock
	notifier *Notifier
}

// Option configures a Store at Open.
type Option func(s *Store) error

// WithAuthority sets the provider authority used to build row addresses.
func WithAuthority(authority string) Option {
	return func(s *Store) error {
		if authority == "" {
			return errors.New("authority must not be empty")
		}
		s.authority = authority
		return nil
	}
}

// WithDataPath sets the function that assigns cache file paths at insert.
func WithDataPath(fn DataPathFunc) Option {
	return func(s *Store) error {
		if fn == nil {
			return errors.New("data path func must not be nil")
		}
		s.dataPath = fn
		return nil
	}
}

// WithRemover sets the function that deletes a row's cache file during
// Delete. The default removes the file from disk.
func WithRemover(fn func(path string) error) Option {
	return func(s *Store) error {
		if fn == nil {
			return errors.New("remover must not be nil")
		}
		s.remove = fn
		return nil
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// Open creates or opens the SQLite database at path and applies the schema
// and migrations.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// The pragmas are passed in the DSN so that every pooled connection gets
// them, not just the first.
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		authority: "local",
		logger:    slog.New(slog.DiscardHandler),
		notifier:  &Notifier{},
	}
	s.dataPath = defaultDataPath(filepath.Dir(path))
	s.remove = removeFile

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to configure store: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)

	// Apply schema migrations
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	s.db = db

	// Resume stamping after the newest stored timestamp so that
	// date_modified never goes backwards across restarts.
	var last sql.NullInt64
	if err := db.QueryRow("SELECT MAX(date_modified) FROM artwork").Scan(&last); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read last modification time: %w", err)
	}
	s.stamps = newStampClock(last.Int64)

	return s, nil
}

// Close closes the database connection.
// Should be called when the store is no longer needed.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Authority returns the provider authority the store was opened with.
func (s *Store) Authority() string {
	return s.authority
}

// ContentURI returns the collection address.
func (s *Store) ContentURI() string {
	return artwork.ContentURI(s.authority)
}

// dsn builds the mattn/go-sqlite3 connection string for path.
// uriPath escapes the characters SQLite's URI filenames treat specially.
var uriPath = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

func dsn(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_txlock", "immediate")
	return "file:" + uriPath.Replace(path) + "?" + params.Encode()
}

func defaultDataPath(dir string) DataPathFunc {
	return func(id int64, hasPersistentURI bool) (string, error) {
		kind := "files"
		if hasPersistentURI {
			kind = "cache"
		}
		return filepath.Join(dir, kind, strconv.FormatInt(id, 10)), nil
	}
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	// Set version after all migrations
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the partial UNIQUE index that enforces one row per
// non-NULL token. Empty tokens are stored as NULL and never collide.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_artwork_token_unique
		ON artwork(token) WHERE token IS NOT NULL
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// Count returns the number of rows in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM artwork").Scan(&count); err != nil {
		return 0, fmt.Errorf("count artwork: %w", err)
	}
	return count, nil
}
