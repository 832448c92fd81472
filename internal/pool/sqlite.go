// ABOUTME: SQLite implementation of the pool Store using modernc.org/sqlite
// ABOUTME: Timestamps are unix seconds, 0 meaning unset; amounts are base units

package pool

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kevachat/geminiboard/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens the pool database at path, creating parent
// directories and the schema if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "pool_store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// the server and the worker share the file; serialize writers in-process
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite pool store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS pool (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			created   INTEGER NOT NULL,
			sent      INTEGER NOT NULL DEFAULT 0,
			expired   INTEGER NOT NULL DEFAULT 0,
			cost      INTEGER NOT NULL,
			address   TEXT NOT NULL,
			namespace TEXT NOT NULL,
			key       TEXT NOT NULL,
			value     TEXT NOT NULL,

			CHECK (sent = 0 OR expired = 0)
		);

		CREATE INDEX IF NOT EXISTS idx_pool_state ON pool(sent, expired);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts a new pending entry and sets its ID.
func (s *SQLiteStore) Create(ctx context.Context, e *Entry) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pool (created, sent, expired, cost, address, namespace, key, value)
		VALUES (?, 0, 0, ?, ?, ?, ?, ?)
	`, e.Created.Unix(), int64(e.Cost), e.Address, e.Namespace, e.Key, e.Value)
	if err != nil {
		return fmt.Errorf("inserting pool entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading pool entry id: %w", err)
	}
	e.ID = id
	e.Sent = time.Time{}
	e.Expired = time.Time{}
	return nil
}

// Get retrieves an entry by ID.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created, sent, expired, cost, address, namespace, key, value
		FROM pool WHERE id = ?
	`, id)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListPending returns all entries that are neither sent nor expired.
func (s *SQLiteStore) ListPending(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created, sent, expired, cost, address, namespace, key, value
		FROM pool WHERE sent = 0 AND expired = 0
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying pending entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pool entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkSent moves a pending entry to the sent state.
func (s *SQLiteStore) MarkSent(ctx context.Context, id int64, at time.Time) error {
	return s.transition(ctx, "sent", id, at)
}

// MarkExpired moves a pending entry to the expired state.
func (s *SQLiteStore) MarkExpired(ctx context.Context, id int64, at time.Time) error {
	return s.transition(ctx, "expired", id, at)
}

// transition sets one terminal column, guarded so that only pending rows
// change. column is always one of two literals above.
func (s *SQLiteStore) transition(ctx context.Context, column string, id int64, at time.Time) error {
	ts := at.Unix()
	if ts < 1 {
		ts = 1
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE pool SET "+column+" = ? WHERE id = ? AND sent = 0 AND expired = 0",
		ts, id)
	if err != nil {
		return fmt.Errorf("marking pool entry %d %s: %w", id, column, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrNotPending
	}
	return nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		e                      Entry
		created, sent, expired int64
		cost                   int64
	)
	if err := scanner.Scan(&e.ID, &created, &sent, &expired, &cost, &e.Address, &e.Namespace, &e.Key, &e.Value); err != nil {
		return nil, err
	}
	e.Created = unixTime(created)
	e.Sent = unixTime(sent)
	e.Expired = unixTime(expired)
	e.Cost = ledger.Amount(cost)
	return &e, nil
}

func unixTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// Compile-time check
var _ Store = (*SQLiteStore)(nil)
