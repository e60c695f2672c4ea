// Package store provides a SQLite-backed cache of recolored images.
//
// Entries are keyed by a digest of the source image bytes and the rule list
// (see Key), and hold gzip-compressed encoded output.
package store

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	// DefaultBatchSize is the number of entries to buffer before flushing to the database.
	DefaultBatchSize = 32
)

// ErrNotFound is returned by Get when no entry exists for a key.
var ErrNotFound = errors.New("store: entry not found")

// Entry represents a single cached result.
type Entry struct {
	Created time.Time
	Key     string
	Matched string // per-rule match counts, comma separated
	Data    []byte // encoded image (gzip-compressed before storage)
}

// Store caches recolored images in a SQLite database.
type Store struct {
	db        *sql.DB
	path      string
	batch     []Entry
	pending   map[string]int // key -> index into batch
	metadata  Metadata
	batchSize int
	mu        sync.Mutex
}

// Open opens or creates a cache database at path.
// The schema is created if it doesn't exist and metadata is (re)written.
func Open(path string, metadata Metadata) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := insertMetadata(db, metadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert metadata: %w", err)
	}

	return &Store{
		db:        db,
		path:      path,
		batch:     make([]Entry, 0, DefaultBatchSize),
		pending:   make(map[string]int),
		batchSize: DefaultBatchSize,
		metadata:  metadata,
	}, nil
}

// createSchema creates the cache database schema.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			name TEXT NOT NULL PRIMARY KEY,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS results (
			key TEXT NOT NULL PRIMARY KEY,
			data BLOB NOT NULL,
			matched TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	// Databases written before match counts were stored lack the column.
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('results') WHERE name = 'matched'").Scan(&n); err != nil {
		return fmt.Errorf("failed to inspect results table: %w", err)
	}
	if n == 0 {
		if _, err := db.Exec("ALTER TABLE results ADD COLUMN matched TEXT NOT NULL DEFAULT ''"); err != nil {
			return fmt.Errorf("failed to add matched column: %w", err)
		}
	}

	return nil
}

// insertMetadata replaces the metadata table contents.
func insertMetadata(db *sql.DB, meta Metadata) error {
	if _, err := db.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}

	stmt, err := db.Prepare("INSERT INTO metadata (name, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare metadata insert: %w", err)
	}
	defer stmt.Close()

	for key, value := range meta.ToMap() {
		if _, err := stmt.Exec(key, value); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", key, err)
		}
	}

	return nil
}

// Put adds an entry to the batch. When the batch is full, it is automatically flushed.
// A later Put with the same key replaces the earlier one.
func (s *Store) Put(key string, data []byte, matched string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{Key: key, Data: data, Matched: matched, Created: time.Now()}
	if i, ok := s.pending[key]; ok {
		s.batch[i] = e
	} else {
		s.pending[key] = len(s.batch)
		s.batch = append(s.batch, e)
	}

	if len(s.batch) >= s.batchSize {
		return s.flushLocked()
	}

	return nil
}

// Get returns the data stored for key, or ErrNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	e, err := s.Lookup(key)
	if err != nil {
		return nil, err
	}
	return e.Data, nil
}

// Lookup returns the entry stored for key, or ErrNotFound.
// Entries still waiting in the batch are visible.
func (s *Store) Lookup(key string) (Entry, error) {
	s.mu.Lock()
	if i, ok := s.pending[key]; ok {
		e := s.batch[i]
		s.mu.Unlock()
		return e, nil
	}
	s.mu.Unlock()

	var (
		compressed []byte
		matched    string
		created    int64
	)
	err := s.db.QueryRow("SELECT data, matched, created_at FROM results WHERE key = ?", key).
		Scan(&compressed, &matched, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to query entry: %w", err)
	}

	data, err := gzipDecompress(compressed)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to decompress entry: %w", err)
	}

	return Entry{Key: key, Data: data, Matched: matched, Created: time.Unix(created, 0)}, nil
}

// Len returns the number of stored entries, including unflushed ones.
func (s *Store) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flushLocked(); err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM results").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

// Flush writes any buffered entries to the database.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// flushLocked writes buffered entries to the database. Must be called with lock held.
func (s *Store) flushLocked() error {
	if len(s.batch) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO results (key, data, matched, created_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range s.batch {
		compressed, err := gzipCompress(e.Data)
		if err != nil {
			return fmt.Errorf("failed to compress entry %s: %w", e.Key, err)
		}

		if _, err := stmt.Exec(e.Key, compressed, e.Matched, e.Created.Unix()); err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.batch = s.batch[:0]
	clear(s.pending)
	return nil
}

// Close flushes any remaining entries and closes the database.
func (s *Store) Close() error {
	if err := s.Flush(); err != nil {
		s.db.Close()
		return err
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// gzipCompress compresses data with gzip.
func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)

	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, err
	}

	if err := gw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// gzipDecompress decompresses gzip data.
func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	return io.ReadAll(gr)
}
