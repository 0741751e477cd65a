// Package store provides the SQLite-backed content repository and
// engine-state persistence. It implements the repository contract the
// engine consumes; host runtimes with their own storage can substitute
// any other implementation.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/runger/recall/internal/content"
	"github.com/runger/recall/internal/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id            TEXT PRIMARY KEY,
	url           TEXT NOT NULL,
	title         TEXT NOT NULL,
	content       TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL DEFAULT 'other',
	tags          TEXT NOT NULL DEFAULT '[]',
	concepts      TEXT NOT NULL DEFAULT '[]',
	importance    INTEGER NOT NULL DEFAULT 0,
	access_count  INTEGER NOT NULL DEFAULT 0,
	last_accessed_ms INTEGER NOT NULL DEFAULT 0,
	created_ms    INTEGER NOT NULL,
	updated_ms    INTEGER NOT NULL,
	size_bytes    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);
CREATE INDEX IF NOT EXISTS idx_items_updated ON items(updated_ms);

CREATE TABLE IF NOT EXISTS engine_state (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	document   TEXT NOT NULL,
	updated_ms INTEGER NOT NULL
);
`

// Store is the SQLite-backed repository. Safe for concurrent use; the
// pool is restricted to a single writer connection, which SQLite
// handles best.
type Store struct {
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error
}

var _ engine.ContentRepository = (*Store)(nil)

// DefaultDBPath returns the default database path (~/.recall/recall.db).
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".recall", "recall.db"), nil
}

// Open creates a Store at dbPath, creating the schema if needed. An
// empty path uses the default location. The database is opened in WAL
// mode with a busy timeout.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		var err error
		dbPath, err = DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// modernc.org/sqlite uses _pragma=name(value) syntax.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database. Idempotent.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// Create inserts a new item. A missing ID or timestamps are filled in.
func (s *Store) Create(ctx context.Context, item content.StoredItem) (string, error) {
	if item.ID == "" {
		return "", &content.StorageError{Op: "create", Err: fmt.Errorf("item id is required")}
	}
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}
	if item.SizeBytes == 0 {
		item.SizeBytes = int64(len(item.Content))
	}

	tags, concepts, err := encodeSets(item)
	if err != nil {
		return "", &content.StorageError{Op: "create", Err: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (id, url, title, content, category, tags, concepts,
			importance, access_count, last_accessed_ms, created_ms, updated_ms, size_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID, item.URL, item.Title, item.Content, string(item.Category),
		tags, concepts, item.Importance, item.AccessCount,
		unixMs(item.LastAccessed), item.CreatedAt.UnixMilli(), item.UpdatedAt.UnixMilli(),
		item.SizeBytes)
	if err != nil {
		return "", &content.StorageError{Op: "create", Err: err}
	}
	return item.ID, nil
}

// Read returns the item with the given id, or ErrNotFound.
func (s *Store) Read(ctx context.Context, id string) (content.StoredItem, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return content.StoredItem{}, content.ErrNotFound
	}
	if err != nil {
		return content.StoredItem{}, &content.StorageError{Op: "read", Err: err}
	}
	return item, nil
}

// List returns items matching the filter, most recently updated first.
func (s *Store) List(ctx context.Context, f engine.ListFilter) ([]content.StoredItem, error) {
	query := selectColumns + ` FROM items`
	var args []any
	if f.Category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(f.Category))
	}
	query += ` ORDER BY updated_ms DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &content.StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	var items []content.StoredItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, &content.StorageError{Op: "list", Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &content.StorageError{Op: "list", Err: err}
	}
	return items, nil
}

// Touch records an access: increments the counter and updates the
// last-accessed time. These are the only field mutations the engine
// side performs on stored items.
func (s *Store) Touch(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET access_count = access_count + 1, last_accessed_ms = ?
		WHERE id = ?
	`, at.UnixMilli(), id)
	if err != nil {
		return &content.StorageError{Op: "touch", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return content.ErrNotFound
	}
	return nil
}

// Reanalyze refreshes an item's category and concept set, as produced
// by a re-run of content analysis.
func (s *Store) Reanalyze(ctx context.Context, id string, category content.PageCategory, concepts []string, at time.Time) error {
	encoded, err := json.Marshal(emptyIfNil(concepts))
	if err != nil {
		return &content.StorageError{Op: "reanalyze", Err: err}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET category = ?, concepts = ?, updated_ms = ?
		WHERE id = ?
	`, string(category), string(encoded), at.UnixMilli(), id)
	if err != nil {
		return &content.StorageError{Op: "reanalyze", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return content.ErrNotFound
	}
	return nil
}

// SaveState persists the engine state document (single-row upsert).
func (s *Store) SaveState(ctx context.Context, document []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO engine_state (id, document, updated_ms) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_ms = excluded.updated_ms
	`, string(document), time.Now().UnixMilli())
	if err != nil {
		return &content.StorageError{Op: "save state", Err: err}
	}
	return nil
}

// LoadState returns the persisted engine state document, or nil when
// none has been saved.
func (s *Store) LoadState(ctx context.Context) ([]byte, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM engine_state WHERE id = 1`).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &content.StorageError{Op: "load state", Err: err}
	}
	return []byte(doc), nil
}

const selectColumns = `SELECT id, url, title, content, category, tags, concepts,
	importance, access_count, last_accessed_ms, created_ms, updated_ms, size_bytes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (content.StoredItem, error) {
	var (
		item                           content.StoredItem
		category, tags, concepts       string
		lastAccessed, created, updated int64
	)
	err := r.Scan(&item.ID, &item.URL, &item.Title, &item.Content, &category,
		&tags, &concepts, &item.Importance, &item.AccessCount,
		&lastAccessed, &created, &updated, &item.SizeBytes)
	if err != nil {
		return item, err
	}
	item.Category = content.PageCategory(category)
	if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
		return item, fmt.Errorf("malformed tags for item %s: %w", item.ID, err)
	}
	if err := json.Unmarshal([]byte(concepts), &item.Concepts); err != nil {
		return item, fmt.Errorf("malformed concepts for item %s: %w", item.ID, err)
	}
	if lastAccessed > 0 {
		item.LastAccessed = time.UnixMilli(lastAccessed)
	}
	item.CreatedAt = time.UnixMilli(created)
	item.UpdatedAt = time.UnixMilli(updated)
	return item, nil
}

func encodeSets(item content.StoredItem) (tags, concepts string, err error) {
	t, err := json.Marshal(emptyIfNil(item.Tags))
	if err != nil {
		return "", "", err
	}
	c, err := json.Marshal(emptyIfNil(item.Concepts))
	if err != nil {
		return "", "", err
	}
	return string(t), string(c), nil
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func unixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
