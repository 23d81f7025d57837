// Package archive persists the results of decoded sessions to SQLite.
// The archive keeps a bounded number of messages, older entries are pruned on insert.
package archive

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/womat/debug"

	_ "modernc.org/sqlite"
)

// DefaultRetention is the count of messages kept if no retention is configured.
const DefaultRetention = 1000

// ErrClosed is returned after Close.
var ErrClosed = errors.New("archive is closed")

// Message is an archived session.
type Message struct {
	ID          int64     `json:"id"`
	Text        string    `json:"text"`
	Symbols     string    `json:"symbols"`
	Samples     int       `json:"samples"`
	Threshold   int       `json:"threshold"`
	Units       string    `json:"units"`
	Unmatched   int       `json:"unmatched"`
	Fingerprint string    `json:"fingerprint"`
	Error       string    `json:"error,omitempty"`
	Started     time.Time `json:"started"`
	Ended       time.Time `json:"ended"`
}

// Archive is a SQLite store of decoded messages.
type Archive struct {
	mu        sync.Mutex
	db        *sql.DB
	retention int
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string, retention int) (*Archive, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("archive: ensure dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err = initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: schema: %w", err)
	}

	debug.InfoLog.Printf("archive %v opened, keeping %d messages", path, retention)
	return &Archive{db: db, retention: retention}, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    text TEXT,
    symbols TEXT,
    samples INTEGER,
    threshold INTEGER,
    units TEXT,
    unmatched INTEGER,
    fingerprint TEXT,
    error TEXT,
    started_at INTEGER,
    ended_at INTEGER
);`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// Add inserts a message and prunes the messages beyond the retention.
// The id of the new message is returned.
func (a *Archive) Add(m Message) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return 0, ErrClosed
	}

	res, err := a.db.Exec(`
INSERT INTO messages (
    text, symbols, samples, threshold, units, unmatched, fingerprint, error, started_at, ended_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Text,
		m.Symbols,
		m.Samples,
		m.Threshold,
		m.Units,
		m.Unmatched,
		m.Fingerprint,
		m.Error,
		m.Started.UTC().UnixMilli(),
		m.Ended.UTC().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("archive: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("archive: insert id: %w", err)
	}

	if _, err = a.db.Exec(`DELETE FROM messages WHERE id <= ?`, id-int64(a.retention)); err != nil {
		return id, fmt.Errorf("archive: prune: %w", err)
	}
	return id, nil
}

// Recent returns up to limit messages, the newest first.
func (a *Archive) Recent(limit int) ([]Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = a.retention
	}

	rows, err := a.db.Query(`
SELECT id, text, symbols, samples, threshold, units, unmatched, fingerprint, error, started_at, ended_at
FROM messages ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: query: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var started, ended int64
		if err = rows.Scan(&m.ID, &m.Text, &m.Symbols, &m.Samples, &m.Threshold, &m.Units,
			&m.Unmatched, &m.Fingerprint, &m.Error, &started, &ended); err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		m.Started = time.UnixMilli(started).UTC()
		m.Ended = time.UnixMilli(ended).UTC()
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Count returns the count of archived messages.
func (a *Archive) Count() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return 0, ErrClosed
	}

	var n int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("archive: count: %w", err)
	}
	return n, nil
}
