// Package runlog keeps the ordered diagnostic log of a HoneyC run and
// persists it to SQLite.
package runlog

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run collects log lines for one source. It is an io.Writer so a
// zerolog.Logger can write into it directly.
type Run struct {
	ID        string
	Source    string
	Hash      uint64
	StartedAt time.Time

	mu      sync.Mutex
	lines   []string
	partial []byte
}

// NewRun starts a run for the named source with the given content.
func NewRun(source string, content []byte) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Source:    source,
		Hash:      xxhash.Sum64(content),
		StartedAt: time.Now().UTC(),
	}
}

// Write splits p into lines. An unterminated tail is kept until the next
// write or Lines call.
func (r *Run) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := append(r.partial, p...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		r.lines = append(r.lines, string(buf[:i]))
		buf = buf[i+1:]
	}
	r.partial = append([]byte(nil), buf...)
	return len(p), nil
}

// Log appends one line.
func (r *Run) Log(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}

// Lines returns the lines logged so far, in order.
func (r *Run) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.lines...)
	if len(r.partial) > 0 {
		out = append(out, string(r.partial))
	}
	return out
}

// Store is a SQLite database of runs.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to run log: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			hash TEXT NOT NULL,
			started_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_lines (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			line TEXT NOT NULL,
			PRIMARY KEY (run_id, seq),
			FOREIGN KEY (run_id) REFERENCES runs(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_hash ON runs(hash)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create run log tables: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save writes r and all its lines in one transaction.
func (s *Store) Save(r *Run) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs (id, source, hash, started_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.Source, fmt.Sprintf("%016x", r.Hash), r.StartedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.ID, err)
	}
	for i, line := range r.Lines() {
		if _, err := tx.Exec(`INSERT INTO run_lines (run_id, seq, line) VALUES (?, ?, ?)`, r.ID, i, line); err != nil {
			return fmt.Errorf("failed to save line %d of run %s: %w", i, r.ID, err)
		}
	}
	return tx.Commit()
}

// Summary describes a stored run without its lines.
type Summary struct {
	ID        string
	Source    string
	Hash      uint64
	StartedAt time.Time
}

// Load returns the stored lines of run id.
func (s *Store) Load(id string) (Summary, []string, error) {
	var sum Summary
	var hash string
	var started int64
	err := s.db.QueryRow(`SELECT id, source, hash, started_at FROM runs WHERE id = ?`, id).
		Scan(&sum.ID, &sum.Source, &hash, &started)
	if err == sql.ErrNoRows {
		return Summary{}, nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return Summary{}, nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	sum.StartedAt = time.Unix(0, started).UTC()
	fmt.Sscanf(hash, "%x", &sum.Hash)

	rows, err := s.db.Query(`SELECT line FROM run_lines WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return Summary{}, nil, fmt.Errorf("failed to load lines of run %s: %w", id, err)
	}
	defer rows.Close()
	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return Summary{}, nil, err
		}
		lines = append(lines, line)
	}
	return sum, lines, rows.Err()
}

// Runs lists stored runs, newest first. A non-empty source filters by name.
func (s *Store) Runs(source string) ([]Summary, error) {
	q := `SELECT id, source, hash, started_at FROM runs`
	var args []interface{}
	if source != "" {
		q += ` WHERE source = ?`
		args = append(args, source)
	}
	q += ` ORDER BY started_at DESC, id`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var hash string
		var started int64
		if err := rows.Scan(&sum.ID, &sum.Source, &hash, &started); err != nil {
			return nil, err
		}
		sum.StartedAt = time.Unix(0, started).UTC()
		fmt.Sscanf(hash, "%x", &sum.Hash)
		out = append(out, sum)
	}
	return out, rows.Err()
}
