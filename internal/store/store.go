// Package store keeps a durable history of sessions in sqlite. The
// in-memory registry stays authoritative for live sessions; this records
// what ran, for the history and status endpoints.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Record struct {
	ID        string     `json:"id"`
	Browser   string     `json:"browser"`
	RAMMB     int        `json:"ram_mb"`
	VRAMMB    int        `json:"vram_mb"`
	Display   int        `json:"display"`
	Port      int        `json:"port"`
	Simulated bool       `json:"simulated"`
	Status    string     `json:"status"` // running | stopped | spawn_failed
	ExitCode  *int       `json:"exit_code,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
}

// Counts summarizes history for the status endpoint.
type Counts struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

type Store struct {
	db *sql.DB
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	browser    TEXT NOT NULL,
	ram_mb     INTEGER NOT NULL,
	vram_mb    INTEGER NOT NULL,
	display    INTEGER NOT NULL,
	port       INTEGER NOT NULL,
	simulated  INTEGER NOT NULL DEFAULT 0,
	status     TEXT NOT NULL DEFAULT 'running',
	exit_code  INTEGER,
	created_at DATETIME NOT NULL,
	stopped_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);
`

// isBusyLock reports whether err indicates SQLITE_BUSY, wrapped or not.
func isBusyLock(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "database is locked") || strings.Contains(s, "SQLITE_BUSY")
}

// retryOnBusy runs fn and retries on SQLITE_BUSY with exponential backoff.
func retryOnBusy(fn func() error) error {
	const maxAttempts = 4
	backoff := 25 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isBusyLock(lastErr) {
			return lastErr
		}
		if attempt < maxAttempts-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return lastErr
}

// dsnWithPragmas applies WAL and busy_timeout per-connection. Session exit
// events, status polls, and history reads overlap; WAL keeps readers off
// the writer's lock.
func dsnWithPragmas(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(15000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)"
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dsnWithPragmas(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Add(rec *Record) error {
	err := retryOnBusy(func() error {
		_, e := s.db.Exec(
			`INSERT INTO sessions (id, browser, ram_mb, vram_mb, display, port, simulated, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Browser, rec.RAMMB, rec.VRAMMB, rec.Display, rec.Port,
			rec.Simulated, rec.Status, rec.CreatedAt.UTC(),
		)
		return e
	})
	if err != nil {
		return fmt.Errorf("inserting session record: %w", err)
	}
	return nil
}

// MarkStopped records the terminal status of a session. exitCode may be
// nil when the process never ran.
func (s *Store) MarkStopped(id, status string, exitCode *int) error {
	var code sql.NullInt64
	if exitCode != nil {
		code = sql.NullInt64{Int64: int64(*exitCode), Valid: true}
	}
	err := retryOnBusy(func() error {
		_, e := s.db.Exec(
			`UPDATE sessions SET status = ?, exit_code = ?, stopped_at = ? WHERE id = ?`,
			status, code, time.Now().UTC(), id,
		)
		return e
	})
	if err != nil {
		return fmt.Errorf("marking session stopped: %w", err)
	}
	return nil
}

func (s *Store) Recent(limit int) ([]*Record, error) {
	rows, err := s.db.Query(
		`SELECT id, browser, ram_mb, vram_mb, display, port, simulated, status, exit_code, created_at, stopped_at
		 FROM sessions ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing session records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var exitCode sql.NullInt64
		var stoppedAt sql.NullTime
		if err := rows.Scan(
			&rec.ID, &rec.Browser, &rec.RAMMB, &rec.VRAMMB, &rec.Display, &rec.Port,
			&rec.Simulated, &rec.Status, &exitCode, &rec.CreatedAt, &stoppedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning session record: %w", err)
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			rec.ExitCode = &code
		}
		if stoppedAt.Valid {
			t := stoppedAt.Time
			rec.StoppedAt = &t
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session records: %w", err)
	}
	return records, nil
}

func (s *Store) Counts() (*Counts, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM sessions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting session records: %w", err)
	}
	defer rows.Close()

	c := &Counts{ByStatus: make(map[string]int)}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning counts: %w", err)
		}
		c.ByStatus[status] = n
		c.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating counts: %w", err)
	}
	return c, nil
}
