// Package journal keeps a durable SQLite record of assistant events: every
// activation, heard utterance, dispatched command and robot action, keyed by
// session.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-guido/pkg/events"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("journal: closed")

const schema = `
CREATE TABLE IF NOT EXISTS events (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	kind TEXT NOT NULL,
	session TEXT NOT NULL DEFAULT '',
	at TEXT NOT NULL,
	data TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_session ON events(session);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
`

// Journal is a SQLite-backed event store.
type Journal struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	logger *slog.Logger
}

// Open creates or opens the journal at path. ":memory:" keeps it in memory.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("journal: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}
	return &Journal{db: db, logger: logger.With("component", "journal")}, nil
}

// Publish records e. It lets the journal stand in wherever an
// events.Publisher is accepted.
func (j *Journal) Publish(ctx context.Context, e events.Event) error {
	return j.Record(ctx, e)
}

// Record stores e. Recording the same event id twice is a no-op.
func (j *Journal) Record(ctx context.Context, e events.Event) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}

	var data []byte
	if len(e.Data) > 0 {
		var err error
		if data, err = json.Marshal(e.Data); err != nil {
			return fmt.Errorf("journal: encode %s: %w", e.Kind, err)
		}
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO events (id, kind, session, at, data) VALUES (?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.Session, e.Time.UTC().Format(time.RFC3339Nano), nullable(data))
	if err != nil {
		return fmt.Errorf("journal: insert %s: %w", e.Kind, err)
	}
	return nil
}

// Recent returns up to limit of the newest events, oldest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]events.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	return j.query(ctx,
		`SELECT id, kind, session, at, data FROM (
			SELECT seq, id, kind, session, at, data FROM events ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, limit)
}

// Session returns every event of one active period in order.
func (j *Journal) Session(ctx context.Context, session string) ([]events.Event, error) {
	return j.query(ctx,
		`SELECT id, kind, session, at, data FROM events WHERE session = ? ORDER BY seq ASC`, session)
}

// Counts returns the number of recorded events per kind.
func (j *Journal) Counts(ctx context.Context) (map[events.Kind]int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}

	rows, err := j.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM events GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("journal: count: %w", err)
	}
	defer rows.Close()

	out := make(map[events.Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("journal: scan count: %w", err)
		}
		out[events.Kind(kind)] = n
	}
	return out, rows.Err()
}

func (j *Journal) query(ctx context.Context, q string, args ...any) ([]events.Event, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			e    events.Event
			kind string
			at   string
			data sql.NullString
		)
		if err := rows.Scan(&e.ID, &kind, &e.Session, &at, &data); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Kind = events.Kind(kind)
		if e.Time, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("journal: parse time %q: %w", at, err)
		}
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &e.Data); err != nil {
				return nil, fmt.Errorf("journal: decode %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Run records every bus event until ctx is cancelled.
func (j *Journal) Run(ctx context.Context, bus *events.Bus) error {
	sub, err := bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	return j.Consume(ctx, sub)
}

// Consume records events from sub until it closes.
func (j *Journal) Consume(ctx context.Context, sub <-chan events.Event) error {
	for e := range sub {
		if err := j.Record(context.WithoutCancel(ctx), e); err != nil {
			j.logger.Warn("record failed", "kind", e.Kind, "error", err)
		}
	}
	return nil
}

// Close closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

func nullable(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

var _ events.Publisher = (*Journal)(nil)
