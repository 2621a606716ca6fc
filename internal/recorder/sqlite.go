package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists session summaries to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the HTTP server read while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id              TEXT NOT NULL,
			symbol          TEXT NOT NULL,
			session_date    TEXT NOT NULL,
			poc             REAL,
			value_area_high REAL,
			value_area_low  REAL,
			session_high    REAL,
			session_low     REAL,
			ib_high         REAL,
			ib_low          REAL,
			tail_count      INTEGER NOT NULL,
			tails_json      TEXT NOT NULL,
			recorded_at     INTEGER NOT NULL,
			PRIMARY KEY (symbol, session_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_recorded ON sessions(recorded_at)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordSession inserts the summary, replacing any earlier record for the
// same symbol and date.
func (r *SQLiteRecorder) RecordSession(ctx context.Context, rec *SessionRecord) error {
	tails, err := json.Marshal(rec.Tails)
	if err != nil {
		return fmt.Errorf("encode tails: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `INSERT INTO sessions (
			id, symbol, session_date, poc, value_area_high, value_area_low,
			session_high, session_low, ib_high, ib_low, tail_count, tails_json, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, session_date) DO UPDATE SET
			id = excluded.id,
			poc = excluded.poc,
			value_area_high = excluded.value_area_high,
			value_area_low = excluded.value_area_low,
			session_high = excluded.session_high,
			session_low = excluded.session_low,
			ib_high = excluded.ib_high,
			ib_low = excluded.ib_low,
			tail_count = excluded.tail_count,
			tails_json = excluded.tails_json,
			recorded_at = excluded.recorded_at`,
		rec.ID, rec.Symbol, rec.Date, rec.POC, rec.ValueAreaHigh, rec.ValueAreaLow,
		rec.SessionHigh, rec.SessionLow, rec.IBHigh, rec.IBLow, len(rec.Tails), string(tails),
		rec.RecordedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session %s/%s: %w", rec.Symbol, rec.Date, err)
	}

	r.logger.Debug("session recorded",
		zap.String("symbol", rec.Symbol),
		zap.String("date", rec.Date),
		zap.Int("tails", len(rec.Tails)),
	)
	return nil
}

const selectSession = `SELECT id, symbol, session_date, poc, value_area_high, value_area_low,
	session_high, session_low, ib_high, ib_low, tails_json, recorded_at FROM sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*SessionRecord, error) {
	var (
		rec        SessionRecord
		tails      string
		recordedAt int64
	)
	if err := row.Scan(&rec.ID, &rec.Symbol, &rec.Date, &rec.POC, &rec.ValueAreaHigh, &rec.ValueAreaLow,
		&rec.SessionHigh, &rec.SessionLow, &rec.IBHigh, &rec.IBLow, &tails, &recordedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tails), &rec.Tails); err != nil {
		return nil, fmt.Errorf("decode tails: %w", err)
	}
	rec.RecordedAt = time.Unix(recordedAt, 0).UTC()
	return &rec, nil
}

// GetSession returns the record for symbol on date.
func (r *SQLiteRecorder) GetSession(ctx context.Context, symbol, date string) (*SessionRecord, error) {
	row := r.db.QueryRowContext(ctx, selectSession+` WHERE symbol = ? AND session_date = ?`, symbol, date)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s/%s: %w", symbol, date, err)
	}
	return rec, nil
}

// ListSessions returns up to limit records for symbol, newest session first.
func (r *SQLiteRecorder) ListSessions(ctx context.Context, symbol string, limit int) ([]SessionRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectSession+` WHERE symbol = ? ORDER BY session_date DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions %s: %w", symbol, err)
	}
	defer rows.Close()

	out := []SessionRecord{}
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

var _ Recorder = (*SQLiteRecorder)(nil)
