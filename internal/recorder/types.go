package recorder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/profile"
)

var ErrNotFound = errors.New("session not found")

// SessionRecord is the end-of-session summary persisted per symbol and date.
type SessionRecord struct {
	ID            string         `json:"id"`
	Symbol        string         `json:"symbol"`
	Date          string         `json:"date"` // YYYY-MM-DD
	POC           *float64       `json:"poc"`
	ValueAreaHigh *float64       `json:"value_area_high"`
	ValueAreaLow  *float64       `json:"value_area_low"`
	SessionHigh   *float64       `json:"session_high"`
	SessionLow    *float64       `json:"session_low"`
	IBHigh        *float64       `json:"ib_high"`
	IBLow         *float64       `json:"ib_low"`
	Tails         []profile.Tail `json:"tails"`
	RecordedAt    time.Time      `json:"recorded_at"`
}

// NewSessionRecord captures a session report.
func NewSessionRecord(symbol string, day time.Time, a profile.Analytics, at time.Time) *SessionRecord {
	tails := a.AllTails
	if tails == nil {
		tails = []profile.Tail{}
	}
	return &SessionRecord{
		ID:            uuid.NewString(),
		Symbol:        symbol,
		Date:          day.Format("2006-01-02"),
		POC:           a.SessionStats.POC,
		ValueAreaHigh: a.SessionStats.ValueAreaHigh,
		ValueAreaLow:  a.SessionStats.ValueAreaLow,
		SessionHigh:   a.SessionStats.SessionHigh,
		SessionLow:    a.SessionStats.SessionLow,
		IBHigh:        a.InitialBalance.High,
		IBLow:         a.InitialBalance.Low,
		Tails:         tails,
		RecordedAt:    at,
	}
}

// Recorder persists session summaries for later review.
type Recorder interface {
	RecordSession(ctx context.Context, rec *SessionRecord) error
	GetSession(ctx context.Context, symbol, date string) (*SessionRecord, error)
	ListSessions(ctx context.Context, symbol string, limit int) ([]SessionRecord, error)
	Close() error
}

// Open returns the SQLite recorder at path, or a NoopRecorder when path is
// empty.
func Open(path string, logger *zap.Logger) (Recorder, error) {
	if path == "" {
		return NewNoopRecorder(), nil
	}
	return NewSQLiteRecorder(path, logger)
}
