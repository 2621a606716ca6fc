package recorder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/profile"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "recorder-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	rec, err := NewSQLiteRecorder(filepath.Join(tmpDir, "sessions.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })
	return rec
}

func analytics(poc float64, tails ...profile.Tail) profile.Analytics {
	a := profile.EmptyAnalytics()
	a.SessionStats.POC = &poc
	a.AllTails = append(a.AllTails, tails...)
	return a
}

func TestRecordAndGetSession(t *testing.T) {
	r := openTestRecorder(t)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	at := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)

	tail := profile.Tail{Price: 107, Kind: profile.SellingTail, Confidence: 0.905, AtPrice: profile.TailPrints{Bars: 1, Volume: 5}}
	require.NoError(t, r.RecordSession(ctx, NewSessionRecord("TSLA", day, analytics(100, tail), at)))

	got, err := r.GetSession(ctx, "TSLA", "2025-03-10")
	require.NoError(t, err)
	require.NotNil(t, got.POC)
	assert.Equal(t, 100.0, *got.POC)
	assert.Nil(t, got.ValueAreaHigh)
	assert.Equal(t, []profile.Tail{tail}, got.Tails)
	assert.True(t, got.RecordedAt.Equal(at))

	_, err = r.GetSession(ctx, "TSLA", "2025-03-11")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRecordSessionUpserts(t *testing.T) {
	r := openTestRecorder(t)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, r.RecordSession(ctx, NewSessionRecord("TSLA", day, analytics(100), time.Now())))
	require.NoError(t, r.RecordSession(ctx, NewSessionRecord("TSLA", day, analytics(101), time.Now())))

	list, err := r.ListSessions(ctx, "TSLA", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 101.0, *list[0].POC)
}

func TestListSessionsNewestFirst(t *testing.T) {
	r := openTestRecorder(t)
	ctx := context.Background()

	for _, d := range []int{7, 10, 6} {
		day := time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
		require.NoError(t, r.RecordSession(ctx, NewSessionRecord("TSLA", day, analytics(100), time.Now())))
	}
	require.NoError(t, r.RecordSession(ctx, NewSessionRecord("SPY", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), analytics(500), time.Now())))

	list, err := r.ListSessions(ctx, "TSLA", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2025-03-10", list[0].Date)
	assert.Equal(t, "2025-03-07", list[1].Date)
}

func TestNoopRecorder(t *testing.T) {
	n := NewNoopRecorder()
	assert.NoError(t, n.RecordSession(context.Background(), &SessionRecord{}))
	list, err := n.ListSessions(context.Background(), "TSLA", 5)
	assert.NoError(t, err)
	assert.Empty(t, list)
	_, err = n.GetSession(context.Background(), "TSLA", "2025-03-10")
	assert.ErrorIs(t, err, ErrNotFound)
}
