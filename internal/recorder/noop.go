package recorder

import "context"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSession(_ context.Context, _ *SessionRecord) error { return nil }
func (n *NoopRecorder) GetSession(_ context.Context, _, _ string) (*SessionRecord, error) {
	return nil, ErrNotFound
}
func (n *NoopRecorder) ListSessions(_ context.Context, _ string, _ int) ([]SessionRecord, error) {
	return []SessionRecord{}, nil
}
func (n *NoopRecorder) Close() error { return nil }

var _ Recorder = (*NoopRecorder)(nil)
