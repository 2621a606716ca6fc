package sync

import "github.com/dgnsrekt/auction-profile/internal/analytics"

// ReportEvent carries a full report. New subscribers receive it as a
// "snapshot" event, later refreshes as "report" events.
type ReportEvent struct {
	BroadcasterID string           `json:"broadcaster_id"`
	Symbol        string           `json:"symbol"`
	Timestamp     int64            `json:"timestamp"`
	Sequence      uint64           `json:"sequence"`
	Report        analytics.Report `json:"report"`
}

// Heartbeat keeps idle connections open through proxies.
type Heartbeat struct {
	BroadcasterID string `json:"broadcaster_id"`
	Timestamp     int64  `json:"timestamp"`
	Sequence      uint64 `json:"sequence"`
	Clients       int    `json:"clients"`
}
