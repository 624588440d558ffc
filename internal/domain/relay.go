package domain

import "time"

// RelayStatus tracks delivery of a lead to the external CRM.
//
//	pending -> claimed -> relayed
//	claimed -> pending   (call failed, run aborted, or lease expired)
type RelayStatus string

const (
	RelayPending RelayStatus = "pending"
	RelayClaimed RelayStatus = "claimed"
	RelayRelayed RelayStatus = "relayed"
)

// RelayReport summarises one batch relay run.
type RelayReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DryRun     bool      `json:"dry_run"`
	Total      int       `json:"total"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"` // claimed by a concurrent run
	Errors     []string  `json:"errors,omitempty"`
}
