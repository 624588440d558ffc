package domain

import "time"

// EventType names a lead engagement or lifecycle event.
type EventType string

const (
	EventLeadCreated  EventType = "lead.created"
	EventOpened       EventType = "opened"
	EventReportViewed EventType = "report_viewed"
)

// LeadEvent is published to the event queue and stored in lead_events.
type LeadEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"event_type"`
	Funnel    Funnel    `json:"funnel"`
	LeadID    int64     `json:"lead_id,omitempty"`
	Token     string    `json:"token,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
