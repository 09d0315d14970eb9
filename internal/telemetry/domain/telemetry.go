package domain

import "time"

// Event represents an operational telemetry event (org-scoped, optional
// user/device). Emitted best-effort from mutation and maintenance paths.
type Event struct {
	OrgID     string    `json:"org_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	DeviceID  string    `json:"device_id,omitempty"`
	EventType string    `json:"event_type"`
	Source    string    `json:"source,omitempty"`
	Metadata  []byte    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
