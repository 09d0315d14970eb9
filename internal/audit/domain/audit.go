package domain

import "time"

// AuditLog represents one recorded mutation: who did what to which resource.
type AuditLog struct {
	ID        string
	OrgID     string
	UserID    string
	Action    string
	Resource  string
	Metadata  string
	CreatedAt time.Time
}
