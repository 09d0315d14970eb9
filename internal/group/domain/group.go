package domain

import (
	"errors"
	"time"
)

// Group is an organizational grouping of devices sharing one license.
// The license binding is fixed at creation time; members must be enrolled
// under the same key.
type Group struct {
	ID         string
	OrgID      string
	Name       string
	LicenseKey string
	CreatedAt  time.Time

	// DeviceCount is the live cardinality of the membership relation,
	// populated per query and never cached past it.
	DeviceCount int
}

// Membership assigns a device to a group. A device appears in at most one
// membership row at any time; reassignment deletes the old row first.
type Membership struct {
	DeviceID   string
	GroupID    string
	AssignedAt time.Time
}

// Validate validates the group for persistence. Returns an error describing the first validation failure.
func (g *Group) Validate() error {
	if g.OrgID == "" {
		return errors.New("org_id is required")
	}
	if g.Name == "" {
		return errors.New("name is required")
	}
	if g.LicenseKey == "" {
		return errors.New("license_key is required")
	}
	return nil
}
