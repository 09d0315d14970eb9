package domain

import (
	"errors"
	"time"
)

// Org represents a tenant that owns licenses, device groups, and (through
// license keys) devices.
type Org struct {
	ID        string
	Name      string
	Status    OrgStatus
	Tier      Tier
	CreatedAt time.Time
}

type OrgStatus string

const (
	OrgStatusActive    OrgStatus = "active"
	OrgStatusSuspended OrgStatus = "suspended"
)

// Tier is the subscription tier; it does not affect quota math (capacity
// comes from licenses) but is carried for billing-facing reads.
type Tier string

const (
	TierStandard   Tier = "standard"
	TierEnterprise Tier = "enterprise"
)

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
func (o *Org) Validate() error {
	if o.Name == "" {
		return errors.New("name is required")
	}
	if o.Status == "" {
		o.Status = OrgStatusActive
	}
	if o.Tier == "" {
		o.Tier = TierStandard
	}
	return nil
}
