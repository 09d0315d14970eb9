package domain

import (
	"errors"
	"time"
)

// License is a capacity grant entitling an organization to operate up to
// DeviceLimit monitored devices. Devices reference it by Key.
type License struct {
	Key           string
	OrgID         string
	DeviceLimit   int
	Status        Status
	PaymentStatus PaymentStatus
	ExpiresAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusExpired  Status = "expired"
)

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPastDue PaymentStatus = "past_due"
)

// Usable reports whether the license admits new device enrollment:
// active, paid, and not expired at the given instant.
func (l *License) Usable(now time.Time) bool {
	if l.Status != StatusActive {
		return false
	}
	if l.PaymentStatus != PaymentPaid {
		return false
	}
	if l.ExpiresAt != nil && !l.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Validate validates the license for persistence. Returns an error describing the first validation failure.
func (l *License) Validate() error {
	if l.Key == "" {
		return errors.New("key is required")
	}
	if l.OrgID == "" {
		return errors.New("org_id is required")
	}
	if l.DeviceLimit < 0 {
		return errors.New("device_limit must be >= 0")
	}
	if l.Status == "" {
		l.Status = StatusActive
	}
	if l.PaymentStatus == "" {
		l.PaymentStatus = PaymentUnpaid
	}
	return nil
}
