package domain

import (
	"errors"
	"time"
)

// Device is a monitored endpoint enrolled under a license. GroupID is nil
// while the device is unassigned; HealthStatus and HealthScore are derived
// by the aggregator and never hand-edited.
type Device struct {
	ID           string
	LicenseKey   string
	GroupID      *string
	Name         string
	OSName       string
	OSVersion    string
	IsActive     bool
	LastSeenAt   *time.Time
	HealthStatus HealthStatus
	HealthScore  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HealthStatus classifies the composite health score.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
	HealthUnknown  HealthStatus = "unknown"
)

// Validate validates the device for persistence. Returns an error describing the first validation failure.
func (d *Device) Validate() error {
	if d.ID == "" {
		return errors.New("device_id is required")
	}
	if d.LicenseKey == "" {
		return errors.New("license_key is required")
	}
	if d.HealthStatus == "" {
		d.HealthStatus = HealthUnknown
	}
	return nil
}
