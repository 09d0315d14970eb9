package domain

import (
	"errors"
	"time"
)

// MetricType discriminates between a full scan and a bare liveness ping.
type MetricType string

const (
	// TypeHealthScan carries the full per-subsystem payload.
	TypeHealthScan MetricType = "health_scan"
	// TypeHeartbeat carries no payload and updates liveness only.
	TypeHeartbeat MetricType = "heartbeat"
)

// MetricRecord is one immutable telemetry report from a device. Records are
// append-only; retention is handled separately by pruning the oldest rows.
type MetricRecord struct {
	ID         string     `json:"id"`
	DeviceID   string     `json:"device_id"`
	LicenseKey string     `json:"license_key"`
	Type       MetricType `json:"metric_type"`
	RecordedAt time.Time  `json:"recorded_at"`
	Payload    Payload    `json:"payload"`
}

// Payload holds the per-subsystem sections of a health_scan record. Every
// section and every field within one is optional; a heartbeat record leaves
// the whole payload zero-valued.
type Payload struct {
	// OverallScore is the scanner's own composite score. When present it
	// takes precedence over any derived composite.
	OverallScore *int `json:"overall_score,omitempty"`

	Performance *PerformanceMetrics `json:"performance,omitempty"`
	Disk        *DiskMetrics        `json:"disk,omitempty"`
	Memory      *MemoryMetrics      `json:"memory,omitempty"`
	Network     *NetworkMetrics     `json:"network,omitempty"`
	Services    *ServicesMetrics    `json:"services,omitempty"`
	Security    *SecurityMetrics    `json:"security,omitempty"`
}

// PerformanceMetrics reports CPU and memory pressure as usage percentages.
type PerformanceMetrics struct {
	CPUUsage    *float64 `json:"cpu_usage,omitempty"`
	MemoryUsage *float64 `json:"memory_usage,omitempty"`
}

// DiskMetrics reports disk fill as a usage percentage.
type DiskMetrics struct {
	DiskUsage *float64 `json:"disk_usage,omitempty"`
}

// MemoryMetrics reports memory fill as a usage percentage.
type MemoryMetrics struct {
	MemoryUsage *float64 `json:"memory_usage,omitempty"`
}

// NetworkMetrics reports connectivity as seen by the device agent.
type NetworkMetrics struct {
	Connected *bool `json:"connected,omitempty"`
}

// ServicesMetrics carries the agent's service-health score verbatim.
type ServicesMetrics struct {
	Score *int `json:"score,omitempty"`
}

// SecurityMetrics carries the agent's security-posture score verbatim.
type SecurityMetrics struct {
	Score *int `json:"score,omitempty"`
}

// Validate validates the record for persistence.
func (r *MetricRecord) Validate() error {
	if r.DeviceID == "" {
		return errors.New("device_id is required")
	}
	if r.Type != TypeHealthScan && r.Type != TypeHeartbeat {
		return errors.New("metric_type must be health_scan or heartbeat")
	}
	if r.RecordedAt.IsZero() {
		return errors.New("recorded_at is required")
	}
	return nil
}

// Snapshot is the aggregated health view of one device at a point in time.
type Snapshot struct {
	DeviceID string

	PerformanceScore int
	MemoryScore      int
	DiskScore        int
	NetworkScore     int
	ServicesScore    int
	SecurityScore    int

	OverallScore int
	Status       string
	Online       bool

	GeneratedAt time.Time
}

// Status classification bands for the overall score.
const (
	StatusHealthy  = "healthy"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// StatusFor maps an overall score to its classification band.
func StatusFor(score int) string {
	switch {
	case score >= 80:
		return StatusHealthy
	case score >= 50:
		return StatusWarning
	default:
		return StatusCritical
	}
}
