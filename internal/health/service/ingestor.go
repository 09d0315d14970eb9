package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	devicedomain "device-health-plane/internal/device/domain"
	"device-health-plane/internal/health/domain"
	"device-health-plane/internal/platform/apperr"
)

// RecordWriter is the telemetry repository surface needed for ingestion.
type RecordWriter interface {
	Insert(ctx context.Context, rec *domain.MetricRecord) error
}

// DeviceRepo is the minimal device repository needed for ingestion.
type DeviceRepo interface {
	GetByID(ctx context.Context, id string) (*devicedomain.Device, error)
	UpdateLastSeen(ctx context.Context, id string, seenAt time.Time) error
	UpdateHealth(ctx context.Context, id string, status devicedomain.HealthStatus, score int) error
}

// Ingestor persists inbound telemetry and refreshes the reporting device's
// derived health fields. Heartbeats advance last_seen only; health scans
// additionally recompute the stored health status and score.
type Ingestor struct {
	records    RecordWriter
	devices    DeviceRepo
	aggregator *Aggregator
}

// NewIngestor returns an Ingestor writing through the given repositories.
func NewIngestor(records RecordWriter, devices DeviceRepo, aggregator *Aggregator) *Ingestor {
	return &Ingestor{records: records, devices: devices, aggregator: aggregator}
}

// Ingest validates and appends the record, then updates the device's
// last_seen and derived health fields. Returns the refreshed snapshot.
func (s *Ingestor) Ingest(ctx context.Context, rec *domain.MetricRecord) (domain.Snapshot, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	if err := rec.Validate(); err != nil {
		return domain.Snapshot{}, apperr.Validationf("%v", err)
	}
	d, err := s.devices.GetByID(ctx, rec.DeviceID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if d == nil {
		return domain.Snapshot{}, apperr.NotFoundf("device %s does not exist", rec.DeviceID)
	}
	if err := s.records.Insert(ctx, rec); err != nil {
		return domain.Snapshot{}, err
	}
	if err := s.devices.UpdateLastSeen(ctx, d.ID, rec.RecordedAt); err != nil {
		return domain.Snapshot{}, err
	}
	d.LastSeenAt = &rec.RecordedAt

	snap := s.aggregator.Aggregate(ctx, d)
	if rec.Type == domain.TypeHealthScan {
		if err := s.devices.UpdateHealth(ctx, d.ID, devicedomain.HealthStatus(snap.Status), snap.OverallScore); err != nil {
			return domain.Snapshot{}, err
		}
	}
	return snap, nil
}
