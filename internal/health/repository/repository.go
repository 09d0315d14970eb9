package repository

import (
	"context"

	"device-health-plane/internal/health/domain"
)

// Repository defines persistence for the telemetry record store.
type Repository interface {
	Insert(ctx context.Context, rec *domain.MetricRecord) error
	// LatestByDevice returns the device's most recent record by recorded_at,
	// or nil if the device has never reported.
	LatestByDevice(ctx context.Context, deviceID string) (*domain.MetricRecord, error)
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]*domain.MetricRecord, error)
	// PruneOldRecords keeps the maxPerDevice most recent records for every
	// device and deletes the rest, oldest first. Returns the number of rows
	// deleted and the number of devices that had rows evicted.
	PruneOldRecords(ctx context.Context, maxPerDevice int) (deleted int, devices int, err error)
}
