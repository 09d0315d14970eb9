// Package producer defines the interface for publishing telemetry records to the ingestion topic.
package producer

import (
	"context"

	healthdomain "device-health-plane/internal/health/domain"
)

// Publisher publishes health metric records for the ingestion worker to consume.
// Callers use it best-effort: log and ignore errors.
type Publisher interface {
	// Publish sends a single record. Implementations may block briefly; call from a goroutine if needed.
	Publish(ctx context.Context, rec *healthdomain.MetricRecord) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
