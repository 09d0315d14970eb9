package repository

import (
	"context"

	"device-health-plane/internal/settings/domain"
)

// Repository defines read access to platform-level monitoring settings.
type Repository interface {
	// GetMonitoringSettings returns platform monitoring settings.
	// Uses the passed defaults when keys are missing from the table.
	GetMonitoringSettings(ctx context.Context, defaults domain.MonitoringSettings) (*domain.MonitoringSettings, error)
}
