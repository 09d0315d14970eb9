package repository

import (
	"context"
	"time"

	"device-health-plane/internal/device/domain"
)

// Repository defines persistence for devices.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Device, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Device, error)
	ListByOrg(ctx context.Context, orgID string) ([]*domain.Device, error)
	ListByGroup(ctx context.Context, groupID string) ([]*domain.Device, error)
	ListUnassignedByOrg(ctx context.Context, orgID string) ([]*domain.Device, error)
	Create(ctx context.Context, d *domain.Device) error
	CountActiveByOrg(ctx context.Context, orgID string) (int, error)
	SetActive(ctx context.Context, id string, active bool) error
	UpdateHealth(ctx context.Context, id string, status domain.HealthStatus, score int) error
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
}
