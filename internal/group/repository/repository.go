package repository

import (
	"context"

	"device-health-plane/internal/group/domain"
)

// Repository defines persistence for device groups and their memberships.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Group, error)
	ListByOrg(ctx context.Context, orgID string) ([]*domain.Group, error)
	Create(ctx context.Context, g *domain.Group) error
	// ReplaceMemberships atomically deletes any existing membership rows
	// for the given devices, inserts rows binding them to groupID, and
	// points each device's group reference at groupID. Runs in one
	// transaction so a partial failure cannot leave a device half-assigned.
	ReplaceMemberships(ctx context.Context, groupID string, deviceIDs []string) error
	// RemoveMembership deletes the membership row and clears the device's
	// group reference. Idempotent: removing an unassigned device is a no-op.
	RemoveMembership(ctx context.Context, groupID, deviceID string) error
}
