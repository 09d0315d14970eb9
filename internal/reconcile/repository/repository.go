package repository

import (
	"context"

	"device-health-plane/internal/reconcile/domain"
)

// Repository defines persistence for license usage snapshots.
type Repository interface {
	// Get returns the organization's snapshot, or nil if it has never been
	// reconciled.
	Get(ctx context.Context, orgID string) (*domain.UsageSnapshot, error)
	// Upsert inserts or replaces the organization's snapshot row.
	Upsert(ctx context.Context, snap *domain.UsageSnapshot) error
	// SetState transitions the snapshot's state, creating a zeroed stale
	// row if the organization has none yet.
	SetState(ctx context.Context, orgID string, state domain.State) error
}
