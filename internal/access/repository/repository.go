package repository

import (
	"context"

	"device-health-plane/internal/access/domain"
)

// Repository defines persistence for account-manager grants.
type Repository interface {
	// GetByUserAndOrg returns the user's grant within the organization, or
	// nil if none exists.
	GetByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Grant, error)
	ListByOrg(ctx context.Context, orgID string) ([]*domain.Grant, error)
	Create(ctx context.Context, g *domain.Grant) error
	Delete(ctx context.Context, id string) error
}
