package repository

import (
	"context"

	"device-health-plane/internal/organization/domain"
)

// Repository defines persistence for organizations.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Org, error)
	Create(ctx context.Context, o *domain.Org) error
	Update(ctx context.Context, o *domain.Org) error
}
