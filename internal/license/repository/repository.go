package repository

import (
	"context"
	"time"

	"device-health-plane/internal/license/domain"
)

// Repository defines persistence for licenses. Limit adjustments evaluate
// their precondition inside the UPDATE statement itself so concurrent
// adjustments serialize on the row rather than on a read-then-write race.
type Repository interface {
	GetByKey(ctx context.Context, key string) (*domain.License, error)
	ListByOrg(ctx context.Context, orgID string) ([]*domain.License, error)
	Create(ctx context.Context, l *domain.License) error
	// SumActiveCapacity sums device_limit over the org's licenses that are
	// active and not expired at now, returning (0, 0, nil) when the org has
	// no qualifying licenses.
	SumActiveCapacity(ctx context.Context, orgID string, now time.Time) (total int, activeLicenses int, err error)
	// SetDeviceLimitIfGreater raises device_limit to newLimit only if
	// newLimit is strictly greater than the stored value. Returns the
	// stored limit after the statement (unchanged on a no-op).
	SetDeviceLimitIfGreater(ctx context.Context, key string, newLimit int) (int, error)
	// SetDeviceLimitIfLower lowers device_limit to newLimit only if
	// newLimit is strictly lower than the stored value.
	SetDeviceLimitIfLower(ctx context.Context, key string, newLimit int) (int, error)
	// SetDeviceLimitToActiveCount shrinks device_limit to the count of
	// currently active devices enrolled under the license.
	SetDeviceLimitToActiveCount(ctx context.Context, key string) (int, error)
}
