package service

import (
	"context"
	"time"

	licenseservice "device-health-plane/internal/license/service"
	"device-health-plane/internal/reconcile/domain"
)

// CapacitySource supplies the organization's total license capacity.
type CapacitySource interface {
	ComputeCapacity(ctx context.Context, orgID string) (licenseservice.Capacity, error)
}

// DeviceCounter counts active devices across the organization's licenses.
type DeviceCounter interface {
	CountActiveByOrg(ctx context.Context, orgID string) (int, error)
}

// SnapshotRepo is the minimal snapshot repository needed by the coordinator.
type SnapshotRepo interface {
	Get(ctx context.Context, orgID string) (*domain.UsageSnapshot, error)
	Upsert(ctx context.Context, snap *domain.UsageSnapshot) error
	SetState(ctx context.Context, orgID string, state domain.State) error
}

// Coordinator keeps each organization's usage snapshot consistent with the
// ledger and registry. Recomputation always derives from current
// authoritative state, so running it redundantly is safe and no incremental
// counter is ever trusted.
type Coordinator struct {
	capacity  CapacitySource
	devices   DeviceCounter
	snapshots SnapshotRepo
}

// NewCoordinator returns a Coordinator over the given sources.
func NewCoordinator(capacity CapacitySource, devices DeviceCounter, snapshots SnapshotRepo) *Coordinator {
	return &Coordinator{capacity: capacity, devices: devices, snapshots: snapshots}
}

// MarkStale flags the organization's snapshot as invalidated by a mutation.
// Callers that cannot recompute inline mark stale and let the next
// Recompute pick it up.
func (c *Coordinator) MarkStale(ctx context.Context, orgID string) error {
	return c.snapshots.SetState(ctx, orgID, domain.StateStale)
}

// Recompute rederives the organization's snapshot: total capacity from the
// ledger, active device count from the registry, unused as the clamped
// difference. The snapshot passes through recomputing before landing fresh.
func (c *Coordinator) Recompute(ctx context.Context, orgID string) error {
	if err := c.snapshots.SetState(ctx, orgID, domain.StateRecomputing); err != nil {
		return err
	}
	capacity, err := c.capacity.ComputeCapacity(ctx, orgID)
	if err != nil {
		return err
	}
	active, err := c.devices.CountActiveByOrg(ctx, orgID)
	if err != nil {
		return err
	}
	unused := capacity.TotalCapacity - active
	if unused < 0 {
		unused = 0
	}
	return c.snapshots.Upsert(ctx, &domain.UsageSnapshot{
		OrgID:          orgID,
		ActiveDevices:  active,
		TotalCapacity:  capacity.TotalCapacity,
		ActiveLicenses: capacity.ActiveLicenses,
		UnusedDevices:  unused,
		State:          domain.StateFresh,
		UpdatedAt:      time.Now().UTC(),
	})
}

// Snapshot returns the organization's current snapshot, or nil if it has
// never been reconciled.
func (c *Coordinator) Snapshot(ctx context.Context, orgID string) (*domain.UsageSnapshot, error) {
	return c.snapshots.Get(ctx, orgID)
}
