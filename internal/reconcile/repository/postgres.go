package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"device-health-plane/internal/reconcile/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a snapshot repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the organization's snapshot, or nil if it has never been
// reconciled. It returns an error only for database failures.
func (r *PostgresRepository) Get(ctx context.Context, orgID string) (*domain.UsageSnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT org_id, active_devices, total_capacity, active_licenses, unused_devices, state, updated_at
		 FROM usage_snapshots WHERE org_id = $1`, orgID)
	var s domain.UsageSnapshot
	if err := row.Scan(&s.OrgID, &s.ActiveDevices, &s.TotalCapacity, &s.ActiveLicenses, &s.UnusedDevices, &s.State, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Upsert inserts or replaces the organization's snapshot row.
func (r *PostgresRepository) Upsert(ctx context.Context, snap *domain.UsageSnapshot) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO usage_snapshots (org_id, active_devices, total_capacity, active_licenses, unused_devices, state, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (org_id) DO UPDATE SET
		     active_devices = EXCLUDED.active_devices,
		     total_capacity = EXCLUDED.total_capacity,
		     active_licenses = EXCLUDED.active_licenses,
		     unused_devices = EXCLUDED.unused_devices,
		     state = EXCLUDED.state,
		     updated_at = EXCLUDED.updated_at`,
		snap.OrgID, snap.ActiveDevices, snap.TotalCapacity, snap.ActiveLicenses, snap.UnusedDevices, snap.State, snap.UpdatedAt)
	return err
}

// SetState transitions the snapshot's state, creating a zeroed stale row
// first if the organization has none yet.
func (r *PostgresRepository) SetState(ctx context.Context, orgID string, state domain.State) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO usage_snapshots (org_id, active_devices, total_capacity, active_licenses, unused_devices, state, updated_at)
		 VALUES ($1, 0, 0, 0, 0, $2, $3)
		 ON CONFLICT (org_id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		orgID, state, time.Now().UTC())
	return err
}
