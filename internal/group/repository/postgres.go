package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"device-health-plane/internal/group/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a group repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the group for id with its live device count, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT g.id, g.org_id, g.name, g.license_key, g.created_at,
		        (SELECT COUNT(*) FROM device_group_memberships m WHERE m.group_id = g.id)
		 FROM device_groups g WHERE g.id = $1`, id)
	var g domain.Group
	if err := row.Scan(&g.ID, &g.OrgID, &g.Name, &g.LicenseKey, &g.CreatedAt, &g.DeviceCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

// ListByOrg returns the org's groups ordered by name, each with the live
// cardinality of its membership relation.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string) ([]*domain.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT g.id, g.org_id, g.name, g.license_key, g.created_at, COUNT(m.device_id)
		 FROM device_groups g
		 LEFT JOIN device_group_memberships m ON m.group_id = g.id
		 WHERE g.org_id = $1
		 GROUP BY g.id, g.org_id, g.name, g.license_key, g.created_at
		 ORDER BY g.name`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Group
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.OrgID, &g.Name, &g.LicenseKey, &g.CreatedAt, &g.DeviceCount); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

// Create persists the group to the database. The group must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, g *domain.Group) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_groups (id, org_id, name, license_key, created_at) VALUES ($1, $2, $3, $4, $5)`,
		g.ID, g.OrgID, g.Name, g.LicenseKey, g.CreatedAt)
	return err
}

// ReplaceMemberships reassigns the given devices to groupID in a single
// transaction: delete old membership rows, insert new ones, update each
// device's group reference. The devices are locked first so two concurrent
// assignments over overlapping device sets serialize instead of producing
// duplicate memberships.
func (r *PostgresRepository) ReplaceMemberships(ctx context.Context, groupID string, deviceIDs []string) error {
	if len(deviceIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Row-level locks on the devices serialize overlapping assignments.
	if _, err := tx.ExecContext(ctx,
		`SELECT id FROM devices WHERE id = ANY($1) FOR UPDATE`, deviceIDs); err != nil {
		return fmt.Errorf("lock devices: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM device_group_memberships WHERE device_id = ANY($1)`, deviceIDs); err != nil {
		return fmt.Errorf("delete old memberships: %w", err)
	}
	now := time.Now().UTC()
	for _, id := range deviceIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO device_group_memberships (device_id, group_id, assigned_at) VALUES ($1, $2, $3)`,
			id, groupID, now); err != nil {
			return fmt.Errorf("insert membership for %s: %w", id, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE devices SET group_id = $2, updated_at = $3 WHERE id = ANY($1)`,
		deviceIDs, groupID, now); err != nil {
		return fmt.Errorf("update device group refs: %w", err)
	}
	return tx.Commit()
}

// RemoveMembership deletes the membership row and clears the device's group
// reference in one transaction. Removing an already-unassigned device
// matches zero rows and succeeds.
func (r *PostgresRepository) RemoveMembership(ctx context.Context, groupID, deviceID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM device_group_memberships WHERE group_id = $1 AND device_id = $2`,
		groupID, deviceID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE devices SET group_id = NULL, updated_at = $3 WHERE id = $1 AND group_id = $2`,
		deviceID, groupID, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}
