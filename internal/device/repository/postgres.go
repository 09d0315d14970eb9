package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"device-health-plane/internal/device/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a device repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const deviceColumns = `id, license_key, group_id, name, os_name, os_version, is_active, last_seen_at, health_status, health_score, created_at, updated_at`

// GetByID returns the device for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// GetByIDs returns the devices whose IDs appear in ids, in no particular
// order. Missing IDs are simply absent from the result.
func (r *PostgresRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Device, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	// The pgx stdlib driver encodes []string as a text array.
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDevices(rows)
}

// ListByOrg returns all devices belonging to the org through its license
// keys, ordered by name. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string) ([]*domain.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.id, d.license_key, d.group_id, d.name, d.os_name, d.os_version, d.is_active,
		        d.last_seen_at, d.health_status, d.health_score, d.created_at, d.updated_at
		 FROM devices d
		 JOIN licenses l ON l.key = d.license_key
		 WHERE l.org_id = $1
		 ORDER BY d.name`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDevices(rows)
}

// ListByGroup returns all devices with a membership row for the group, ordered by name.
func (r *PostgresRepository) ListByGroup(ctx context.Context, groupID string) ([]*domain.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.id, d.license_key, d.group_id, d.name, d.os_name, d.os_version, d.is_active,
		        d.last_seen_at, d.health_status, d.health_score, d.created_at, d.updated_at
		 FROM devices d
		 JOIN device_group_memberships m ON m.device_id = d.id
		 WHERE m.group_id = $1
		 ORDER BY d.name`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDevices(rows)
}

// ListUnassignedByOrg returns the org's devices with no membership row.
// Computed as a set difference against the membership table so it is always
// consistent with it; there is no stored "unassigned" flag.
func (r *PostgresRepository) ListUnassignedByOrg(ctx context.Context, orgID string) ([]*domain.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.id, d.license_key, d.group_id, d.name, d.os_name, d.os_version, d.is_active,
		        d.last_seen_at, d.health_status, d.health_score, d.created_at, d.updated_at
		 FROM devices d
		 JOIN licenses l ON l.key = d.license_key
		 WHERE l.org_id = $1
		   AND NOT EXISTS (SELECT 1 FROM device_group_memberships m WHERE m.device_id = d.id)
		 ORDER BY d.name`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDevices(rows)
}

// Create persists the device to the database. The device must have ID and LicenseKey set.
func (r *PostgresRepository) Create(ctx context.Context, d *domain.Device) error {
	lastSeen := sql.NullTime{}
	if d.LastSeenAt != nil {
		lastSeen = sql.NullTime{Time: *d.LastSeenAt, Valid: true}
	}
	group := sql.NullString{}
	if d.GroupID != nil {
		group = sql.NullString{String: *d.GroupID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (id, license_key, group_id, name, os_name, os_version, is_active, last_seen_at, health_status, health_score, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, d.LicenseKey, group, d.Name, d.OSName, d.OSVersion, d.IsActive,
		lastSeen, d.HealthStatus, d.HealthScore, d.CreatedAt, d.UpdatedAt)
	return err
}

// CountActiveByOrg counts active devices across the org's license keys.
func (r *PostgresRepository) CountActiveByOrg(ctx context.Context, orgID string) (int, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM devices d
		 JOIN licenses l ON l.key = d.license_key
		 WHERE l.org_id = $1 AND d.is_active`, orgID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SetActive sets the device's active flag. Returns an error if the update fails.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE devices SET is_active = $2, updated_at = $3 WHERE id = $1`,
		id, active, time.Now().UTC())
	return err
}

// UpdateHealth sets the device's derived health status and score.
func (r *PostgresRepository) UpdateHealth(ctx context.Context, id string, status domain.HealthStatus, score int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE devices SET health_status = $2, health_score = $3, updated_at = $4 WHERE id = $1`,
		id, status, score, time.Now().UTC())
	return err
}

// UpdateLastSeen sets the device's last-seen timestamp for the given id. Returns an error if the update fails.
func (r *PostgresRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE devices SET last_seen_at = $2, updated_at = $3 WHERE id = $1`,
		id, at, time.Now().UTC())
	return err
}

func collectDevices(rows *sql.Rows) ([]*domain.Device, error) {
	var out []*domain.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*domain.Device, error) {
	var d domain.Device
	var group sql.NullString
	var lastSeen sql.NullTime
	if err := row.Scan(&d.ID, &d.LicenseKey, &group, &d.Name, &d.OSName, &d.OSVersion,
		&d.IsActive, &lastSeen, &d.HealthStatus, &d.HealthScore, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if group.Valid {
		d.GroupID = &group.String
	}
	if lastSeen.Valid {
		d.LastSeenAt = &lastSeen.Time
	}
	return &d, nil
}
