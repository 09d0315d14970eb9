package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"device-health-plane/internal/license/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a license repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const licenseColumns = `key, org_id, device_limit, status, payment_status, expires_at, created_at, updated_at`

// GetByKey returns the license for key, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByKey(ctx context.Context, key string) (*domain.License, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE key = $1`, key)
	l, err := scanLicense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

// ListByOrg returns all licenses for the given org. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string) ([]*domain.License, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE org_id = $1 ORDER BY key`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.License
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Create persists the license to the database. The license must have Key and OrgID set.
func (r *PostgresRepository) Create(ctx context.Context, l *domain.License) error {
	expires := sql.NullTime{}
	if l.ExpiresAt != nil {
		expires = sql.NullTime{Time: *l.ExpiresAt, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO licenses (key, org_id, device_limit, status, payment_status, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.Key, l.OrgID, l.DeviceLimit, l.Status, l.PaymentStatus, expires, l.CreatedAt, l.UpdatedAt)
	return err
}

// SumActiveCapacity sums device_limit over active, non-expired licenses for the org.
// An org with no qualifying licenses yields (0, 0, nil); that is a normal state, not an error.
func (r *PostgresRepository) SumActiveCapacity(ctx context.Context, orgID string, now time.Time) (int, int, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(device_limit), 0), COUNT(*)
		 FROM licenses
		 WHERE org_id = $1 AND status = 'active' AND (expires_at IS NULL OR expires_at > $2)`,
		orgID, now)
	var total, count int
	if err := row.Scan(&total, &count); err != nil {
		return 0, 0, err
	}
	return total, count, nil
}

// SetDeviceLimitIfGreater raises device_limit only when newLimit > stored limit.
// The precondition is part of the UPDATE, so concurrent adjustments cannot
// interleave between read and write. Returns the limit after the statement.
func (r *PostgresRepository) SetDeviceLimitIfGreater(ctx context.Context, key string, newLimit int) (int, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE licenses SET device_limit = $2, updated_at = $3 WHERE key = $1 AND device_limit < $2`,
		key, newLimit, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return r.currentLimit(ctx, key)
}

// SetDeviceLimitIfLower lowers device_limit only when newLimit < stored limit.
func (r *PostgresRepository) SetDeviceLimitIfLower(ctx context.Context, key string, newLimit int) (int, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE licenses SET device_limit = $2, updated_at = $3 WHERE key = $1 AND device_limit > $2`,
		key, newLimit, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return r.currentLimit(ctx, key)
}

// SetDeviceLimitToActiveCount shrinks device_limit to the live count of
// active devices on the license. Running it twice in a row is a no-op the
// second time.
func (r *PostgresRepository) SetDeviceLimitToActiveCount(ctx context.Context, key string) (int, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE licenses
		 SET device_limit = (SELECT COUNT(*) FROM devices WHERE license_key = $1 AND is_active),
		     updated_at = $2
		 WHERE key = $1
		 RETURNING device_limit`,
		key, time.Now().UTC())
	var limit int
	if err := row.Scan(&limit); err != nil {
		return 0, err
	}
	return limit, nil
}

func (r *PostgresRepository) currentLimit(ctx context.Context, key string) (int, error) {
	row := r.db.QueryRowContext(ctx, `SELECT device_limit FROM licenses WHERE key = $1`, key)
	var limit int
	if err := row.Scan(&limit); err != nil {
		return 0, err
	}
	return limit, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLicense(row rowScanner) (*domain.License, error) {
	var l domain.License
	var expires sql.NullTime
	if err := row.Scan(&l.Key, &l.OrgID, &l.DeviceLimit, &l.Status, &l.PaymentStatus, &expires, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	if expires.Valid {
		l.ExpiresAt = &expires.Time
	}
	return &l, nil
}
