package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"device-health-plane/internal/health/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a telemetry repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert appends the record to the store. Records are immutable; there is no update path.
func (r *PostgresRepository) Insert(ctx context.Context, rec *domain.MetricRecord) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO health_metric_records (id, device_id, license_key, metric_type, recorded_at, payload)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.DeviceID, rec.LicenseKey, rec.Type, rec.RecordedAt, payload)
	return err
}

// LatestByDevice returns the device's most recent record, or nil if the
// device has never reported. It returns an error only for database failures.
func (r *PostgresRepository) LatestByDevice(ctx context.Context, deviceID string) (*domain.MetricRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, device_id, license_key, metric_type, recorded_at, payload
		 FROM health_metric_records
		 WHERE device_id = $1
		 ORDER BY recorded_at DESC
		 LIMIT 1`, deviceID)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// ListByDevice returns the device's records newest first, capped at limit.
func (r *PostgresRepository) ListByDevice(ctx context.Context, deviceID string, limit int) ([]*domain.MetricRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, license_key, metric_type, recorded_at, payload
		 FROM health_metric_records
		 WHERE device_id = $1
		 ORDER BY recorded_at DESC
		 LIMIT $2`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.MetricRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneOldRecords keeps the maxPerDevice most recent records per device and
// deletes everything older, ranked by recorded_at within each device.
func (r *PostgresRepository) PruneOldRecords(ctx context.Context, maxPerDevice int) (int, int, error) {
	rows, err := r.db.QueryContext(ctx,
		`WITH ranked AS (
		     SELECT id, device_id,
		            ROW_NUMBER() OVER (PARTITION BY device_id ORDER BY recorded_at DESC) AS rn
		     FROM health_metric_records
		 )
		 DELETE FROM health_metric_records h
		 USING ranked r
		 WHERE h.id = r.id AND r.rn > $1
		 RETURNING h.device_id`, maxPerDevice)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()
	deleted := 0
	devices := map[string]struct{}{}
	for rows.Next() {
		var deviceID string
		if err := rows.Scan(&deviceID); err != nil {
			return 0, 0, err
		}
		deleted++
		devices[deviceID] = struct{}{}
	}
	return deleted, len(devices), rows.Err()
}

func scanRecord(scan func(dest ...any) error) (*domain.MetricRecord, error) {
	var rec domain.MetricRecord
	var payload []byte
	if err := scan(&rec.ID, &rec.DeviceID, &rec.LicenseKey, &rec.Type, &rec.RecordedAt, &payload); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &rec.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	return &rec, nil
}
