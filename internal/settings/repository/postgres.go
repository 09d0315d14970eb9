package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"device-health-plane/internal/settings/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a platform settings repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetMonitoringSettings returns platform monitoring settings from the DB,
// falling back to the passed defaults for missing keys.
func (r *PostgresRepository) GetMonitoringSettings(ctx context.Context, defaults domain.MonitoringSettings) (*domain.MonitoringSettings, error) {
	out := defaults

	if v, err := r.intSetting(ctx, "liveness_threshold_seconds"); err != nil {
		return nil, err
	} else if v > 0 {
		out.LivenessThresholdSeconds = v
	}
	if v, err := r.intSetting(ctx, "max_metric_records_per_device"); err != nil {
		return nil, err
	} else if v > 0 {
		out.MaxMetricRecordsPerDevice = v
	}
	return &out, nil
}

// intSetting reads one integer setting; missing or unparseable keys return 0.
func (r *PostgresRepository) intSetting(ctx context.Context, key string) (int, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM platform_settings WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return v, nil
}
