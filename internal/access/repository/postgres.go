package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"device-health-plane/internal/access/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a grant repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByUserAndOrg returns the user's grant within the organization, or nil
// if none exists. It returns an error only for database failures.
func (r *PostgresRepository) GetByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Grant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, org_id, role, access_all, group_names, created_at
		 FROM account_manager_grants
		 WHERE user_id = $1 AND org_id = $2`, userID, orgID)
	g, err := scanGrant(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return g, err
}

// ListByOrg returns every grant issued within the organization.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string) ([]*domain.Grant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, org_id, role, access_all, group_names, created_at
		 FROM account_manager_grants
		 WHERE org_id = $1
		 ORDER BY created_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Grant
	for rows.Next() {
		g, err := scanGrant(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Create persists the grant. The grant must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, g *domain.Grant) error {
	names, err := json.Marshal(g.GroupNames)
	if err != nil {
		return fmt.Errorf("marshal group names: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO account_manager_grants (id, user_id, org_id, role, access_all, group_names, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, g.UserID, g.OrgID, g.Role, g.AccessAll, names, g.CreatedAt)
	return err
}

// Delete removes the grant. Deleting a missing grant matches zero rows and succeeds.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM account_manager_grants WHERE id = $1`, id)
	return err
}

func scanGrant(scan func(dest ...any) error) (*domain.Grant, error) {
	var g domain.Grant
	var names []byte
	if err := scan(&g.ID, &g.UserID, &g.OrgID, &g.Role, &g.AccessAll, &names, &g.CreatedAt); err != nil {
		return nil, err
	}
	if len(names) > 0 {
		if err := json.Unmarshal(names, &g.GroupNames); err != nil {
			return nil, fmt.Errorf("unmarshal group names: %w", err)
		}
	}
	return &g, nil
}
