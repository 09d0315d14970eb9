package engine

import (
	"context"

	"device-health-plane/internal/access/domain"
)

// Evaluator decides whether a role may perform a mutating action.
type Evaluator interface {
	// EvaluateWrite reports whether the role is allowed to perform action.
	EvaluateWrite(ctx context.Context, role domain.Role, action string) (bool, error)
}

// RoleEvaluator is the pure-Go default: mutations require an elevated role.
// Account-manager grants scope reads only and never confer write access.
type RoleEvaluator struct{}

// EvaluateWrite allows the action for owner, admin, organization and company roles.
func (RoleEvaluator) EvaluateWrite(ctx context.Context, role domain.Role, action string) (bool, error) {
	return role.CanMutate(), nil
}
