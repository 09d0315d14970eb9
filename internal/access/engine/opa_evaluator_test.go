package engine

import (
	"context"
	"testing"

	"device-health-plane/internal/access/domain"
)

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	if err := NewOPAEvaluator("").HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOPAEvaluator_DefaultPolicyMatchesRoleTable(t *testing.T) {
	e := NewOPAEvaluator("")
	roles := []domain.Role{
		domain.RoleOwner, domain.RoleAdmin, domain.RoleOrganization,
		domain.RoleCompany, domain.RoleIndividual, domain.RoleAccountManager,
	}
	for _, role := range roles {
		got, err := e.EvaluateWrite(context.Background(), role, "group.create")
		if err != nil {
			t.Fatalf("EvaluateWrite(%s): %v", role, err)
		}
		if want := role.CanMutate(); got != want {
			t.Errorf("EvaluateWrite(%s) = %v, want %v", role, got, want)
		}
	}
}

func TestOPAEvaluator_CustomPolicy(t *testing.T) {
	// A policy that only lets owners adjust license limits.
	policy := `package dhp.authz

default allow_write = false

allow_write if {
	input.role == "owner"
	input.action == "license.adjust_limit"
}
`
	e := NewOPAEvaluator(policy)
	got, err := e.EvaluateWrite(context.Background(), domain.RoleOwner, "license.adjust_limit")
	if err != nil || !got {
		t.Errorf("owner adjust_limit = %v, %v; want allowed", got, err)
	}
	got, err = e.EvaluateWrite(context.Background(), domain.RoleAdmin, "license.adjust_limit")
	if err != nil || got {
		t.Errorf("admin adjust_limit = %v, %v; want denied", got, err)
	}
}

func TestOPAEvaluator_BrokenPolicyFallsBack(t *testing.T) {
	e := NewOPAEvaluator("package dhp.authz\n\nallow_write {")
	got, err := e.EvaluateWrite(context.Background(), domain.RoleAdmin, "group.create")
	if err != nil {
		t.Fatalf("EvaluateWrite: %v", err)
	}
	if !got {
		t.Error("broken policy should fall back to the role table, which allows admin")
	}
}
