package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"device-health-plane/internal/access/domain"
)

const writeQuery = "data.dhp.authz.allow_write"

// Default Rego policy mirroring RoleEvaluator: mutations require an elevated
// role, and account-manager grants never confer write access.
const defaultRegoPolicy = `package dhp.authz

default allow_write = false

allow_write if {
	input.role == "owner"
}

allow_write if {
	input.role == "admin"
}

allow_write if {
	input.role == "organization"
}

allow_write if {
	input.role == "company"
}
`

// OPAEvaluator evaluates write authorization using in-process OPA Rego, so
// deployments can swap the policy text without a code change.
type OPAEvaluator struct {
	policy string
}

// NewOPAEvaluator returns an OPA-based evaluator. An empty policy uses the
// built-in default matching the role table.
func NewOPAEvaluator(policy string) *OPAEvaluator {
	if policy == "" {
		policy = defaultRegoPolicy
	}
	return &OPAEvaluator{policy: policy}
}

// HealthCheck verifies the configured policy compiles and evaluates.
// Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	compiler, err := ast.CompileModules(map[string]string{"policy_0.rego": e.policy})
	if err != nil {
		return fmt.Errorf("compile policy: %w", err)
	}
	q := rego.New(
		rego.Query(writeQuery),
		rego.Compiler(compiler),
		rego.Input(map[string]interface{}{"role": "owner", "action": "healthcheck"}),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// EvaluateWrite evaluates the policy for the given role and action. If the
// policy fails to compile or evaluate, it logs and falls back to the role
// table rather than failing the mutation path.
func (e *OPAEvaluator) EvaluateWrite(ctx context.Context, role domain.Role, action string) (bool, error) {
	compiler, err := ast.CompileModules(map[string]string{"policy_0.rego": e.policy})
	if err != nil {
		log.Printf("access: compile policy: %v, using role defaults", err)
		return role.CanMutate(), nil
	}
	q := rego.New(
		rego.Query(writeQuery),
		rego.Compiler(compiler),
		rego.Input(map[string]interface{}{
			"role":   string(role),
			"action": action,
		}),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		log.Printf("access: eval policy: %v, using role defaults", err)
		return role.CanMutate(), nil
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, nil
	}
	return allowed, nil
}
