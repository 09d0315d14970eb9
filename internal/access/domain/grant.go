package domain

import (
	"errors"
	"time"
)

// Role is the principal's role as resolved by the external identity
// collaborator. Owner-side roles see and mutate everything in their scope;
// account managers are read-scoped by a Grant.
type Role string

const (
	RoleOwner          Role = "owner"
	RoleAdmin          Role = "admin"
	RoleOrganization   Role = "organization"
	RoleCompany        Role = "company"
	RoleIndividual     Role = "individual"
	RoleAccountManager Role = "account-manager"
)

// CanMutate reports whether the role alone is sufficient for
// capacity- or group-affecting writes. Account-manager grants never are;
// they scope reads only.
func (r Role) CanMutate() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleOrganization, RoleCompany:
		return true
	}
	return false
}

// Grant is a delegated visibility grant for one (user, organization) pair.
// Either AccessAll is set, or GroupNames lists the device groups the
// grantee may view. A grant with neither resolves to the empty visible set.
type Grant struct {
	ID         string
	UserID     string
	OrgID      string
	Role       Role
	AccessAll  bool
	GroupNames []string
	CreatedAt  time.Time
}

// Validate validates the grant for persistence. Returns an error describing the first validation failure.
func (g *Grant) Validate() error {
	if g.UserID == "" {
		return errors.New("user_id is required")
	}
	if g.OrgID == "" {
		return errors.New("org_id is required")
	}
	if g.Role == "" {
		g.Role = RoleAccountManager
	}
	return nil
}
