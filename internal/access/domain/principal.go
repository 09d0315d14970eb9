package domain

import orgdomain "device-health-plane/internal/organization/domain"

// Principal is the identity resolved once by the external identity
// collaborator and threaded explicitly through every component call.
// There is no ambient request context.
type Principal struct {
	UserID string
	Role   Role
	Scope  orgdomain.OwnerScope
}

// OrgID returns the organization the principal acts within. Company-scoped
// principals resolve to their company's organization ID at the edge before
// a Principal is constructed, so this is always the effective org.
func (p Principal) OrgID() string { return p.Scope.ID() }
