package domain

// OwnerScope identifies who owns a resource: an organization or a company.
// Exactly one of the two is set. This replaces the pattern of carrying two
// optional IDs and silently coalescing them at every read site.
type OwnerScope struct {
	kind OwnerKind
	id   string
}

type OwnerKind string

const (
	OwnerKindOrganization OwnerKind = "organization"
	OwnerKindCompany      OwnerKind = "company"
)

// OwnerOrg returns an OwnerScope for an organization.
func OwnerOrg(id string) OwnerScope {
	return OwnerScope{kind: OwnerKindOrganization, id: id}
}

// OwnerCompany returns an OwnerScope for a company.
func OwnerCompany(id string) OwnerScope {
	return OwnerScope{kind: OwnerKindCompany, id: id}
}

// Kind returns which kind of owner this scope names.
func (s OwnerScope) Kind() OwnerKind { return s.kind }

// ID returns the owner's identifier.
func (s OwnerScope) ID() string { return s.id }

// IsZero reports whether the scope names no owner.
func (s OwnerScope) IsZero() bool { return s.id == "" }
