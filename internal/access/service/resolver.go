package service

import (
	"context"

	"device-health-plane/internal/access/domain"
	"device-health-plane/internal/access/engine"
	devicedomain "device-health-plane/internal/device/domain"
	groupdomain "device-health-plane/internal/group/domain"
	"device-health-plane/internal/platform/apperr"
)

// GrantRepo is the minimal grant repository needed by the resolver.
type GrantRepo interface {
	GetByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Grant, error)
}

// GroupRepo is the minimal group repository needed by the resolver.
type GroupRepo interface {
	ListByOrg(ctx context.Context, orgID string) ([]*groupdomain.Group, error)
}

// DeviceRepo is the minimal device repository needed by the resolver.
type DeviceRepo interface {
	ListByOrg(ctx context.Context, orgID string) ([]*devicedomain.Device, error)
	ListByGroup(ctx context.Context, groupID string) ([]*devicedomain.Device, error)
	ListUnassignedByOrg(ctx context.Context, orgID string) ([]*devicedomain.Device, error)
}

// Resolver computes the set of groups and devices a principal may see, and
// gates mutations on role. Elevated roles (owner, admin, organization,
// company) see the whole organization. Account managers see what their
// grant names: everything with access_all, the named groups otherwise, and
// nothing at all without a grant or with an empty one.
type Resolver struct {
	grants  GrantRepo
	groups  GroupRepo
	devices DeviceRepo
	eval    engine.Evaluator
}

// NewResolver returns a Resolver with the given dependencies. A nil eval
// falls back to the pure-Go role table.
func NewResolver(grants GrantRepo, groups GroupRepo, devices DeviceRepo, eval engine.Evaluator) *Resolver {
	if eval == nil {
		eval = engine.RoleEvaluator{}
	}
	return &Resolver{grants: grants, groups: groups, devices: devices, eval: eval}
}

// AuthorizeWrite returns nil if the principal's role may perform the
// mutating action, Forbidden otherwise. Account-manager grants scope reads
// only; even access_all does not unlock writes.
func (s *Resolver) AuthorizeWrite(ctx context.Context, principal domain.Principal, action string) error {
	allowed, err := s.eval.EvaluateWrite(ctx, principal.Role, action)
	if err != nil {
		return err
	}
	if !allowed {
		return apperr.Forbiddenf("role %s may not perform %s", principal.Role, action)
	}
	return nil
}

// VisibleGroups returns the groups the principal may read.
func (s *Resolver) VisibleGroups(ctx context.Context, principal domain.Principal) ([]*groupdomain.Group, error) {
	if principal.Role.CanMutate() {
		return s.groups.ListByOrg(ctx, principal.OrgID())
	}
	grant, err := s.grant(ctx, principal)
	if err != nil || grant == nil {
		return nil, err
	}
	all, err := s.groups.ListByOrg(ctx, principal.OrgID())
	if err != nil {
		return nil, err
	}
	if grant.AccessAll {
		return all, nil
	}
	return intersectByName(all, grant.GroupNames), nil
}

// VisibleDevices returns the devices the principal may read. For a
// group-scoped grant this is the union of the named groups' members;
// unassigned devices stay hidden from scoped grants.
func (s *Resolver) VisibleDevices(ctx context.Context, principal domain.Principal) ([]*devicedomain.Device, error) {
	if principal.Role.CanMutate() {
		return s.devices.ListByOrg(ctx, principal.OrgID())
	}
	grant, err := s.grant(ctx, principal)
	if err != nil || grant == nil {
		return nil, err
	}
	if grant.AccessAll {
		return s.devices.ListByOrg(ctx, principal.OrgID())
	}
	visible, err := s.VisibleGroups(ctx, principal)
	if err != nil {
		return nil, err
	}
	var out []*devicedomain.Device
	seen := map[string]struct{}{}
	for _, g := range visible {
		members, err := s.devices.ListByGroup(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		for _, d := range members {
			if _, ok := seen[d.ID]; ok {
				continue
			}
			seen[d.ID] = struct{}{}
			out = append(out, d)
		}
	}
	return out, nil
}

// VisibleUnassigned returns the organization's unassigned devices for
// principals with unscoped read access, and nothing for group-scoped
// grants: a grant names groups, and ungrouped devices belong to none of them.
func (s *Resolver) VisibleUnassigned(ctx context.Context, principal domain.Principal) ([]*devicedomain.Device, error) {
	if principal.Role.CanMutate() {
		return s.devices.ListUnassignedByOrg(ctx, principal.OrgID())
	}
	grant, err := s.grant(ctx, principal)
	if err != nil || grant == nil {
		return nil, err
	}
	if grant.AccessAll {
		return s.devices.ListUnassignedByOrg(ctx, principal.OrgID())
	}
	return nil, nil
}

// grant loads the principal's grant, or nil. Only account managers carry
// grants; other non-elevated roles resolve to the empty set.
func (s *Resolver) grant(ctx context.Context, principal domain.Principal) (*domain.Grant, error) {
	if principal.Role != domain.RoleAccountManager {
		return nil, nil
	}
	return s.grants.GetByUserAndOrg(ctx, principal.UserID, principal.OrgID())
}

func intersectByName(groups []*groupdomain.Group, names []string) []*groupdomain.Group {
	if len(names) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}
	var out []*groupdomain.Group
	for _, g := range groups {
		if _, ok := allowed[g.Name]; ok {
			out = append(out, g)
		}
	}
	return out
}
