package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	accessdomain "device-health-plane/internal/access/domain"
	devicedomain "device-health-plane/internal/device/domain"
	"device-health-plane/internal/group/domain"
	licensedomain "device-health-plane/internal/license/domain"
	"device-health-plane/internal/platform/apperr"
)

// GroupRepo is the minimal group repository needed by the registry.
type GroupRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Group, error)
	ListByOrg(ctx context.Context, orgID string) ([]*domain.Group, error)
	Create(ctx context.Context, g *domain.Group) error
	ReplaceMemberships(ctx context.Context, groupID string, deviceIDs []string) error
	RemoveMembership(ctx context.Context, groupID, deviceID string) error
}

// DeviceRepo is the minimal device repository needed by the registry.
type DeviceRepo interface {
	GetByIDs(ctx context.Context, ids []string) ([]*devicedomain.Device, error)
	ListByGroup(ctx context.Context, groupID string) ([]*devicedomain.Device, error)
	ListUnassignedByOrg(ctx context.Context, orgID string) ([]*devicedomain.Device, error)
}

// LicenseRepo is the minimal license repository needed by the registry.
type LicenseRepo interface {
	GetByKey(ctx context.Context, key string) (*licensedomain.License, error)
}

// Authorizer decides whether a principal may perform a group-affecting write.
type Authorizer interface {
	AuthorizeWrite(ctx context.Context, principal accessdomain.Principal, action string) error
}

// AuditLogger records group mutations. Best-effort; implementations must not fail the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string)
}

// Registry owns device groups and device-to-group membership. Every member
// device's license key must equal the group's bound key; AssignDevices
// rejects inputs violating this before mutating state.
type Registry struct {
	groups   GroupRepo
	devices  DeviceRepo
	licenses LicenseRepo
	auth     Authorizer
	audit    AuditLogger
}

// NewRegistry returns a Registry with the given dependencies. audit may be nil.
func NewRegistry(groups GroupRepo, devices DeviceRepo, licenses LicenseRepo, auth Authorizer, audit AuditLogger) *Registry {
	return &Registry{groups: groups, devices: devices, licenses: licenses, auth: auth, audit: audit}
}

// CreateGroup creates a group bound to licenseKey. The key must resolve to
// a usable license owned by the principal's organization.
func (s *Registry) CreateGroup(ctx context.Context, principal accessdomain.Principal, name, licenseKey string) (*domain.Group, error) {
	if err := s.auth.AuthorizeWrite(ctx, principal, "group.create"); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperr.Validationf("group name is required")
	}
	lic, err := s.licenses.GetByKey(ctx, licenseKey)
	if err != nil {
		return nil, err
	}
	if lic == nil || lic.OrgID != principal.OrgID() {
		return nil, apperr.InvalidLicensef("license %s does not resolve to a license owned by the organization", licenseKey)
	}
	if !lic.Usable(time.Now().UTC()) {
		return nil, apperr.InvalidLicensef("license %s is not active", licenseKey)
	}
	g := &domain.Group{
		ID:         uuid.New().String(),
		OrgID:      principal.OrgID(),
		Name:       name,
		LicenseKey: licenseKey,
		CreatedAt:  time.Now().UTC(),
	}
	if err := g.Validate(); err != nil {
		return nil, apperr.Validationf("%v", err)
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.LogEvent(ctx, g.OrgID, principal.UserID, "group.create", g.ID,
			fmt.Sprintf(`{"name":%q,"license_key":%q}`, name, licenseKey))
	}
	return g, nil
}

// AssignDevices assigns the devices to the group, reassigning any that are
// already grouped elsewhere. Validation happens before any mutation: every
// device must exist, and every device's license key must equal the group's.
// Returns the number of devices assigned.
func (s *Registry) AssignDevices(ctx context.Context, principal accessdomain.Principal, groupID string, deviceIDs []string) (int, error) {
	if err := s.auth.AuthorizeWrite(ctx, principal, "group.assign_devices"); err != nil {
		return 0, err
	}
	if len(deviceIDs) == 0 {
		return 0, apperr.Validationf("device_ids is required")
	}
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if g == nil || g.OrgID != principal.OrgID() {
		return 0, apperr.NotFoundf("group %s does not exist", groupID)
	}

	found, err := s.devices.GetByIDs(ctx, deviceIDs)
	if err != nil {
		return 0, err
	}
	byID := make(map[string]*devicedomain.Device, len(found))
	for _, d := range found {
		byID[d.ID] = d
	}
	var missing, mismatched []string
	for _, id := range deviceIDs {
		d, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if d.LicenseKey != g.LicenseKey {
			mismatched = append(mismatched, id)
		}
	}
	if len(missing) > 0 {
		return 0, apperr.NotFoundIDs("devices do not exist", missing...)
	}
	if len(mismatched) > 0 {
		return 0, apperr.LicenseMismatch(mismatched...)
	}

	if err := s.groups.ReplaceMemberships(ctx, groupID, deviceIDs); err != nil {
		return 0, err
	}
	if s.audit != nil {
		s.audit.LogEvent(ctx, g.OrgID, principal.UserID, "group.assign_devices", groupID,
			fmt.Sprintf(`{"count":%d}`, len(deviceIDs)))
	}
	return len(deviceIDs), nil
}

// RemoveDevice unassigns the device from the group. Idempotent: removing a
// device that is not a member succeeds with no state change.
func (s *Registry) RemoveDevice(ctx context.Context, principal accessdomain.Principal, groupID, deviceID string) error {
	if err := s.auth.AuthorizeWrite(ctx, principal, "group.remove_device"); err != nil {
		return err
	}
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g == nil || g.OrgID != principal.OrgID() {
		return apperr.NotFoundf("group %s does not exist", groupID)
	}
	if err := s.groups.RemoveMembership(ctx, groupID, deviceID); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.LogEvent(ctx, g.OrgID, principal.UserID, "group.remove_device", groupID,
			fmt.Sprintf(`{"device_id":%q}`, deviceID))
	}
	return nil
}

// ListGroups returns the org's groups ordered by name, device counts live.
func (s *Registry) ListGroups(ctx context.Context, orgID string) ([]*domain.Group, error) {
	return s.groups.ListByOrg(ctx, orgID)
}

// ListDevices returns the group's member devices.
func (s *Registry) ListDevices(ctx context.Context, groupID string) ([]*devicedomain.Device, error) {
	return s.devices.ListByGroup(ctx, groupID)
}

// ListUnassigned returns the org's devices with no group membership,
// computed as a set difference against the membership table.
func (s *Registry) ListUnassigned(ctx context.Context, orgID string) ([]*devicedomain.Device, error) {
	return s.devices.ListUnassignedByOrg(ctx, orgID)
}
