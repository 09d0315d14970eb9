package service

import (
	"context"
	"errors"
	"testing"
	"time"

	accessdomain "device-health-plane/internal/access/domain"
	devicedomain "device-health-plane/internal/device/domain"
	"device-health-plane/internal/group/domain"
	licensedomain "device-health-plane/internal/license/domain"
	orgdomain "device-health-plane/internal/organization/domain"
	"device-health-plane/internal/platform/apperr"
)

// mockGroupRepo implements GroupRepo; memberships maps device ID to group ID.
type mockGroupRepo struct {
	groups      map[string]*domain.Group
	memberships map[string]string
}

func newMockGroupRepo() *mockGroupRepo {
	return &mockGroupRepo{groups: map[string]*domain.Group{}, memberships: map[string]string{}}
}

func (m *mockGroupRepo) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	return m.groups[id], nil
}

func (m *mockGroupRepo) ListByOrg(ctx context.Context, orgID string) ([]*domain.Group, error) {
	var out []*domain.Group
	for _, g := range m.groups {
		if g.OrgID == orgID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGroupRepo) Create(ctx context.Context, g *domain.Group) error {
	m.groups[g.ID] = g
	return nil
}

func (m *mockGroupRepo) ReplaceMemberships(ctx context.Context, groupID string, deviceIDs []string) error {
	for _, id := range deviceIDs {
		m.memberships[id] = groupID
	}
	return nil
}

func (m *mockGroupRepo) RemoveMembership(ctx context.Context, groupID, deviceID string) error {
	if m.memberships[deviceID] == groupID {
		delete(m.memberships, deviceID)
	}
	return nil
}

type mockDeviceRepo struct {
	devices map[string]*devicedomain.Device
}

func (m *mockDeviceRepo) GetByIDs(ctx context.Context, ids []string) ([]*devicedomain.Device, error) {
	var out []*devicedomain.Device
	for _, id := range ids {
		if d, ok := m.devices[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDeviceRepo) ListByGroup(ctx context.Context, groupID string) ([]*devicedomain.Device, error) {
	return nil, nil
}

func (m *mockDeviceRepo) ListUnassignedByOrg(ctx context.Context, orgID string) ([]*devicedomain.Device, error) {
	return nil, nil
}

type mockLicenseRepo struct {
	licenses map[string]*licensedomain.License
}

func (m *mockLicenseRepo) GetByKey(ctx context.Context, key string) (*licensedomain.License, error) {
	return m.licenses[key], nil
}

type allowAllAuthorizer struct{}

func (allowAllAuthorizer) AuthorizeWrite(ctx context.Context, p accessdomain.Principal, action string) error {
	return nil
}

func ownerPrincipal(orgID string) accessdomain.Principal {
	return accessdomain.Principal{
		UserID: "user-1",
		Role:   accessdomain.RoleOwner,
		Scope:  orgdomain.OwnerOrg(orgID),
	}
}

func testRegistry(t *testing.T) (*Registry, *mockGroupRepo, *mockDeviceRepo, *mockLicenseRepo) {
	t.Helper()
	groups := newMockGroupRepo()
	devices := &mockDeviceRepo{devices: map[string]*devicedomain.Device{}}
	licenses := &mockLicenseRepo{licenses: map[string]*licensedomain.License{}}
	return NewRegistry(groups, devices, licenses, allowAllAuthorizer{}, nil), groups, devices, licenses
}

func usableLicense(key, orgID string) *licensedomain.License {
	return &licensedomain.License{
		Key: key, OrgID: orgID, DeviceLimit: 10,
		Status: licensedomain.StatusActive, PaymentStatus: licensedomain.PaymentPaid,
	}
}

func TestCreateGroup(t *testing.T) {
	reg, groups, _, licenses := testRegistry(t)
	licenses.licenses["LIC-A"] = usableLicense("LIC-A", "org-1")

	g, err := reg.CreateGroup(context.Background(), ownerPrincipal("org-1"), "Front Office", "LIC-A")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if g.LicenseKey != "LIC-A" {
		t.Errorf("LicenseKey = %q, want LIC-A", g.LicenseKey)
	}
	if g.ID == "" {
		t.Error("group ID should be generated")
	}
	if _, ok := groups.groups[g.ID]; !ok {
		t.Error("group should be persisted")
	}
}

func TestCreateGroup_InvalidLicense(t *testing.T) {
	expired := time.Now().UTC().Add(-time.Hour)
	cases := []struct {
		name string
		lic  *licensedomain.License
	}{
		{"missing license", nil},
		{"foreign org", usableLicense("LIC-A", "org-2")},
		{"inactive", &licensedomain.License{Key: "LIC-A", OrgID: "org-1", Status: licensedomain.StatusInactive, PaymentStatus: licensedomain.PaymentPaid}},
		{"expired", &licensedomain.License{Key: "LIC-A", OrgID: "org-1", Status: licensedomain.StatusActive, PaymentStatus: licensedomain.PaymentPaid, ExpiresAt: &expired}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg, _, _, licenses := testRegistry(t)
			if tc.lic != nil {
				licenses.licenses[tc.lic.Key] = tc.lic
			}
			_, err := reg.CreateGroup(context.Background(), ownerPrincipal("org-1"), "G", "LIC-A")
			if !apperr.IsKind(err, apperr.KindInvalidLicense) {
				t.Errorf("err = %v, want invalid_license", err)
			}
		})
	}
}

func TestAssignDevices(t *testing.T) {
	reg, groups, devices, licenses := testRegistry(t)
	licenses.licenses["LIC-A"] = usableLicense("LIC-A", "org-1")
	groups.groups["g1"] = &domain.Group{ID: "g1", OrgID: "org-1", Name: "G", LicenseKey: "LIC-A"}
	devices.devices["d1"] = &devicedomain.Device{ID: "d1", LicenseKey: "LIC-A"}
	devices.devices["d2"] = &devicedomain.Device{ID: "d2", LicenseKey: "LIC-A"}

	n, err := reg.AssignDevices(context.Background(), ownerPrincipal("org-1"), "g1", []string{"d1", "d2"})
	if err != nil {
		t.Fatalf("AssignDevices: %v", err)
	}
	if n != 2 {
		t.Errorf("assigned = %d, want 2", n)
	}
	if groups.memberships["d1"] != "g1" || groups.memberships["d2"] != "g1" {
		t.Errorf("memberships = %v, want both devices in g1", groups.memberships)
	}
}

func TestAssignDevices_Reassignment(t *testing.T) {
	reg, groups, devices, licenses := testRegistry(t)
	licenses.licenses["LIC-A"] = usableLicense("LIC-A", "org-1")
	groups.groups["g1"] = &domain.Group{ID: "g1", OrgID: "org-1", Name: "G1", LicenseKey: "LIC-A"}
	groups.groups["g2"] = &domain.Group{ID: "g2", OrgID: "org-1", Name: "G2", LicenseKey: "LIC-A"}
	devices.devices["d1"] = &devicedomain.Device{ID: "d1", LicenseKey: "LIC-A"}
	groups.memberships["d1"] = "g1"

	if _, err := reg.AssignDevices(context.Background(), ownerPrincipal("org-1"), "g2", []string{"d1"}); err != nil {
		t.Fatalf("AssignDevices: %v", err)
	}
	if got := groups.memberships["d1"]; got != "g2" {
		t.Errorf("membership = %q, want g2 (single membership row per device)", got)
	}
}

func TestAssignDevices_LicenseMismatchListsOffenders(t *testing.T) {
	reg, groups, devices, _ := testRegistry(t)
	groups.groups["g1"] = &domain.Group{ID: "g1", OrgID: "org-1", Name: "G", LicenseKey: "LIC-B"}
	devices.devices["d1"] = &devicedomain.Device{ID: "d1", LicenseKey: "LIC-A"}
	devices.devices["d2"] = &devicedomain.Device{ID: "d2", LicenseKey: "LIC-B"}

	_, err := reg.AssignDevices(context.Background(), ownerPrincipal("org-1"), "g1", []string{"d1", "d2"})
	if !apperr.IsKind(err, apperr.KindLicenseMismatch) {
		t.Fatalf("err = %v, want license_mismatch", err)
	}
	var e *apperr.Error
	if !errors.As(err, &e) {
		t.Fatal("error should be *apperr.Error")
	}
	if len(e.IDs) != 1 || e.IDs[0] != "d1" {
		t.Errorf("offending IDs = %v, want [d1]", e.IDs)
	}
	if len(groups.memberships) != 0 {
		t.Error("no membership rows should be created on a mismatch")
	}
}

func TestAssignDevices_MissingDevice(t *testing.T) {
	reg, groups, devices, _ := testRegistry(t)
	groups.groups["g1"] = &domain.Group{ID: "g1", OrgID: "org-1", Name: "G", LicenseKey: "LIC-A"}
	devices.devices["d1"] = &devicedomain.Device{ID: "d1", LicenseKey: "LIC-A"}

	_, err := reg.AssignDevices(context.Background(), ownerPrincipal("org-1"), "g1", []string{"d1", "ghost"})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not_found", err)
	}
	if len(groups.memberships) != 0 {
		t.Error("no membership rows should be created when a device is missing")
	}
}

func TestAssignDevices_UnknownGroup(t *testing.T) {
	reg, _, _, _ := testRegistry(t)
	_, err := reg.AssignDevices(context.Background(), ownerPrincipal("org-1"), "nope", []string{"d1"})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("err = %v, want not_found", err)
	}
}

func TestAssignDevices_ForeignOrgGroupIsNotFound(t *testing.T) {
	reg, groups, _, _ := testRegistry(t)
	groups.groups["g1"] = &domain.Group{ID: "g1", OrgID: "org-2", Name: "G", LicenseKey: "LIC-A"}

	_, err := reg.AssignDevices(context.Background(), ownerPrincipal("org-1"), "g1", []string{"d1"})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("err = %v, want not_found (no existence leak across orgs)", err)
	}
}

func TestRemoveDevice_Idempotent(t *testing.T) {
	reg, groups, _, _ := testRegistry(t)
	groups.groups["g1"] = &domain.Group{ID: "g1", OrgID: "org-1", Name: "G", LicenseKey: "LIC-A"}
	groups.memberships["d1"] = "g1"

	p := ownerPrincipal("org-1")
	if err := reg.RemoveDevice(context.Background(), p, "g1", "d1"); err != nil {
		t.Fatalf("RemoveDevice: %v", err)
	}
	if _, ok := groups.memberships["d1"]; ok {
		t.Error("membership should be deleted")
	}
	// Second removal of the same pair succeeds with no state change.
	if err := reg.RemoveDevice(context.Background(), p, "g1", "d1"); err != nil {
		t.Fatalf("second RemoveDevice: %v", err)
	}
}
