// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev organization already exists.
// When KAFKA_BROKERS is set it also publishes a sample health scan to the
// ingest topic so the worker pipeline can be exercised end to end.
package main

import (
	"context"
	"log"
	"os"
	"time"

	accessdomain "device-health-plane/internal/access/domain"
	accessrepo "device-health-plane/internal/access/repository"
	"device-health-plane/internal/config"
	"device-health-plane/internal/db"
	devicedomain "device-health-plane/internal/device/domain"
	devicerepo "device-health-plane/internal/device/repository"
	groupdomain "device-health-plane/internal/group/domain"
	grouprepo "device-health-plane/internal/group/repository"
	healthdomain "device-health-plane/internal/health/domain"
	licensedomain "device-health-plane/internal/license/domain"
	licenserepo "device-health-plane/internal/license/repository"
	licenseservice "device-health-plane/internal/license/service"
	orgdomain "device-health-plane/internal/organization/domain"
	orgrepo "device-health-plane/internal/organization/repository"
	reconcilerepo "device-health-plane/internal/reconcile/repository"
	reconcileservice "device-health-plane/internal/reconcile/service"
	"device-health-plane/internal/telemetry/producer"
	userdomain "device-health-plane/internal/user/domain"
	userrepo "device-health-plane/internal/user/repository"
)

const (
	devOrgID          = "dev-org-001"
	devOwnerID        = "dev-user-001"
	devManagerID      = "dev-user-002"
	devLicenseKey     = "DEV-LIC-001"
	devExpiredLicense = "DEV-LIC-002"
	devGroupID        = "dev-group-001"
	devGroupName      = "Front Office"
	devDeviceID       = "dev-device-001"
	devDevice2ID      = "dev-device-002"
	devDevice3ID      = "dev-device-003"
	devGrantID        = "dev-grant-001"
	ownerEmail        = "owner@example.com"
	managerEmail      = "manager@example.com"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	orgs := orgrepo.NewPostgresRepository(conn)

	existing, err := orgs.GetByID(ctx, devOrgID)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev org exists). Skipping.")
		os.Exit(0)
	}

	now := time.Now().UTC()
	expired := now.AddDate(0, -1, 0)

	if err := orgs.Create(ctx, &orgdomain.Org{
		ID:        devOrgID,
		Name:      "Acme Dev",
		Status:    orgdomain.OrgStatusActive,
		Tier:      orgdomain.TierStandard,
		CreatedAt: now,
	}); err != nil {
		log.Fatalf("create org: %v", err)
	}

	users := userrepo.NewPostgresRepository(conn)
	for _, u := range []*userdomain.User{
		{ID: devOwnerID, Email: ownerEmail, Name: "Dev Owner", Status: userdomain.UserStatusActive, CreatedAt: now, UpdatedAt: now},
		{ID: devManagerID, Email: managerEmail, Name: "Dev Manager", Status: userdomain.UserStatusActive, CreatedAt: now, UpdatedAt: now},
	} {
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user %s: %v", u.Email, err)
		}
	}

	licenses := licenserepo.NewPostgresRepository(conn)
	if err := licenses.Create(ctx, &licensedomain.License{
		Key:           devLicenseKey,
		OrgID:         devOrgID,
		DeviceLimit:   5,
		Status:        licensedomain.StatusActive,
		PaymentStatus: licensedomain.PaymentPaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}); err != nil {
		log.Fatalf("create license: %v", err)
	}
	// An expired license that must not count toward capacity.
	if err := licenses.Create(ctx, &licensedomain.License{
		Key:           devExpiredLicense,
		OrgID:         devOrgID,
		DeviceLimit:   3,
		Status:        licensedomain.StatusExpired,
		PaymentStatus: licensedomain.PaymentPaid,
		ExpiresAt:     &expired,
		CreatedAt:     now,
		UpdatedAt:     now,
	}); err != nil {
		log.Fatalf("create expired license: %v", err)
	}

	devices := devicerepo.NewPostgresRepository(conn)
	for _, d := range []*devicedomain.Device{
		{ID: devDeviceID, LicenseKey: devLicenseKey, Name: "Front Desk", OSName: "Windows", OSVersion: "11", IsActive: true, HealthStatus: devicedomain.HealthUnknown, CreatedAt: now, UpdatedAt: now},
		{ID: devDevice2ID, LicenseKey: devLicenseKey, Name: "Reception Kiosk", OSName: "Ubuntu", OSVersion: "24.04", IsActive: true, HealthStatus: devicedomain.HealthUnknown, CreatedAt: now, UpdatedAt: now},
		{ID: devDevice3ID, LicenseKey: devLicenseKey, Name: "Back Office", OSName: "macOS", OSVersion: "15.2", IsActive: true, HealthStatus: devicedomain.HealthUnknown, CreatedAt: now, UpdatedAt: now},
	} {
		if err := devices.Create(ctx, d); err != nil {
			log.Fatalf("create device %s: %v", d.Name, err)
		}
	}

	groups := grouprepo.NewPostgresRepository(conn)
	if err := groups.Create(ctx, &groupdomain.Group{
		ID:         devGroupID,
		OrgID:      devOrgID,
		Name:       devGroupName,
		LicenseKey: devLicenseKey,
		CreatedAt:  now,
	}); err != nil {
		log.Fatalf("create group: %v", err)
	}
	if err := groups.ReplaceMemberships(ctx, devGroupID, []string{devDeviceID, devDevice2ID}); err != nil {
		log.Fatalf("assign devices: %v", err)
	}

	grants := accessrepo.NewPostgresRepository(conn)
	if err := grants.Create(ctx, &accessdomain.Grant{
		ID:         devGrantID,
		UserID:     devManagerID,
		OrgID:      devOrgID,
		Role:       accessdomain.RoleAccountManager,
		GroupNames: []string{devGroupName},
		CreatedAt:  now,
	}); err != nil {
		log.Fatalf("create grant: %v", err)
	}

	// Initial usage snapshot so the org starts fresh instead of stale.
	snapshots := reconcilerepo.NewPostgresRepository(conn)
	coordinator := reconcileservice.NewCoordinator(capacitySource{licenses}, devices, snapshots)
	if err := coordinator.Recompute(ctx, devOrgID); err != nil {
		log.Fatalf("initial snapshot: %v", err)
	}

	publishSample(ctx, cfg)

	log.Println("Seed completed successfully.")
}

// capacitySource adapts the license repository to the coordinator's
// CapacitySource; no principal exists during seeding.
type capacitySource struct {
	licenses *licenserepo.PostgresRepository
}

func (c capacitySource) ComputeCapacity(ctx context.Context, orgID string) (licenseservice.Capacity, error) {
	total, active, err := c.licenses.SumActiveCapacity(ctx, orgID, time.Now().UTC())
	if err != nil {
		return licenseservice.Capacity{}, err
	}
	return licenseservice.Capacity{TotalCapacity: total, ActiveLicenses: active}, nil
}

// publishSample writes one health scan for the first dev device to the
// ingest topic. Skipped when Kafka is not configured.
func publishSample(ctx context.Context, cfg *config.Config) {
	pub, err := producer.NewKafkaPublisher(cfg.KafkaBrokersList(), cfg.IngestKafkaTopic)
	if err != nil || pub == nil {
		return
	}
	defer pub.Close()

	cpu, mem, disk := 35.0, 55.0, 40.0
	connected := true
	rec := &healthdomain.MetricRecord{
		DeviceID:   devDeviceID,
		LicenseKey: devLicenseKey,
		Type:       healthdomain.TypeHealthScan,
		RecordedAt: time.Now().UTC(),
		Payload: healthdomain.Payload{
			Performance: &healthdomain.PerformanceMetrics{CPUUsage: &cpu, MemoryUsage: &mem},
			Memory:      &healthdomain.MemoryMetrics{MemoryUsage: &mem},
			Disk:        &healthdomain.DiskMetrics{DiskUsage: &disk},
			Network:     &healthdomain.NetworkMetrics{Connected: &connected},
		},
	}
	if err := pub.Publish(ctx, rec); err != nil {
		log.Printf("seed: sample publish failed: %v", err)
		return
	}
	log.Println("Seed published a sample health scan to the ingest topic.")
}
