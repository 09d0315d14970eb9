// admin is the operator entrypoint for capacity and group management. The
// API transport in front of this engine is an external collaborator; admin
// wires the same services for direct operator use.
//
// Usage:
//
//	admin <command> -org ORG -user USER -role ROLE [flags]
//
// Commands: adjust-limit, create-group, assign-devices, remove-device,
// visible, snapshot.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	accessdomain "device-health-plane/internal/access/domain"
	"device-health-plane/internal/access/engine"
	accessrepo "device-health-plane/internal/access/repository"
	accessservice "device-health-plane/internal/access/service"
	auditlog "device-health-plane/internal/audit"
	auditrepo "device-health-plane/internal/audit/repository"
	"device-health-plane/internal/config"
	"device-health-plane/internal/db"
	devicerepo "device-health-plane/internal/device/repository"
	grouprepo "device-health-plane/internal/group/repository"
	groupservice "device-health-plane/internal/group/service"
	licenserepo "device-health-plane/internal/license/repository"
	licenseservice "device-health-plane/internal/license/service"
	orgdomain "device-health-plane/internal/organization/domain"
	reconcilerepo "device-health-plane/internal/reconcile/repository"
	reconcileservice "device-health-plane/internal/reconcile/service"
)

// app holds the wired services shared by all commands.
type app struct {
	ledger      *licenseservice.Ledger
	registry    *groupservice.Registry
	resolver    *accessservice.Resolver
	coordinator *reconcileservice.Coordinator
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]

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

	licenses := licenserepo.NewPostgresRepository(conn)
	devices := devicerepo.NewPostgresRepository(conn)
	groups := grouprepo.NewPostgresRepository(conn)
	grants := accessrepo.NewPostgresRepository(conn)
	snapshots := reconcilerepo.NewPostgresRepository(conn)
	audit := auditlog.NewLogger(auditrepo.NewPostgresRepository(conn))

	evaluator := engine.NewOPAEvaluator(cfg.AuthzPolicy)
	if err := evaluator.HealthCheck(context.Background()); err != nil {
		log.Printf("admin: authz policy failed to compile, role table will be used: %v", err)
	}
	resolver := accessservice.NewResolver(grants, groups, devices, evaluator)
	coordinator := reconcileservice.NewCoordinator(capacitySource{licenses}, devices, snapshots)
	a := &app{
		ledger:      licenseservice.NewLedger(licenses, resolver, coordinator, audit),
		registry:    groupservice.NewRegistry(groups, devices, licenses, resolver, audit),
		resolver:    resolver,
		coordinator: coordinator,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.run(ctx, command, os.Args[2:]); err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	org := fs.String("org", "", "organization ID")
	user := fs.String("user", "", "acting user ID")
	role := fs.String("role", string(accessdomain.RoleOwner), "acting role")

	switch command {
	case "adjust-limit":
		key := fs.String("key", "", "license key")
		action := fs.String("action", "", "increase, reduce, or offload")
		limit := fs.Int("limit", 0, "new device limit (ignored for offload)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		p := principal(*user, *role, *org)
		newLimit, err := a.ledger.AdjustLimit(ctx, p, *key, licenseservice.LimitAction(*action), *limit)
		if err != nil {
			return err
		}
		fmt.Printf("license %s device_limit = %d\n", *key, newLimit)
		return nil

	case "create-group":
		name := fs.String("name", "", "group name")
		license := fs.String("license", "", "license key to bind")
		if err := fs.Parse(args); err != nil {
			return err
		}
		g, err := a.registry.CreateGroup(ctx, principal(*user, *role, *org), *name, *license)
		if err != nil {
			return err
		}
		fmt.Printf("group %s (%s) bound to %s\n", g.ID, g.Name, g.LicenseKey)
		return nil

	case "assign-devices":
		group := fs.String("group", "", "group ID")
		deviceList := fs.String("devices", "", "comma-separated device IDs")
		if err := fs.Parse(args); err != nil {
			return err
		}
		ids := splitList(*deviceList)
		n, err := a.registry.AssignDevices(ctx, principal(*user, *role, *org), *group, ids)
		if err != nil {
			return err
		}
		fmt.Printf("assigned %d devices to %s\n", n, *group)
		return nil

	case "remove-device":
		group := fs.String("group", "", "group ID")
		device := fs.String("device", "", "device ID")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := a.registry.RemoveDevice(ctx, principal(*user, *role, *org), *group, *device); err != nil {
			return err
		}
		fmt.Printf("removed %s from %s\n", *device, *group)
		return nil

	case "visible":
		if err := fs.Parse(args); err != nil {
			return err
		}
		p := principal(*user, *role, *org)
		groups, err := a.resolver.VisibleGroups(ctx, p)
		if err != nil {
			return err
		}
		for _, g := range groups {
			fmt.Printf("group\t%s\t%s\t%d devices\n", g.ID, g.Name, g.DeviceCount)
		}
		devices, err := a.resolver.VisibleDevices(ctx, p)
		if err != nil {
			return err
		}
		for _, d := range devices {
			fmt.Printf("device\t%s\t%s\t%s/%d\n", d.ID, d.Name, d.HealthStatus, d.HealthScore)
		}
		unassigned, err := a.resolver.VisibleUnassigned(ctx, p)
		if err != nil {
			return err
		}
		for _, d := range unassigned {
			fmt.Printf("unassigned\t%s\t%s\n", d.ID, d.Name)
		}
		return nil

	case "snapshot":
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := a.coordinator.Recompute(ctx, *org); err != nil {
			return err
		}
		snap, err := a.coordinator.Snapshot(ctx, *org)
		if err != nil {
			return err
		}
		fmt.Printf("org %s: active=%d total=%d unused=%d licenses=%d state=%s\n",
			snap.OrgID, snap.ActiveDevices, snap.TotalCapacity, snap.UnusedDevices, snap.ActiveLicenses, snap.State)
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func principal(userID, role, orgID string) accessdomain.Principal {
	return accessdomain.Principal{
		UserID: userID,
		Role:   accessdomain.Role(role),
		Scope:  orgdomain.OwnerOrg(orgID),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: admin <command> [flags]

commands:
  adjust-limit   -org -user -role -key -action -limit
  create-group   -org -user -role -name -license
  assign-devices -org -user -role -group -devices
  remove-device  -org -user -role -group -device
  visible        -org -user -role
  snapshot       -org`)
}

// capacitySource adapts the license repository to the coordinator's
// CapacitySource, breaking the ledger/coordinator construction cycle.
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
