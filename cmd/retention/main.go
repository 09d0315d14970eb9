// Retention prunes old health metric records, keeping the N most recent per
// device, and pushes a run summary to Loki when LOKI_URL is set. Intended to
// run on a schedule (e.g. cron).
package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	auditlog "device-health-plane/internal/audit"
	auditrepo "device-health-plane/internal/audit/repository"
	"device-health-plane/internal/config"
	"device-health-plane/internal/db"
	healthrepo "device-health-plane/internal/health/repository"
	settingsdomain "device-health-plane/internal/settings/domain"
	settingsrepo "device-health-plane/internal/settings/repository"
	"device-health-plane/internal/telemetry/loki"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("retention: DATABASE_URL is required")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Platform settings override the config default when present.
	maxPerDevice := cfg.MaxMetricRecordsPerDevice
	settings, err := settingsrepo.NewPostgresRepository(conn).GetMonitoringSettings(ctx, settingsdomain.MonitoringSettings{
		LivenessThresholdSeconds:  int(cfg.LivenessThresholdDuration().Seconds()),
		MaxMetricRecordsPerDevice: cfg.MaxMetricRecordsPerDevice,
	})
	if err != nil {
		log.Printf("retention: settings lookup failed, using config default: %v", err)
	} else {
		maxPerDevice = settings.MaxMetricRecordsPerDevice
	}

	records := healthrepo.NewPostgresRepository(conn)
	deleted, devices, err := records.PruneOldRecords(ctx, maxPerDevice)
	if err != nil {
		log.Fatalf("retention: prune: %v", err)
	}
	log.Printf("retention: deleted %d records across %d devices (cap %d)", deleted, devices, maxPerDevice)

	summary, _ := json.Marshal(map[string]any{
		"deleted": deleted, "devices": devices, "max_per_device": maxPerDevice,
	})
	auditlog.NewLogger(auditrepo.NewPostgresRepository(conn)).
		LogEvent(ctx, "", "", "retention.prune", "health_metric_records", string(summary))

	if cfg.LokiURL != "" {
		line, _ := json.Marshal(map[string]any{
			"event_type": "retention.prune",
			"source":     "retention",
			"deleted":    deleted,
			"devices":    devices,
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err := loki.PushEventJSON(ctx, cfg.LokiURL, line); err != nil {
			log.Printf("retention: loki push failed: %v", err)
		}
	}
}
