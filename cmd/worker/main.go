// Worker consumes device telemetry from Kafka, appends it to the record
// store, refreshes derived device health, and reconciles org usage snapshots.
// Set DATABASE_URL, KAFKA_BROKERS, INGEST_KAFKA_TOPIC, and KAFKA_GROUP_ID.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"device-health-plane/internal/config"
	"device-health-plane/internal/db"
	devicerepo "device-health-plane/internal/device/repository"
	healthdomain "device-health-plane/internal/health/domain"
	healthrepo "device-health-plane/internal/health/repository"
	healthservice "device-health-plane/internal/health/service"
	licenserepo "device-health-plane/internal/license/repository"
	licenseservice "device-health-plane/internal/license/service"
	reconcilerepo "device-health-plane/internal/reconcile/repository"
	reconcileservice "device-health-plane/internal/reconcile/service"
	"device-health-plane/internal/telemetry"
	telemetrydomain "device-health-plane/internal/telemetry/domain"
	"device-health-plane/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "dhp-worker", false)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
		defer shutdownCancel()
		_ = providers.Shutdown(shutdownCtx)
	}()
	emitter := otel.NewEventEmitter(providers.LoggerProvider)

	devices := devicerepo.NewPostgresRepository(conn)
	records := healthrepo.NewPostgresRepository(conn)
	licenses := licenserepo.NewPostgresRepository(conn)
	snapshots := reconcilerepo.NewPostgresRepository(conn)

	aggregator := healthservice.NewAggregator(records, cfg.LivenessThresholdDuration())
	ingestor := healthservice.NewIngestor(records, devices, aggregator)
	coordinator := reconcileservice.NewCoordinator(capacitySource{licenses}, devices, snapshots)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.IngestKafkaTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	log.Printf("worker: consuming from %s (group %s)", cfg.IngestKafkaTopic, cfg.KafkaGroupID)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("worker: stopped")
				return
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}

		var rec healthdomain.MetricRecord
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			log.Printf("worker: skipping malformed record: %v", err)
			continue
		}

		ingestCtx, ingestCancel := context.WithTimeout(ctx, 10*time.Second)
		snap, err := ingestor.Ingest(ingestCtx, &rec)
		if err != nil {
			log.Printf("worker: ingest for device %s failed: %v", rec.DeviceID, err)
			ingestCancel()
			continue
		}

		// Telemetry moved last_seen and possibly the derived score; rerun the
		// usage snapshot for the owning org. Recompute is idempotent, so
		// running it on every record is safe.
		if lic, err := licenses.GetByKey(ingestCtx, rec.LicenseKey); err != nil {
			log.Printf("worker: license lookup for %s failed: %v", rec.LicenseKey, err)
		} else if lic != nil {
			if err := coordinator.Recompute(ingestCtx, lic.OrgID); err != nil {
				log.Printf("worker: recompute for org %s failed: %v", lic.OrgID, err)
			} else {
				telemetry.EmitAsync(emitter, ctx, &telemetrydomain.Event{
					OrgID:     lic.OrgID,
					EventType: "usage.recompute",
					Source:    "worker",
					CreatedAt: time.Now().UTC(),
				})
			}
		}
		ingestCancel()

		meta, _ := json.Marshal(map[string]any{"score": snap.OverallScore, "status": snap.Status})
		telemetry.EmitAsync(emitter, ctx, &telemetrydomain.Event{
			DeviceID:  rec.DeviceID,
			EventType: "device.ingest",
			Source:    "worker",
			Metadata:  meta,
			CreatedAt: time.Now().UTC(),
		})
	}
}

// capacitySource adapts the license repository to the coordinator's
// CapacitySource without pulling the full ledger (no principal available
// on the ingestion path).
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
