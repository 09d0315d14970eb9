package service

import (
	"context"
	"log"
	"math"
	"time"

	devicedomain "device-health-plane/internal/device/domain"
	"device-health-plane/internal/health/domain"
)

// DefaultLivenessThreshold is how long a device may go without reporting
// before it is considered offline. Overridable via NewAggregator.
const DefaultLivenessThreshold = 5 * time.Minute

// Weights for the derived composite when a scan carries no top-level score.
const (
	weightPerformance = 25
	weightMemory      = 15
	weightDisk        = 15
	weightNetwork     = 15
	weightServices    = 15
	weightSecurity    = 15
)

// RecordRepo is the minimal telemetry repository needed by the aggregator.
type RecordRepo interface {
	LatestByDevice(ctx context.Context, deviceID string) (*domain.MetricRecord, error)
}

// Aggregator derives a device's health snapshot from its most recent
// telemetry record. Missing payload sections degrade to documented defaults;
// Aggregate never fails the caller.
//
// Defaulting rules per field:
//   - performance: cpu_usage and memory_usage default to 0 when absent,
//     so a bare scan scores 100.
//   - memory, disk: usage defaults to 0, scoring 100.
//   - network: connected flag when reported; otherwise derived from
//     liveness (100 online, 0 offline).
//   - services, security: carried verbatim when reported, default 100;
//     halved when the device is offline (unknown, not failed).
//   - overall: the scan's own score when present, else the weighted
//     composite of the six, else the device's last persisted score,
//     else 100 for a never-scanned device.
type Aggregator struct {
	records   RecordRepo
	threshold time.Duration
	now       func() time.Time
}

// NewAggregator returns an Aggregator over the given record store.
// A threshold <= 0 falls back to DefaultLivenessThreshold.
func NewAggregator(records RecordRepo, threshold time.Duration) *Aggregator {
	if threshold <= 0 {
		threshold = DefaultLivenessThreshold
	}
	return &Aggregator{records: records, threshold: threshold, now: func() time.Time { return time.Now().UTC() }}
}

// Online reports whether the device reported within the liveness threshold.
// A device with no last_seen timestamp has never reported and is offline.
func (a *Aggregator) Online(d *devicedomain.Device, now time.Time) bool {
	if d.LastSeenAt == nil {
		return false
	}
	return now.Sub(*d.LastSeenAt) <= a.threshold
}

// Aggregate computes the device's health snapshot from its most recent
// telemetry record. A heartbeat record updates liveness only; subsystem
// scores then come from the defaulting rules above. Record-store failures
// are logged and treated as "no record": health display stays available.
func (a *Aggregator) Aggregate(ctx context.Context, d *devicedomain.Device) domain.Snapshot {
	now := a.now()
	online := a.Online(d, now)

	rec, err := a.records.LatestByDevice(ctx, d.ID)
	if err != nil {
		log.Printf("health: latest record for device %s: %v", d.ID, err)
		rec = nil
	}

	var p domain.Payload
	scanned := rec != nil && rec.Type == domain.TypeHealthScan
	if scanned {
		p = rec.Payload
	}

	snap := domain.Snapshot{
		DeviceID:         d.ID,
		PerformanceScore: performanceScore(p.Performance),
		MemoryScore:      memoryScore(p.Memory),
		DiskScore:        diskScore(p.Disk),
		NetworkScore:     networkScore(p.Network, online),
		ServicesScore:    carriedScore(scoreOf(p.Services), online),
		SecurityScore:    carriedScore(scoreOfSecurity(p.Security), online),
		Online:           online,
		GeneratedAt:      now,
	}
	snap.OverallScore = a.overall(&snap, d, p, scanned)
	snap.Status = domain.StatusFor(snap.OverallScore)
	return snap
}

func (a *Aggregator) overall(s *domain.Snapshot, d *devicedomain.Device, p domain.Payload, scanned bool) int {
	if p.OverallScore != nil {
		return clamp(*p.OverallScore)
	}
	if scanned {
		sum := s.PerformanceScore*weightPerformance +
			s.MemoryScore*weightMemory +
			s.DiskScore*weightDisk +
			s.NetworkScore*weightNetwork +
			s.ServicesScore*weightServices +
			s.SecurityScore*weightSecurity
		return clamp(sum / 100)
	}
	if d.HealthScore > 0 {
		return clamp(d.HealthScore)
	}
	// Never scanned: optimistic default.
	return 100
}

func performanceScore(m *domain.PerformanceMetrics) int {
	var cpu, mem float64
	if m != nil && m.CPUUsage != nil {
		cpu = *m.CPUUsage
	}
	if m != nil && m.MemoryUsage != nil {
		mem = *m.MemoryUsage
	}
	return clamp(100 - int(math.Round((cpu+mem)/2)))
}

func memoryScore(m *domain.MemoryMetrics) int {
	var usage float64
	if m != nil && m.MemoryUsage != nil {
		usage = *m.MemoryUsage
	}
	return clamp(100 - int(math.Round(usage)))
}

func diskScore(m *domain.DiskMetrics) int {
	var usage float64
	if m != nil && m.DiskUsage != nil {
		usage = *m.DiskUsage
	}
	return clamp(100 - int(math.Round(usage)))
}

// networkScore trusts the agent's connected flag when reported; otherwise
// connectivity is inferred from liveness.
func networkScore(m *domain.NetworkMetrics, online bool) int {
	if m != nil && m.Connected != nil {
		if *m.Connected {
			return 100
		}
		return 0
	}
	if online {
		return 100
	}
	return 0
}

// carriedScore passes an agent-reported score through verbatim, halving it
// when the device is offline: the value is stale, so it reads as unknown
// rather than failed.
func carriedScore(score int, online bool) int {
	score = clamp(score)
	if !online {
		return score / 2
	}
	return score
}

func scoreOf(m *domain.ServicesMetrics) int {
	if m != nil && m.Score != nil {
		return *m.Score
	}
	return 100
}

func scoreOfSecurity(m *domain.SecurityMetrics) int {
	if m != nil && m.Score != nil {
		return *m.Score
	}
	return 100
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
