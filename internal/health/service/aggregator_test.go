package service

import (
	"context"
	"errors"
	"testing"
	"time"

	devicedomain "device-health-plane/internal/device/domain"
	"device-health-plane/internal/health/domain"
)

type mockRecordRepo struct {
	latest map[string]*domain.MetricRecord
	err    error
}

func (m *mockRecordRepo) LatestByDevice(ctx context.Context, deviceID string) (*domain.MetricRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.latest[deviceID], nil
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
func bptr(v bool) *bool       { return &v }

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testAggregator(records *mockRecordRepo) *Aggregator {
	a := NewAggregator(records, 0)
	a.now = func() time.Time { return testNow }
	return a
}

func onlineDevice(id string) *devicedomain.Device {
	seen := testNow.Add(-time.Minute)
	return &devicedomain.Device{ID: id, LicenseKey: "LIC-A", LastSeenAt: &seen}
}

func scan(deviceID string, p domain.Payload) *domain.MetricRecord {
	return &domain.MetricRecord{
		ID: "rec-1", DeviceID: deviceID, LicenseKey: "LIC-A",
		Type: domain.TypeHealthScan, RecordedAt: testNow.Add(-time.Minute), Payload: p,
	}
}

func TestAggregate_FullScan(t *testing.T) {
	records := &mockRecordRepo{latest: map[string]*domain.MetricRecord{
		"d1": scan("d1", domain.Payload{
			Performance: &domain.PerformanceMetrics{CPUUsage: fptr(40), MemoryUsage: fptr(60)},
			Memory:      &domain.MemoryMetrics{MemoryUsage: fptr(60)},
			Disk:        &domain.DiskMetrics{DiskUsage: fptr(25)},
			Network:     &domain.NetworkMetrics{Connected: bptr(true)},
			Services:    &domain.ServicesMetrics{Score: iptr(90)},
			Security:    &domain.SecurityMetrics{Score: iptr(70)},
		}),
	}}
	snap := testAggregator(records).Aggregate(context.Background(), onlineDevice("d1"))

	if snap.PerformanceScore != 50 {
		t.Errorf("performance = %d, want 50 (100 - (40+60)/2)", snap.PerformanceScore)
	}
	if snap.MemoryScore != 40 {
		t.Errorf("memory = %d, want 40", snap.MemoryScore)
	}
	if snap.DiskScore != 75 {
		t.Errorf("disk = %d, want 75", snap.DiskScore)
	}
	if snap.NetworkScore != 100 {
		t.Errorf("network = %d, want 100", snap.NetworkScore)
	}
	if snap.ServicesScore != 90 || snap.SecurityScore != 70 {
		t.Errorf("services/security = %d/%d, want 90/70 carried verbatim", snap.ServicesScore, snap.SecurityScore)
	}
	// 50*25 + 40*15 + 75*15 + 100*15 + 90*15 + 70*15 = 6875 -> 68
	if snap.OverallScore != 68 {
		t.Errorf("overall = %d, want 68 (weighted composite)", snap.OverallScore)
	}
	if snap.Status != domain.StatusWarning {
		t.Errorf("status = %q, want warning", snap.Status)
	}
	if !snap.Online {
		t.Error("device reporting a minute ago should be online")
	}
}

func TestAggregate_ScanTopLevelScoreWins(t *testing.T) {
	records := &mockRecordRepo{latest: map[string]*domain.MetricRecord{
		"d1": scan("d1", domain.Payload{
			OverallScore: iptr(42),
			Performance:  &domain.PerformanceMetrics{CPUUsage: fptr(0), MemoryUsage: fptr(0)},
		}),
	}}
	snap := testAggregator(records).Aggregate(context.Background(), onlineDevice("d1"))
	if snap.OverallScore != 42 {
		t.Errorf("overall = %d, want the scanner's own 42 over the composite", snap.OverallScore)
	}
	if snap.Status != domain.StatusCritical {
		t.Errorf("status = %q, want critical", snap.Status)
	}
}

func TestAggregate_EmptyScanDefaults(t *testing.T) {
	records := &mockRecordRepo{latest: map[string]*domain.MetricRecord{
		"d1": scan("d1", domain.Payload{}),
	}}
	snap := testAggregator(records).Aggregate(context.Background(), onlineDevice("d1"))

	for name, got := range map[string]int{
		"performance": snap.PerformanceScore,
		"memory":      snap.MemoryScore,
		"disk":        snap.DiskScore,
		"network":     snap.NetworkScore,
		"services":    snap.ServicesScore,
		"security":    snap.SecurityScore,
		"overall":     snap.OverallScore,
	} {
		if got != 100 {
			t.Errorf("%s = %d, want default 100 for an online device with an empty scan", name, got)
		}
	}
}

func TestAggregate_OfflineDevice(t *testing.T) {
	records := &mockRecordRepo{latest: map[string]*domain.MetricRecord{
		"d1": scan("d1", domain.Payload{
			Performance: &domain.PerformanceMetrics{CPUUsage: fptr(20), MemoryUsage: fptr(40)},
			Services:    &domain.ServicesMetrics{Score: iptr(80)},
			Security:    &domain.SecurityMetrics{Score: iptr(60)},
		}),
	}}
	seen := testNow.Add(-10 * time.Minute)
	d := &devicedomain.Device{ID: "d1", LicenseKey: "LIC-A", LastSeenAt: &seen}

	snap := testAggregator(records).Aggregate(context.Background(), d)
	if snap.Online {
		t.Error("device last seen 10 minutes ago should be offline")
	}
	if snap.NetworkScore != 0 {
		t.Errorf("network = %d, want 0 for an offline device with no connected flag", snap.NetworkScore)
	}
	if snap.PerformanceScore != 70 {
		t.Errorf("performance = %d, want 70: liveness must not affect it", snap.PerformanceScore)
	}
	if snap.ServicesScore != 40 || snap.SecurityScore != 30 {
		t.Errorf("services/security = %d/%d, want 40/30 (halved while offline)", snap.ServicesScore, snap.SecurityScore)
	}
}

func TestAggregate_HeartbeatKeepsPersistedScore(t *testing.T) {
	records := &mockRecordRepo{latest: map[string]*domain.MetricRecord{
		"d1": {ID: "rec-1", DeviceID: "d1", Type: domain.TypeHeartbeat, RecordedAt: testNow.Add(-time.Minute)},
	}}
	d := onlineDevice("d1")
	d.HealthScore = 55

	snap := testAggregator(records).Aggregate(context.Background(), d)
	if snap.OverallScore != 55 {
		t.Errorf("overall = %d, want the persisted 55: heartbeats update liveness only", snap.OverallScore)
	}
	if snap.Status != domain.StatusWarning {
		t.Errorf("status = %q, want warning", snap.Status)
	}
	if !snap.Online {
		t.Error("heartbeat a minute ago should keep the device online")
	}
}

func TestAggregate_NeverScanned(t *testing.T) {
	snap := testAggregator(&mockRecordRepo{}).Aggregate(context.Background(), onlineDevice("d1"))
	if snap.OverallScore != 100 {
		t.Errorf("overall = %d, want the optimistic 100 for a never-scanned device", snap.OverallScore)
	}
	if snap.Status != domain.StatusHealthy {
		t.Errorf("status = %q, want healthy", snap.Status)
	}
}

func TestAggregate_RecordStoreFailureDegrades(t *testing.T) {
	records := &mockRecordRepo{err: errors.New("connection reset")}
	d := onlineDevice("d1")
	d.HealthScore = 70

	snap := testAggregator(records).Aggregate(context.Background(), d)
	if snap.OverallScore != 70 {
		t.Errorf("overall = %d, want the persisted 70 when the record store is unavailable", snap.OverallScore)
	}
}

func TestOnline_Threshold(t *testing.T) {
	a := testAggregator(&mockRecordRepo{})
	cases := []struct {
		name string
		seen *time.Time
		want bool
	}{
		{"just inside", tptr(testNow.Add(-5 * time.Minute)), true},
		{"just outside", tptr(testNow.Add(-5*time.Minute - time.Second)), false},
		{"never reported", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &devicedomain.Device{ID: "d1", LastSeenAt: tc.seen}
			if got := a.Online(d, testNow); got != tc.want {
				t.Errorf("Online = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOnline_OverriddenThreshold(t *testing.T) {
	a := NewAggregator(&mockRecordRepo{}, 30*time.Minute)
	seen := testNow.Add(-10 * time.Minute)
	d := &devicedomain.Device{ID: "d1", LastSeenAt: &seen}
	if !a.Online(d, testNow) {
		t.Error("10 minutes should be online under a 30-minute threshold")
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{100, domain.StatusHealthy},
		{80, domain.StatusHealthy},
		{79, domain.StatusWarning},
		{50, domain.StatusWarning},
		{49, domain.StatusCritical},
		{0, domain.StatusCritical},
	}
	for _, tc := range cases {
		if got := domain.StatusFor(tc.score); got != tc.want {
			t.Errorf("StatusFor(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func tptr(v time.Time) *time.Time { return &v }
