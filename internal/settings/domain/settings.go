package domain

// MonitoringSettings holds platform-level monitoring knobs (from the
// platform_settings table or defaults).
type MonitoringSettings struct {
	// LivenessThresholdSeconds is how long a device may go silent before
	// it counts as offline.
	LivenessThresholdSeconds int
	// MaxMetricRecordsPerDevice caps retained telemetry records per device.
	MaxMetricRecordsPerDevice int
}
