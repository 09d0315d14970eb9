// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// LivenessThreshold is how long a device may go without reporting before
	// it is considered offline (e.g. "5m").
	LivenessThreshold string `mapstructure:"LIVENESS_THRESHOLD"`
	// MaxMetricRecordsPerDevice caps retained telemetry records per device;
	// the retention job deletes the oldest beyond this (default 5).
	MaxMetricRecordsPerDevice int `mapstructure:"MAX_METRIC_RECORDS_PER_DEVICE"`

	// AuthzPolicy is optional Rego policy text overriding the built-in
	// write-authorization rules.
	AuthzPolicy string `mapstructure:"AUTHZ_POLICY"`

	// Ingestion: when Kafka brokers are set, the worker consumes telemetry from Kafka.
	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// IngestKafkaTopic is the Kafka topic telemetry records arrive on (default dhp-telemetry).
	IngestKafkaTopic string `mapstructure:"INGEST_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the ingestion worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// OTLPEndpoint is the OTLP gRPC endpoint for traces/metrics/logs (e.g. localhost:4317).
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// LokiURL is the Loki base URL the retention job pushes summaries to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LIVENESS_THRESHOLD", "5m")
	v.SetDefault("MAX_METRIC_RECORDS_PER_DEVICE", 5)
	v.SetDefault("AUTHZ_POLICY", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("INGEST_KAFKA_TOPIC", "dhp-telemetry")
	v.SetDefault("KAFKA_GROUP_ID", "dhp-ingest-worker")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("LOKI_URL", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.MaxMetricRecordsPerDevice < 1 {
		return nil, errors.New("config: MAX_METRIC_RECORDS_PER_DEVICE must be at least 1")
	}

	return &cfg, nil
}

// LivenessThresholdDuration parses LivenessThreshold as a time.Duration.
// Returns 5m if unset or invalid.
func (c *Config) LivenessThresholdDuration() time.Duration {
	d, err := time.ParseDuration(c.LivenessThreshold)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if ingestion is enabled (non-empty list) and to create the reader.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
