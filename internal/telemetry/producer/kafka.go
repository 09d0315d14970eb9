package producer

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	healthdomain "device-health-plane/internal/health/domain"
)

// KafkaPublisher implements Publisher using segmentio/kafka-go.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaPublisher creates a Kafka publisher that writes metric records to the given topic.
// Returns nil if brokers or topic are unset. Call Close when shutting down.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer, topic: topic}, nil
}

// Publish serializes the record as JSON and writes it to the Kafka topic,
// keyed by device so per-device ordering survives partitioning.
// Uses the request context with a short timeout so slow Kafka does not block callers indefinitely.
func (p *KafkaPublisher) Publish(ctx context.Context, rec *healthdomain.MetricRecord) error {
	if p == nil || p.writer == nil || rec == nil {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(rec.DeviceID),
		Value: payload,
	})
	if err != nil {
		log.Printf("telemetry: kafka publish failed: %v", err)
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
