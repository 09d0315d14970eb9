package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"device-health-plane/internal/telemetry/domain"
)

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("noop Emit(ctx, nil): %v", err)
	}
	if err := em.Emit(context.Background(), &domain.Event{OrgID: "org1"}); err != nil {
		t.Errorf("noop Emit(ctx, event): %v", err)
	}
}

func TestEmit_NilEvent_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec otellog.Record
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
}

func TestEmit_AttributeAndBodyMapping(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.Event{
		OrgID:     "org1",
		UserID:    "user1",
		DeviceID:  "dev1",
		EventType: "device.ingest",
		Source:    "worker",
		Metadata:  []byte(`{"key":"value"}`),
		CreatedAt: now,
	}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := capture.rec

	if rec.Timestamp().Unix() != now.Unix() {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), now)
	}
	if rec.Body().Empty() {
		t.Error("body should be set when metadata is non-empty")
	}
	if got := rec.Body().AsBytes(); string(got) != `{"key":"value"}` {
		t.Errorf("body = %q, want %q", got, event.Metadata)
	}

	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	want := map[string]string{
		"org_id": "org1", "user_id": "user1", "device_id": "dev1",
		"event_type": "device.ingest", "source": "worker",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %q = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestEmit_EmptyMetadata_NoBodySet(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)
	event := &domain.Event{OrgID: "org1", EventType: "ping", Source: "test"}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !capture.rec.Body().Empty() {
		t.Error("body should be empty when metadata is empty")
	}
}

func TestEmit_ZeroTimestampDefaultsToNow(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)
	before := time.Now().UTC()
	if err := em.Emit(context.Background(), &domain.Event{EventType: "ping"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	ts := capture.rec.Timestamp()
	if ts.Before(before.Add(-time.Second)) || ts.After(time.Now().UTC().Add(time.Second)) {
		t.Errorf("timestamp = %v, want approximately now", ts)
	}
}

func TestEmit_EmptyFieldsOmitted(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)
	if err := em.Emit(context.Background(), &domain.Event{EventType: "ping"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	capture.rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		if kv.Key != "event_type" {
			t.Errorf("unexpected attribute %q for an event with only a type", kv.Key)
		}
		return true
	})
}
