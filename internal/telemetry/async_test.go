package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"device-health-plane/internal/telemetry/domain"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu      sync.Mutex
	events  []*domain.Event
	emitErr error
	delay   time.Duration
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.delay):
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.emitErr
}

func (m *mockEventEmitter) getEvents() []*domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func TestEmitAsync_NilEmitter(t *testing.T) {
	event := &domain.Event{OrgID: "org-1", EventType: "test"}
	// Should not panic.
	EmitAsync(nil, context.Background(), event)
}

func TestEmitAsync_NilEvent(t *testing.T) {
	emitter := &mockEventEmitter{}
	// Should not panic and should not start a goroutine.
	EmitAsync(emitter, context.Background(), nil)
	time.Sleep(20 * time.Millisecond)
	if got := emitter.getEvents(); len(got) != 0 {
		t.Errorf("emitted %d events, want 0 for nil event", len(got))
	}
}

func TestEmitAsync_EmitsEvent(t *testing.T) {
	emitter := &mockEventEmitter{}
	event := &domain.Event{OrgID: "org-1", EventType: "device.ingest", Source: "worker"}

	EmitAsync(emitter, context.Background(), event)

	deadline := time.After(time.Second)
	for {
		if events := emitter.getEvents(); len(events) == 1 {
			if events[0].EventType != "device.ingest" {
				t.Errorf("EventType = %q, want device.ingest", events[0].EventType)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("event was not emitted within a second")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestEmitAsync_CallerNotBlocked(t *testing.T) {
	emitter := &mockEventEmitter{delay: 200 * time.Millisecond}
	start := time.Now()
	EmitAsync(emitter, context.Background(), &domain.Event{EventType: "slow"})
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("EmitAsync blocked for %v, should return immediately", elapsed)
	}
}

func TestEmitAsync_EmitErrorIsSwallowed(t *testing.T) {
	emitter := &mockEventEmitter{emitErr: errors.New("exporter down")}
	// Best-effort: the error is logged, never surfaced.
	EmitAsync(emitter, context.Background(), &domain.Event{EventType: "test"})
	time.Sleep(20 * time.Millisecond)
}
