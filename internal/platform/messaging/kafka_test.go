package messaging

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"plenary/contexts/governance/voting-session/ports"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("build bus failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ports.EventEnvelope, 1)
	err = bus.Subscribe(ctx, "session.closed", "cg-1", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := bus.Publish(ctx, "session.closed", ports.EventEnvelope{
		EventID:   "event-1",
		EventType: "session.closed",
	}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case event := <-received:
		if event.EventID != "event-1" {
			t.Fatalf("unexpected event delivered: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatalf("event was not delivered")
	}
}

func TestPublishIgnoresTopicsWithoutSubscribers(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("build bus failed: %v", err)
	}
	if err := bus.Publish(context.Background(), "vote.recorded", ports.EventEnvelope{EventID: "event-1"}); err != nil {
		t.Fatalf("publish to empty topic failed: %v", err)
	}
}

// A blocked consumer must never stall Publish; events past the channel
// capacity are dropped.
func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("build bus failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gate := make(chan struct{})
	var processed atomic.Int32
	err = bus.Subscribe(ctx, "vote.recorded", "cg-1", func(_ context.Context, _ ports.EventEnvelope) error {
		<-gate
		processed.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	const published = 200
	for i := 0; i < published; i++ {
		if err := bus.Publish(ctx, "vote.recorded", ports.EventEnvelope{
			EventID: fmt.Sprintf("event-%d", i),
		}); err != nil {
			t.Fatalf("publish %d failed: %v", i, err)
		}
	}
	close(gate)

	// The subscriber channel buffers 128 events plus at most one in flight.
	deadline := time.After(2 * time.Second)
	for processed.Load() < 128 {
		select {
		case <-deadline:
			t.Fatalf("buffered events did not drain, processed=%d", processed.Load())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	time.Sleep(20 * time.Millisecond)
	if got := processed.Load(); got > 129 {
		t.Fatalf("expected events beyond capacity to be dropped, processed=%d", got)
	}
}
