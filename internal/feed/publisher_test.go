package feed

import (
	"context"
	"testing"
)

func TestNewWithoutBrokers(t *testing.T) {
	p := New(nil, "ecell.market.events", nil)
	if _, ok := p.(noop); !ok {
		t.Fatalf("expected a no-op publisher, got %T", p)
	}
	// Must be safe to use without a cluster.
	p.Publish(context.Background(), EventTick, map[string]any{"price": "104"})
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewWithBrokers(t *testing.T) {
	p := New([]string{"localhost:9092"}, "ecell.market.events", nil)
	kp, ok := p.(*kafkaPublisher)
	if !ok {
		t.Fatalf("expected a kafka publisher, got %T", p)
	}
	if kp.w.Topic != "ecell.market.events" {
		t.Fatalf("topic: %q", kp.w.Topic)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
