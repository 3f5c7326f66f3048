// Package feed publishes game events to Kafka for external consumers
// (projection screens, analytics). The feed is best-effort: publish failures
// are logged and never fail the operation that produced the event.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	EventTick      = "market.tick"
	EventLifecycle = "session.lifecycle"
	EventJoin      = "team.join"
	EventTrade     = "team.trade"
	EventSabotage  = "team.sabotage"
	EventStimulus  = "team.stimulus"
	EventNews      = "news.broadcast"
)

type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, data any)
	Close() error
}

// New returns a Kafka publisher, or a no-op one when no brokers are
// configured so callers never branch on the feed being enabled.
func New(brokers []string, topic string, logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if len(brokers) == 0 {
		return noop{}
	}
	return &kafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		},
		log: logger,
	}
}

type kafkaPublisher struct {
	w   *kafka.Writer
	log *slog.Logger
}

func (p *kafkaPublisher) Publish(ctx context.Context, eventType string, data any) {
	value, err := json.Marshal(Event{Type: eventType, At: time.Now().UTC(), Data: data})
	if err != nil {
		p.log.Error("encode feed event", "type", eventType, "err", err)
		return
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(eventType),
		Value: value,
	})
	if err != nil {
		p.log.Error("publish feed event", "type", eventType, "err", err)
	}
}

func (p *kafkaPublisher) Close() error { return p.w.Close() }

type noop struct{}

func (noop) Publish(context.Context, string, any) {}
func (noop) Close() error                         { return nil }
