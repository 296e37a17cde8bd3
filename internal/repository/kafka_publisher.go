package repository

import (
	"context"

	"AstroOverlay/internal/domain/models"
	domrepo "AstroOverlay/internal/domain/repository"
	pkgkafka "AstroOverlay/pkg/kafka"
)

// eventProducer is the subset of pkgkafka.Producer the publisher needs.
type eventProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

var _ eventProducer = (*pkgkafka.Producer)(nil)

// KafkaPublisher implements EventPublisher for Kafka. Events are keyed by symbol.
type KafkaPublisher struct {
	producer eventProducer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishOverlay(ctx context.Context, ev models.OverlayEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopPublisher drops events; used when Kafka is disabled.
type NoopPublisher struct{}

var (
	_ domrepo.EventPublisher = (*KafkaPublisher)(nil)
	_ domrepo.EventPublisher = NoopPublisher{}
)

func (NoopPublisher) PublishOverlay(context.Context, models.OverlayEvent) error { return nil }
func (NoopPublisher) Close() error                                               { return nil }
