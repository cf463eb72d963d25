package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/resilience"
)

// KafkaPublisher writes events to the document-events topic behind a
// circuit breaker, so an unreachable broker costs one fast failure per
// write instead of a timeout.
type KafkaPublisher struct {
	producer *kafka.Producer
	breaker  *resilience.CircuitBreaker
	timeout  time.Duration
	logger   *slog.Logger
}

// NewKafkaPublisher wires a producer and breaker. m may be nil.
func NewKafkaPublisher(cfg config.KafkaConfig, m *metrics.Metrics) *KafkaPublisher {
	p := &KafkaPublisher{
		producer: kafka.NewProducer(cfg, cfg.Topics.DocumentEvents),
		timeout:  5 * time.Second,
		logger:   slog.Default().With("component", "event-publisher"),
	}
	p.breaker = resilience.NewCircuitBreaker("document-events", resilience.CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     15 * time.Second,
		OnStateChange: func(name string, _, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return p
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	// The request context may be cancelled as soon as the response is sent.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	err := p.breaker.Execute(func() error {
		return p.producer.Publish(ctx, kafka.Event{Key: e.Key(), Value: e})
	})
	if err != nil {
		p.logger.Error("failed to publish document event", "type", e.Type, "doc_id", e.DocumentID, "error", err)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// Consume subscribes handler to the document-events topic under the given
// consumer group suffix and blocks until ctx is done.
func Consume(ctx context.Context, cfg config.KafkaConfig, group string, handler Handler) error {
	consumer := kafka.NewConsumer(cfg, cfg.Topics.DocumentEvents, group, func(ctx context.Context, _, value []byte) error {
		e, err := kafka.DecodeJSON[Event](value)
		if err != nil {
			// A poison message would otherwise be redelivered forever.
			slog.Default().Error("dropping undecodable document event", "error", err)
			return nil
		}
		return handler(ctx, e)
	})
	return consumer.Start(ctx)
}
