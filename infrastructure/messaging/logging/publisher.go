// Package logging publishes domain events to the structured log. It stands
// in for EventBridge when no event bus is configured.
package logging

import (
	"context"

	"go.uber.org/zap"

	"github.com/zhaizeyu/smart-mind/application/ports"
	"github.com/zhaizeyu/smart-mind/domain/events"
)

var _ ports.EventPublisher = (*Publisher)(nil)

// Publisher logs every event at info level
type Publisher struct {
	logger *zap.Logger
}

// NewPublisher creates a log publisher
func NewPublisher(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{logger: logger.Named("events")}
}

// Publish logs one event
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Info("Domain event",
		zap.String("event_type", event.GetEventType()),
		zap.String("map_id", event.GetAggregateID()),
		zap.Time("at", event.GetTimestamp()),
		zap.Any("event", event),
	)
	return nil
}

// PublishBatch logs every event in order
func (p *Publisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
