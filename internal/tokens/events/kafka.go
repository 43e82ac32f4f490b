package events

import (
	"context"
	"fmt"

	"medqueue/pkg/kafka"
)

type producer interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaPublisher writes events to the token events topic. Issue and close
// events are keyed by day so one day's events stay ordered on one partition.
type KafkaPublisher struct {
	producer producer
}

func NewKafkaPublisher(p *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: p}
}

func (p *KafkaPublisher) TokenIssued(ctx context.Context, event TokenIssued) error {
	return p.publish(ctx, TypeTokenIssued, event.DayKey.String(), event)
}

func (p *KafkaPublisher) ProfileLinkFailed(ctx context.Context, event ProfileLinkFailed) error {
	return p.publish(ctx, TypeProfileLinkFailed, event.PatientID, event)
}

func (p *KafkaPublisher) DayClosed(ctx context.Context, event DayClosed) error {
	return p.publish(ctx, TypeDayClosed, event.DayKey.String(), event)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType, key string, payload any) error {
	msg, err := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithCorrelationID(correlationID(ctx)).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", eventType, err)
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

type correlationKey struct{}

// WithCorrelationID tags events published under ctx with id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func correlationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
