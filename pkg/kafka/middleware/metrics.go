package kafkamiddleware

import (
	"context"
	"time"

	"medqueue/pkg/kafka"
	"medqueue/pkg/metrics"
)

func MetricsProducerMiddleware(m *metrics.Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)

		m.KafkaDuration.WithLabelValues("publish").Observe(time.Since(start).Seconds())
		m.KafkaPublished.WithLabelValues(msg.Topic, metrics.Result(err)).Inc()
		return err
	}
}

func MetricsConsumerMiddleware(m *metrics.Metrics) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)

		m.KafkaDuration.WithLabelValues("consume").Observe(time.Since(start).Seconds())
		m.KafkaConsumed.WithLabelValues(msg.Topic, metrics.Result(err)).Inc()
		return err
	}
}
