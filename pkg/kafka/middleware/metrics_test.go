package kafkamiddleware

import (
	"context"
	"errors"
	"testing"

	"medqueue/pkg/kafka"
	"medqueue/pkg/logger"
	"medqueue/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsConsumerMiddleware(t *testing.T) {
	m := metrics.New()
	mw := MetricsConsumerMiddleware(m)
	msg := kafka.Message{Topic: "token-events", Headers: map[string]string{}}

	_ = mw(context.Background(), msg, func(context.Context, kafka.Message) error { return nil })
	_ = mw(context.Background(), msg, func(context.Context, kafka.Message) error { return errors.New("x") })

	if got := testutil.ToFloat64(m.KafkaConsumed.WithLabelValues("token-events", "success")); got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.KafkaConsumed.WithLabelValues("token-events", "error")); got != 1 {
		t.Errorf("error = %v, want 1", got)
	}
}

func TestLoggingProducerMiddleware_PassesErrorThrough(t *testing.T) {
	want := errors.New("broker down")
	mw := LoggingProducerMiddleware(logger.Discard())

	err := mw(context.Background(), kafka.Message{Headers: map[string]string{}}, func(context.Context, kafka.Message) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("error = %v, want %v", err, want)
	}
}
