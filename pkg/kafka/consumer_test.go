package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"medqueue/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	drained   chan struct{}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	if len(r.queue) == 0 && r.drained != nil {
		close(r.drained)
		r.drained = nil
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func newTestConsumer(reader *fakeReader, dlq *fakeWriter, handler MessageHandler) *Consumer {
	c := &Consumer{
		reader:     reader,
		topic:      "token-events",
		groupID:    "reconciler",
		maxRetries: 2,
		handler:    handler,
		log:        logger.Discard(),
	}
	if dlq != nil {
		c.dlqWriter = dlq
	}
	return c
}

func runUntilDrained(t *testing.T, c *Consumer, drained chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not drain the queue")
	}
	cancel()
	<-done
}

func TestConsumer_RetriesTransientThenSucceeds(t *testing.T) {
	drained := make(chan struct{})
	seed := testMessage(t)
	reader := &fakeReader{queue: []kafka.Message{seed.toKafka()}, drained: drained}

	calls := 0
	c := newTestConsumer(reader, nil, func(ctx context.Context, msg Message) error {
		calls++
		if calls == 1 {
			return NewTransientError("save patient", errors.New("timeout"))
		}
		return nil
	})

	runUntilDrained(t, c, drained)

	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
	if len(reader.committed) != 1 {
		t.Errorf("committed = %d, want 1", len(reader.committed))
	}
}

func TestConsumer_PermanentErrorGoesToDLQ(t *testing.T) {
	drained := make(chan struct{})
	seed := testMessage(t)
	reader := &fakeReader{queue: []kafka.Message{seed.toKafka()}, drained: drained}
	dlq := &fakeWriter{}

	calls := 0
	c := newTestConsumer(reader, dlq, func(ctx context.Context, msg Message) error {
		calls++
		return NewPermanentError("patient not found", nil)
	})

	runUntilDrained(t, c, drained)

	if calls != 1 {
		t.Errorf("permanent errors must not be retried, calls = %d", calls)
	}
	if len(dlq.written) != 1 {
		t.Fatalf("expected one DLQ message, got %d", len(dlq.written))
	}
	if got := fromKafka(dlq.written[0]).Headers[HeaderDLQGroup]; got != "reconciler" {
		t.Errorf("dlq group header = %q", got)
	}
	if len(reader.committed) != 1 {
		t.Errorf("DLQ'd message should still be committed")
	}
}

func startUntilReturn(t *testing.T, c *Consumer) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.Start(ctx)
	if ctx.Err() != nil {
		t.Fatal("consumer should stop on its own instead of waiting for the deadline")
	}
	return err
}

func TestConsumer_DLQWriteFailureLeavesOffsetUncommitted(t *testing.T) {
	seed := testMessage(t)
	reader := &fakeReader{queue: []kafka.Message{seed.toKafka()}}
	dlq := &fakeWriter{err: errors.New("leader not available")}

	c := newTestConsumer(reader, dlq, func(ctx context.Context, msg Message) error {
		return NewPermanentError("ticket not on ledger", nil)
	})

	err := startUntilReturn(t, c)
	if !errors.Is(err, ErrNotParked) {
		t.Fatalf("Start() error = %v, want ErrNotParked", err)
	}
	if len(reader.committed) != 0 {
		t.Errorf("message that reached neither handler nor DLQ was committed")
	}
}

func TestConsumer_TransientWithoutDLQLeavesOffsetUncommitted(t *testing.T) {
	seed := testMessage(t)
	reader := &fakeReader{queue: []kafka.Message{seed.toKafka()}}

	calls := 0
	c := newTestConsumer(reader, nil, func(ctx context.Context, msg Message) error {
		calls++
		return NewTransientError("save patient", errors.New("server selection timeout"))
	})

	err := startUntilReturn(t, c)
	if !errors.Is(err, ErrNotParked) {
		t.Fatalf("Start() error = %v, want ErrNotParked", err)
	}
	if calls != 3 {
		t.Errorf("handler calls = %d, want 3", calls)
	}
	if len(reader.committed) != 0 {
		t.Errorf("retried-out message without a DLQ was committed")
	}
}

func TestConsumer_PermanentWithoutDLQIsCommitted(t *testing.T) {
	drained := make(chan struct{})
	seed := testMessage(t)
	reader := &fakeReader{queue: []kafka.Message{seed.toKafka()}, drained: drained}

	c := newTestConsumer(reader, nil, func(ctx context.Context, msg Message) error {
		return NewPermanentError("malformed payload", nil)
	})

	runUntilDrained(t, c, drained)

	if len(reader.committed) != 1 {
		t.Errorf("committed = %d, want 1", len(reader.committed))
	}
}
