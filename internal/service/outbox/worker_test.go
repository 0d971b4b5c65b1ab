package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type stubPublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	published      []domain.OutboxMessage
	callCount      int
}

func (s *stubPublisher) Publish(_ context.Context, msg domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	err := s.err
	if len(s.sequenceErrors) > 0 {
		err = s.sequenceErrors[0]
		s.sequenceErrors = s.sequenceErrors[1:]
	}
	if err == nil {
		s.published = append(s.published, msg)
	}
	return err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

var _ domain.OutboxPublisher = (*stubPublisher)(nil)

func enqueue(t *testing.T, repo *memory.OutboxRepository, eventType, orderID string) domain.OutboxMessage {
	t.Helper()
	msg, err := repo.Enqueue(context.Background(), domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   orderID,
		EventType:     eventType,
		Payload:       []byte(`{"order_id":"` + orderID + `"}`),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return msg
}

func TestWorker_ProcessOnce_MarkSent(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	first := enqueue(t, repo, "order.created", "order-1")
	time.Sleep(time.Millisecond)
	second := enqueue(t, repo, "order.paid", "order-1")
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithMaxAttempts(3))
	res := worker.ProcessOnce(context.Background())

	if res != (CycleResult{Sent: 2}) {
		t.Fatalf("unexpected cycle result: %+v", res)
	}
	if got := publisher.calls(); got != 2 {
		t.Fatalf("expected 2 publish calls, got %d", got)
	}
	if publisher.published[0].ID != first.ID || publisher.published[1].ID != second.ID {
		t.Fatalf("events must be published oldest first: %+v", publisher.published)
	}
	if left := repo.AllPending(); len(left) != 0 {
		t.Fatalf("expected empty backlog, got %d", len(left))
	}
}

func TestWorker_ProcessOnce_MarkFailedAfterRetries(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	enqueue(t, repo, "order.status_changed", "order-2")
	publisher := &stubPublisher{err: errors.New("broker unavailable")}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithMaxAttempts(3))
	worker.ProcessOnce(context.Background())

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if left := repo.AllPending(); len(left) != 0 {
		t.Fatalf("failed message must leave pending set, got %d", len(left))
	}

	worker.ProcessOnce(context.Background())
	if got := publisher.calls(); got != 3 {
		t.Fatalf("failed message must not be retried, got %d calls", got)
	}
}

// После отказа брокера следующие события остаются pending и уходят в следующем проходе.
func TestWorker_ProcessOnce_StopsAfterBrokerFailure(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	enqueue(t, repo, "order.created", "order-4")
	time.Sleep(time.Millisecond)
	paid := enqueue(t, repo, "order.paid", "order-4")
	time.Sleep(time.Millisecond)
	other := enqueue(t, repo, "order.created", "order-5")
	publisher := &stubPublisher{sequenceErrors: []error{errors.New("leader not available")}}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithMaxAttempts(1))
	res := worker.ProcessOnce(context.Background())
	if res != (CycleResult{Failed: 1, Deferred: 2}) {
		t.Fatalf("unexpected cycle result: %+v", res)
	}
	if got := publisher.calls(); got != 1 {
		t.Fatalf("cycle must stop after first failure, got %d calls", got)
	}

	res = worker.ProcessOnce(context.Background())
	if res.Sent != 2 {
		t.Fatalf("deferred events must be sent next cycle, got %+v", res)
	}
	if publisher.published[0].ID != paid.ID || publisher.published[1].ID != other.ID {
		t.Fatalf("deferred events must keep order: %+v", publisher.published)
	}
}

func TestWorker_ProcessOnce_Metrics(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	enqueue(t, repo, "order.created", "order-6")
	enqueue(t, repo, "order.created", "order-7")

	reg := prometheus.NewRegistry()
	worker := NewWorker(repo, &stubPublisher{}, WithMetrics(metrics.NewOutboxMetrics(reg)), WithBatchSize(1))
	worker.ProcessOnce(context.Background())

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	values := map[string]float64{}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				values[family.GetName()] = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				values[family.GetName()] += m.GetCounter().GetValue()
			}
		}
	}
	if values["storefront_outbox_publish_total"] != 1 {
		t.Fatalf("expected 1 publish, got %v", values["storefront_outbox_publish_total"])
	}
	if values["storefront_outbox_pending_records"] != 1 {
		t.Fatalf("expected 1 pending record, got %v", values["storefront_outbox_pending_records"])
	}
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	enqueue(t, repo, "order.paid", "order-3")
	publisher := &stubPublisher{
		sequenceErrors: []error{errors.New("attempt 1"), errors.New("attempt 2"), nil},
	}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithMaxAttempts(3))
	worker.ProcessOnce(context.Background())

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(publisher.published))
	}
	if left := repo.AllPending(); len(left) != 0 {
		t.Fatalf("expected empty backlog, got %d", len(left))
	}
}

func TestWorker_ProcessOnce_BatchSize(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	for i := 0; i < 3; i++ {
		enqueue(t, repo, "order.created", "order-b")
	}
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher, WithBatchSize(2))
	worker.ProcessOnce(context.Background())

	if got := publisher.calls(); got != 2 {
		t.Fatalf("expected 2 publish calls for batch size 2, got %d", got)
	}
	if left := repo.AllPending(); len(left) != 1 {
		t.Fatalf("expected 1 pending message, got %d", len(left))
	}
}

func TestWorker_ProcessOnce_CanceledContextKeepsPending(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	enqueue(t, repo, "order.created", "order-c")
	publisher := &stubPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewWorker(repo, publisher).ProcessOnce(ctx)
	if got := publisher.calls(); got != 0 {
		t.Fatalf("expected no publish on canceled context, got %d", got)
	}
	if left := repo.AllPending(); len(left) != 1 {
		t.Fatalf("expected message to stay pending, got %d", len(left))
	}
}

func TestWorker_RetryBackoff(t *testing.T) {
	t.Parallel()

	worker := NewWorker(nil, nil, WithRetryBaseDelay(10*time.Millisecond))
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 10 * time.Millisecond},
		{attempt: 2, want: 20 * time.Millisecond},
		{attempt: 4, want: 80 * time.Millisecond},
		{attempt: 20, want: maxRetryDelay},
	}
	for _, tc := range cases {
		if got := worker.retryBackoff(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: expected %s, got %s", tc.attempt, tc.want, got)
		}
	}
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	worker := NewWorker(
		memory.NewOutboxRepository(),
		&stubPublisher{},
		WithPollInterval(5*time.Millisecond),
		WithRetryBaseDelay(0),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
