package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type outboxState uint8

const (
	outboxPending outboxState = iota
	outboxSent
	outboxFailed
)

type outboxEntry struct {
	seq      uint64
	msg      domain.OutboxMessage
	state    outboxState
	queuedAt time.Time
}

// OutboxRepository: очередь событий заказов в памяти. Порядок выдачи совпадает с порядком постановки.
type OutboxRepository struct {
	mu      sync.Mutex
	nextSeq uint64
	entries map[string]*outboxEntry
}

// NewOutboxRepository создаёт пустую очередь.
func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{entries: make(map[string]*outboxEntry)}
}

// Enqueue ставит событие в очередь и присваивает ему ID, если его нет.
func (r *OutboxRepository) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Payload = slices.Clone(msg.Payload)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextSeq++
	r.entries[msg.ID] = &outboxEntry{seq: r.nextSeq, msg: msg, queuedAt: time.Now().UTC()}
	return msg, nil
}

// PullPending возвращает до limit ожидающих событий, старые первыми.
func (r *OutboxRepository) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pending := r.pending()
	return messages(pending[:min(limit, len(pending))]), nil
}

// Stats возвращает размер очереди и время постановки самого старого события.
func (r *OutboxRepository) Stats(_ context.Context) (domain.OutboxStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := r.pending()
	stats := domain.OutboxStats{PendingCount: len(pending)}
	if len(pending) > 0 {
		stats.OldestPendingAt = pending[0].queuedAt
	}
	return stats, nil
}

// MarkSent снимает событие с очереди после публикации.
func (r *OutboxRepository) MarkSent(_ context.Context, id string) error {
	return r.settle(id, outboxSent)
}

// MarkFailed снимает событие с очереди после исчерпания попыток.
func (r *OutboxRepository) MarkFailed(_ context.Context, id string) error {
	return r.settle(id, outboxFailed)
}

// AllPending возвращает все ожидающие события в порядке постановки.
func (r *OutboxRepository) AllPending() []domain.OutboxMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	return messages(r.pending())
}

func (r *OutboxRepository) settle(id string, state outboxState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return domain.ErrOutboxPublish
	}
	entry.state = state
	return nil
}

func (r *OutboxRepository) pending() []*outboxEntry {
	out := make([]*outboxEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.state == outboxPending {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *outboxEntry) int { return cmp.Compare(a.seq, b.seq) })
	return out
}

func messages(entries []*outboxEntry) []domain.OutboxMessage {
	out := make([]domain.OutboxMessage, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.msg)
	}
	return out
}

var _ domain.OutboxRepository = (*OutboxRepository)(nil)
