package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const timelineColumns = `order_id, type, actor, from_status, to_status, reason, occurred`

// TimelineRepository: журнал событий заказов в таблице timeline_events.
type TimelineRepository struct {
	db *sql.DB
}

// NewTimelineRepository создаёт журнал событий заказов поверх store.
func NewTimelineRepository(store *Store) *TimelineRepository {
	return &TimelineRepository{db: store.DB()}
}

// Append дописывает событие; без времени ставится момент записи.
func (r *TimelineRepository) Append(ctx context.Context, event domain.TimelineEvent) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	occurred := event.Occurred
	if occurred.IsZero() {
		occurred = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO timeline_events (`+timelineColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.OrderID, event.Type, event.Actor, string(event.FromStatus), string(event.ToStatus),
		event.Reason, occurred.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append timeline event for order %s: %w", event.OrderID, err)
	}
	return nil
}

// List возвращает события заказа от старых к новым; при равном времени в порядке записи.
func (r *TimelineRepository) List(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+timelineColumns+` FROM timeline_events WHERE order_id = $1 ORDER BY occurred, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list timeline of order %s: %w", orderID, err)
	}
	defer rows.Close()

	events := []domain.TimelineEvent{}
	for rows.Next() {
		var (
			e        domain.TimelineEvent
			from, to string
		)
		if err := rows.Scan(&e.OrderID, &e.Type, &e.Actor, &from, &to, &e.Reason, &e.Occurred); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		e.FromStatus, e.ToStatus = domain.OrderStatus(from), domain.OrderStatus(to)
		events = append(events, e)
	}
	return events, rows.Err()
}

var _ domain.TimelineRepository = (*TimelineRepository)(nil)
