package order

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Типы событий, которые сервис кладёт в outbox.
const (
	EventOrderCreated         = "order.created"
	EventOrderPaid            = "order.paid"
	EventOrderStatusChanged   = "order.status_changed"
	EventStockDecrementFailed = "stock.decrement_failed"

	aggregateOrder = "order"
)

func orderPayload(order domain.Order) map[string]any {
	return map[string]any{
		"order_id":    order.ID,
		"user_id":     order.UserID,
		"status":      string(order.Status),
		"is_paid":     order.IsPaid,
		"total_price": order.TotalPrice.String(),
		"tx_ref":      order.PaymentResult.TxRef,
		"updated_at":  order.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// change: событие заказа для timeline и outbox.
type change struct {
	timeline string
	event    string
	actor    string
	from     domain.OrderStatus
	reason   string
	payload  map[string]any
}

// emit пишет событие в timeline и outbox. Ошибки логируются и не прерывают операцию.
func (s *Service) emit(ctx context.Context, order domain.Order, c change) {
	fields := log.Fields{"order_id": order.ID, "event": c.event}

	if s.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:    order.ID,
			Type:       c.timeline,
			Actor:      c.actor,
			FromStatus: c.from,
			ToStatus:   order.Status,
			Reason:     c.reason,
			Occurred:   s.clock(),
		}
		if err := s.timeline.Append(ctx, event); err != nil {
			s.logger.WithError(err).WithFields(fields).Warn("append timeline event failed")
		} else {
			s.metrics.RecordTimelineEvent()
		}
	}

	if s.outbox == nil {
		return
	}
	data, err := json.Marshal(c.payload)
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Error("marshal event failed")
		return
	}
	msg := domain.OutboxMessage{
		AggregateType: aggregateOrder,
		AggregateID:   order.ID,
		EventType:     c.event,
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(ctx, msg); err != nil {
		s.logger.WithError(err).WithFields(fields).Error("enqueue event failed")
		return
	}
	s.metrics.RecordOutboxEvent()
}
