package order

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// UpdateStatusInput: административное изменение заказа.
type UpdateStatusInput struct {
	Status         domain.OrderStatus
	IsDelivered    *bool
	TrackingNumber *string
}

// UpdateStatus меняет статус заказа по графу переходов. Перевод в Paid здесь запрещён.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, in UpdateStatusInput) (domain.Order, error) {
	if !in.Status.Valid() {
		return domain.Order{}, domain.NewValidationError("unknown order status %q", in.Status)
	}

	delivered := in.Status == domain.OrderStatusDelivered
	if in.IsDelivered != nil && *in.IsDelivered != delivered {
		return domain.Order{}, domain.NewValidationError("isDelivered must match status %s", in.Status)
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	var from domain.OrderStatus
	saved, _, err := s.mutate(ctx, order, func(o *domain.Order) (bool, error) {
		from = o.Status
		if in.Status == domain.OrderStatusPaid && o.Status != domain.OrderStatusPaid {
			return false, domain.ErrIllegalTransition
		}
		if !domain.CanTransition(o.Status, in.Status) {
			return false, domain.ErrIllegalTransition
		}

		now := s.clock()
		o.Status = in.Status
		if delivered && !o.IsDelivered {
			o.IsDelivered = true
			o.DeliveredAt = &now
		}
		if in.TrackingNumber != nil {
			o.TrackingNumber = *in.TrackingNumber
		}
		o.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.metrics.RecordStatusChange(string(saved.Status))
	payload := orderPayload(saved)
	payload["previous_status"] = string(from)
	s.emit(ctx, saved, change{
		timeline: domain.StatusChangedEvent(saved.Status),
		event:    EventOrderStatusChanged,
		actor:    domain.ActorAdmin,
		from:     from,
		payload:  payload,
	})

	s.logger.WithFields(log.Fields{
		"order_id": saved.ID,
		"from":     from,
		"to":       saved.Status,
	}).Info("order status updated")
	return saved, nil
}
