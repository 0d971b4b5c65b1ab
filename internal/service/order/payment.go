package order

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/inventory"
)

// VerifyPayment подтверждает оплату заказа по tx_ref.
// Повторный вызов для оплаченного заказа возвращает его без обращения к шлюзу и без списания остатков.
func (s *Service) VerifyPayment(ctx context.Context, txRef string) (domain.Order, error) {
	if txRef == "" {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order, err := s.orders.GetByTxRef(ctx, txRef)
	if err != nil {
		return domain.Order{}, err
	}
	if order.IsPaid {
		return order, nil
	}
	if !domain.CanTransition(order.Status, domain.OrderStatusPaid) {
		return domain.Order{}, domain.ErrIllegalTransition
	}

	verification, err := s.verifyWithGateway(ctx, txRef)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.clock()
	saved, changed, err := s.mutate(ctx, order, func(o *domain.Order) (bool, error) {
		if o.IsPaid {
			return false, nil
		}
		if !domain.CanTransition(o.Status, domain.OrderStatusPaid) {
			return false, domain.ErrIllegalTransition
		}
		o.MarkPaid(verification, now)
		return true, nil
	})
	if err != nil {
		s.logger.WithError(err).WithField("tx_ref", txRef).Error("persist verified payment failed")
		return domain.Order{}, err
	}
	if !changed {
		// Заказ успел оплатить параллельный запрос; остатки списывает он.
		return saved, nil
	}

	s.metrics.RecordOrderPaid()
	s.emit(ctx, saved, change{
		timeline: domain.TimelinePaymentVerified,
		event:    EventOrderPaid,
		actor:    domain.ActorGateway,
		from:     order.Status,
		payload:  orderPayload(saved),
	})
	s.applyStock(ctx, saved)

	s.logger.WithFields(log.Fields{
		"order_id": saved.ID,
		"tx_ref":   txRef,
	}).Info("payment verified")
	return saved, nil
}

func (s *Service) verifyWithGateway(ctx context.Context, txRef string) (domain.PaymentVerification, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	started := time.Now()
	verification, err := s.gateway.Verify(callCtx, txRef)
	s.metrics.RecordGatewayCall("verify", err, time.Since(started))
	if err != nil {
		s.logger.WithError(err).WithField("tx_ref", txRef).Warn("payment verification failed")
		if errors.Is(err, domain.ErrPaymentVerificationFailed) {
			return domain.PaymentVerification{}, err
		}
		return domain.PaymentVerification{}, domain.NewPaymentVerificationError("%v", err)
	}
	return verification, nil
}

// applyStock списывает остатки после фиксации оплаты. Неудачи не откатывают оплату,
// а уходят в outbox для сверки вне запроса.
func (s *Service) applyStock(ctx context.Context, order domain.Order) {
	if s.inventory == nil {
		return
	}
	for _, failure := range s.inventory.ApplyOrder(ctx, order) {
		s.emit(ctx, order, change{
			timeline: domain.TimelineStockShortfall,
			event:    EventStockDecrementFailed,
			actor:    domain.ActorSystem,
			from:     order.Status,
			reason:   failure.Reason,
			payload:  stockFailurePayload(order, failure),
		})
	}
}

func stockFailurePayload(order domain.Order, failure inventory.StockFailure) map[string]any {
	payload := map[string]any{
		"order_id":   order.ID,
		"product_id": failure.ProductID,
		"quantity":   failure.Quantity,
		"reason":     failure.Reason,
	}
	if failure.Err != nil {
		payload["error"] = failure.Err.Error()
	}
	return payload
}
