package inventory

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Причины несписания остатка.
const (
	ReasonInsufficientStock = "insufficient_stock"
	ReasonProductNotFound   = "product_not_found"
	ReasonInvalidQuantity   = "invalid_quantity"
	ReasonStorageError      = "storage_error"
)

// StockFailure описывает позицию, остаток по которой не удалось списать.
type StockFailure struct {
	ProductID string
	Quantity  int
	Reason    string
	Err       error
}

// Service списывает остатки по оплаченным заказам.
type Service struct {
	products domain.ProductRepository
	metrics  *metrics.StoreMetrics
	logger   *log.Entry
}

// NewService создаёт складской сервис.
func NewService(products domain.ProductRepository, m *metrics.StoreMetrics, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "inventory")
	}
	return &Service{products: products, metrics: m, logger: logger}
}

// ApplyOrder списывает остаток по каждой позиции независимо.
// Неудача одной позиции не отменяет остальные; результат содержит только неудачные.
func (s *Service) ApplyOrder(ctx context.Context, order domain.Order) []StockFailure {
	var failures []StockFailure
	for _, item := range order.Items {
		err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		s.metrics.RecordInventory(string(domain.InventoryStepDecrement), err)
		if err == nil {
			continue
		}

		reason := classify(err)
		s.metrics.RecordStockShortfall(reason)
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":   order.ID,
			"product_id": item.ProductID,
			"quantity":   item.Quantity,
			"reason":     reason,
		}).Warn("stock decrement failed")

		failures = append(failures, StockFailure{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Reason:    reason,
			Err:       err,
		})
	}
	return failures
}

func classify(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return ReasonInsufficientStock
	case errors.Is(err, domain.ErrNotFound):
		return ReasonProductNotFound
	case errors.Is(err, domain.ErrInvalidQuantity):
		return ReasonInvalidQuantity
	default:
		return ReasonStorageError
	}
}
