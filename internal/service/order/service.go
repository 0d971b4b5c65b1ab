package order

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/inventory"
)

const (
	// DefaultGatewayTimeout ограничивает один вызов платёжного шлюза.
	DefaultGatewayTimeout = 10 * time.Second
	// Валюта платёжной сессии.
	DefaultCurrency = "ETB"

	maxSaveAttempts = 3
	saveRetryDelay  = 10 * time.Millisecond
)

// StockApplier списывает остатки по оплаченному заказу.
type StockApplier interface {
	ApplyOrder(ctx context.Context, order domain.Order) []inventory.StockFailure
}

// Config задаёт адреса возврата и параметры платёжной сессии.
type Config struct {
	// Публичный адрес API, на него шлюз присылает callback.
	BaseURL string
	// Куда шлюз возвращает покупателя после оплаты.
	FrontendURL    string
	Currency       string
	GatewayTimeout time.Duration
}

// Dependencies: порты сервиса заказов.
type Dependencies struct {
	Orders    domain.OrderRepository
	Products  domain.ProductRepository
	Addresses domain.AddressRepository
	Users     domain.UserRepository
	Gateway   domain.PaymentGateway
	Inventory StockApplier
	Outbox    domain.OutboxRepository
	Timeline  domain.TimelineRepository
	Metrics   *metrics.StoreMetrics
	Logger    *log.Entry
	Now       func() time.Time
}

// Service ведёт заказ от создания платёжной сессии до доставки.
type Service struct {
	orders    domain.OrderRepository
	products  domain.ProductRepository
	addresses domain.AddressRepository
	users     domain.UserRepository
	gateway   domain.PaymentGateway
	inventory StockApplier
	outbox    domain.OutboxRepository
	timeline  domain.TimelineRepository
	metrics   *metrics.StoreMetrics
	logger    *log.Entry
	now       func() time.Time
	cfg       Config
}

// NewService создаёт сервис заказов.
func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = DefaultGatewayTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		orders:    deps.Orders,
		products:  deps.Products,
		addresses: deps.Addresses,
		users:     deps.Users,
		gateway:   deps.Gateway,
		inventory: deps.Inventory,
		outbox:    deps.Outbox,
		timeline:  deps.Timeline,
		metrics:   deps.Metrics,
		logger:    logger,
		now:       now,
		cfg:       cfg,
	}
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// mutate применяет apply к заказу и сохраняет его с optimistic locking.
// При конфликте версий заказ перечитывается и apply вызывается заново.
// apply возвращает false, если сохранять нечего.
func (s *Service) mutate(ctx context.Context, order domain.Order, apply func(*domain.Order) (bool, error)) (domain.Order, bool, error) {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		next := order.Clone()
		changed, err := apply(&next)
		if err != nil {
			return domain.Order{}, false, err
		}
		if !changed {
			return next, false, nil
		}

		err = s.orders.Save(ctx, next)
		if err == nil {
			next.Version++
			return next, true, nil
		}
		if !domain.IsVersionConflict(err) {
			return domain.Order{}, false, err
		}

		s.metrics.RecordVersionConflict()
		s.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"attempt":  attempt + 1,
			"version":  next.Version,
		}).Warn("version conflict detected, retrying")

		delay := saveRetryDelay * time.Duration(1<<uint(attempt))
		select {
		case <-ctx.Done():
			return domain.Order{}, false, ctx.Err()
		case <-time.After(delay):
		}

		fresh, err := s.orders.Get(ctx, order.ID)
		if err != nil {
			return domain.Order{}, false, err
		}
		order = fresh
	}
	return domain.Order{}, false, domain.ErrOrderVersionConflict
}
