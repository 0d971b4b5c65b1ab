package cart

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	opGet    = "get"
	opAdd    = "add"
	opUpdate = "update"
	opRemove = "remove"
	opClear  = "clear"
)

// Item: строка корзины с текущими данными товара.
type Item struct {
	Product  domain.Product
	Quantity int
	Subtotal decimal.Decimal
	AddedAt  time.Time
}

// View: корзина, пересчитанная по текущим ценам каталога.
type View struct {
	UserID     string
	Items      []Item
	TotalPrice decimal.Decimal
	ExpiresAt  time.Time
	UpdatedAt  time.Time
}

// Service сверяет корзины покупателей с остатками и ценами каталога.
type Service struct {
	carts    domain.CartRepository
	products domain.ProductRepository
	metrics  *metrics.StoreMetrics
	logger   *log.Entry
	now      func() time.Time
	locker   Locker
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocker задаёт блокировку корзин, общую для нескольких экземпляров сервиса.
func WithLocker(locker Locker) Option {
	return func(s *Service) {
		if locker != nil {
			s.locker = locker
		}
	}
}

// WithLogger задаёт логгер сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService создаёт сервис корзин.
func NewService(carts domain.CartRepository, products domain.ProductRepository, m *metrics.StoreMetrics, opts ...Option) *Service {
	s := &Service{
		carts:    carts,
		products: products,
		metrics:  m,
		logger:   log.WithField("component", "cart-service"),
		now:      time.Now,
		locker:   newLocalLocker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get возвращает корзину пользователя. Товары, исчезнувшие из каталога, в представление не попадают.
func (s *Service) Get(ctx context.Context, userID string) (View, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		s.metrics.RecordCartOperation(opGet, err)
		return View{}, err
	}
	view, err := s.view(ctx, c)
	s.metrics.RecordCartOperation(opGet, err)
	return view, err
}

// AddItem добавляет qty товара. Если итоговое количество превышает остаток, корзина не меняется.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (view View, err error) {
	defer func() { s.metrics.RecordCartOperation(opAdd, err) }()

	if qty <= 0 {
		return View{}, domain.ErrQuantityNotPositive
	}
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return View{}, err
	}
	if qty > product.Stock {
		return View{}, domain.ErrStockExceeded
	}

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return View{}, err
	}
	defer unlock()

	now := s.now().UTC()
	c, err := s.carts.Get(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrCartNotFound):
		c = domain.NewCart(userID, now)
	case err != nil:
		return View{}, err
	}

	if line, ok := c.Line(productID); ok && line.Quantity+qty > product.Stock {
		return View{}, &domain.Error{Kind: domain.ErrInsufficientStock, Message: "exceeding stock limit"}
	}
	c.Merge(productID, qty, now)

	return s.save(ctx, c, now)
}

// UpdateItem заменяет количество товара; qty <= 0 удаляет строку.
func (s *Service) UpdateItem(ctx context.Context, userID, productID string, qty int) (view View, err error) {
	defer func() { s.metrics.RecordCartOperation(opUpdate, err) }()

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return View{}, err
	}
	defer unlock()

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return View{}, err
	}
	if _, ok := c.Line(productID); !ok {
		return View{}, domain.ErrCartItemNotFound
	}

	if qty > 0 {
		product, err := s.products.Get(ctx, productID)
		if err != nil {
			return View{}, err
		}
		if qty > product.Stock {
			return View{}, domain.ErrStockExceeded
		}
	}
	c.SetQuantity(productID, qty)

	return s.save(ctx, c, s.now().UTC())
}

// RemoveItem удаляет строку товара; отсутствие строки не ошибка.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (view View, err error) {
	defer func() { s.metrics.RecordCartOperation(opRemove, err) }()

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return View{}, err
	}
	defer unlock()

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return View{}, err
	}
	c.Remove(productID)
	return s.save(ctx, c, s.now().UTC())
}

// Clear очищает корзину.
func (s *Service) Clear(ctx context.Context, userID string) (err error) {
	defer func() { s.metrics.RecordCartOperation(opClear, err) }()

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return err
	}
	c.Clear()
	c.Touch(s.now().UTC())
	return s.carts.Save(ctx, c)
}

func (s *Service) save(ctx context.Context, c domain.Cart, now time.Time) (View, error) {
	prices, products, err := s.resolve(ctx, c)
	if err != nil {
		return View{}, err
	}
	c.Recalculate(prices)
	c.Touch(now)
	if err := s.carts.Save(ctx, c); err != nil {
		return View{}, err
	}
	return buildView(c, products), nil
}

func (s *Service) view(ctx context.Context, c domain.Cart) (View, error) {
	prices, products, err := s.resolve(ctx, c)
	if err != nil {
		return View{}, err
	}
	c.Recalculate(prices)
	return buildView(c, products), nil
}

func (s *Service) resolve(ctx context.Context, c domain.Cart) (map[string]decimal.Decimal, map[string]domain.Product, error) {
	ids := make([]string, 0, len(c.Items))
	for _, line := range c.Items {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	prices := make(map[string]decimal.Decimal, len(products))
	for id, p := range products {
		prices[id] = p.Price
	}
	if len(products) < len(ids) {
		s.logger.WithField("user_id", c.UserID).Debug("cart references products missing from catalog")
	}
	return prices, products, nil
}

func buildView(c domain.Cart, products map[string]domain.Product) View {
	view := View{
		UserID:     c.UserID,
		Items:      make([]Item, 0, len(c.Items)),
		TotalPrice: c.TotalPrice,
		ExpiresAt:  c.ExpiresAt,
		UpdatedAt:  c.UpdatedAt,
	}
	for _, line := range c.Items {
		p, ok := products[line.ProductID]
		if !ok {
			continue
		}
		view.Items = append(view.Items, Item{
			Product:  p,
			Quantity: line.Quantity,
			Subtotal: p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
			AddedAt:  line.AddedAt,
		})
	}
	return view
}
