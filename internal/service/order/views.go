package order

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Buyer: публичные данные покупателя в представлении заказа.
type Buyer struct {
	ID       string
	Username string
	Email    string
}

// ProductRef: текущие данные товара позиции.
type ProductRef struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// ItemView: позиция заказа с текущим товаром; Product пуст, если товар удалён.
type ItemView struct {
	domain.OrderItem
	Product *ProductRef
}

// OrderView: заказ с разрешёнными покупателем, адресом и товарами.
type OrderView struct {
	Order           domain.Order
	User            *Buyer
	ShippingAddress *domain.Address
	Items           []ItemView
}

// ErrNoOrders: заказов нет вообще.
var ErrNoOrders = domain.NewNotFoundError("no orders found")

// ListByBuyer возвращает заказы покупателя.
func (s *Service) ListByBuyer(ctx context.Context, userID string) ([]OrderView, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, orders)
}

// GetForBuyer возвращает заказ покупателя. Чужой заказ считается отсутствующим.
func (s *Service) GetForBuyer(ctx context.Context, userID, orderID string) (OrderView, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return OrderView{}, err
	}
	if order.UserID != userID {
		return OrderView{}, domain.ErrOrderNotFound
	}
	return s.View(ctx, order)
}

// ListAll возвращает все заказы, новые первыми. Пустой список даёт ErrNoOrders.
func (s *Service) ListAll(ctx context.Context) ([]OrderView, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}
	return s.views(ctx, orders)
}

// Timeline возвращает журнал событий заказа.
func (s *Service) Timeline(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	if _, err := s.orders.Get(ctx, orderID); err != nil {
		return nil, err
	}
	if s.timeline == nil {
		return []domain.TimelineEvent{}, nil
	}
	return s.timeline.List(ctx, orderID)
}

// View разрешает ссылки заказа. Удалённые сущности оставляют пустые поля.
func (s *Service) View(ctx context.Context, order domain.Order) (OrderView, error) {
	views, err := s.views(ctx, []domain.Order{order})
	if err != nil {
		return OrderView{}, err
	}
	return views[0], nil
}

func (s *Service) views(ctx context.Context, orders []domain.Order) ([]OrderView, error) {
	var ids []string
	for _, o := range orders {
		for _, item := range o.Items {
			ids = append(ids, item.ProductID)
		}
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	buyers := make(map[string]*Buyer)
	result := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		view := OrderView{Order: o, Items: make([]ItemView, 0, len(o.Items))}

		buyer, ok := buyers[o.UserID]
		if !ok {
			buyer, err = s.buyer(ctx, o.UserID)
			if err != nil {
				return nil, err
			}
			buyers[o.UserID] = buyer
		}
		view.User = buyer

		address, err := s.addresses.Get(ctx, o.ShippingAddressID)
		switch {
		case err == nil:
			view.ShippingAddress = &address
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}

		for _, item := range o.Items {
			iv := ItemView{OrderItem: item}
			if p, ok := products[item.ProductID]; ok {
				iv.Product = &ProductRef{ID: p.ID, Name: p.Name, Price: p.Price}
			}
			view.Items = append(view.Items, iv)
		}
		result = append(result, view)
	}
	return result, nil
}

func (s *Service) buyer(ctx context.Context, userID string) (*Buyer, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &Buyer{ID: user.ID, Username: user.Username, Email: user.Email}, nil
}
