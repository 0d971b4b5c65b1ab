package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// LineInput: позиция, которую заказывает покупатель.
type LineInput struct {
	ProductID string
	Quantity  int
}

// CreateInput: запрос на оформление заказа.
type CreateInput struct {
	// Покупатель; пустое значение означает вызывающего.
	UserID            string
	Items             []LineInput
	ShippingAddressID string
	// TotalPrice обязателен и должен совпасть с суммой по ценам каталога.
	TotalPrice *decimal.Decimal
	Notes      string
}

// CreateResult: созданный заказ и адрес платёжной страницы.
type CreateResult struct {
	Order       domain.Order
	CheckoutURL string
}

var errMissingFields = domain.NewValidationError("missing required fields")

// Create открывает платёжную сессию и при успехе сохраняет заказ в статусе Pending.
// Если шлюз отказал, заказ не сохраняется.
func (s *Service) Create(ctx context.Context, who domain.Identity, in CreateInput) (CreateResult, error) {
	userID := in.UserID
	if userID == "" {
		userID = who.UserID
	}
	if !who.CanActFor(userID) {
		return CreateResult{}, &domain.Error{Kind: domain.ErrForbidden, Message: "not authorized to order on behalf of another user"}
	}
	if userID == "" || len(in.Items) == 0 || in.ShippingAddressID == "" || in.TotalPrice == nil {
		return CreateResult{}, errMissingFields
	}
	for _, line := range in.Items {
		if line.ProductID == "" {
			return CreateResult{}, errMissingFields
		}
		if line.Quantity < 1 {
			return CreateResult{}, domain.ErrItemQtyInvalid
		}
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return CreateResult{}, asInvalidReference(err, "invalid user or address")
	}
	address, err := s.addresses.Get(ctx, in.ShippingAddressID)
	if err != nil {
		return CreateResult{}, asInvalidReference(err, "invalid user or address")
	}
	if address.UserID != user.ID {
		return CreateResult{}, domain.NewValidationError("invalid user or address")
	}

	items, err := s.snapshotItems(ctx, in.Items)
	if err != nil {
		return CreateResult{}, err
	}

	now := s.clock()
	order := domain.Order{
		ID:                uuid.NewString(),
		UserID:            user.ID,
		Items:             items,
		ShippingAddressID: address.ID,
		OrderDate:         now,
		TotalPrice:        *in.TotalPrice,
		Status:            domain.OrderStatusPending,
		Notes:             in.Notes,
		PaymentMethod:     domain.PaymentMethodChapa,
		PaymentResult: domain.PaymentResult{
			TxRef:  uuid.NewString(),
			Status: domain.PaymentResultPending,
			Amount: *in.TotalPrice,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return CreateResult{}, errs[0]
	}

	session, err := s.initializePayment(ctx, user, order)
	if err != nil {
		return CreateResult{}, err
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"tx_ref":   order.PaymentResult.TxRef,
		}).Error("persist order after payment initialization failed")
		return CreateResult{}, err
	}

	s.metrics.RecordOrderCreated()
	s.emit(ctx, order, change{
		timeline: domain.TimelineOrderCreated,
		event:    EventOrderCreated,
		actor:    domain.ActorBuyer,
		payload:  orderPayload(order),
	})
	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"total":    order.TotalPrice.String(),
	}).Info("order created")

	return CreateResult{Order: order, CheckoutURL: session.CheckoutURL}, nil
}

func (s *Service) snapshotItems(ctx context.Context, lines []LineInput) ([]domain.OrderItem, error) {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			return nil, domain.NewValidationError("product %s not found", line.ProductID)
		}
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Quantity:  line.Quantity,
			Name:      p.Name,
			Price:     p.Price,
		})
	}
	return items, nil
}

func (s *Service) initializePayment(ctx context.Context, user domain.User, order domain.Order) (domain.PaymentSession, error) {
	firstName := user.FirstName()
	if firstName == "" {
		firstName = "Customer"
	}
	txRef := order.PaymentResult.TxRef
	req := domain.PaymentInitRequest{
		Amount:      order.TotalPrice,
		Currency:    s.cfg.Currency,
		Email:       user.Email,
		FirstName:   firstName,
		LastName:    user.LastName(),
		TxRef:       txRef,
		CallbackURL: joinURL(s.cfg.BaseURL, "/api/orders/verify-payment/"+txRef),
		ReturnURL:   joinURL(s.cfg.FrontendURL, "/order-success/"+txRef),
		Title:       "Order Payment",
		Description: "Payment for your order",
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	started := time.Now()
	session, err := s.gateway.Initialize(callCtx, req)
	s.metrics.RecordGatewayCall("initialize", err, time.Since(started))
	if err != nil {
		s.logger.WithError(err).WithField("tx_ref", txRef).Warn("payment initialization failed")
		if errors.Is(err, domain.ErrPaymentInit) {
			return domain.PaymentSession{}, err
		}
		return domain.PaymentSession{}, domain.NewPaymentInitError("%v", err)
	}
	return session, nil
}

func asInvalidReference(err error, msg string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewValidationError("%s", msg)
	}
	return fmt.Errorf("resolve order reference: %w", err)
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
