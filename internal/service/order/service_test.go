package order

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/inventory"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type OrderServiceSuite struct {
	suite.Suite

	ctx      context.Context
	orders   domain.OrderRepository
	products domain.ProductRepository
	outbox   *memory.OutboxRepository
	timeline domain.TimelineRepository
	gateway  *payment.MockGateway
	svc      *Service

	buyer   domain.User
	address domain.Address
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}

func (s *OrderServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.orders = memory.NewOrderRepository()
	s.products = memory.NewProductRepository()
	s.outbox = memory.NewOutboxRepository()
	s.timeline = memory.NewTimelineRepository()
	s.gateway = payment.NewMockGateway()

	users := memory.NewUserRepository()
	addresses := memory.NewAddressRepository()

	s.buyer = domain.User{ID: "buyer-1", Username: "Abebe Bikila Kebede", Email: "abebe@mail.test"}
	s.Require().NoError(users.Create(s.ctx, s.buyer))
	s.Require().NoError(users.Create(s.ctx, domain.User{ID: "buyer-2", Username: "x", Email: "x@mail.test"}))

	s.address = domain.Address{ID: "addr-1", UserID: s.buyer.ID, FullName: "Abebe", PhoneNumber: "1", StreetAddress: "s", City: "c", Country: "ET", PostalCode: "1000"}
	s.Require().NoError(addresses.Create(s.ctx, s.address))

	s.Require().NoError(s.products.Create(s.ctx, domain.Product{ID: "sofa", Name: "Sofa", Price: decimal.NewFromInt(100), Stock: 10}))
	s.Require().NoError(s.products.Create(s.ctx, domain.Product{ID: "lamp", Name: "Lamp", Price: decimal.NewFromInt(15), Stock: 1}))

	m := metrics.NewStoreMetricsWithRegisterer(prometheus.NewRegistry())
	s.svc = NewService(Dependencies{
		Orders:    s.orders,
		Products:  s.products,
		Addresses: addresses,
		Users:     users,
		Gateway:   s.gateway,
		Inventory: inventory.NewService(s.products, m, nil),
		Outbox:    s.outbox,
		Timeline:  s.timeline,
		Metrics:   m,
	}, Config{BaseURL: "https://api.shop.test/", FrontendURL: "https://shop.test"})
}

func (s *OrderServiceSuite) buyerIdentity() domain.Identity {
	return domain.Identity{UserID: s.buyer.ID}
}

func (s *OrderServiceSuite) createInput(total int64, lines ...LineInput) CreateInput {
	price := decimal.NewFromInt(total)
	return CreateInput{Items: lines, ShippingAddressID: s.address.ID, TotalPrice: &price}
}

func (s *OrderServiceSuite) createOrder() domain.Order {
	res, err := s.svc.Create(s.ctx, s.buyerIdentity(), s.createInput(200, LineInput{ProductID: "sofa", Quantity: 2}))
	s.Require().NoError(err)
	return res.Order
}

func (s *OrderServiceSuite) stock(id string) int {
	p, err := s.products.Get(s.ctx, id)
	s.Require().NoError(err)
	return p.Stock
}

func (s *OrderServiceSuite) eventTypes() []string {
	var types []string
	for _, msg := range s.outbox.AllPending() {
		types = append(types, msg.EventType)
	}
	return types
}

func (s *OrderServiceSuite) TestCreate_PersistsPendingOrderWithGatewayTxRef() {
	res, err := s.svc.Create(s.ctx, s.buyerIdentity(), s.createInput(200, LineInput{ProductID: "sofa", Quantity: 2}))
	s.Require().NoError(err)

	order := res.Order
	s.Equal(domain.OrderStatusPending, order.Status)
	s.False(order.IsPaid)
	s.Equal(domain.PaymentResultPending, order.PaymentResult.Status)
	s.Equal(domain.PaymentMethodChapa, order.PaymentMethod)
	s.True(decimal.NewFromInt(200).Equal(order.TotalPrice))
	s.Equal("Sofa", order.Items[0].Name)

	init := s.gateway.LastInit
	s.Equal(order.PaymentResult.TxRef, init.TxRef)
	s.Equal("Abebe", init.FirstName)
	s.Equal("Bikila Kebede", init.LastName)
	s.Equal("abebe@mail.test", init.Email)
	s.Equal("https://api.shop.test/api/orders/verify-payment/"+init.TxRef, init.CallbackURL)
	s.Equal("https://shop.test/order-success/"+init.TxRef, init.ReturnURL)
	s.Equal("Order Payment", init.Title)
	s.Equal("https://checkout.local/pay/"+init.TxRef, res.CheckoutURL)

	stored, err := s.orders.GetByTxRef(s.ctx, init.TxRef)
	s.Require().NoError(err)
	s.Equal(order.ID, stored.ID)
	s.Equal([]string{EventOrderCreated}, s.eventTypes())

	second := s.createOrder()
	s.NotEqual(order.PaymentResult.TxRef, second.PaymentResult.TxRef)
}

func (s *OrderServiceSuite) TestCreate_ValidationFailures() {
	price := decimal.NewFromInt(200)
	cases := []struct {
		name  string
		who   domain.Identity
		input CreateInput
		kind  error
	}{
		{name: "no items", who: s.buyerIdentity(), input: CreateInput{ShippingAddressID: s.address.ID, TotalPrice: &price}, kind: domain.ErrValidation},
		{name: "no total", who: s.buyerIdentity(), input: CreateInput{Items: []LineInput{{ProductID: "sofa", Quantity: 2}}, ShippingAddressID: s.address.ID}, kind: domain.ErrValidation},
		{name: "zero quantity", who: s.buyerIdentity(), input: s.createInput(0, LineInput{ProductID: "sofa", Quantity: 0}), kind: domain.ErrValidation},
		{name: "total mismatch", who: s.buyerIdentity(), input: s.createInput(150, LineInput{ProductID: "sofa", Quantity: 2}), kind: domain.ErrValidation},
		{name: "unknown product", who: s.buyerIdentity(), input: s.createInput(100, LineInput{ProductID: "ghost", Quantity: 1}), kind: domain.ErrValidation},
		{name: "unknown user", who: domain.Identity{UserID: "ghost", IsAdmin: true}, input: s.createInput(200, LineInput{ProductID: "sofa", Quantity: 2}), kind: domain.ErrValidation},
		{name: "foreign address", who: domain.Identity{UserID: "buyer-2"}, input: s.createInput(200, LineInput{ProductID: "sofa", Quantity: 2}), kind: domain.ErrValidation},
		{name: "ordering for another user", who: domain.Identity{UserID: "buyer-2"}, input: CreateInput{UserID: s.buyer.ID, Items: []LineInput{{ProductID: "sofa", Quantity: 2}}, ShippingAddressID: s.address.ID, TotalPrice: &price}, kind: domain.ErrForbidden},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.svc.Create(s.ctx, tc.who, tc.input)
			s.Require().ErrorIs(err, tc.kind)
		})
	}

	initCalls, _ := s.gateway.Calls()
	s.Zero(initCalls)
	all, err := s.orders.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *OrderServiceSuite) TestCreate_GatewayFailureLeavesNothingBehind() {
	s.gateway.InitErr = domain.NewPaymentInitError("Invalid API key")

	_, err := s.svc.Create(s.ctx, s.buyerIdentity(), s.createInput(200, LineInput{ProductID: "sofa", Quantity: 2}))
	s.Require().ErrorIs(err, domain.ErrPaymentInit)
	s.Equal("Invalid API key", err.Error())

	all, err := s.orders.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
	s.Empty(s.outbox.AllPending())

	s.gateway.InitErr = context.DeadlineExceeded
	_, err = s.svc.Create(s.ctx, s.buyerIdentity(), s.createInput(200, LineInput{ProductID: "sofa", Quantity: 2}))
	s.Require().ErrorIs(err, domain.ErrPaymentInit)
}

func (s *OrderServiceSuite) TestVerifyPayment_MarksPaidAndDecrementsOnce() {
	order := s.createOrder()

	paid, err := s.svc.VerifyPayment(s.ctx, order.PaymentResult.TxRef)
	s.Require().NoError(err)
	s.True(paid.IsPaid)
	s.Equal(domain.OrderStatusPaid, paid.Status)
	s.NotNil(paid.PaidAt)
	s.Equal(domain.PaymentResultSuccess, paid.PaymentResult.Status)
	s.Equal("mock-"+order.PaymentResult.TxRef, paid.PaymentResult.Reference)
	s.Equal(8, s.stock("sofa"))

	again, err := s.svc.VerifyPayment(s.ctx, order.PaymentResult.TxRef)
	s.Require().NoError(err)
	s.True(again.IsPaid)
	s.Equal(8, s.stock("sofa"))

	_, verifyCalls := s.gateway.Calls()
	s.Equal(1, verifyCalls)
	s.Equal([]string{EventOrderCreated, EventOrderPaid}, s.eventTypes())

	events, err := s.svc.Timeline(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(domain.TimelinePaymentVerified, events[1].Type)
	s.Equal(domain.ActorGateway, events[1].Actor)
	s.Equal(domain.OrderStatusPending, events[1].FromStatus)
	s.Equal(domain.OrderStatusPaid, events[1].ToStatus)
	s.Equal(domain.ActorBuyer, events[0].Actor)
	s.Empty(events[0].FromStatus)
}

func (s *OrderServiceSuite) TestVerifyPayment_ConcurrentCallsDecrementOnce() {
	order := s.createOrder()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.VerifyPayment(s.ctx, order.PaymentResult.TxRef)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	s.Equal(8, s.stock("sofa"))
	paidEvents := 0
	for _, t := range s.eventTypes() {
		if t == EventOrderPaid {
			paidEvents++
		}
	}
	s.Equal(1, paidEvents)
}

func (s *OrderServiceSuite) TestVerifyPayment_UnknownTxRef() {
	_, err := s.svc.VerifyPayment(s.ctx, "missing")
	s.Require().ErrorIs(err, domain.ErrNotFound)

	_, verifyCalls := s.gateway.Calls()
	s.Zero(verifyCalls)
	s.Equal(10, s.stock("sofa"))
}

func (s *OrderServiceSuite) TestVerifyPayment_GatewayRejectionKeepsPending() {
	order := s.createOrder()
	s.gateway.VerifyErr = domain.NewPaymentVerificationError("Payment verification failed")

	_, err := s.svc.VerifyPayment(s.ctx, order.PaymentResult.TxRef)
	s.Require().ErrorIs(err, domain.ErrPaymentVerificationFailed)

	stored, err := s.orders.Get(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPending, stored.Status)
	s.False(stored.IsPaid)
	s.Equal(10, s.stock("sofa"))
}

func (s *OrderServiceSuite) TestVerifyPayment_StockShortfallIsReportedNotFatal() {
	price := decimal.NewFromInt(130)
	res, err := s.svc.Create(s.ctx, s.buyerIdentity(), CreateInput{
		Items:             []LineInput{{ProductID: "sofa", Quantity: 1}, {ProductID: "lamp", Quantity: 2}},
		ShippingAddressID: s.address.ID,
		TotalPrice:        &price,
	})
	s.Require().NoError(err)

	paid, err := s.svc.VerifyPayment(s.ctx, res.Order.PaymentResult.TxRef)
	s.Require().NoError(err)
	s.True(paid.IsPaid)
	s.Equal(9, s.stock("sofa"))
	s.Equal(1, s.stock("lamp"))

	var shortfall *domain.OutboxMessage
	for _, msg := range s.outbox.AllPending() {
		if msg.EventType == EventStockDecrementFailed {
			m := msg
			shortfall = &m
		}
	}
	s.Require().NotNil(shortfall)
	var payload map[string]any
	s.Require().NoError(json.Unmarshal(shortfall.Payload, &payload))
	s.Equal("lamp", payload["product_id"])
	s.Equal(inventory.ReasonInsufficientStock, payload["reason"])
}

func (s *OrderServiceSuite) TestVerifyPayment_CancelledOrderIsRejected() {
	order := s.createOrder()
	_, err := s.svc.UpdateStatus(s.ctx, order.ID, UpdateStatusInput{Status: domain.OrderStatusCancelled})
	s.Require().NoError(err)

	_, err = s.svc.VerifyPayment(s.ctx, order.PaymentResult.TxRef)
	s.Require().ErrorIs(err, domain.ErrIllegalTransition)
	_, verifyCalls := s.gateway.Calls()
	s.Zero(verifyCalls)
}

func (s *OrderServiceSuite) TestUpdateStatus_TransitionGraph() {
	order := s.createOrder()

	_, err := s.svc.UpdateStatus(s.ctx, order.ID, UpdateStatusInput{Status: domain.OrderStatusPaid})
	s.Require().ErrorIs(err, domain.ErrIllegalTransition)

	_, err = s.svc.UpdateStatus(s.ctx, order.ID, UpdateStatusInput{Status: domain.OrderStatusShipped})
	s.Require().ErrorIs(err, domain.ErrValidation)

	_, err = s.svc.UpdateStatus(s.ctx, order.ID, UpdateStatusInput{Status: "Lost"})
	s.Require().ErrorIs(err, domain.ErrValidation)

	_, err = s.svc.UpdateStatus(s.ctx, "missing", UpdateStatusInput{Status: domain.OrderStatusCancelled})
	s.Require().ErrorIs(err, domain.ErrOrderNotFound)

	_, err = s.svc.VerifyPayment(s.ctx, order.PaymentResult.TxRef)
	s.Require().NoError(err)

	tracking := "ET-123"
	shipped, err := s.svc.UpdateStatus(s.ctx, order.ID, UpdateStatusInput{Status: domain.OrderStatusShipped, TrackingNumber: &tracking})
	s.Require().NoError(err)
	s.Equal("ET-123", shipped.TrackingNumber)
	s.False(shipped.IsDelivered)

	yes := true
	_, err = s.svc.UpdateStatus(s.ctx, order.ID, UpdateStatusInput{Status: domain.OrderStatusShipped, IsDelivered: &yes})
	s.Require().ErrorIs(err, domain.ErrValidation)

	delivered, err := s.svc.UpdateStatus(s.ctx, order.ID, UpdateStatusInput{Status: domain.OrderStatusDelivered})
	s.Require().NoError(err)
	s.True(delivered.IsDelivered)
	s.Require().NotNil(delivered.DeliveredAt)

	_, err = s.svc.UpdateStatus(s.ctx, order.ID, UpdateStatusInput{Status: domain.OrderStatusCancelled})
	s.Require().ErrorIs(err, domain.ErrIllegalTransition)

	events, err := s.svc.Timeline(s.ctx, order.ID)
	s.Require().NoError(err)
	last := events[len(events)-1]
	s.Equal(domain.StatusChangedEvent(domain.OrderStatusDelivered), last.Type)
	s.Equal(domain.ActorAdmin, last.Actor)
	s.Equal(domain.OrderStatusDelivered, last.ToStatus)
}

func (s *OrderServiceSuite) TestViews() {
	order := s.createOrder()

	mine, err := s.svc.ListByBuyer(s.ctx, s.buyer.ID)
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Require().NotNil(mine[0].User)
	s.Equal("abebe@mail.test", mine[0].User.Email)
	s.Require().NotNil(mine[0].ShippingAddress)
	s.Require().NotNil(mine[0].Items[0].Product)
	s.Equal("Sofa", mine[0].Items[0].Product.Name)

	_, err = s.svc.GetForBuyer(s.ctx, "buyer-2", order.ID)
	s.Require().ErrorIs(err, domain.ErrOrderNotFound)

	view, err := s.svc.GetForBuyer(s.ctx, s.buyer.ID, order.ID)
	s.Require().NoError(err)
	s.Equal(order.ID, view.Order.ID)

	s.Require().NoError(s.products.Delete(s.ctx, "sofa"))
	view, err = s.svc.GetForBuyer(s.ctx, s.buyer.ID, order.ID)
	s.Require().NoError(err)
	s.Nil(view.Items[0].Product)
	s.Equal("Sofa", view.Items[0].Name)

	all, err := s.svc.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func TestListAll_EmptyIsNotFound(t *testing.T) {
	svc := NewService(Dependencies{
		Orders:   memory.NewOrderRepository(),
		Products: memory.NewProductRepository(),
	}, Config{})

	_, err := svc.ListAll(context.Background())
	require.ErrorIs(t, err, ErrNoOrders)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// conflictingOrders отдаёт конфликт версий на первые conflicts вызовов Save.
type conflictingOrders struct {
	domain.OrderRepository

	mu        sync.Mutex
	conflicts int
	saves     int
}

func (r *conflictingOrders) Save(ctx context.Context, order domain.Order) error {
	r.mu.Lock()
	r.saves++
	if r.conflicts > 0 {
		r.conflicts--
		r.mu.Unlock()
		return domain.ErrOrderVersionConflict
	}
	r.mu.Unlock()
	return r.OrderRepository.Save(ctx, order)
}

func TestMutate_RetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	base := memory.NewOrderRepository()
	order := domain.Order{ID: "o1", Status: domain.OrderStatusPaid, PaymentResult: domain.PaymentResult{TxRef: "tx"}, UpdatedAt: time.Now()}
	require.NoError(t, base.Create(ctx, order))

	repo := &conflictingOrders{OrderRepository: base, conflicts: 2}
	svc := NewService(Dependencies{Orders: repo}, Config{})

	saved, changed, err := svc.mutate(ctx, order, func(o *domain.Order) (bool, error) {
		o.Status = domain.OrderStatusShipped
		return true, nil
	})
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, domain.OrderStatusShipped, saved.Status)
	require.Equal(t, 3, repo.saves)

	repo.conflicts = maxSaveAttempts
	_, _, err = svc.mutate(ctx, saved, func(o *domain.Order) (bool, error) {
		o.Status = domain.OrderStatusDelivered
		return true, nil
	})
	require.True(t, errors.Is(err, domain.ErrOrderVersionConflict))
}
