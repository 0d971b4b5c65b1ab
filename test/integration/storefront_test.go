package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/storefront/internal/auth"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/account"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/service/inventory"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/transport/httpapi"
)

type orderJSON struct {
	ID            string `json:"_id"`
	Status        string `json:"status"`
	IsPaid        bool   `json:"isPaid"`
	TotalPrice    json.Number `json:"totalPrice"`
	PaymentResult struct {
		TxRef  string `json:"tx_ref"`
		Status string `json:"status"`
	} `json:"paymentResult"`
}

type cartJSON struct {
	Items []struct {
		Product  json.RawMessage `json:"product"`
		Quantity int             `json:"quantity"`
	} `json:"items"`
	TotalPrice json.Number `json:"totalPrice"`
}

// StorefrontTestSuite проверяет сценарии покупателя через HTTP API поверх in-memory хранилищ.
type StorefrontTestSuite struct {
	suite.Suite

	router   http.Handler
	gateway  *payment.MockGateway
	products domain.ProductRepository
	orders   domain.OrderRepository
	outbox   *memory.OutboxRepository
	catalog  *catalog.Service
	logger   *log.Entry

	buyer     domain.User
	token     string
	addressID string
	category  string
}

func TestStorefrontTestSuite(t *testing.T) {
	suite.Run(t, new(StorefrontTestSuite))
}

func (s *StorefrontTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *StorefrontTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	s.logger = baseLogger.WithField("component", "integration-test")

	users := memory.NewUserRepository()
	addresses := memory.NewAddressRepository()
	s.products = memory.NewProductRepository()
	s.orders = memory.NewOrderRepository()
	s.outbox = memory.NewOutboxRepository()
	s.gateway = payment.NewMockGateway()

	tokens, err := auth.NewTokenManager("integration-user", "integration-admin")
	s.Require().NoError(err)

	accounts := account.NewService(account.Dependencies{
		Users:     users,
		Addresses: addresses,
		Wishlists: memory.NewWishlistRepository(),
		Products:  s.products,
		Hasher:    auth.NewPasswordHasher(4),
		Logger:    s.logger,
	})
	s.catalog = catalog.NewService(catalog.Dependencies{
		Products:   s.products,
		Categories: memory.NewCategoryRepository(),
		Reviews:    memory.NewReviewRepository(),
		Features:   memory.NewFeatureRepository(),
		Logger:     s.logger,
	})
	orders := order.NewService(order.Dependencies{
		Orders:    s.orders,
		Products:  s.products,
		Addresses: addresses,
		Users:     users,
		Gateway:   s.gateway,
		Inventory: inventory.NewService(s.products, nil, s.logger),
		Outbox:    s.outbox,
		Timeline:  memory.NewTimelineRepository(),
		Logger:    s.logger,
	}, order.Config{BaseURL: "https://api.shop.test", FrontendURL: "https://shop.test", GatewayTimeout: time.Second})

	s.router = httpapi.NewRouter(httpapi.Services{
		Accounts:    accounts,
		Catalog:     s.catalog,
		Carts:       cart.NewService(memory.NewCartRepository(), s.products, nil, cart.WithLogger(s.logger)),
		Orders:      orders,
		Tokens:      tokens,
		Idempotency: idempotency.NewGuard(memory.NewIdempotencyRepository(), time.Hour, s.logger),
	}, httpapi.Options{Logger: s.logger})

	ctx := context.Background()
	s.buyer, err = accounts.Register(ctx, account.RegisterInput{Username: "buyer", Email: "buyer@example.com", Password: "secret-pass"})
	s.Require().NoError(err)
	s.token, _, err = tokens.Issue(s.buyer.ID, false)
	s.Require().NoError(err)

	address, err := accounts.AddAddress(ctx, s.buyer.ID, account.AddressInput{
		FullName:      "Abebe Kebede",
		PhoneNumber:   "+251911000000",
		StreetAddress: "Bole Road 1",
		City:          "Addis Ababa",
		Country:       "Ethiopia",
		PostalCode:    "1000",
	})
	s.Require().NoError(err)
	s.addressID = address.ID

	category, err := s.catalog.CreateCategory(ctx, "sofas")
	s.Require().NoError(err)
	s.category = category.ID
}

func (s *StorefrontTestSuite) seedProduct(name string, price int64, stock int) domain.Product {
	priceDec := decimal.NewFromInt(price)
	description := "Solid wood " + name
	image := "https://cdn.shop.test/" + name + ".jpg"
	product, err := s.catalog.CreateProduct(context.Background(), catalog.ProductInput{
		Name:        &name,
		Description: &description,
		Price:       &priceDec,
		MainImage:   &image,
		Images:      []string{image},
		CategoryID:  &s.category,
		Stock:       &stock,
	})
	s.Require().NoError(err)
	return product
}

func (s *StorefrontTestSuite) stock(productID string) int {
	product, err := s.products.Get(context.Background(), productID)
	s.Require().NoError(err)
	return product.Stock
}

func (s *StorefrontTestSuite) request(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *StorefrontTestSuite) decode(rec *httptest.ResponseRecorder, dst any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func (s *StorefrontTestSuite) createOrder(productID string, qty int, total string) orderJSON {
	rec := s.request(http.MethodPost, "/api/orders", map[string]any{
		"user":            s.buyer.ID,
		"orderItems":      []map[string]any{{"product": productID, "quantity": qty}},
		"shippingAddress": s.addressID,
		"totalPrice":      json.Number(total),
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Success     bool      `json:"success"`
		Order       orderJSON `json:"order"`
		CheckoutURL string    `json:"checkout_url"`
	}
	s.decode(rec, &resp)
	s.Require().True(resp.Success)
	s.Require().NotEmpty(resp.CheckoutURL)
	return resp.Order
}

// Заказ на 2 x 100 при остатке 10: Pending до оплаты, Paid и остаток 8 после подтверждения.
func (s *StorefrontTestSuite) TestCheckoutEndToEnd() {
	product := s.seedProduct("armchair", 100, 10)

	created := s.createOrder(product.ID, 2, "200")
	s.Equal(string(domain.OrderStatusPending), created.Status)
	s.False(created.IsPaid)
	s.True(decimal.RequireFromString(created.TotalPrice.String()).Equal(decimal.NewFromInt(200)))
	s.Equal(s.gateway.LastInit.TxRef, created.PaymentResult.TxRef)
	s.Equal(domain.PaymentResultPending, created.PaymentResult.Status)
	s.Equal(10, s.stock(product.ID), "stock is untouched until payment is verified")

	rec := s.request(http.MethodPost, "/api/orders/payment/callback/"+created.PaymentResult.TxRef, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var verified struct {
		Success bool      `json:"success"`
		Data    orderJSON `json:"data"`
	}
	s.decode(rec, &verified)
	s.True(verified.Data.IsPaid)
	s.Equal(string(domain.OrderStatusPaid), verified.Data.Status)
	s.Equal(8, s.stock(product.ID))

	rec = s.request(http.MethodGet, "/api/orders/myorders", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var mine struct {
		Data []orderJSON `json:"data"`
	}
	s.decode(rec, &mine)
	s.Require().Len(mine.Data, 1)
	s.Equal(created.ID, mine.Data[0].ID)
}

func (s *StorefrontTestSuite) TestTxRefIsUniquePerOrder() {
	product := s.seedProduct("lamp", 40, 10)

	first := s.createOrder(product.ID, 1, "40")
	second := s.createOrder(product.ID, 1, "40")

	s.NotEmpty(first.PaymentResult.TxRef)
	s.NotEqual(first.PaymentResult.TxRef, second.PaymentResult.TxRef)
	s.NotEqual(first.ID, second.ID)
}

// Повторное подтверждение оплаты не списывает остаток второй раз.
func (s *StorefrontTestSuite) TestVerifyPaymentIsIdempotentForStock() {
	product := s.seedProduct("table", 100, 10)
	created := s.createOrder(product.ID, 2, "200")

	for i := 0; i < 2; i++ {
		rec := s.request(http.MethodGet, "/api/orders/verify-payment/"+created.PaymentResult.TxRef, nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	}
	s.Equal(8, s.stock(product.ID))
}

func (s *StorefrontTestSuite) TestVerifyUnknownTxRefChangesNothing() {
	product := s.seedProduct("shelf", 100, 10)
	created := s.createOrder(product.ID, 1, "100")

	rec := s.request(http.MethodGet, "/api/orders/verify-payment/unknown-tx-ref", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	var resp struct {
		Success bool `json:"success"`
	}
	s.decode(rec, &resp)
	s.False(resp.Success)

	stored, err := s.orders.Get(context.Background(), created.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPending, stored.Status)
	s.Equal(10, s.stock(product.ID))
	_, verifyCalls := s.gateway.Calls()
	s.Zero(verifyCalls)
}

func (s *StorefrontTestSuite) TestGatewayVerificationFailureLeavesOrderPending() {
	product := s.seedProduct("stool", 100, 10)
	created := s.createOrder(product.ID, 1, "100")
	s.gateway.VerifyErr = domain.NewPaymentVerificationError("Payment verification failed")

	rec := s.request(http.MethodGet, "/api/orders/verify-payment/"+created.PaymentResult.TxRef, nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	stored, err := s.orders.Get(context.Background(), created.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPending, stored.Status)
	s.False(stored.IsPaid)
	s.Equal(10, s.stock(product.ID))
}

func (s *StorefrontTestSuite) TestGatewayInitFailureDoesNotPersistOrder() {
	product := s.seedProduct("mirror", 100, 10)
	s.gateway.InitErr = errors.New("gateway unavailable")

	rec := s.request(http.MethodPost, "/api/orders", map[string]any{
		"user":            s.buyer.ID,
		"orderItems":      []map[string]any{{"product": product.ID, "quantity": 1}},
		"shippingAddress": s.addressID,
		"totalPrice":      100,
	})
	s.Equal(http.StatusBadRequest, rec.Code, rec.Body.String())

	orders, err := s.orders.ListAll(context.Background())
	s.Require().NoError(err)
	s.Empty(orders)
	s.Empty(s.outbox.AllPending())
}

// Остаток 5, в корзине 3: добавление ещё 3 отклоняется целиком.
func (s *StorefrontTestSuite) TestCartRejectsAddBeyondStock() {
	product := s.seedProduct("bench", 100, 5)

	rec := s.request(http.MethodPost, "/api/cart/add", map[string]any{"productId": product.ID, "quantity": 3})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.request(http.MethodPost, "/api/cart/add", map[string]any{"productId": product.ID, "quantity": 3})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.request(http.MethodGet, "/api/cart", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var c cartJSON
	s.decode(rec, &c)
	s.Require().Len(c.Items, 1)
	s.Equal(3, c.Items[0].Quantity)
}

func (s *StorefrontTestSuite) TestCartUpdateToZeroRemovesLine() {
	product := s.seedProduct("rug", 100, 5)
	other := s.seedProduct("vase", 20, 5)

	s.Require().Equal(http.StatusCreated, s.request(http.MethodPost, "/api/cart/add", map[string]any{"productId": product.ID, "quantity": 2}).Code)
	s.Require().Equal(http.StatusCreated, s.request(http.MethodPost, "/api/cart/add", map[string]any{"productId": other.ID, "quantity": 1}).Code)

	rec := s.request(http.MethodPut, "/api/cart/update", map[string]any{"productId": product.ID, "quantity": 0})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.request(http.MethodGet, "/api/cart", nil)
	var c cartJSON
	s.decode(rec, &c)
	s.Require().Len(c.Items, 1)
	s.Contains(string(c.Items[0].Product), other.ID)
	s.NotContains(rec.Body.String(), product.ID)
}

// Итог корзины пересчитывается по текущей цене каталога при каждом чтении.
func (s *StorefrontTestSuite) TestCartTotalFollowsCurrentPrice() {
	product := s.seedProduct("sofa", 100, 5)
	s.Require().Equal(http.StatusCreated, s.request(http.MethodPost, "/api/cart/add", map[string]any{"productId": product.ID, "quantity": 2}).Code)

	newPrice := decimal.NewFromInt(150)
	_, err := s.catalog.UpdateProduct(context.Background(), product.ID, catalog.ProductInput{Price: &newPrice})
	s.Require().NoError(err)

	rec := s.request(http.MethodGet, "/api/cart", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var c cartJSON
	s.decode(rec, &c)
	s.True(decimal.RequireFromString(c.TotalPrice.String()).Equal(decimal.NewFromInt(300)), c.TotalPrice)
}

// События заказа доходят до Kafka через outbox worker.
func (s *StorefrontTestSuite) TestOrderEventsArePublishedThroughOutbox() {
	product := s.seedProduct("desk", 100, 10)
	created := s.createOrder(product.ID, 1, "100")
	s.Require().Equal(http.StatusOK, s.request(http.MethodGet, "/api/orders/verify-payment/"+created.PaymentResult.TxRef, nil).Code)

	pending := s.outbox.AllPending()
	s.Require().NotEmpty(pending)

	syncProducer := mocks.NewSyncProducer(s.T(), nil)
	seen := map[string]bool{}
	for range pending {
		syncProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var envelope kafka.Envelope
			if err := json.Unmarshal(val, &envelope); err != nil {
				return err
			}
			if envelope.AggregateID != created.ID {
				return errors.New("unexpected aggregate id " + envelope.AggregateID)
			}
			seen[envelope.EventType] = true
			return nil
		})
	}

	publisher := kafka.NewOutboxPublisher(kafka.NewProducerFromSync(syncProducer, s.logger), kafka.TopicOrderEvents)
	outbox.NewWorker(s.outbox, publisher, outbox.WithLogger(s.logger)).ProcessOnce(context.Background())

	s.Empty(s.outbox.AllPending())
	s.True(seen[order.EventOrderCreated])
	s.True(seen[order.EventOrderPaid])
	s.Require().NoError(syncProducer.Close())
}
