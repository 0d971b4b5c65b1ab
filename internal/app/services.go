package app

import (
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/auth"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/payment/chapa"
	"github.com/vladislavdragonenkov/storefront/internal/service/account"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/service/inventory"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/transport/httpapi"
)

// buildServices собирает прикладные сервисы поверх репозиториев.
func buildServices(cfg Config, deps runtimeDependencies, logger *log.Entry) (httpapi.Services, error) {
	userSecret, adminSecret := cfg.JWTUserSecret, cfg.JWTAdminSecret
	if userSecret == "" || adminSecret == "" {
		userSecret, adminSecret = uuid.NewString(), uuid.NewString()
		logger.Warn("JWT secrets are not configured, generated ephemeral secrets; tokens will not survive restart")
	}
	tokens, err := auth.NewTokenManager(userSecret, adminSecret)
	if err != nil {
		return httpapi.Services{}, fmt.Errorf("init token manager: %w", err)
	}

	storeMetrics := metrics.NewStoreMetrics()
	gateway := newPaymentGateway(cfg, logger)

	orders := order.NewService(order.Dependencies{
		Orders:    deps.orders,
		Products:  deps.products,
		Addresses: deps.addresses,
		Users:     deps.users,
		Gateway:   gateway,
		Inventory: inventory.NewService(deps.products, storeMetrics, logger.WithField("component", "inventory")),
		Outbox:    deps.outbox,
		Timeline:  deps.timeline,
		Metrics:   storeMetrics,
		Logger:    logger.WithField("component", "order-service"),
	}, order.Config{
		BaseURL:        cfg.BaseURL,
		FrontendURL:    cfg.FrontendURL,
		Currency:       cfg.Currency,
		GatewayTimeout: cfg.ChapaTimeout,
	})

	return httpapi.Services{
		Accounts: account.NewService(account.Dependencies{
			Users:        deps.users,
			Addresses:    deps.addresses,
			Wishlists:    deps.wishlists,
			Products:     deps.products,
			Hasher:       auth.NewPasswordHasher(0),
			AdminDomains: cfg.AdminDomainList(),
			Logger:       logger.WithField("component", "account-service"),
		}),
		Catalog: catalog.NewService(catalog.Dependencies{
			Products:   deps.products,
			Categories: deps.categories,
			Reviews:    deps.reviews,
			Features:   deps.features,
			Logger:     logger.WithField("component", "catalog-service"),
		}),
		Carts: cart.NewService(deps.carts, deps.products, storeMetrics,
			cart.WithLocker(deps.cartLocker),
			cart.WithLogger(logger.WithField("component", "cart-service"))),
		Orders:      orders,
		Tokens:      tokens,
		Idempotency: idempotency.NewGuard(deps.idempotency, cfg.IdempotencyTTL, logger.WithField("component", "idempotency")),
	}, nil
}

// newPaymentGateway выбирает Chapa при заданном ключе, иначе mock-шлюз.
func newPaymentGateway(cfg Config, logger *log.Entry) domain.PaymentGateway {
	if cfg.ChapaSecretKey != "" {
		return chapa.NewClient(chapa.Config{
			BaseURL:   cfg.ChapaBaseURL,
			SecretKey: cfg.ChapaSecretKey,
			Timeout:   cfg.ChapaTimeout,
		}, logger.WithField("component", "chapa"))
	}
	logger.Warn("CHAPA_SECRET_KEY is not set, using mock payment gateway")
	return payment.NewMockGateway()
}
