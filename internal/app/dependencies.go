package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	"github.com/vladislavdragonenkov/storefront/internal/storage/redis"
	"github.com/vladislavdragonenkov/storefront/internal/transport/httpapi"
)

// runtimeDependencies: репозитории и внешние подключения выбранного драйвера хранения.
type runtimeDependencies struct {
	users       domain.UserRepository
	addresses   domain.AddressRepository
	wishlists   domain.WishlistRepository
	categories  domain.CategoryRepository
	products    domain.ProductRepository
	reviews     domain.ReviewRepository
	features    domain.FeatureRepository
	carts       domain.CartRepository
	orders      domain.OrderRepository
	outbox      domain.OutboxRepository
	timeline    domain.TimelineRepository
	idempotency domain.IdempotencyRepository

	cartLocker     cart.Locker
	rateLimiter    httpapi.RateLimiter
	storageChecker healthcheck.PingFunc
	redisChecker   healthcheck.PingFunc
	closeFn        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	var (
		deps    runtimeDependencies
		closers []func() error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.StorageDriver)) {
	case StorageDriverMemory:
		deps = memoryDependencies()
		logger.Info("storage driver: memory")
	case StorageDriverPostgres:
		store, err := openPostgres(ctx, cfg, logger)
		if err != nil {
			return runtimeDependencies{}, err
		}
		deps = postgresDependencies(store)
		deps.storageChecker = store.Ping
		closers = append(closers, store.Close)
	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		client, err := redis.Open(ctx, addr, cfg.RedisDB)
		if err != nil {
			_ = closeAll(closers)
			return runtimeDependencies{}, err
		}
		deps.carts = redis.NewCartRepository(client)
		deps.cartLocker = redis.NewCartLocker(client, logger.WithField("component", "cart-lock"))
		deps.rateLimiter = redis.NewRateLimiter(client, cfg.AuthRateLimit, cfg.AuthRateWindow)
		deps.redisChecker = redis.Checker(client)
		closers = append(closers, client.Close)
		logger.WithField("addr", addr).Info("carts and rate limiting use redis")
	}

	deps.closeFn = func() error { return closeAll(closers) }
	return deps, nil
}

func memoryDependencies() runtimeDependencies {
	return runtimeDependencies{
		users:       memory.NewUserRepository(),
		addresses:   memory.NewAddressRepository(),
		wishlists:   memory.NewWishlistRepository(),
		categories:  memory.NewCategoryRepository(),
		products:    memory.NewProductRepository(),
		reviews:     memory.NewReviewRepository(),
		features:    memory.NewFeatureRepository(),
		carts:       memory.NewCartRepository(),
		orders:      memory.NewOrderRepository(),
		outbox:      memory.NewOutboxRepository(),
		timeline:    memory.NewTimelineRepository(),
		idempotency: memory.NewIdempotencyRepository(),
	}
}

func postgresDependencies(store *postgres.Store) runtimeDependencies {
	return runtimeDependencies{
		users:       postgres.NewUserRepository(store),
		addresses:   postgres.NewAddressRepository(store),
		wishlists:   postgres.NewWishlistRepository(store),
		categories:  postgres.NewCategoryRepository(store),
		products:    postgres.NewProductRepository(store),
		reviews:     postgres.NewReviewRepository(store),
		features:    postgres.NewFeatureRepository(store),
		carts:       postgres.NewCartRepository(store),
		orders:      postgres.NewOrderRepository(store),
		outbox:      postgres.NewOutboxRepository(store),
		timeline:    postgres.NewTimelineRepository(store),
		idempotency: postgres.NewIdempotencyRepository(store),
	}
}

func openPostgres(ctx context.Context, cfg Config, logger *log.Entry) (*postgres.Store, error) {
	dsn := strings.TrimSpace(cfg.PostgresDSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required for postgres storage driver")
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if cfg.PostgresAutoMigrate {
		if err := store.MigrateUp(ctx, 0); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
		logger.Info("postgres migrations applied")
	}
	logger.Info("storage driver: postgres")
	return store, nil
}

// closeAll закрывает подключения в обратном порядке открытия.
func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
