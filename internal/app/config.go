package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/payment/chapa"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
)

const (
	// StorageDriverMemory хранит данные в памяти процесса.
	StorageDriverMemory = "memory"
	// StorageDriverPostgres хранит данные в PostgreSQL.
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска storefront API.
// Списки (ADMIN_DOMAINS, брокеры Kafka) хранятся строкой через запятую, чтобы Config оставался сравнимым.
type Config struct {
	HTTPAddr    string
	MetricsAddr string
	GRPCAddr    string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	RedisAddr string
	RedisDB   int

	KafkaBrokers       string
	KafkaTopic         string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyTTL              time.Duration
	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	AdminDomains   string
	JWTUserSecret  string
	JWTAdminSecret string
	CookieSecure   bool
	AuthRateLimit  int
	AuthRateWindow time.Duration

	ChapaSecretKey    string
	ChapaBaseURL      string
	ChapaTimeout      time.Duration
	Currency          string
	BaseURL           string
	FrontendURL       string
	AllowMockPayments bool
}

// DefaultConfig возвращает настройки для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                    ":8080",
		MetricsAddr:                 ":9090",
		GRPCAddr:                    ":50051",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		KafkaTopic:                  kafka.TopicOrderEvents,
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           3,
		OutboxRetryDelay:            50 * time.Millisecond,
		IdempotencyTTL:              domain.IdempotencyTTL,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
		AuthRateLimit:               20,
		AuthRateWindow:              time.Minute,
		ChapaBaseURL:                chapa.DefaultBaseURL,
		ChapaTimeout:                chapa.DefaultTimeout,
		Currency:                    order.DefaultCurrency,
		BaseURL:                     "http://localhost:8080",
		FrontendURL:                 "http://localhost:3000",
	}
}

// Validate проверяет согласованность настроек перед запуском.
func (c Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("postgres dsn is required for postgres storage driver"))
		}
		if c.JWTUserSecret == "" || c.JWTAdminSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET_USER and JWT_SECRET_ADMIN are required for postgres storage driver"))
		}
		if c.ChapaSecretKey == "" && !c.AllowMockPayments {
			errs = append(errs, errors.New("CHAPA_SECRET_KEY is required unless mock payments are allowed"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	if c.JWTUserSecret != "" && c.JWTUserSecret == c.JWTAdminSecret {
		errs = append(errs, errors.New("user and admin JWT secrets must differ"))
	}
	if c.RedisDB < 0 {
		errs = append(errs, errors.New("redis db must be >= 0"))
	}
	if c.AuthRateLimit < 0 {
		errs = append(errs, errors.New("auth rate limit must be >= 0"))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http addr must not be empty"))
	}

	return errors.Join(errs...)
}

// AdminDomainList возвращает домены почты, регистрирующиеся администраторами.
func (c Config) AdminDomainList() []string {
	return splitCSV(c.AdminDomains)
}

// KafkaBrokerList возвращает адреса брокеров Kafka.
func (c Config) KafkaBrokerList() []string {
	return splitCSV(c.KafkaBrokers)
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
