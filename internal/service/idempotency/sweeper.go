package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	defaultSweepInterval  = 10 * time.Minute
	defaultSweepBatchSize = 500
)

// SweeperOption настраивает Sweeper.
type SweeperOption func(*Sweeper)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInterval задаёт интервал между проходами.
func WithInterval(interval time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithBatchSize задаёт размер одного удаления.
func WithBatchSize(batchSize int) SweeperOption {
	return func(s *Sweeper) {
		if batchSize > 0 {
			s.batchSize = batchSize
		}
	}
}

// WithRegisterer регистрирует метрики в переданном registry.
func WithRegisterer(registerer prometheus.Registerer) SweeperOption {
	return func(s *Sweeper) {
		s.registerer = registerer
	}
}

// Sweeper периодически удаляет просроченные idempotency-записи.
type Sweeper struct {
	repo       domain.IdempotencyRepository
	logger     *log.Entry
	interval   time.Duration
	batchSize  int
	registerer prometheus.Registerer
	metrics    *metrics.IdempotencyMetrics
}

// NewSweeper создаёт воркер очистки.
func NewSweeper(repo domain.IdempotencyRepository, options ...SweeperOption) *Sweeper {
	s := &Sweeper{
		repo:       repo,
		logger:     log.WithField("component", "idempotency-sweeper"),
		interval:   defaultSweepInterval,
		batchSize:  defaultSweepBatchSize,
		registerer: prometheus.DefaultRegisterer,
	}
	for _, option := range options {
		option(s)
	}
	s.metrics = metrics.NewIdempotencyMetrics(s.registerer)
	return s
}

// Run выполняет проходы до отмены ctx; первый проход сразу при старте.
func (s *Sweeper) Run(ctx context.Context) {
	if s.repo == nil {
		s.logger.Warn("idempotency sweeper is disabled: repo is nil")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweep(ctx, time.Now().UTC())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context, before time.Time) {
	deleted, err := s.DeleteExpired(ctx, before)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.metrics.RecordRun("error", 0)
		s.logger.WithError(err).Warn("idempotency cleanup run failed")
		return
	}

	s.metrics.RecordRun("ok", deleted)
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("idempotency cleanup completed")
	}
}

// DeleteExpired удаляет записи с ttl <= before порциями, пока порция заполнена.
func (s *Sweeper) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := s.repo.DeleteExpired(ctx, before, s.batchSize)
		if err != nil {
			return total, err
		}
		total += deleted
		s.metrics.AddDeleted(deleted)

		if deleted < s.batchSize {
			return total, nil
		}
	}
}
