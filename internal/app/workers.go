package app

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
)

const workerStopTimeout = 5 * time.Second

// startWorker запускает run в отдельной горутине; done закрывается после выхода из run.
func startWorker(ctx context.Context, run func(context.Context)) (context.CancelFunc, <-chan struct{}) {
	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(workerCtx)
	}()
	return cancel, done
}

// startOutboxWorker публикует события outbox в брокер; без publisher worker не запускается.
func startOutboxWorker(ctx context.Context, cfg Config, repo domain.OutboxRepository, publisher domain.OutboxPublisher, logger *log.Entry) (context.CancelFunc, <-chan struct{}) {
	if repo == nil || publisher == nil {
		logger.Info("outbox worker disabled: kafka is not configured")
		return nil, nil
	}

	worker := outbox.NewWorker(repo, publisher,
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		outbox.WithMetrics(metrics.NewOutboxMetrics(prometheus.DefaultRegisterer)),
	)
	logger.WithField("poll_interval", cfg.OutboxPollInterval).Info("outbox worker started")
	return startWorker(ctx, worker.Run)
}

// startIdempotencySweeper периодически удаляет просроченные ключи идемпотентности.
func startIdempotencySweeper(ctx context.Context, cfg Config, repo domain.IdempotencyRepository, logger *log.Entry) (context.CancelFunc, <-chan struct{}) {
	if repo == nil {
		return nil, nil
	}

	sweeper := idempotency.NewSweeper(repo,
		idempotency.WithLogger(logger.WithField("component", "idempotency-sweeper")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
		idempotency.WithRegisterer(prometheus.DefaultRegisterer),
	)
	return startWorker(ctx, sweeper.Run)
}

// shutdownOutboxWorker останавливает worker и ждёт завершения текущего цикла.
func shutdownOutboxWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	stopWorker("outbox worker", cancel, done, logger)
}

func stopWorker(name string, cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel != nil {
		cancel()
	}
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Infof("%s stopped", name)
	case <-time.After(workerStopTimeout):
		logger.Warnf("%s did not stop within %s", name, workerStopTimeout)
	}
}
