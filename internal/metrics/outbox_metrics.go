package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты публикации outbox-события.
const (
	PublishSent     = "sent"
	PublishRetry    = "retry"
	PublishFailed   = "failed"
	PublishDeferred = "deferred"
)

// OutboxMetrics описывает доставку событий заказов в брокер. Методы безопасны для nil.
type OutboxMetrics struct {
	publishes    *prometheus.CounterVec
	pending      prometheus.Gauge
	oldestAge    prometheus.Gauge
	lastCycleDur prometheus.Gauge
}

// NewOutboxMetrics регистрирует метрики outbox в переданном registry.
func NewOutboxMetrics(registerer prometheus.Registerer) *OutboxMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &OutboxMetrics{
		publishes: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_outbox_publish_total",
			Help: "Outbox publish results: sent, retry, failed, deferred",
		}, []string{"result"}),
		pending: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_outbox_pending_records",
			Help: "Current number of pending order events in the outbox",
		}),
		oldestAge: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_outbox_oldest_pending_age_seconds",
			Help: "Age of the oldest pending order event",
		}),
		lastCycleDur: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_outbox_last_cycle_seconds",
			Help: "Duration of the last outbox polling cycle",
		}),
	}
}

// RecordPublish учитывает результат одной попытки или решения по событию.
func (m *OutboxMetrics) RecordPublish(result string) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(result).Inc()
}

// SetBacklog выставляет размер backlog и возраст самого старого события.
func (m *OutboxMetrics) SetBacklog(pending int, oldest time.Duration) {
	if m == nil {
		return
	}
	if oldest < 0 || pending == 0 {
		oldest = 0
	}
	m.pending.Set(float64(pending))
	m.oldestAge.Set(oldest.Seconds())
}

// ObserveCycle фиксирует длительность прохода воркера.
func (m *OutboxMetrics) ObserveCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.lastCycleDur.Set(d.Seconds())
}
