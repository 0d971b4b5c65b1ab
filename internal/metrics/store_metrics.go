package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы операций для label "outcome".
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// StoreMetrics содержит метрики заказов, корзины, склада и платёжного шлюза.
// Все методы безопасны для nil-получателя.
type StoreMetrics struct {
	ordersCreated    prometheus.Counter
	ordersPaid       prometheus.Counter
	statusChanges    *prometheus.CounterVec
	versionConflicts prometheus.Counter

	gatewayRequests *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec

	inventoryOps   *prometheus.CounterVec
	stockShortfall *prometheus.CounterVec

	cartOps *prometheus.CounterVec

	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
}

// NewStoreMetrics регистрирует метрики в глобальном registry.
func NewStoreMetrics() *StoreMetrics {
	return NewStoreMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStoreMetricsWithRegisterer регистрирует метрики в переданном registry.
func NewStoreMetricsWithRegisterer(registerer prometheus.Registerer) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StoreMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Total number of orders created with an open payment session",
		}),
		ordersPaid: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_paid_total",
			Help: "Total number of orders transitioned to Paid",
		}),
		statusChanges: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_status_changes_total",
			Help: "Total number of admin order status changes",
		}, []string{"status"}),
		versionConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_order_version_conflicts_total",
			Help: "Total number of optimistic version conflicts on order save",
		}),
		gatewayRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_payment_gateway_requests_total",
			Help: "Total number of payment gateway requests",
		}, []string{"operation", "outcome"}),
		gatewayDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_payment_gateway_duration_seconds",
			Help:    "Duration of payment gateway requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		inventoryOps: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_inventory_operations_total",
			Help: "Total number of inventory checks and decrements",
		}, []string{"step", "outcome"}),
		stockShortfall: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_stock_decrement_failures_total",
			Help: "Total number of failed post-payment stock decrements",
		}, []string{"reason"}),
		cartOps: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "Total number of cart mutations",
		}, []string{"operation", "outcome"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *StoreMetrics) RecordOrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// RecordOrderPaid увеличивает счётчик оплаченных заказов.
func (m *StoreMetrics) RecordOrderPaid() {
	if m == nil {
		return
	}
	m.ordersPaid.Inc()
}

// RecordStatusChange учитывает смену статуса администратором.
func (m *StoreMetrics) RecordStatusChange(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

// RecordVersionConflict учитывает конфликт версий при сохранении заказа.
func (m *StoreMetrics) RecordVersionConflict() {
	if m == nil {
		return
	}
	m.versionConflicts.Inc()
}

// RecordGatewayCall записывает исход и длительность запроса к шлюзу.
func (m *StoreMetrics) RecordGatewayCall(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(operation, outcome(err)).Inc()
	m.gatewayDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordInventory учитывает складскую операцию.
func (m *StoreMetrics) RecordInventory(step string, err error) {
	if m == nil {
		return
	}
	m.inventoryOps.WithLabelValues(step, outcome(err)).Inc()
}

// RecordStockShortfall учитывает несписанный после оплаты остаток.
func (m *StoreMetrics) RecordStockShortfall(reason string) {
	if m == nil {
		return
	}
	m.stockShortfall.WithLabelValues(reason).Inc()
}

// RecordCartOperation учитывает изменение корзины.
func (m *StoreMetrics) RecordCartOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.cartOps.WithLabelValues(operation, outcome(err)).Inc()
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *StoreMetrics) RecordTimelineEvent() {
	if m == nil {
		return
	}
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *StoreMetrics) RecordOutboxEvent() {
	if m == nil {
		return
	}
	m.outboxEvents.Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
