package domain

import "time"

// Типы событий timeline заказа.
const (
	TimelineOrderCreated    = "OrderCreated"
	TimelinePaymentVerified = "PaymentVerified"
	TimelineStatusChanged   = "StatusChanged"
	TimelineStockShortfall  = "StockDecrementFailed"
)

// Инициаторы событий timeline.
const (
	ActorBuyer   = "buyer"
	ActorGateway = "gateway"
	ActorAdmin   = "admin"
	ActorSystem  = "system"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
// FromStatus пуст для события создания; ToStatus равен статусу после события.
type TimelineEvent struct {
	OrderID    string
	Type       string
	Actor      string
	FromStatus OrderStatus
	ToStatus   OrderStatus
	Reason     string
	Occurred   time.Time
}

// StatusChangedEvent формирует тип события смены статуса, например "StatusChanged:Shipped".
func StatusChangedEvent(to OrderStatus) string {
	return TimelineStatusChanged + ":" + string(to)
}
