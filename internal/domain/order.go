package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// Заказ создан, платёжная сессия открыта, оплата не подтверждена.
	OrderStatusPending OrderStatus = "Pending"
	// Оплата подтверждена платёжным шлюзом.
	OrderStatusPaid OrderStatus = "Paid"
	// Заказ собирается.
	OrderStatusProcessing OrderStatus = "Processing"
	// Заказ передан в доставку.
	OrderStatusShipped OrderStatus = "Shipped"
	// Заказ доставлен покупателю.
	OrderStatusDelivered OrderStatus = "Delivered"
	// Заказ отменён.
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// PaymentMethodChapa — единственный поддерживаемый способ оплаты.
const PaymentMethodChapa = "Chapa"

// PaymentResultPending — статус платежа сразу после инициализации сессии.
const PaymentResultPending = "Pending"

// PaymentResultSuccess — статус платежа после успешной проверки.
const PaymentResultSuccess = "success"

// orderTransitions задаёт допустимые переходы. Paid достижим только через проверку платежа.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  nil,
	OrderStatusCancelled:  nil,
}

// Valid сообщает, входит ли статус в перечисление.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Terminal сообщает, что из статуса нет переходов.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

// CanTransition проверяет переход from -> to. Переход в тот же статус всегда разрешён.
func CanTransition(from, to OrderStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderItem — позиция заказа со снимком названия и цены на момент покупки.
type OrderItem struct {
	ProductID string
	Quantity  int
	Name      string
	Price     decimal.Decimal
}

// Subtotal возвращает quantity * price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PaymentResult хранит данные платёжной транзакции.
// TxRef задаётся при создании заказа и больше не меняется.
type PaymentResult struct {
	TxRef       string
	Status      string
	PaymentDate *time.Time
	Amount      decimal.Decimal
	Method      string
	Reference   string
}

// Order агрегирует состояние заказа покупателя.
type Order struct {
	ID                string
	UserID            string
	Items             []OrderItem
	ShippingAddressID string
	OrderDate         time.Time
	TotalPrice        decimal.Decimal
	Status            OrderStatus
	IsPaid            bool
	PaidAt            *time.Time
	IsDelivered       bool
	DeliveredAt       *time.Time
	TrackingNumber    string
	Notes             string
	PaymentMethod     string
	PaymentResult     PaymentResult
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ItemsTotal считает сумму позиций.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// MarkPaid переводит заказ в Paid по результату проверки платежа.
func (o *Order) MarkPaid(verification PaymentVerification, now time.Time) {
	paidAt := now
	o.IsPaid = true
	o.Status = OrderStatusPaid
	o.PaidAt = &paidAt
	o.PaymentResult.Status = PaymentResultSuccess
	o.PaymentResult.PaymentDate = &paidAt
	if !verification.Amount.IsZero() {
		o.PaymentResult.Amount = verification.Amount
	}
	if verification.Method != "" {
		o.PaymentResult.Method = verification.Method
	}
	if verification.Reference != "" {
		o.PaymentResult.Reference = verification.Reference
	}
	o.UpdatedAt = now
}

// Clone возвращает глубокую копию заказа.
func (o Order) Clone() Order {
	dst := o
	dst.Items = append([]OrderItem(nil), o.Items...)
	dst.PaidAt = cloneTime(o.PaidAt)
	dst.DeliveredAt = cloneTime(o.DeliveredAt)
	dst.PaymentResult.PaymentDate = cloneTime(o.PaymentResult.PaymentDate)
	return dst
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if o.ShippingAddressID == "" {
		errs = append(errs, ErrShippingAddressRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalPrice.IsNegative() {
		errs = append(errs, ErrTotalNegative)
	}
	if o.PaymentResult.TxRef == "" {
		errs = append(errs, ErrTxRefRequired)
	}

	for _, item := range o.Items {
		if item.Quantity < 1 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.Price.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}
	if !o.ItemsTotal().Equal(o.TotalPrice) {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
