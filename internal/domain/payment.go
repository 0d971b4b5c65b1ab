package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentInitRequest — данные для открытия платёжной сессии у шлюза.
type PaymentInitRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	TxRef       string
	CallbackURL string
	ReturnURL   string
	Title       string
	Description string
}

// PaymentSession — ответ шлюза на инициализацию.
type PaymentSession struct {
	CheckoutURL string
}

// PaymentVerification — результат проверки транзакции по tx_ref.
type PaymentVerification struct {
	// Статус транзакции, который вернул шлюз.
	Status    string
	Amount    decimal.Decimal
	Currency  string
	Method    string
	Reference string
}

// PaymentGateway описывает внешний платёжный шлюз.
// Каждый вызов выполняется один раз, без повторов.
type PaymentGateway interface {
	// Initialize открывает hosted checkout. Ошибки оборачивают ErrPaymentInit.
	Initialize(ctx context.Context, req PaymentInitRequest) (PaymentSession, error)
	// Verify проверяет транзакцию. Неуспех оборачивает ErrPaymentVerificationFailed.
	Verify(ctx context.Context, txRef string) (PaymentVerification, error)
}
