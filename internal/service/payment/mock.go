package payment

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MockGateway: конфигурируемая заглушка PaymentGateway для тестов и локального запуска.
type MockGateway struct {
	mu sync.Mutex

	// CheckoutBaseURL используется, когда CheckoutURL пуст: ссылка строится как база + tx_ref.
	CheckoutBaseURL string
	CheckoutURL     string
	InitErr         error

	Verification domain.PaymentVerification
	VerifyErr    error

	InitCalls   int
	VerifyCalls int
	LastInit    domain.PaymentInitRequest
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		CheckoutBaseURL: "https://checkout.local/pay/",
		Verification:    domain.PaymentVerification{Status: domain.PaymentResultSuccess, Method: "mock"},
	}
}

// Initialize возвращает заранее настроенный результат и считает вызовы.
func (m *MockGateway) Initialize(_ context.Context, req domain.PaymentInitRequest) (domain.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitCalls++
	m.LastInit = req
	if m.InitErr != nil {
		return domain.PaymentSession{}, m.InitErr
	}
	url := m.CheckoutURL
	if url == "" {
		url = m.CheckoutBaseURL + req.TxRef
	}
	return domain.PaymentSession{CheckoutURL: url}, nil
}

// Verify возвращает настроенный результат и считает вызовы.
// Нулевая сумма в Verification заменяется суммой последней инициализации.
func (m *MockGateway) Verify(_ context.Context, txRef string) (domain.PaymentVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.VerifyCalls++
	if m.VerifyErr != nil {
		return domain.PaymentVerification{}, m.VerifyErr
	}
	v := m.Verification
	if v.Amount.IsZero() && m.LastInit.TxRef == txRef {
		v.Amount = m.LastInit.Amount
	}
	if v.Reference == "" {
		v.Reference = "mock-" + txRef
	}
	return v, nil
}

// Calls возвращает счётчики вызовов.
func (m *MockGateway) Calls() (initCalls, verifyCalls int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.InitCalls, m.VerifyCalls
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
