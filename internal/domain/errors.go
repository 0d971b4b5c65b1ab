package domain

import (
	"errors"
	"fmt"
)

// Базовые виды ошибок. Транспортный слой сопоставляет их с кодами ответа через errors.Is.
var (
	// Некорректный или неполный ввод, исправимый клиентом.
	ErrValidation = errors.New("validation failed")
	// Сущность не найдена.
	ErrNotFound = errors.New("not found")
	// На складе недостаточно товара.
	ErrInsufficientStock = errors.New("insufficient stock")
	// Количество должно быть больше нуля.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// Платёжный шлюз не смог создать платёжную сессию.
	ErrPaymentInit = errors.New("payment initialization failed")
	// Шлюз не подтвердил платёж.
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	// Вызывающий не аутентифицирован.
	ErrUnauthorized = errors.New("not authorized")
	// У вызывающего нет прав на операцию.
	ErrForbidden = errors.New("forbidden")
	// Нарушение уникальности или конфликт версий.
	ErrConflict = errors.New("conflict")
)

// Error связывает конкретное сообщение с базовым видом ошибки.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// NewValidationError создаёт ошибку валидации с пользовательским сообщением.
func NewValidationError(format string, args ...any) error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError создаёт ошибку "не найдено".
func NewNotFoundError(format string, args ...any) error {
	return newError(ErrNotFound, fmt.Sprintf(format, args...))
}

// NewPaymentInitError оборачивает причину отказа шлюза при инициализации.
func NewPaymentInitError(format string, args ...any) error {
	return newError(ErrPaymentInit, fmt.Sprintf(format, args...))
}

// NewPaymentVerificationError оборачивает причину отказа шлюза при проверке.
func NewPaymentVerificationError(format string, args ...any) error {
	return newError(ErrPaymentVerificationFailed, fmt.Sprintf(format, args...))
}

var (
	ErrOrderNotFound        = newError(ErrNotFound, "order not found")
	ErrProductNotFound      = newError(ErrNotFound, "product not found")
	ErrAddressNotFound      = newError(ErrNotFound, "address not found")
	ErrUserNotFound         = newError(ErrNotFound, "user not found")
	ErrCartNotFound         = newError(ErrNotFound, "cart not found")
	ErrCartItemNotFound     = newError(ErrNotFound, "item not found in cart")
	ErrCategoryNotFound     = newError(ErrNotFound, "category not found")
	ErrReviewNotFound       = newError(ErrNotFound, "review not found")
	ErrFeatureNotFound      = newError(ErrNotFound, "feature not found")
	ErrWishlistNotFound     = newError(ErrNotFound, "wishlist not found")
	ErrWishlistItemNotFound = newError(ErrNotFound, "product not found in wishlist")

	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении заказа.
	ErrOrderVersionConflict = newError(ErrConflict, "order version conflict")
	// Пользователь с таким email уже зарегистрирован.
	ErrUserExists = newError(ErrConflict, "user already exists")
	// Пользователь уже оставил отзыв на товар.
	ErrReviewExists = newError(ErrConflict, "product already reviewed by user")

	// Неверная пара email/пароль.
	ErrInvalidCredentials = newError(ErrUnauthorized, "invalid email or password")
	// Запрошенный переход статуса заказа запрещён.
	ErrIllegalTransition = newError(ErrValidation, "illegal order status transition")

	// Количество товара <= 0.
	ErrQuantityNotPositive = newError(ErrInvalidQuantity, "quantity must be greater than zero")
	// Запрошено больше, чем есть на складе.
	ErrStockExceeded = newError(ErrInsufficientStock, "insufficient stock available")
)

// Ошибки инвариантов заказа (ValidateInvariants).
var (
	ErrUserRequired            = newError(ErrValidation, "user is required")
	ErrShippingAddressRequired = newError(ErrValidation, "shipping address is required")
	ErrItemsRequired           = newError(ErrValidation, "order must contain at least one item")
	ErrItemQtyInvalid          = newError(ErrValidation, "item quantity must be at least 1")
	ErrItemPriceInvalid        = newError(ErrValidation, "item price must be non-negative")
	ErrTotalNegative           = newError(ErrValidation, "total price must be non-negative")
	ErrTotalMismatch           = newError(ErrValidation, "total price does not match items sum")
	ErrTxRefRequired           = newError(ErrValidation, "payment tx_ref is required")
)

// Ошибки инфраструктурных компонентов.
var (
	// Ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	ErrIdempotencyKeyRequired         = errors.New("idempotency key is required")
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	ErrIdempotencyKeyNotFound         = errors.New("idempotency key not found")
	ErrIdempotencyKeyAlreadyExists    = errors.New("idempotency key already exists")
	ErrIdempotencyHashMismatch        = errors.New("idempotency key reused with different request")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsNotFound проверяет, относится ли ошибка к виду "не найдено".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsIdempotencyConflict сообщает, что ключ идемпотентности уже занят.
func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyKeyAlreadyExists) || errors.Is(err, ErrIdempotencyHashMismatch)
}
