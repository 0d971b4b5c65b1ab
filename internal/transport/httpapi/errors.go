package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
)

const internalErrorMessage = "internal server error"

// statusFor сопоставляет вид доменной ошибки с HTTP-кодом.
func statusFor(err error) int {
	switch {
	case errors.Is(err, idempotency.ErrRequestInProgress),
		errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrPaymentInit),
		errors.Is(err, domain.ErrPaymentVerificationFailed),
		errors.Is(err, domain.ErrConflict):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage возвращает текст для клиента. Для 500 наружу уходит общее сообщение.
func errorMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return internalErrorMessage
	}
	var derr *domain.Error
	if errors.As(err, &derr) {
		return derr.Message
	}
	return err.Error()
}

func (a *api) writeError(c *gin.Context, err error) {
	status, msg := a.classify(c, err)
	c.JSON(status, gin.H{"message": msg})
}

// writeOrderError отдаёт ошибку в конверте {success, message}, как остальные ответы заказов.
func (a *api) writeOrderError(c *gin.Context, err error) {
	status, msg := a.classify(c, err)
	c.JSON(status, gin.H{"success": false, "message": msg})
}

func (a *api) classify(c *gin.Context, err error) (int, string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
	}
	return status, errorMessage(err, status)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}
