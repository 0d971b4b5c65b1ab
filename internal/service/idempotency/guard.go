// Package idempotency повторно отдаёт сохранённый ответ на запрос с тем же Idempotency-Key.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ErrRequestInProgress: запрос с тем же ключом ещё обрабатывается.
var ErrRequestInProgress = errors.New("request with the same idempotency key is already processing")

// MaxKeyLength ограничивает длину клиентского ключа.
const MaxKeyLength = 255

// Replay: сохранённый результат предыдущего запроса.
type Replay struct {
	HTTPStatus int
	Body       []byte
}

// Guard связывает обработку запроса с записью в IdempotencyRepository.
type Guard struct {
	repo   domain.IdempotencyRepository
	ttl    time.Duration
	now    func() time.Time
	logger *log.Entry
}

// NewGuard создаёт guard; ttl <= 0 означает domain.IdempotencyTTL.
func NewGuard(repo domain.IdempotencyRepository, ttl time.Duration, logger *log.Entry) *Guard {
	if ttl <= 0 {
		ttl = domain.IdempotencyTTL
	}
	if logger == nil {
		logger = log.WithField("component", "idempotency-guard")
	}
	return &Guard{repo: repo, ttl: ttl, now: time.Now, logger: logger}
}

// RequestHash строит отпечаток запроса: операция, владелец и тело.
func RequestHash(operation, principal string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write([]byte(principal))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Begin занимает ключ. Если по ключу уже есть завершённый запрос с тем же
// отпечатком, возвращает его результат; обработчик в этом случае не вызывается.
func (g *Guard) Begin(ctx context.Context, key, requestHash string) (*Replay, error) {
	key = strings.TrimSpace(key)
	if len(key) > MaxKeyLength {
		return nil, domain.NewValidationError("idempotency key must be at most %d characters", MaxKeyLength)
	}

	record, err := g.repo.CreateProcessing(ctx, key, requestHash, g.now().UTC().Add(g.ttl))
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return nil, err
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		if record.Status == domain.IdempotencyStatusProcessing {
			return nil, ErrRequestInProgress
		}
		if !record.Replayable() {
			return nil, fmt.Errorf("unknown idempotency record status %q", record.Status)
		}
		status := record.HTTPStatus
		if status == 0 {
			status = http.StatusOK
		}
		return &Replay{HTTPStatus: status, Body: record.ResponseBody}, nil
	default:
		return nil, fmt.Errorf("create idempotency record: %w", err)
	}
}

// Finish сохраняет итог обработки: успешные ответы как done, ошибки клиента как failed.
// Повтор с тем же ключом до истечения TTL получит тот же ответ.
// После ошибки сервера (5xx) ключ освобождается, и повтор выполняется заново.
func (g *Guard) Finish(ctx context.Context, key string, httpStatus int, body []byte) {
	key = strings.TrimSpace(key)

	var err error
	switch {
	case httpStatus >= http.StatusInternalServerError:
		err = g.repo.Release(ctx, key)
	case httpStatus >= http.StatusBadRequest:
		err = g.repo.MarkFailed(ctx, key, body, httpStatus)
	default:
		err = g.repo.MarkDone(ctx, key, body, httpStatus)
	}
	if err != nil {
		g.logger.WithError(err).WithFields(log.Fields{
			"idempotency_key": key,
			"http_status":     httpStatus,
		}).Warn("failed to store idempotent response")
	}
}
