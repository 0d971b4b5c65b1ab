package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	defaultCartLockTTL   = 5 * time.Second
	defaultCartLockRetry = 20 * time.Millisecond
	cartUnlockTimeout    = time.Second
)

// luaReleaseIfOwner удаляет блокировку, только если она всё ещё наша.
const luaReleaseIfOwner = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

// CartLocker сериализует изменения корзины между процессами: SET NX PX с токеном владельца.
// TTL снимает блокировку упавшего процесса.
type CartLocker struct {
	client *rd.Client
	ttl    time.Duration
	retry  time.Duration
	logger *log.Entry
}

// NewCartLocker создаёт распределённую блокировку корзин.
func NewCartLocker(client *rd.Client, logger *log.Entry) *CartLocker {
	if logger == nil {
		logger = log.WithField("component", "cart-lock")
	}
	return &CartLocker{client: client, ttl: defaultCartLockTTL, retry: defaultCartLockRetry, logger: logger}
}

// Lock ждёт блокировку до отмены ctx.
func (l *CartLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key, token := CartLockKey(userID), uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire cart lock: %w", err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *CartLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), cartUnlockTimeout)
	defer cancel()

	if err := l.client.Eval(ctx, luaReleaseIfOwner, []string{key}, token).Err(); err != nil {
		l.logger.WithError(err).WithField("key", key).Warn("failed to release cart lock, it expires by ttl")
	}
}
