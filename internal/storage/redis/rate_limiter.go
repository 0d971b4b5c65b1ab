package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
)

// luaSlidingWindow атомарно чистит окно, считает запросы и добавляет текущий.
// KEYS[1]=ключ, ARGV[1]=now ms, ARGV[2]=начало окна ms, ARGV[3]=окно ms, ARGV[4]=member, ARGV[5]=лимит.
// Возвращает число запросов в окне или -1, если лимит исчерпан.
var luaSlidingWindow = rd.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowMs = tonumber(ARGV[3])
local member = ARGV[4]
local limit = tonumber(ARGV[5])

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, member)
  redis.call('PEXPIRE', key, windowMs)
  return count + 1
end
return -1
`)

// RateLimiter ограничивает число запросов в скользящем окне.
type RateLimiter struct {
	client *rd.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter создаёт limiter; limit <= 0 отключает ограничение.
func NewRateLimiter(client *rd.Client, limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{client: client, limit: limit, window: window, now: time.Now}
}

// Allow регистрирует запрос по ключу и сообщает, укладывается ли он в лимит.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	now := l.now().UnixMilli()
	windowMs := l.window.Milliseconds()
	res, err := luaSlidingWindow.Run(ctx, l.client, []string{key},
		now, now-windowMs, windowMs, uuid.NewString(), l.limit).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return res >= 0, nil
}
