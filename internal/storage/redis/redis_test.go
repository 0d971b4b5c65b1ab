package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rd "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *rd.Client) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := rd.NewClient(&rd.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestCartRepository_SaveAndGet(t *testing.T) {
	srv, client := newTestClient(t)
	repo := NewCartRepository(client)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	cart := domain.NewCart("user-1", now)
	cart.Merge("p1", 2, now)
	cart.TotalPrice = decimal.RequireFromString("19.98")
	if err := repo.Save(ctx, cart); err != nil {
		t.Fatalf("save cart: %v", err)
	}

	ttl := srv.TTL(CartKey("user-1"))
	if ttl <= 0 || ttl > domain.CartTTL {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	got, err := repo.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != 2 || !got.TotalPrice.Equal(cart.TotalPrice) {
		t.Fatalf("unexpected cart %+v", got)
	}
}

func TestCartRepository_ExpiredCartIsMissing(t *testing.T) {
	srv, client := newTestClient(t)
	repo := NewCartRepository(client)
	ctx := context.Background()

	cart := domain.NewCart("user-1", time.Now())
	if err := repo.Save(ctx, cart); err != nil {
		t.Fatalf("save cart: %v", err)
	}

	srv.FastForward(domain.CartTTL + time.Second)
	if _, err := repo.Get(ctx, "user-1"); !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}

	cart.ExpiresAt = time.Now().Add(-time.Minute)
	if err := repo.Save(ctx, cart); err != nil {
		t.Fatalf("save expired cart: %v", err)
	}
	if srv.Exists(CartKey("user-1")) {
		t.Fatal("expired cart must not be stored")
	}
}

func TestCartRepository_ClockExpiryBeforeRedisTTL(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewCartRepository(client)
	ctx := context.Background()
	now := time.Now()

	if err := repo.Save(ctx, domain.NewCart("user-1", now)); err != nil {
		t.Fatalf("save cart: %v", err)
	}
	repo.now = func() time.Time { return now.Add(domain.CartTTL) }
	if _, err := repo.Get(ctx, "user-1"); !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	_, client := newTestClient(t)
	limiter := NewRateLimiter(client, 2, time.Minute)
	ctx := context.Background()

	current := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return current }

	key := RateLimitKey("auth", "10.0.0.1")
	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, key)
		if err != nil || !ok {
			t.Fatalf("request %d must pass: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := limiter.Allow(ctx, key)
	if err != nil || ok {
		t.Fatalf("third request must be limited: ok=%v err=%v", ok, err)
	}

	other, err := limiter.Allow(ctx, RateLimitKey("auth", "10.0.0.2"))
	if err != nil || !other {
		t.Fatalf("other subject must have own window: ok=%v err=%v", other, err)
	}

	current = current.Add(time.Minute + time.Millisecond)
	ok, err = limiter.Allow(ctx, key)
	if err != nil || !ok {
		t.Fatalf("request after window must pass: ok=%v err=%v", ok, err)
	}
}

func TestRateLimiter_DisabledAndUnavailable(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	ok, err := NewRateLimiter(client, 0, time.Minute).Allow(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("disabled limiter must allow: ok=%v err=%v", ok, err)
	}

	down := rd.NewClient(&rd.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = down.Close() })
	if _, err := NewRateLimiter(down, 1, time.Minute).Allow(ctx, "k"); err == nil {
		t.Fatal("expected error when redis is unavailable")
	}
}

func TestChecker(t *testing.T) {
	_, client := newTestClient(t)
	if err := Checker(client)(context.Background()); err != nil {
		t.Fatalf("expected healthy redis, got %v", err)
	}
	if err := Checker(nil)(context.Background()); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestCartLocker_ExclusiveAndReleased(t *testing.T) {
	srv, client := newTestClient(t)
	locker := NewCartLocker(client, nil)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "user-1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !srv.Exists(CartLockKey("user-1")) {
		t.Fatal("lock key must exist while held")
	}

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(waitCtx, "user-1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second holder must wait until ctx is done, got %v", err)
	}

	unlock()
	if srv.Exists(CartLockKey("user-1")) {
		t.Fatal("lock key must be deleted on unlock")
	}

	unlock2, err := locker.Lock(ctx, "user-1")
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	unlock2()
}

func TestCartLocker_UnlockKeepsForeignLock(t *testing.T) {
	srv, client := newTestClient(t)
	locker := NewCartLocker(client, nil)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "user-2")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	// блокировка истекла, и её занял другой процесс
	srv.FastForward(defaultCartLockTTL + time.Second)
	if err := srv.Set(CartLockKey("user-2"), "other-owner"); err != nil {
		t.Fatalf("set foreign lock: %v", err)
	}

	unlock()
	got, err := srv.Get(CartLockKey("user-2"))
	if err != nil || got != "other-owner" {
		t.Fatalf("foreign lock must survive unlock, got %q, %v", got, err)
	}
}
