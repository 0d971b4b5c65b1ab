package redis

import "fmt"

// CartKey задаёт ключ корзины пользователя.
func CartKey(userID string) string {
	return fmt.Sprintf("storefront:cart:%s", userID)
}

// RateLimitKey задаёт ключ окна ограничения запросов.
func RateLimitKey(scope, subject string) string {
	return fmt.Sprintf("storefront:rate_limit:%s:%s", scope, subject)
}

// CartLockKey задаёт ключ блокировки изменений корзины.
func CartLockKey(userID string) string {
	return fmt.Sprintf("storefront:cart_lock:%s", userID)
}
