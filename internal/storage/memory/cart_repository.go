package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// cartRepositoryInMemory хранит корзины и отбрасывает просроченные при чтении.
type cartRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Cart
	now   func() time.Time
}

// NewCartRepository создаёт in-memory хранилище корзин.
func NewCartRepository() domain.CartRepository {
	return newCartRepository(time.Now)
}

func newCartRepository(now func() time.Time) *cartRepositoryInMemory {
	return &cartRepositoryInMemory{items: make(map[string]domain.Cart), now: now}
}

func (r *cartRepositoryInMemory) Get(_ context.Context, userID string) (domain.Cart, error) {
	r.mu.RLock()
	cart, ok := r.items[userID]
	r.mu.RUnlock()

	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	if cart.Expired(r.now()) {
		r.mu.Lock()
		if current, ok := r.items[userID]; ok && current.Expired(r.now()) {
			delete(r.items, userID)
		}
		r.mu.Unlock()
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return cart.Clone(), nil
}

func (r *cartRepositoryInMemory) Save(_ context.Context, cart domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[cart.UserID] = cart.Clone()
	return nil
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
