package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type userRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.User
}

// NewUserRepository создаёт in-memory хранилище пользователей.
func NewUserRepository() domain.UserRepository {
	return &userRepositoryInMemory{items: make(map[string]domain.User)}
}

func (r *userRepositoryInMemory) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if strings.EqualFold(existing.Email, user.Email) {
			return domain.ErrUserExists
		}
	}
	r.items[user.ID] = user
	return nil
}

func (r *userRepositoryInMemory) Get(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.items[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *userRepositoryInMemory) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.items {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *userRepositoryInMemory) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.User, 0, len(r.items))
	for _, user := range r.items {
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *userRepositoryInMemory) Update(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	for id, existing := range r.items {
		if id != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return domain.ErrUserExists
		}
	}
	r.items[user.ID] = user
	return nil
}

func (r *userRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.items, id)
	return nil
}

type addressRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Address
}

// NewAddressRepository создаёт in-memory хранилище адресов.
func NewAddressRepository() domain.AddressRepository {
	return &addressRepositoryInMemory{items: make(map[string]domain.Address)}
}

func (r *addressRepositoryInMemory) Create(_ context.Context, address domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[address.ID] = address
	return nil
}

func (r *addressRepositoryInMemory) Get(_ context.Context, id string) (domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	address, ok := r.items[id]
	if !ok {
		return domain.Address{}, domain.ErrAddressNotFound
	}
	return address, nil
}

func (r *addressRepositoryInMemory) ListByUser(_ context.Context, userID string) ([]domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Address, 0)
	for _, address := range r.items {
		if address.UserID == userID {
			result = append(result, address)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *addressRepositoryInMemory) Update(_ context.Context, address domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[address.ID]; !ok {
		return domain.ErrAddressNotFound
	}
	r.items[address.ID] = address
	return nil
}

func (r *addressRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrAddressNotFound
	}
	delete(r.items, id)
	return nil
}

type wishlistRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Wishlist
}

// NewWishlistRepository создаёт in-memory хранилище избранного.
func NewWishlistRepository() domain.WishlistRepository {
	return &wishlistRepositoryInMemory{items: make(map[string]domain.Wishlist)}
}

func (r *wishlistRepositoryInMemory) Get(_ context.Context, userID string) (domain.Wishlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wishlist, ok := r.items[userID]
	if !ok {
		return domain.Wishlist{}, domain.ErrWishlistNotFound
	}
	wishlist.ProductIDs = append([]string(nil), wishlist.ProductIDs...)
	return wishlist, nil
}

func (r *wishlistRepositoryInMemory) Save(_ context.Context, wishlist domain.Wishlist) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wishlist.ProductIDs = append([]string(nil), wishlist.ProductIDs...)
	r.items[wishlist.UserID] = wishlist
	return nil
}

var (
	_ domain.UserRepository     = (*userRepositoryInMemory)(nil)
	_ domain.AddressRepository  = (*addressRepositoryInMemory)(nil)
	_ domain.WishlistRepository = (*wishlistRepositoryInMemory)(nil)
)
