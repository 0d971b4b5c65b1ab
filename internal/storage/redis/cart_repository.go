package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	rd "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type cartLineDoc struct {
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type cartDoc struct {
	UserID     string          `json:"user_id"`
	Items      []cartLineDoc   `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	ExpiresAt  time.Time       `json:"expires_at"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CartRepository хранит корзину одним JSON-значением с EX до ExpiresAt.
type CartRepository struct {
	client *rd.Client
	now    func() time.Time
}

// NewCartRepository создаёт redis-реализацию CartRepository.
func NewCartRepository(client *rd.Client) *CartRepository {
	return &CartRepository{client: client, now: time.Now}
}

func (r *CartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	raw, err := r.client.Get(ctx, CartKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("get cart: %w", err)
	}

	var doc cartDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Cart{}, fmt.Errorf("decode cart: %w", err)
	}

	cart := domain.Cart{
		UserID:     doc.UserID,
		Items:      make([]domain.CartLine, 0, len(doc.Items)),
		TotalPrice: doc.TotalPrice,
		ExpiresAt:  doc.ExpiresAt,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
	for _, line := range doc.Items {
		cart.Items = append(cart.Items, domain.CartLine(line))
	}
	// EX округляется до секунд, поэтому срок проверяется и здесь.
	if cart.Expired(r.now()) {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return cart, nil
}

func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) error {
	ttl := cart.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		if err := r.client.Del(ctx, CartKey(cart.UserID)).Err(); err != nil {
			return fmt.Errorf("delete expired cart: %w", err)
		}
		return nil
	}

	doc := cartDoc{
		UserID:     cart.UserID,
		Items:      make([]cartLineDoc, 0, len(cart.Items)),
		TotalPrice: cart.TotalPrice,
		ExpiresAt:  cart.ExpiresAt,
		CreatedAt:  cart.CreatedAt,
		UpdatedAt:  cart.UpdatedAt,
	}
	for _, line := range cart.Items {
		doc.Items = append(doc.Items, cartLineDoc(line))
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := r.client.Set(ctx, CartKey(cart.UserID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set cart: %w", err)
	}
	return nil
}

var _ domain.CartRepository = (*CartRepository)(nil)
