package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type cartRepository struct {
	store *Store
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
// Просроченная корзина не возвращается и перезаписывается при следующем Save.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{store: store}
}

func (r *cartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var cart domain.Cart
	err := r.store.db.QueryRowContext(ctx, `
		SELECT user_id, total_price, expires_at, created_at, updated_at
		FROM carts
		WHERE user_id = $1 AND expires_at > $2
	`, userID, time.Now().UTC()).Scan(&cart.UserID, &cart.TotalPrice, &cart.ExpiresAt, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT product_id, quantity, added_at
		FROM cart_items
		WHERE user_id = $1
		ORDER BY added_at ASC, product_id ASC
	`, userID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.AddedAt); err != nil {
			return domain.Cart{}, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, line)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, fmt.Errorf("iterate cart items: %w", err)
	}
	return cart, nil
}

// Save перезаписывает корзину и её строки в одной транзакции.
func (r *cartRepository) Save(ctx context.Context, cart domain.Cart) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	return r.store.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO carts (user_id, total_price, expires_at, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (user_id) DO UPDATE
			SET total_price = EXCLUDED.total_price,
			    expires_at = EXCLUDED.expires_at,
			    updated_at = EXCLUDED.updated_at
		`, cart.UserID, cart.TotalPrice, cart.ExpiresAt, cart.CreatedAt, cart.UpdatedAt); err != nil {
			return fmt.Errorf("upsert cart: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, cart.UserID); err != nil {
			return fmt.Errorf("clear cart items: %w", err)
		}
		for _, line := range cart.Items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO cart_items (user_id, product_id, quantity, added_at) VALUES ($1,$2,$3,$4)
			`, cart.UserID, line.ProductID, line.Quantity, line.AddedAt); err != nil {
				return fmt.Errorf("insert cart item: %w", err)
			}
		}
		return nil
	})
}

var _ domain.CartRepository = (*cartRepository)(nil)
