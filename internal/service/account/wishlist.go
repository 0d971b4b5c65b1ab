package account

import (
	"context"
	"errors"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// WishlistView: избранное с разрешёнными товарами.
type WishlistView struct {
	Wishlist domain.Wishlist
	Products []domain.Product
}

// Wishlist возвращает избранное; исчезнувшие из каталога товары пропускаются.
func (s *Service) Wishlist(ctx context.Context, userID string) (WishlistView, error) {
	wishlist, err := s.wishlists.Get(ctx, userID)
	if err != nil {
		return WishlistView{}, err
	}
	return s.view(ctx, wishlist)
}

// AddToWishlist добавляет товар в избранное, создавая список при необходимости.
func (s *Service) AddToWishlist(ctx context.Context, userID, productID string) (WishlistView, error) {
	if productID == "" {
		return WishlistView{}, domain.NewValidationError("product is required")
	}
	if _, err := s.products.Get(ctx, productID); err != nil {
		return WishlistView{}, err
	}

	now := s.now().UTC()
	wishlist, err := s.wishlists.Get(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrWishlistNotFound):
		wishlist = domain.Wishlist{UserID: userID, CreatedAt: now}
	case err != nil:
		return WishlistView{}, err
	}

	if wishlist.Add(productID) {
		wishlist.UpdatedAt = now
		if err := s.wishlists.Save(ctx, wishlist); err != nil {
			return WishlistView{}, err
		}
	}
	return s.view(ctx, wishlist)
}

// RemoveFromWishlist удаляет товар из избранного.
func (s *Service) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	wishlist, err := s.wishlists.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !wishlist.Remove(productID) {
		return domain.ErrWishlistItemNotFound
	}
	wishlist.UpdatedAt = s.now().UTC()
	return s.wishlists.Save(ctx, wishlist)
}

func (s *Service) view(ctx context.Context, wishlist domain.Wishlist) (WishlistView, error) {
	found, err := s.products.GetMany(ctx, wishlist.ProductIDs)
	if err != nil {
		return WishlistView{}, err
	}
	products := make([]domain.Product, 0, len(wishlist.ProductIDs))
	for _, id := range wishlist.ProductIDs {
		if p, ok := found[id]; ok {
			products = append(products, p)
		}
	}
	return WishlistView{Wishlist: wishlist, Products: products}, nil
}
