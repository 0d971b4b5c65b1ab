package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// AddReview сохраняет отзыв пользователя. Повторный отзыв на тот же товар отклоняется.
func (s *Service) AddReview(ctx context.Context, who domain.Identity, productID string, rating int, comment string) (domain.Review, error) {
	now := s.now().UTC()
	review := domain.Review{
		ID:        uuid.NewString(),
		ProductID: productID,
		UserID:    who.UserID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := review.Validate(); err != nil {
		return domain.Review{}, err
	}
	if _, err := s.products.Get(ctx, productID); err != nil {
		return domain.Review{}, err
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return domain.Review{}, err
	}
	return review, nil
}

// DeleteReview удаляет отзыв. Удалить может автор или администратор.
func (s *Service) DeleteReview(ctx context.Context, who domain.Identity, id string) error {
	review, err := s.reviews.Get(ctx, id)
	if err != nil {
		return err
	}
	if !who.CanActFor(review.UserID) {
		return &domain.Error{Kind: domain.ErrUnauthorized, Message: "not authorized to delete this review"}
	}
	return s.reviews.Delete(ctx, id)
}

// Reviews возвращает отзывы о товаре; пустой список считается отсутствием.
func (s *Service) Reviews(ctx context.Context, productID string) ([]domain.Review, error) {
	reviews, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return nil, domain.NewNotFoundError("no reviews found for this product")
	}
	return reviews, nil
}
