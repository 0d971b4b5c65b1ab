package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type categoryRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Category
}

// NewCategoryRepository создаёт in-memory хранилище категорий.
func NewCategoryRepository() domain.CategoryRepository {
	return &categoryRepositoryInMemory{items: make(map[string]domain.Category)}
}

func (r *categoryRepositoryInMemory) Create(_ context.Context, category domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[category.ID] = category
	return nil
}

func (r *categoryRepositoryInMemory) Get(_ context.Context, id string) (domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	category, ok := r.items[id]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return category, nil
}

func (r *categoryRepositoryInMemory) List(_ context.Context) ([]domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Category, 0, len(r.items))
	for _, category := range r.items {
		result = append(result, category)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *categoryRepositoryInMemory) Update(_ context.Context, category domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[category.ID]; !ok {
		return domain.ErrCategoryNotFound
	}
	r.items[category.ID] = category
	return nil
}

func (r *categoryRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	delete(r.items, id)
	return nil
}

type reviewRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Review
}

// NewReviewRepository создаёт in-memory хранилище отзывов.
func NewReviewRepository() domain.ReviewRepository {
	return &reviewRepositoryInMemory{items: make(map[string]domain.Review)}
}

func (r *reviewRepositoryInMemory) Create(_ context.Context, review domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.ProductID == review.ProductID && existing.UserID == review.UserID {
			return domain.ErrReviewExists
		}
	}
	r.items[review.ID] = review
	return nil
}

func (r *reviewRepositoryInMemory) Get(_ context.Context, id string) (domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	review, ok := r.items[id]
	if !ok {
		return domain.Review{}, domain.ErrReviewNotFound
	}
	return review, nil
}

func (r *reviewRepositoryInMemory) ListByProduct(_ context.Context, productID string) ([]domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Review, 0)
	for _, review := range r.items {
		if review.ProductID == productID {
			result = append(result, review)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *reviewRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrReviewNotFound
	}
	delete(r.items, id)
	return nil
}

type featureRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Feature
}

// NewFeatureRepository создаёт in-memory хранилище баннеров.
func NewFeatureRepository() domain.FeatureRepository {
	return &featureRepositoryInMemory{items: make(map[string]domain.Feature)}
}

func (r *featureRepositoryInMemory) Create(_ context.Context, feature domain.Feature) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[feature.ID] = cloneFeature(feature)
	return nil
}

func (r *featureRepositoryInMemory) Get(_ context.Context, id string) (domain.Feature, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	feature, ok := r.items[id]
	if !ok {
		return domain.Feature{}, domain.ErrFeatureNotFound
	}
	return cloneFeature(feature), nil
}

func (r *featureRepositoryInMemory) List(_ context.Context) ([]domain.Feature, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Feature, 0, len(r.items))
	for _, feature := range r.items {
		result = append(result, cloneFeature(feature))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *featureRepositoryInMemory) Update(_ context.Context, feature domain.Feature) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[feature.ID]; !ok {
		return domain.ErrFeatureNotFound
	}
	r.items[feature.ID] = cloneFeature(feature)
	return nil
}

func (r *featureRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrFeatureNotFound
	}
	delete(r.items, id)
	return nil
}

func cloneFeature(src domain.Feature) domain.Feature {
	dst := src
	dst.Images = append([]string(nil), src.Images...)
	return dst
}

var (
	_ domain.CategoryRepository = (*categoryRepositoryInMemory)(nil)
	_ domain.ReviewRepository   = (*reviewRepositoryInMemory)(nil)
	_ domain.FeatureRepository  = (*featureRepositoryInMemory)(nil)
)
