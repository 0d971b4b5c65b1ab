package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Categories возвращает все категории.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}

// CreateCategory добавляет категорию.
func (s *Service) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, domain.NewValidationError("category name is required")
	}
	now := s.now().UTC()
	category := domain.Category{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.categories.Create(ctx, category); err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

// RenameCategory меняет название категории.
func (s *Service) RenameCategory(ctx context.Context, id, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, domain.NewValidationError("category name is required")
	}
	category, err := s.categories.Get(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}
	category.Name = name
	category.UpdatedAt = s.now().UTC()
	if err := s.categories.Update(ctx, category); err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

// DeleteCategory удаляет категорию. Товары категории остаются в каталоге.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	return s.categories.Delete(ctx, id)
}

// Features возвращает все баннеры витрины.
func (s *Service) Features(ctx context.Context) ([]domain.Feature, error) {
	return s.features.List(ctx)
}

// AddFeature создаёт баннер из набора изображений.
func (s *Service) AddFeature(ctx context.Context, images []string) (domain.Feature, error) {
	images = trimAll(images)
	if len(images) == 0 {
		return domain.Feature{}, domain.NewValidationError("no image files provided")
	}
	now := s.now().UTC()
	feature := domain.Feature{ID: uuid.NewString(), Images: images, CreatedAt: now, UpdatedAt: now}
	if err := s.features.Create(ctx, feature); err != nil {
		return domain.Feature{}, err
	}
	return feature, nil
}

// AppendFeatureImage добавляет изображение в конец баннера.
func (s *Service) AppendFeatureImage(ctx context.Context, id, image string) (domain.Feature, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return domain.Feature{}, domain.NewValidationError("no image file provided")
	}
	feature, err := s.features.Get(ctx, id)
	if err != nil {
		return domain.Feature{}, err
	}
	feature.Images = append(feature.Images, image)
	feature.UpdatedAt = s.now().UTC()
	if err := s.features.Update(ctx, feature); err != nil {
		return domain.Feature{}, err
	}
	return feature, nil
}

// DeleteFeature удаляет баннер.
func (s *Service) DeleteFeature(ctx context.Context, id string) error {
	return s.features.Delete(ctx, id)
}
