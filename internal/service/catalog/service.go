package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Dependencies: хранилища каталога.
type Dependencies struct {
	Products   domain.ProductRepository
	Categories domain.CategoryRepository
	Reviews    domain.ReviewRepository
	Features   domain.FeatureRepository
	Logger     *log.Entry
	Now        func() time.Time
}

// Service управляет товарами, категориями, отзывами и баннерами.
type Service struct {
	products   domain.ProductRepository
	categories domain.CategoryRepository
	reviews    domain.ReviewRepository
	features   domain.FeatureRepository
	logger     *log.Entry
	now        func() time.Time
}

// NewService создаёт сервис каталога.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "catalog-service")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		products:   deps.Products,
		categories: deps.Categories,
		reviews:    deps.Reviews,
		features:   deps.Features,
		logger:     logger,
		now:        now,
	}
}

// ProductDetail: товар вместе с категорией и отзывами.
type ProductDetail struct {
	Product  domain.Product
	Category *domain.Category
	Reviews  []domain.Review
}

// ListProducts возвращает страницу каталога по фильтрам.
func (s *Service) ListProducts(ctx context.Context, query domain.ProductQuery) (domain.ProductPage, error) {
	query.Normalize()
	items, total, err := s.products.List(ctx, query)
	if err != nil {
		return domain.ProductPage{}, err
	}
	return domain.NewProductPage(items, total, query), nil
}

// Product возвращает карточку товара. Отсутствующая категория не считается ошибкой.
func (s *Service) Product(ctx context.Context, id string) (ProductDetail, error) {
	product, err := s.products.Get(ctx, id)
	if err != nil {
		return ProductDetail{}, err
	}

	detail := ProductDetail{Product: product}
	category, err := s.categories.Get(ctx, product.CategoryID)
	switch {
	case err == nil:
		detail.Category = &category
	case errors.Is(err, domain.ErrNotFound):
		s.logger.WithField("product_id", product.ID).Warn("category not found for product")
	default:
		return ProductDetail{}, err
	}

	reviews, err := s.reviews.ListByProduct(ctx, product.ID)
	if err != nil {
		return ProductDetail{}, err
	}
	detail.Reviews = reviews
	return detail, nil
}

// ProductInput: поля товара. Для частичного обновления nil означает "не менять".
type ProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	MainImage   *string
	Images      []string
	CategoryID  *string
	Materials   []string
	Stock       *int
	Types       []string
	IsFeatured  *bool
	IsBest      *bool
}

func (in ProductInput) apply(p *domain.Product) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Images != nil {
		p.Images = append([]string(nil), in.Images...)
	}
	if in.MainImage != nil {
		p.MainImage = *in.MainImage
	} else if p.MainImage == "" && len(p.Images) > 0 {
		p.MainImage = p.Images[0]
	}
	if in.CategoryID != nil {
		p.CategoryID = *in.CategoryID
	}
	if in.Materials != nil {
		p.Materials = trimAll(in.Materials)
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Types != nil {
		p.Types = trimAll(in.Types)
	}
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}
	if in.IsBest != nil {
		p.IsBest = *in.IsBest
	}
}

// CreateProduct добавляет товар в каталог.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	now := s.now().UTC()
	product := domain.Product{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	in.apply(&product)
	if err := s.checkProduct(ctx, &product); err != nil {
		return domain.Product{}, err
	}
	if err := s.products.Create(ctx, product); err != nil {
		return domain.Product{}, err
	}
	s.logger.WithField("product_id", product.ID).Info("product created")
	return product, nil
}

// UpdateProduct частично обновляет товар.
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (domain.Product, error) {
	product, err := s.products.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	in.apply(&product)
	if err := s.checkProduct(ctx, &product); err != nil {
		return domain.Product{}, err
	}
	product.UpdatedAt = s.now().UTC()
	if err := s.products.Update(ctx, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// DeleteProduct удаляет товар.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.products.Delete(ctx, id)
}

func (s *Service) checkProduct(ctx context.Context, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, err := s.categories.Get(ctx, p.CategoryID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewValidationError("category %s does not exist", p.CategoryID)
		}
		return err
	}
	return nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
