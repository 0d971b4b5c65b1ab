package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type categoryRepository struct {
	store *Store
}

// NewCategoryRepository создаёт PostgreSQL-реализацию CategoryRepository.
func NewCategoryRepository(store *Store) domain.CategoryRepository {
	return &categoryRepository{store: store}
}

func (r *categoryRepository) Create(ctx context.Context, c domain.Category) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	if _, err := r.store.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, created_at, updated_at) VALUES ($1,$2,$3,$4)
	`, c.ID, c.Name, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *categoryRepository) Get(ctx context.Context, id string) (domain.Category, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var c domain.Category
	err := r.store.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM categories WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Category{}, domain.ErrCategoryNotFound
		}
		return domain.Category{}, fmt.Errorf("select category: %w", err)
	}
	return c, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at FROM categories ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return result, nil
}

func (r *categoryRepository) Update(ctx context.Context, c domain.Category) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	res, err := r.store.db.ExecContext(ctx, `
		UPDATE categories SET name = $2, updated_at = $3 WHERE id = $1
	`, c.ID, c.Name, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return affectedOrNotFound(res, domain.ErrCategoryNotFound)
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	res, err := r.store.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return affectedOrNotFound(res, domain.ErrCategoryNotFound)
}

type reviewRepository struct {
	store *Store
}

// NewReviewRepository создаёт PostgreSQL-реализацию ReviewRepository.
func NewReviewRepository(store *Store) domain.ReviewRepository {
	return &reviewRepository{store: store}
}

func (r *reviewRepository) Create(ctx context.Context, rv domain.Review) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO reviews (id, product_id, user_id, rating, comment, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, rv.ID, rv.ProductID, rv.UserID, rv.Rating, rv.Comment, rv.CreatedAt, rv.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrReviewExists
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *reviewRepository) Get(ctx context.Context, id string) (domain.Review, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var rv domain.Review
	err := r.store.db.QueryRowContext(ctx, `
		SELECT id, product_id, user_id, rating, comment, created_at, updated_at
		FROM reviews WHERE id = $1
	`, id).Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Review{}, domain.ErrReviewNotFound
		}
		return domain.Review{}, fmt.Errorf("select review: %w", err)
	}
	return rv, nil
}

func (r *reviewRepository) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, product_id, user_id, rating, comment, created_at, updated_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Review, 0)
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		result = append(result, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return result, nil
}

func (r *reviewRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	res, err := r.store.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return affectedOrNotFound(res, domain.ErrReviewNotFound)
}

type featureRepository struct {
	store *Store
}

// NewFeatureRepository создаёт PostgreSQL-реализацию FeatureRepository.
func NewFeatureRepository(store *Store) domain.FeatureRepository {
	return &featureRepository{store: store}
}

func (r *featureRepository) Create(ctx context.Context, f domain.Feature) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	if _, err := r.store.db.ExecContext(ctx, `
		INSERT INTO features (id, images, created_at, updated_at) VALUES ($1,$2,$3,$4)
	`, f.ID, nonNil(f.Images), f.CreatedAt, f.UpdatedAt); err != nil {
		return fmt.Errorf("insert feature: %w", err)
	}
	return nil
}

func (r *featureRepository) Get(ctx context.Context, id string) (domain.Feature, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var f domain.Feature
	arrays := newArrayScanner()
	err := r.store.db.QueryRowContext(ctx, `
		SELECT id, images, created_at, updated_at FROM features WHERE id = $1
	`, id).Scan(&f.ID, arrays.text(&f.Images), &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Feature{}, domain.ErrFeatureNotFound
		}
		return domain.Feature{}, fmt.Errorf("select feature: %w", err)
	}
	return f, nil
}

func (r *featureRepository) List(ctx context.Context) ([]domain.Feature, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, images, created_at, updated_at FROM features ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()

	arrays := newArrayScanner()
	result := make([]domain.Feature, 0)
	for rows.Next() {
		var f domain.Feature
		if err := rows.Scan(&f.ID, arrays.text(&f.Images), &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}
	return result, nil
}

func (r *featureRepository) Update(ctx context.Context, f domain.Feature) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	res, err := r.store.db.ExecContext(ctx, `
		UPDATE features SET images = $2, updated_at = $3 WHERE id = $1
	`, f.ID, nonNil(f.Images), f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update feature: %w", err)
	}
	return affectedOrNotFound(res, domain.ErrFeatureNotFound)
}

func (r *featureRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	res, err := r.store.db.ExecContext(ctx, `DELETE FROM features WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete feature: %w", err)
	}
	return affectedOrNotFound(res, domain.ErrFeatureNotFound)
}

var (
	_ domain.CategoryRepository = (*categoryRepository)(nil)
	_ domain.ReviewRepository   = (*reviewRepository)(nil)
	_ domain.FeatureRepository  = (*featureRepository)(nil)
)
