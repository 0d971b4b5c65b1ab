package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const productColumns = `
	id, name, description, price, main_image, images, category_id, materials,
	stock, types, is_featured, is_best, created_at, updated_at`

type productRepository struct {
	store *Store
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{store: store}
}

func (r *productRepository) Create(ctx context.Context, p domain.Product) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		p.ID, p.Name, p.Description, p.Price, p.MainImage, nonNil(p.Images), p.CategoryID, nonNil(p.Materials),
		p.Stock, nonNil(p.Types), p.IsFeatured, p.IsBest, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidationError("product %s already exists", p.ID)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	p, err := scanProduct(r.store.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id), newArrayScanner())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *productRepository) GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	rows, err := r.store.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	products, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

// List строит WHERE из фильтров запроса и отдельно считает общее количество.
func (r *productRepository) List(ctx context.Context, query domain.ProductQuery) ([]domain.Product, int, error) {
	query.Normalize()

	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	where, args := productFilter(query)

	var total int
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	args = append(args, query.Limit, query.Offset())
	rows, err := r.store.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM products%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, productColumns, where, productOrderBy(query.Sort), len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) Update(ctx context.Context, p domain.Product) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	res, err := r.store.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, main_image = $5, images = $6,
		    category_id = $7, materials = $8, stock = $9, types = $10,
		    is_featured = $11, is_best = $12, updated_at = $13
		WHERE id = $1
	`,
		p.ID, p.Name, p.Description, p.Price, p.MainImage, nonNil(p.Images),
		p.CategoryID, nonNil(p.Materials), p.Stock, nonNil(p.Types),
		p.IsFeatured, p.IsBest, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return affectedOrNotFound(res, domain.ErrProductNotFound)
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	res, err := r.store.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return affectedOrNotFound(res, domain.ErrProductNotFound)
}

// DecrementStock списывает остаток одним условным UPDATE.
func (r *productRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return domain.ErrQuantityNotPositive
	}

	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	res, err := r.store.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
	`, qty, id)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.store.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check product exists: %w", err)
	}
	if !exists {
		return domain.ErrProductNotFound
	}
	return domain.ErrStockExceeded
}

func productFilter(q domain.ProductQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.MinPrice != nil {
		conds = append(conds, "price >= "+next(*q.MinPrice))
	}
	if q.MaxPrice != nil {
		conds = append(conds, "price <= "+next(*q.MaxPrice))
	}
	if q.CategoryID != "" {
		conds = append(conds, "category_id = "+next(q.CategoryID))
	}
	if len(q.Types) > 0 {
		conds = append(conds, "types && "+next(q.Types)+"::text[]")
	}
	if q.FeaturedOnly {
		conds = append(conds, "is_featured")
	}
	if q.BestOnly {
		conds = append(conds, "is_best")
	}
	if q.Keyword != "" {
		p := next("%" + escapeLike(q.Keyword) + "%")
		conds = append(conds, "(name ILIKE "+p+" OR description ILIKE "+p+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func productOrderBy(sort domain.ProductSort) string {
	switch sort {
	case domain.ProductSortPriceAsc:
		return "price ASC, seq ASC"
	case domain.ProductSortPriceDesc:
		return "price DESC, seq ASC"
	case domain.ProductSortNameAsc:
		return "LOWER(name) ASC, seq ASC"
	case domain.ProductSortNameDesc:
		return "LOWER(name) DESC, seq ASC"
	default:
		return "seq ASC"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanProduct(row rowScanner, arrays arrayScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.MainImage, arrays.text(&p.Images), &p.CategoryID,
		arrays.text(&p.Materials), &p.Stock, arrays.text(&p.Types), &p.IsFeatured, &p.IsBest, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func scanProducts(rows *sql.Rows) ([]domain.Product, error) {
	defer rows.Close()

	arrays := newArrayScanner()
	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows, arrays)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
