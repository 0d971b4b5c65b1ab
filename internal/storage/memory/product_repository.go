package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// productRepositoryInMemory хранит каталог и порядок добавления товаров.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
	order []string
}

// NewProductRepository создаёт in-memory каталог товаров.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{items: make(map[string]domain.Product)}
}

func (r *productRepositoryInMemory) Create(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[product.ID]; exists {
		return domain.NewValidationError("product %s already exists", product.ID)
	}
	r.items[product.ID] = product.Clone()
	r.order = append(r.order, product.ID)
	return nil
}

func (r *productRepositoryInMemory) Get(_ context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product.Clone(), nil
}

func (r *productRepositoryInMemory) GetMany(_ context.Context, ids []string) (map[string]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := r.items[id]; ok {
			result[id] = product.Clone()
		}
	}
	return result, nil
}

// List фильтрует, сортирует и режет выдачу на страницы.
func (r *productRepositoryInMemory) List(_ context.Context, query domain.ProductQuery) ([]domain.Product, int, error) {
	query.Normalize()

	r.mu.RLock()
	matched := make([]domain.Product, 0, len(r.order))
	for _, id := range r.order {
		product := r.items[id]
		if query.Matches(product) {
			matched = append(matched, product.Clone())
		}
	}
	r.mu.RUnlock()

	sortProducts(matched, query.Sort)

	total := len(matched)
	start := query.Offset()
	if start >= total {
		return []domain.Product{}, total, nil
	}
	end := start + query.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *productRepositoryInMemory) Update(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[product.ID]; !ok {
		return domain.ErrProductNotFound
	}
	r.items[product.ID] = product.Clone()
	return nil
}

func (r *productRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.items, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// DecrementStock проверяет и списывает остаток под одной блокировкой.
func (r *productRepositoryInMemory) DecrementStock(_ context.Context, id string, qty int) error {
	if qty <= 0 {
		return domain.ErrQuantityNotPositive
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if product.Stock < qty {
		return domain.ErrStockExceeded
	}
	product.Stock -= qty
	r.items[id] = product
	return nil
}

func sortProducts(items []domain.Product, by domain.ProductSort) {
	var less func(a, b domain.Product) bool
	switch by {
	case domain.ProductSortPriceAsc:
		less = func(a, b domain.Product) bool { return a.Price.LessThan(b.Price) }
	case domain.ProductSortPriceDesc:
		less = func(a, b domain.Product) bool { return a.Price.GreaterThan(b.Price) }
	case domain.ProductSortNameAsc:
		less = func(a, b domain.Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case domain.ProductSortNameDesc:
		less = func(a, b domain.Product) bool { return strings.ToLower(a.Name) > strings.ToLower(b.Name) }
	default:
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
