package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxProductPrice — верхняя граница цены товара.
var MaxProductPrice = decimal.NewFromInt(1_000_000)

// ProductTypes — допустимые типы товаров каталога.
var ProductTypes = []string{
	"leather sofa",
	"cotton sofa",
	"wooden chair",
	"metal chair",
	"plastic table",
}

// Product — товар каталога. Stock — единственный общий изменяемый ресурс.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	MainImage   string
	Images      []string
	CategoryID  string
	Materials   []string
	Stock       int
	Types       []string
	IsFeatured  bool
	IsBest      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate проверяет обязательные поля товара.
func (p *Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return NewValidationError("product name is required")
	case strings.TrimSpace(p.Description) == "":
		return NewValidationError("product description is required")
	case p.Price.IsNegative() || p.Price.GreaterThan(MaxProductPrice):
		return NewValidationError("product price must be between 0 and %s", MaxProductPrice.String())
	case strings.TrimSpace(p.MainImage) == "":
		return NewValidationError("product main image is required")
	case p.CategoryID == "":
		return NewValidationError("product category is required")
	case p.Stock < 0:
		return NewValidationError("product stock must be non-negative")
	}
	for _, t := range p.Types {
		if !IsProductType(t) {
			return NewValidationError("unknown product type %q", t)
		}
	}
	return nil
}

// Clone копирует товар вместе со срезами.
func (p Product) Clone() Product {
	dst := p
	dst.Images = append([]string(nil), p.Images...)
	dst.Materials = append([]string(nil), p.Materials...)
	dst.Types = append([]string(nil), p.Types...)
	return dst
}

// IsProductType проверяет значение по перечислению ProductTypes.
func IsProductType(value string) bool {
	for _, t := range ProductTypes {
		if t == value {
			return true
		}
	}
	return false
}

// ProductSort — порядок выдачи каталога.
type ProductSort string

const (
	ProductSortDefault   ProductSort = ""
	ProductSortPriceAsc  ProductSort = "price-asc"
	ProductSortPriceDesc ProductSort = "price-desc"
	ProductSortNameAsc   ProductSort = "name-asc"
	ProductSortNameDesc  ProductSort = "name-desc"
)

// ParseProductSort возвращает сортировку; неизвестные значения дают порядок по умолчанию.
func ParseProductSort(value string) ProductSort {
	switch s := ProductSort(value); s {
	case ProductSortPriceAsc, ProductSortPriceDesc, ProductSortNameAsc, ProductSortNameDesc:
		return s
	default:
		return ProductSortDefault
	}
}

const (
	DefaultProductPage  = 1
	DefaultProductLimit = 10
)

// ProductQuery — фильтры, сортировка и пагинация каталога.
type ProductQuery struct {
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	CategoryID   string
	Types        []string
	FeaturedOnly bool
	BestOnly     bool
	Keyword      string
	Sort         ProductSort
	Page         int
	Limit        int
}

// Normalize подставляет значения пагинации по умолчанию.
func (q *ProductQuery) Normalize() {
	if q.Page < 1 {
		q.Page = DefaultProductPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultProductLimit
	}
	q.Keyword = strings.TrimSpace(q.Keyword)
}

// Offset возвращает число пропускаемых записей.
func (q ProductQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Matches проверяет товар по фильтрам запроса (используется in-memory хранилищем).
func (q ProductQuery) Matches(p Product) bool {
	if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
		return false
	}
	if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
		return false
	}
	if q.CategoryID != "" && p.CategoryID != q.CategoryID {
		return false
	}
	if q.FeaturedOnly && !p.IsFeatured {
		return false
	}
	if q.BestOnly && !p.IsBest {
		return false
	}
	if len(q.Types) > 0 && !anyOf(p.Types, q.Types) {
		return false
	}
	if q.Keyword != "" {
		kw := strings.ToLower(q.Keyword)
		if !strings.Contains(strings.ToLower(p.Name), kw) && !strings.Contains(strings.ToLower(p.Description), kw) {
			return false
		}
	}
	return true
}

// ProductPage — страница каталога с метаданными пагинации.
type ProductPage struct {
	Items         []Product
	TotalProducts int
	CurrentPage   int
	TotalPages    int
}

// NewProductPage считает количество страниц.
func NewProductPage(items []Product, total int, q ProductQuery) ProductPage {
	pages := 0
	if q.Limit > 0 {
		pages = (total + q.Limit - 1) / q.Limit
	}
	return ProductPage{
		Items:         items,
		TotalProducts: total,
		CurrentPage:   q.Page,
		TotalPages:    pages,
	}
}

// Category — категория каталога.
type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Review — отзыв пользователя о товаре; один отзыв на пару (товар, пользователь).
type Review struct {
	ID        string
	ProductID string
	UserID    string
	Rating    int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет рейтинг и комментарий.
func (r *Review) Validate() error {
	if r.ProductID == "" {
		return NewValidationError("product is required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return NewValidationError("rating must be between 1 and 5")
	}
	if strings.TrimSpace(r.Comment) == "" {
		return NewValidationError("comment is required")
	}
	return nil
}

// Feature — набор баннерных изображений витрины.
type Feature struct {
	ID        string
	Images    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func anyOf(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
