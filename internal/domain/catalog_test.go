package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func validProduct() Product {
	return Product{
		ID:          "p1",
		Name:        "Oak chair",
		Description: "Solid oak dining chair",
		Price:       decimal.RequireFromString("120.00"),
		MainImage:   "https://img.example/oak.png",
		CategoryID:  "c1",
		Stock:       4,
		Types:       []string{"wooden chair"},
	}
}

func TestProductValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(p *Product)
		ok   bool
	}{
		{name: "valid", mut: func(p *Product) {}, ok: true},
		{name: "free product", mut: func(p *Product) { p.Price = decimal.Zero }, ok: true},
		{name: "blank name", mut: func(p *Product) { p.Name = "  " }},
		{name: "no description", mut: func(p *Product) { p.Description = "" }},
		{name: "negative price", mut: func(p *Product) { p.Price = decimal.NewFromInt(-1) }},
		{name: "price over limit", mut: func(p *Product) { p.Price = decimal.NewFromInt(1_000_001) }},
		{name: "no image", mut: func(p *Product) { p.MainImage = "" }},
		{name: "no category", mut: func(p *Product) { p.CategoryID = "" }},
		{name: "negative stock", mut: func(p *Product) { p.Stock = -1 }},
		{name: "unknown type", mut: func(p *Product) { p.Types = []string{"glass lamp"} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validProduct()
			tc.mut(&p)
			err := p.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid product, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestProductQueryMatches(t *testing.T) {
	p := validProduct()
	p.IsFeatured = true
	lo := decimal.NewFromInt(100)
	hi := decimal.NewFromInt(110)

	cases := []struct {
		name  string
		query ProductQuery
		want  bool
	}{
		{name: "empty", query: ProductQuery{}, want: true},
		{name: "min price", query: ProductQuery{MinPrice: &lo}, want: true},
		{name: "max price", query: ProductQuery{MaxPrice: &hi}, want: false},
		{name: "category", query: ProductQuery{CategoryID: "c2"}, want: false},
		{name: "types any-of", query: ProductQuery{Types: []string{"metal chair", "wooden chair"}}, want: true},
		{name: "featured", query: ProductQuery{FeaturedOnly: true}, want: true},
		{name: "best", query: ProductQuery{BestOnly: true}, want: false},
		{name: "keyword name", query: ProductQuery{Keyword: "OAK"}, want: true},
		{name: "keyword description", query: ProductQuery{Keyword: "dining"}, want: true},
		{name: "keyword missing", query: ProductQuery{Keyword: "sofa"}, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.query.Matches(p); got != tc.want {
				t.Fatalf("Matches=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestProductQueryNormalizeAndPage(t *testing.T) {
	q := ProductQuery{Page: 0, Limit: -3, Keyword: "  chair "}
	q.Normalize()
	if q.Page != 1 || q.Limit != 10 || q.Keyword != "chair" {
		t.Fatalf("unexpected normalized query %+v", q)
	}

	q.Page = 3
	if q.Offset() != 20 {
		t.Fatalf("expected offset 20, got %d", q.Offset())
	}

	page := NewProductPage(nil, 21, q)
	if page.TotalPages != 3 || page.CurrentPage != 3 || page.TotalProducts != 21 {
		t.Fatalf("unexpected page meta %+v", page)
	}
}

func TestParseProductSort(t *testing.T) {
	if ParseProductSort("price-desc") != ProductSortPriceDesc {
		t.Fatal("expected price-desc")
	}
	if ParseProductSort("random") != ProductSortDefault {
		t.Fatal("unknown sort must fall back to default")
	}
}

func TestReviewValidate(t *testing.T) {
	r := Review{ProductID: "p1", Rating: 5, Comment: "great"}
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	r.Rating = 6
	if err := r.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	r.Rating = 3
	r.Comment = ""
	if err := r.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
