package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCartMergeAccumulates(t *testing.T) {
	now := time.Now()
	cart := NewCart("user-1", now)

	if got := cart.Merge("p1", 2, now); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := cart.Merge("p1", 3, now); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected single line per product, got %d", len(cart.Items))
	}
}

func TestCartSetQuantity(t *testing.T) {
	now := time.Now()
	cart := NewCart("user-1", now)
	cart.Merge("p1", 2, now)
	cart.Merge("p2", 1, now)

	if !cart.SetQuantity("p1", 7) {
		t.Fatal("expected line to be found")
	}
	if line, _ := cart.Line("p1"); line.Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", line.Quantity)
	}
	if !cart.SetQuantity("p2", 0) {
		t.Fatal("expected line to be found")
	}
	if _, ok := cart.Line("p2"); ok {
		t.Fatal("zero quantity must remove the line")
	}
	if cart.SetQuantity("missing", 1) {
		t.Fatal("missing line must report false")
	}
}

func TestCartRemoveAndClear(t *testing.T) {
	now := time.Now()
	cart := NewCart("user-1", now)
	cart.Merge("p1", 1, now)
	cart.Merge("p2", 1, now)

	cart.Remove("p1")
	cart.Remove("unknown")
	if len(cart.Items) != 1 || cart.Items[0].ProductID != "p2" {
		t.Fatalf("unexpected items after remove: %+v", cart.Items)
	}

	cart.Clear()
	if len(cart.Items) != 0 || !cart.TotalPrice.IsZero() {
		t.Fatalf("expected empty cart, got %+v", cart)
	}
}

func TestCartRecalculateSkipsUnknownProducts(t *testing.T) {
	now := time.Now()
	cart := NewCart("user-1", now)
	cart.Merge("p1", 2, now)
	cart.Merge("gone", 4, now)

	total := cart.Recalculate(map[string]decimal.Decimal{
		"p1": decimal.RequireFromString("19.99"),
	})
	if !total.Equal(decimal.RequireFromString("39.98")) {
		t.Fatalf("expected 39.98, got %s", total)
	}
	if !cart.TotalPrice.Equal(total) {
		t.Fatal("total price must be stored on cart")
	}
}

func TestCartExpiry(t *testing.T) {
	now := time.Now()
	cart := NewCart("user-1", now)

	if cart.Expired(now.Add(CartTTL - time.Second)) {
		t.Fatal("cart must be alive before TTL")
	}
	if !cart.Expired(now.Add(CartTTL)) {
		t.Fatal("cart must expire at TTL")
	}

	cart.Touch(now.Add(CartTTL - time.Second))
	if cart.Expired(now.Add(CartTTL)) {
		t.Fatal("touch must extend TTL")
	}
}
