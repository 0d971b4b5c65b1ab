package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartTTL — срок жизни корзины без изменений.
const CartTTL = 7 * 24 * time.Hour

// CartLine — одна позиция корзины. На один товар в корзине не больше одной строки.
type CartLine struct {
	ProductID string
	Quantity  int
	AddedAt   time.Time
}

// Cart — корзина покупателя.
type Cart struct {
	UserID     string
	Items      []CartLine
	TotalPrice decimal.Decimal
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewCart создаёт пустую корзину пользователя.
func NewCart(userID string, now time.Time) Cart {
	return Cart{
		UserID:     userID,
		TotalPrice: decimal.Zero,
		ExpiresAt:  now.Add(CartTTL),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Expired сообщает, истёк ли срок жизни корзины.
func (c *Cart) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Line ищет строку по товару.
func (c *Cart) Line(productID string) (CartLine, bool) {
	for _, line := range c.Items {
		if line.ProductID == productID {
			return line, true
		}
	}
	return CartLine{}, false
}

// Merge прибавляет qty к строке товара (или создаёт её) и возвращает итоговое количество.
func (c *Cart) Merge(productID string, qty int, now time.Time) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += qty
			return c.Items[i].Quantity
		}
	}
	c.Items = append(c.Items, CartLine{ProductID: productID, Quantity: qty, AddedAt: now})
	return qty
}

// SetQuantity заменяет количество; qty <= 0 удаляет строку.
// Возвращает false, если строки нет.
func (c *Cart) SetQuantity(productID string, qty int) bool {
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		if qty <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity = qty
		}
		return true
	}
	return false
}

// Remove удаляет строку товара, если она есть.
func (c *Cart) Remove(productID string) {
	kept := c.Items[:0]
	for _, line := range c.Items {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	c.Items = kept
}

// Clear очищает корзину.
func (c *Cart) Clear() {
	c.Items = nil
	c.TotalPrice = decimal.Zero
}

// Recalculate пересчитывает сумму по текущим ценам. Строки без цены не учитываются.
func (c *Cart) Recalculate(prices map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Items {
		price, ok := prices[line.ProductID]
		if !ok {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	c.TotalPrice = total
	return total
}

// Touch продлевает срок жизни корзины.
func (c *Cart) Touch(now time.Time) {
	c.UpdatedAt = now
	c.ExpiresAt = now.Add(CartTTL)
}

// Clone возвращает копию корзины с независимым срезом строк.
func (c Cart) Clone() Cart {
	dst := c
	dst.Items = append([]CartLine(nil), c.Items...)
	return dst
}
