package httpapi

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
)

// money отдаёт сумму числом, а не строкой.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

type userJSON struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"isAdmin"`
}

func toUser(u domain.User) userJSON {
	return userJSON{ID: u.ID, Username: u.Username, Email: u.Email, IsAdmin: u.IsAdmin}
}

type addressJSON struct {
	ID            string    `json:"_id"`
	User          string    `json:"user"`
	FullName      string    `json:"fullName"`
	PhoneNumber   string    `json:"phoneNumber"`
	StreetAddress string    `json:"streetAddress"`
	City          string    `json:"city"`
	Country       string    `json:"country"`
	PostalCode    string    `json:"postalCode"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toAddress(a domain.Address) addressJSON {
	return addressJSON{
		ID:            a.ID,
		User:          a.UserID,
		FullName:      a.FullName,
		PhoneNumber:   a.PhoneNumber,
		StreetAddress: a.StreetAddress,
		City:          a.City,
		Country:       a.Country,
		PostalCode:    a.PostalCode,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

type categoryJSON struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toCategory(c domain.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

type reviewJSON struct {
	ID        string    `json:"_id"`
	Product   string    `json:"product"`
	User      string    `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toReview(r domain.Review) reviewJSON {
	return reviewJSON{
		ID:        r.ID,
		Product:   r.ProductID,
		User:      r.UserID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toReviews(reviews []domain.Review) []reviewJSON {
	out := make([]reviewJSON, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, toReview(r))
	}
	return out
}

type featureJSON struct {
	ID        string    `json:"_id"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toFeature(f domain.Feature) featureJSON {
	return featureJSON{ID: f.ID, Images: nonNilStrings(f.Images), CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt}
}

type productJSON struct {
	ID          string       `json:"_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Price       json.Number  `json:"price"`
	MainImage   string       `json:"mainImage"`
	Images      []string     `json:"images"`
	Category    any          `json:"category"`
	Materials   []string     `json:"materials"`
	Stock       int          `json:"stock"`
	Types       []string     `json:"types"`
	IsFeatured  bool         `json:"isFeatured"`
	IsBest      bool         `json:"isBest"`
	Reviews     []reviewJSON `json:"reviews,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// toProduct кладёт в category идентификатор; toProductDetail заменяет его объектом.
func toProduct(p domain.Product) productJSON {
	return productJSON{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       money(p.Price),
		MainImage:   p.MainImage,
		Images:      nonNilStrings(p.Images),
		Category:    p.CategoryID,
		Materials:   nonNilStrings(p.Materials),
		Stock:       p.Stock,
		Types:       nonNilStrings(p.Types),
		IsFeatured:  p.IsFeatured,
		IsBest:      p.IsBest,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProducts(products []domain.Product) []productJSON {
	out := make([]productJSON, 0, len(products))
	for _, p := range products {
		out = append(out, toProduct(p))
	}
	return out
}

func toProductDetail(d catalog.ProductDetail) productJSON {
	out := toProduct(d.Product)
	if d.Category != nil {
		out.Category = toCategory(*d.Category)
	}
	out.Reviews = toReviews(d.Reviews)
	return out
}

type cartItemJSON struct {
	Product  productJSON `json:"product"`
	Quantity int         `json:"quantity"`
	Subtotal json.Number `json:"subtotal"`
	AddedAt  time.Time   `json:"addedAt"`
}

type cartJSON struct {
	User       string         `json:"user"`
	Items      []cartItemJSON `json:"items"`
	TotalPrice json.Number    `json:"totalPrice"`
	ExpiryDate time.Time      `json:"expiryDate"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func toCart(v cart.View) cartJSON {
	items := make([]cartItemJSON, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, cartItemJSON{
			Product:  toProduct(it.Product),
			Quantity: it.Quantity,
			Subtotal: money(it.Subtotal),
			AddedAt:  it.AddedAt,
		})
	}
	return cartJSON{
		User:       v.UserID,
		Items:      items,
		TotalPrice: money(v.TotalPrice),
		ExpiryDate: v.ExpiresAt,
		UpdatedAt:  v.UpdatedAt,
	}
}

type paymentResultJSON struct {
	TxRef         string      `json:"tx_ref"`
	Status        string      `json:"status,omitempty"`
	PaymentDate   *time.Time  `json:"payment_date,omitempty"`
	Amount        json.Number `json:"amount"`
	PaymentMethod string      `json:"payment_method,omitempty"`
	Reference     string      `json:"reference,omitempty"`
}

type orderItemJSON struct {
	Product  any         `json:"product"`
	Quantity int         `json:"quantity"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
}

type orderJSON struct {
	ID              string            `json:"_id"`
	User            any               `json:"user"`
	OrderItems      []orderItemJSON   `json:"orderItems"`
	ShippingAddress any               `json:"shippingAddress"`
	OrderDate       time.Time         `json:"orderDate"`
	TotalPrice      json.Number       `json:"totalPrice"`
	Status          string            `json:"status"`
	IsDelivered     bool              `json:"isDelivered"`
	DeliveredAt     *time.Time        `json:"deliveredAt,omitempty"`
	TrackingNumber  string            `json:"trackingNumber,omitempty"`
	PaymentMethod   string            `json:"paymentMethod"`
	PaymentResult   paymentResultJSON `json:"paymentResult"`
	IsPaid          bool              `json:"isPaid"`
	PaidAt          *time.Time        `json:"paidAt,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// toOrder отдаёт заказ со ссылками по идентификаторам.
func toOrder(o domain.Order) orderJSON {
	items := make([]orderItemJSON, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemJSON{
			Product:  it.ProductID,
			Quantity: it.Quantity,
			Name:     it.Name,
			Price:    money(it.Price),
		})
	}
	return orderJSON{
		ID:              o.ID,
		User:            o.UserID,
		OrderItems:      items,
		ShippingAddress: o.ShippingAddressID,
		OrderDate:       o.OrderDate,
		TotalPrice:      money(o.TotalPrice),
		Status:          string(o.Status),
		IsDelivered:     o.IsDelivered,
		DeliveredAt:     o.DeliveredAt,
		TrackingNumber:  o.TrackingNumber,
		PaymentMethod:   o.PaymentMethod,
		PaymentResult: paymentResultJSON{
			TxRef:         o.PaymentResult.TxRef,
			Status:        o.PaymentResult.Status,
			PaymentDate:   o.PaymentResult.PaymentDate,
			Amount:        money(o.PaymentResult.Amount),
			PaymentMethod: o.PaymentResult.Method,
			Reference:     o.PaymentResult.Reference,
		},
		IsPaid:    o.IsPaid,
		PaidAt:    o.PaidAt,
		Notes:     o.Notes,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

type buyerJSON struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type productRefJSON struct {
	ID    string      `json:"_id"`
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
}

// toOrderView раскрывает покупателя, адрес и товары, если они ещё существуют.
func toOrderView(v order.OrderView) orderJSON {
	out := toOrder(v.Order)
	if v.User != nil {
		out.User = buyerJSON{ID: v.User.ID, Username: v.User.Username, Email: v.User.Email}
	}
	if v.ShippingAddress != nil {
		out.ShippingAddress = toAddress(*v.ShippingAddress)
	}
	for i, it := range v.Items {
		if i >= len(out.OrderItems) || it.Product == nil {
			continue
		}
		out.OrderItems[i].Product = productRefJSON{ID: it.Product.ID, Name: it.Product.Name, Price: money(it.Product.Price)}
	}
	return out
}

func toOrderViews(views []order.OrderView) []orderJSON {
	out := make([]orderJSON, 0, len(views))
	for _, v := range views {
		out = append(out, toOrderView(v))
	}
	return out
}

type timelineEventJSON struct {
	Type     string    `json:"type"`
	Actor    string    `json:"actor,omitempty"`
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

func toTimeline(events []domain.TimelineEvent) []timelineEventJSON {
	out := make([]timelineEventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, timelineEventJSON{
			Type:     e.Type,
			Actor:    e.Actor,
			From:     string(e.FromStatus),
			To:       string(e.ToStatus),
			Reason:   e.Reason,
			Occurred: e.Occurred,
		})
	}
	return out
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
