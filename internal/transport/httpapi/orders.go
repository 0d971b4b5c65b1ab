package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
)

// IdempotencyHeader: заголовок ключа идемпотентности для оформления заказа.
const IdempotencyHeader = "Idempotency-Key"

const createOrderOperation = "orders.create"

type orderLineRequest struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type createOrderRequest struct {
	User            string             `json:"user"`
	OrderItems      []orderLineRequest `json:"orderItems"`
	ShippingAddress string             `json:"shippingAddress"`
	TotalPrice      *decimal.Decimal   `json:"totalPrice"`
	Notes           string             `json:"notes"`
}

func (r createOrderRequest) input() order.CreateInput {
	items := make([]order.LineInput, 0, len(r.OrderItems))
	for _, it := range r.OrderItems {
		items = append(items, order.LineInput{ProductID: it.Product, Quantity: it.Quantity})
	}
	return order.CreateInput{
		UserID:            r.User,
		Items:             items,
		ShippingAddressID: r.ShippingAddress,
		TotalPrice:        r.TotalPrice,
		Notes:             r.Notes,
	}
}

type updateStatusRequest struct {
	Status         string  `json:"status"`
	IsDelivered    *bool   `json:"isDelivered"`
	TrackingNumber *string `json:"trackingNumber"`
}

// createOrder оформляет заказ. С заголовком Idempotency-Key повтор того же запроса
// получает сохранённый ответ, а заказ и платёжная сессия не создаются заново.
func (a *api) createOrder(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		a.writeOrderError(c, domain.NewValidationError(invalidBodyMessage))
		return
	}

	who := identityFrom(c)
	key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
	guarded := key != "" && a.svc.Idempotency != nil
	if guarded {
		replay, err := a.svc.Idempotency.Begin(c.Request.Context(), key, idempotency.RequestHash(createOrderOperation, who.UserID, body))
		if err != nil {
			a.writeOrderError(c, err)
			return
		}
		if replay != nil {
			c.Header("Idempotent-Replay", "true")
			c.Data(replay.HTTPStatus, "application/json; charset=utf-8", replay.Body)
			return
		}
	}

	status, payload := a.placeOrder(c, who, body)
	raw, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		raw = []byte(`{"success":false,"message":"` + internalErrorMessage + `"}`)
	}
	if guarded {
		a.svc.Idempotency.Finish(c.Request.Context(), key, status, raw)
	}
	c.Data(status, "application/json; charset=utf-8", raw)
}

func (a *api) placeOrder(c *gin.Context, who domain.Identity, body []byte) (int, gin.H) {
	var req createOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return http.StatusBadRequest, gin.H{"success": false, "message": invalidBodyMessage}
	}

	result, err := a.svc.Orders.Create(c.Request.Context(), who, req.input())
	if err != nil {
		status, msg := a.classify(c, err)
		return status, gin.H{"success": false, "message": msg}
	}
	return http.StatusCreated, gin.H{
		"success":      true,
		"message":      "Order created successfully",
		"order":        toOrder(result.Order),
		"checkout_url": result.CheckoutURL,
	}
}

// verifyPayment обслуживает и callback шлюза, и опрос со стороны клиента.
func (a *api) verifyPayment(c *gin.Context) {
	o, err := a.svc.Orders.VerifyPayment(c.Request.Context(), c.Param("tx_ref"))
	if err != nil {
		a.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment verified", "data": toOrder(o)})
}

func (a *api) myOrders(c *gin.Context) {
	views, err := a.svc.Orders.ListByBuyer(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		a.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": toOrderViews(views)})
}

func (a *api) orderDetails(c *gin.Context) {
	view, err := a.svc.Orders.GetForBuyer(c.Request.Context(), identityFrom(c).UserID, c.Param("id"))
	if err != nil {
		a.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": toOrderView(view)})
}

func (a *api) allOrders(c *gin.Context) {
	views, err := a.svc.Orders.ListAll(c.Request.Context())
	if err != nil {
		a.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": toOrderViews(views)})
}

func (a *api) updateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeOrderError(c, domain.NewValidationError(invalidBodyMessage))
		return
	}

	o, err := a.svc.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), order.UpdateStatusInput{
		Status:         domain.OrderStatus(req.Status),
		IsDelivered:    req.IsDelivered,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		a.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order status updated successfully", "data": toOrder(o)})
}

func (a *api) orderTimeline(c *gin.Context) {
	events, err := a.svc.Orders.Timeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": toTimeline(events)})
}
