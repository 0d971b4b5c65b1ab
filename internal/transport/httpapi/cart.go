package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type cartLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (a *api) getCart(c *gin.Context) {
	view, err := a.svc.Carts.Get(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCart(view))
}

func (a *api) addToCart(c *gin.Context) {
	var req cartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBodyMessage)
		return
	}
	view, err := a.svc.Carts.AddItem(c.Request.Context(), identityFrom(c).UserID, req.ProductID, req.Quantity)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCart(view))
}

func (a *api) updateCartItem(c *gin.Context) {
	var req cartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBodyMessage)
		return
	}
	view, err := a.svc.Carts.UpdateItem(c.Request.Context(), identityFrom(c).UserID, req.ProductID, req.Quantity)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCart(view))
}

func (a *api) removeFromCart(c *gin.Context) {
	view, err := a.svc.Carts.RemoveItem(c.Request.Context(), identityFrom(c).UserID, c.Param("productId"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCart(view))
}

func (a *api) clearCart(c *gin.Context) {
	if err := a.svc.Carts.Clear(c.Request.Context(), identityFrom(c).UserID); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
