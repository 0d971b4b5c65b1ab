package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/account"
)

type addressRequest struct {
	FullName      string `json:"fullName"`
	PhoneNumber   string `json:"phoneNumber"`
	StreetAddress string `json:"streetAddress"`
	City          string `json:"city"`
	Country       string `json:"country"`
	PostalCode    string `json:"postalCode"`
}

func (r addressRequest) input() account.AddressInput {
	return account.AddressInput{
		FullName:      r.FullName,
		PhoneNumber:   r.PhoneNumber,
		StreetAddress: r.StreetAddress,
		City:          r.City,
		Country:       r.Country,
		PostalCode:    r.PostalCode,
	}
}

type productRefRequest struct {
	ProductID string `json:"productId"`
}

func (a *api) listAddresses(c *gin.Context) {
	addresses, err := a.svc.Accounts.ListAddresses(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	out := make([]addressJSON, 0, len(addresses))
	for _, addr := range addresses {
		out = append(out, toAddress(addr))
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) addAddress(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBodyMessage)
		return
	}
	addr, err := a.svc.Accounts.AddAddress(c.Request.Context(), identityFrom(c).UserID, req.input())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAddress(addr))
}

func (a *api) updateAddress(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBodyMessage)
		return
	}
	addr, err := a.svc.Accounts.UpdateAddress(c.Request.Context(), identityFrom(c).UserID, c.Param("addressId"), req.input())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAddress(addr))
}

func (a *api) deleteAddress(c *gin.Context) {
	if err := a.svc.Accounts.DeleteAddress(c.Request.Context(), identityFrom(c).UserID, c.Param("addressId")); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Address deleted successfully"})
}

func (a *api) wishlist(c *gin.Context) {
	view, err := a.svc.Accounts.Wishlist(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		if errors.Is(err, domain.ErrWishlistNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Wishlist not found", "products": []productJSON{}})
			return
		}
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Wishlist fetched successfully", "products": toProducts(view.Products)})
}

func (a *api) addToWishlist(c *gin.Context) {
	var req productRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBodyMessage)
		return
	}
	view, err := a.svc.Accounts.AddToWishlist(c.Request.Context(), identityFrom(c).UserID, req.ProductID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Product added to wishlist successfully",
		"wishlist": gin.H{
			"user":      view.Wishlist.UserID,
			"products":  toProducts(view.Products),
			"updatedAt": view.Wishlist.UpdatedAt,
		},
	})
}

func (a *api) removeFromWishlist(c *gin.Context) {
	if err := a.svc.Accounts.RemoveFromWishlist(c.Request.Context(), identityFrom(c).UserID, c.Param("productId")); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product removed from wishlist successfully"})
}
