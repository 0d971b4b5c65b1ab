package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/storefront/internal/service/account"
)

const invalidBodyMessage = "invalid request body"

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (a *api) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBodyMessage)
		return
	}

	user, err := a.svc.Accounts.Register(c.Request.Context(), account.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "User registered successfully",
		"userId":   user.ID,
		"username": user.Username,
		"email":    user.Email,
		"isAdmin":  user.IsAdmin,
	})
}

func (a *api) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBodyMessage)
		return
	}

	user, err := a.svc.Accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(c, err)
		return
	}

	token, _, err := a.svc.Tokens.Issue(user.ID, user.IsAdmin)
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.setTokenCookie(c, token, int(a.svc.Tokens.TTL().Seconds()))
	c.JSON(http.StatusOK, toUser(user))
}

func (a *api) logout(c *gin.Context) {
	a.setTokenCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (a *api) setTokenCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(CookieName, value, maxAge, "/", "", a.cookieSecure, true)
}

func (a *api) profile(c *gin.Context) {
	user, err := a.svc.Accounts.Profile(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUser(user))
}

func (a *api) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBodyMessage)
		return
	}

	user, err := a.svc.Accounts.UpdateProfile(c.Request.Context(), identityFrom(c).UserID, account.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUser(user))
}

func (a *api) listUsers(c *gin.Context) {
	users, err := a.svc.Accounts.ListUsers(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	out := make([]userJSON, 0, len(users))
	for _, u := range users {
		out = append(out, toUser(u))
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) deleteUser(c *gin.Context) {
	if err := a.svc.Accounts.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User removed"})
}
