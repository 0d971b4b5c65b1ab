// Package httpapi публикует сервисы магазина как JSON API на gin.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/auth"
	"github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/account"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
)

// CookieName: имя cookie с токеном доступа.
const CookieName = "jwt"

// RateLimiter ограничивает частоту запросов по ключу.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Services: прикладные сервисы, которые обслуживает роутер.
type Services struct {
	Accounts    *account.Service
	Catalog     *catalog.Service
	Carts       *cart.Service
	Orders      *order.Service
	Tokens      *auth.TokenManager
	Idempotency *idempotency.Guard
}

// Options: необязательные настройки роутера.
type Options struct {
	CookieSecure bool
	// AuthLimiter ограничивает вход и регистрацию; nil отключает ограничение.
	AuthLimiter RateLimiter
	Metrics     *metrics.HTTPMetrics
	Health      *health.Handler
	Logger      *log.Entry
}

type api struct {
	svc          Services
	cookieSecure bool
	logger       *log.Entry
}

// NewRouter собирает gin-движок со всеми маршрутами /api и проверками здоровья.
func NewRouter(svc Services, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	a := &api{svc: svc, cookieSecure: opts.CookieSecure, logger: logger}

	r := gin.New()
	r.Use(recovery(logger), accessLog(logger), observe(opts.Metrics))

	if opts.Health != nil {
		r.GET("/healthz", gin.WrapH(opts.Health))
		r.GET("/readyz", gin.WrapF(opts.Health.ReadinessHandler))
	}
	r.GET("/livez", gin.WrapF(health.LivenessHandler))

	authed := a.authenticate()
	admin := requireAdmin()
	limited := rateLimit(opts.AuthLimiter, "auth", logger)

	users := r.Group("/api/users")
	users.POST("/register", limited, a.register)
	users.POST("/auth", limited, a.login)
	users.POST("/logout", a.logout)
	users.GET("/profile", authed, a.profile)
	users.PUT("/profile", authed, a.updateProfile)
	users.GET("", authed, admin, a.listUsers)
	users.DELETE("/:id", authed, admin, a.deleteUser)

	products := r.Group("/api/products")
	products.GET("", a.listProducts)
	products.GET("/:id", a.product)
	products.POST("", authed, admin, a.createProduct)
	products.PUT("/:id", authed, admin, a.updateProduct)
	products.DELETE("/:id", authed, admin, a.deleteProduct)

	categories := r.Group("/api/categories")
	categories.GET("", a.listCategories)
	categories.POST("", authed, admin, a.createCategory)
	categories.PUT("/:id", authed, admin, a.renameCategory)
	categories.DELETE("/:id", authed, admin, a.deleteCategory)

	reviews := r.Group("/api/reviews", authed)
	reviews.POST("", a.addReview)
	reviews.DELETE("/:id", a.deleteReview)
	reviews.GET("/:productId", a.productReviews)

	features := r.Group("/api/features")
	features.GET("", a.listFeatures)
	features.POST("/add", authed, admin, a.addFeature)
	features.PUT("/:featureId", authed, admin, a.appendFeatureImage)
	features.DELETE("/:featureId", authed, admin, a.deleteFeature)

	wishlist := r.Group("/api/wishlist", authed)
	wishlist.GET("", a.wishlist)
	wishlist.POST("/add", a.addToWishlist)
	wishlist.DELETE("/remove/:productId", a.removeFromWishlist)

	addresses := r.Group("/api/addresses", authed)
	addresses.GET("", a.listAddresses)
	addresses.POST("/add", a.addAddress)
	addresses.PUT("/:addressId", a.updateAddress)
	addresses.DELETE("/:addressId", a.deleteAddress)

	carts := r.Group("/api/cart", authed)
	carts.GET("", a.getCart)
	carts.POST("/add", a.addToCart)
	carts.PUT("/update", a.updateCartItem)
	carts.DELETE("/remove/:productId", a.removeFromCart)
	carts.DELETE("/clear", a.clearCart)

	orders := r.Group("/api/orders")
	orders.GET("/verify-payment/:tx_ref", a.verifyPayment)
	orders.POST("/verify-payment/:tx_ref", a.verifyPayment)
	orders.POST("", authed, a.createOrder)
	orders.POST("/payment/callback/:tx_ref", authed, a.verifyPayment)
	orders.GET("/myorders", authed, a.myOrders)
	orders.GET("/admin/allorders", authed, admin, a.allOrders)
	orders.PUT("/admin/:id/status", authed, admin, a.updateOrderStatus)
	orders.GET("/admin/:id/timeline", authed, admin, a.orderTimeline)
	orders.GET("/:id", authed, a.orderDetails)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "route not found"})
	})
	return r
}
