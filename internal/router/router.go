// internal/router/router.go
package router

import (
	"context"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/events"
	"github.com/javajoker/storefront/internal/handlers"
	"github.com/javajoker/storefront/internal/idempotency"
	"github.com/javajoker/storefront/internal/middleware"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

const apiVersion = "1.0.0"

// Dependencies are the infrastructure handles the routes are built on.
// Idempotency may be nil, in which case Idempotency-Key headers are ignored.
type Dependencies struct {
	DB          *gorm.DB
	Config      *config.Config
	Publisher   events.Publisher
	Images      services.ImageStore
	Idempotency idempotency.Store
}

// Initialize wires services, handlers and routes. Background work started
// here (rate limiter cleanup) stops when ctx is cancelled.
func Initialize(ctx context.Context, deps Dependencies) *gin.Engine {
	cfg := deps.Config

	// Initialize services
	ledger := services.NewInventoryLedger(deps.DB)
	userService := services.NewUserService(deps.DB)
	cartService := services.NewCartService(deps.DB)
	orderService := services.NewOrderService(deps.DB, ledger, deps.Publisher)
	reviewService := services.NewReviewService(deps.DB, deps.Publisher)
	productService := services.NewProductService(deps.DB, deps.Images, deps.Publisher)
	adminService := services.NewAdminService(deps.DB)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(deps.DB, apiVersion)
	productHandler := handlers.NewProductHandler(productService)
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	userHandler := handlers.NewUserHandler(userService)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.Auth.SecretKey, cfg.Auth.Issuer)

	generalLimiter := middleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	uploadLimiter := middleware.NewRateLimiter(ctx, rate.Limit(float64(cfg.RateLimit.RequestsPerSecond)/10), cfg.RateLimit.Burst)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.I18nMiddleware())

	// Health check
	r.GET("/health", healthHandler.Health)

	if cfg.AWS.AccessKeyID == "" {
		r.Static("/uploads", cfg.Storage.LocalDir)
	}

	auth := middleware.AuthRequired(userService, cfg.Auth)

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(generalLimiter.Middleware())
	{
		// Public catalog
		products := v1.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.GET("/:id/reviews", reviewHandler.ListProductReviews)
		}

		// Cart
		cart := v1.Group("/cart", auth)
		{
			cart.GET("", cartHandler.GetCart)
			cart.POST("", cartHandler.AddItem)
			cart.DELETE("", cartHandler.ClearCart)
			cart.POST("/items", cartHandler.AddItem)
			cart.PATCH("/items/:productId", cartHandler.UpdateItem)
			cart.DELETE("/items/:productId", cartHandler.RemoveItem)
		}

		// Orders
		orders := v1.Group("/orders", auth)
		{
			orders.POST("", middleware.Idempotency(deps.Idempotency), orderHandler.CreateOrder)
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/:id", orderHandler.GetOrder)
		}

		// Reviews
		reviews := v1.Group("/reviews", auth)
		{
			reviews.POST("", reviewHandler.UpsertReview)
			reviews.DELETE("/:reviewId", reviewHandler.DeleteReview)
		}

		// Users
		users := v1.Group("/users", auth)
		{
			users.GET("/me", userHandler.GetProfile)
			users.GET("/addresses", userHandler.ListAddresses)
			users.POST("/addresses", userHandler.AddAddress)
			users.PUT("/addresses/:addressId", userHandler.UpdateAddress)
			users.DELETE("/addresses/:addressId", userHandler.DeleteAddress)
			users.GET("/wishlist", userHandler.ListWishlist)
			users.POST("/wishlist", userHandler.AddToWishlist)
			users.DELETE("/wishlist/:productId", userHandler.RemoveFromWishlist)
		}

		// Admin routes
		admin := v1.Group("/admin", auth, middleware.AdminRequired())
		{
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)
			admin.GET("/customers", adminHandler.GetCustomers)

			admin.GET("/orders", orderHandler.ListAllOrders)
			admin.PATCH("/orders/:orderId/status", orderHandler.UpdateOrderStatus)

			adminProducts := admin.Group("/products", uploadLimiter.Middleware())
			{
				adminProducts.POST("", productHandler.CreateProduct)
				adminProducts.PUT("/:id", productHandler.UpdateProduct)
				adminProducts.DELETE("/:id", productHandler.DeleteProduct)
			}
		}
	}

	return r
}
