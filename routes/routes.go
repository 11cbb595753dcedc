package routes

import (
	"net/http"

	"pickup-kitchen/handlers"
	"pickup-kitchen/middleware"
	"pickup-kitchen/models"

	"github.com/gin-gonic/gin"
)

type Options struct {
	// CartMaxAge is the cart cookie lifetime in seconds.
	CartMaxAge   int
	SecureCookie bool
	Metrics      http.Handler
	// Users lets owner routes see an approval made after the token was issued.
	Users middleware.UserLookup
}

func SetupRoutes(r *gin.Engine, h *handlers.Handler, auth *middleware.Auth, opts Options) {
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)
		public.POST("/auth/forgot-password", h.ForgotPassword)
		public.POST("/auth/reset-password", h.ResetPassword)

		// Menu (no auth needed)
		public.GET("/categories", h.ListCategories)
		public.GET("/categories/:id/menu", h.GetCategoryMenu)
		public.GET("/menu/:id", h.GetMenuItem)
		public.GET("/pickup-times", h.ListPickupTimes)

		// Order lookup: the code is the credential
		public.GET("/orders/:code", h.GetOrderByCode)
		public.GET("/orders/:code/qr", h.GetOrderQR)
		public.POST("/orders/lookup", h.GetMyOrders)

		// State machine info (great for docs/Postman)
		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Cart & checkout (guests welcome) ───────────────────────────
	shop := r.Group("/api/cart")
	shop.Use(middleware.CartSession(opts.CartMaxAge, opts.SecureCookie), auth.OptionalAuth())
	{
		shop.GET("", h.GetCart)
		shop.POST("/items", h.AddToCart)
		shop.DELETE("/items/:itemId", h.RemoveFromCart)
		shop.DELETE("", h.ClearCart)
		shop.POST("/checkout", h.Checkout)
	}

	// ── Authenticated routes ───────────────────────────────────────
	authed := r.Group("/api")
	authed.Use(auth.AuthRequired())
	{
		authed.GET("/profile", h.GetProfile)
	}

	// ── Restaurant owner routes ────────────────────────────────────
	restaurant := r.Group("/api/restaurant")
	restaurant.Use(auth.AuthRequired(), middleware.RoleRequired(models.RoleOwner), middleware.VerifiedRequired(opts.Users))
	{
		// Categories
		restaurant.GET("/categories", h.ListOwnerCategories)
		restaurant.POST("/categories", h.CreateCategory)
		restaurant.PUT("/categories/:id", h.UpdateCategory)
		restaurant.DELETE("/categories/:id", h.DeleteCategory)

		// Menu management
		restaurant.GET("/menu", h.ListMenuItems)
		restaurant.GET("/menu/options", h.GetMenuOptions)
		restaurant.POST("/menu", h.AddMenuItem)
		restaurant.PUT("/menu/:itemId", h.UpdateMenuItem)
		restaurant.DELETE("/menu/:itemId", h.DeleteMenuItem)

		// Pickup slots
		restaurant.GET("/pickup-times", h.ListAllPickupTimes)
		restaurant.POST("/pickup-times", h.CreatePickupTime)
		restaurant.PUT("/pickup-times/:id", h.UpdatePickupTime)
		restaurant.DELETE("/pickup-times/:id", h.DeletePickupTime)

		// Order management
		restaurant.GET("/orders", h.GetActiveOrders)
		restaurant.GET("/orders/history", h.GetOrderHistory)
		restaurant.GET("/orders/statuses", h.GetOrderStatuses)
		restaurant.GET("/orders/:id", h.GetRestaurantOrder)
		restaurant.PUT("/orders/:id/status", h.UpdateOrderStatus)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(auth.AuthRequired(), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/owners", h.AdminListOwners)
		admin.PUT("/owners/:id/verify", h.AdminVerifyOwner)
		admin.GET("/orders/:id", h.AdminGetOrder)
		admin.PUT("/orders/:id/status", h.AdminForceOrderStatus)
	}
}
