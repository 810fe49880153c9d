package routes

import (
	"restaurant-api/handlers"
	"restaurant-api/middleware"
	"restaurant-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler) {
	secret := h.Cfg.JWTSecret

	r.GET("/health", handlers.Health)
	r.GET("/", handlers.Welcome)
	r.GET("/ws", middleware.WSAuth(secret), h.Websocket)

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)

		public.GET("/products", h.ListProducts)
		public.GET("/products/:id", h.GetProduct)
		public.GET("/categories", h.ListCategories)

		public.GET("/public/settings", h.GetSettings)
		public.GET("/public/status", h.GetRestaurantStatus)

		// signature-verified instead of token-authenticated
		public.POST("/payments/webhook", h.PaymentWebhook)

		public.GET("/state-machine", handlers.GetStateMachineInfo)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(middleware.AuthRequired(secret))
	{
		auth.GET("/auth/me", h.GetProfile)
		auth.PUT("/auth/me", h.UpdateProfile)

		auth.POST("/orders", h.PlaceOrder)
		auth.GET("/orders", h.GetMyOrders)
		auth.GET("/orders/:id", h.GetOrderDetail)
		auth.POST("/orders/:id/cancel", h.CancelOrder)

		auth.POST("/payments/intent", h.CreatePaymentIntent)
		auth.POST("/payments/confirm", h.ConfirmPayment)
		auth.GET("/payments/status/:intentId", h.GetPaymentStatus)

		auth.GET("/loyalty/points", h.GetLoyaltyPoints)
		auth.GET("/loyalty/history", h.GetLoyaltyHistory)
		auth.POST("/loyalty/redeem", h.RedeemPoints)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired(secret), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/orders", h.AdminGetAllOrders)
		admin.PUT("/orders/:id/status", h.AdminUpdateOrderStatus)

		admin.GET("/users", h.AdminGetAllUsers)
		admin.PUT("/users/:id/role", h.AdminUpdateUserRole)
		admin.PUT("/users/:id/toggle-status", h.AdminToggleUserStatus)

		admin.GET("/products", h.AdminListProducts)
		admin.POST("/products", h.CreateProduct)
		admin.PUT("/products/:id", h.UpdateProduct)
		admin.DELETE("/products/:id", h.DeleteProduct)

		admin.GET("/categories", h.AdminListCategories)
		admin.POST("/categories", h.CreateCategory)
		admin.PUT("/categories/:id", h.UpdateCategory)
		admin.DELETE("/categories/:id", h.DeleteCategory)

		admin.GET("/settings", h.GetSettings)
		admin.PUT("/settings", h.UpdateSettings)
		admin.POST("/settings/reset", h.ResetSettings)

		admin.GET("/stats/overview", h.StatsOverview)
		admin.GET("/stats/sales-by-day", h.SalesByDay)
		admin.GET("/stats/top-products", h.TopProducts)
		admin.GET("/stats/active-hours", h.ActiveHours)
		admin.GET("/reports/sales", h.SalesReport)
	}
}
