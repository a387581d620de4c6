package router

import (
	"time"

	"oficina/internal/config"
	"oficina/internal/handler"
	"oficina/internal/infra"
	"oficina/internal/middleware"
	"oficina/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the collaborators the HTTP adapter needs. Services are built in
// the composition root so the worker pool and cron share the same instances.
type Deps struct {
	DB        *gorm.DB
	Redis     *redis.Client
	MailCB    *infra.CircuitBreaker
	Orders    service.OrderService
	Payments  service.PaymentService
	Registers service.CashRegisterService
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(d.Redis, 1000, time.Minute)) // 1000 req/min per IP

	ordersH := handler.NewOrdersHandler(d.Orders)
	paymentsH := handler.NewPaymentsHandler(d.Payments)
	registersH := handler.NewCashRegistersHandler(d.Registers)

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis, d.MailCB))

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", ordersH.Create)
			orders.GET("/:id", ordersH.Get)
			orders.DELETE("/:id", middleware.RequireRole("supervisor", "admin"), ordersH.Delete)
			orders.POST("/:id/items", ordersH.AddItem)
			orders.POST("/:id/items/adhoc", ordersH.AddAdHocItem)
			orders.DELETE("/:id/items/:item_id", ordersH.RemoveItem)
			orders.PUT("/:id/adjustments", ordersH.UpdateAdjustments)
			orders.PATCH("/:id/status", ordersH.Transition)
			orders.POST("/:id/part-requests", ordersH.OpenPartRequest)
			orders.GET("/:id/payment", paymentsH.GetByOrder)
			orders.PUT("/:id/payment", paymentsH.Configure)
		}

		v1.POST("/part-requests/:id/close", ordersH.ClosePartRequest)

		payments := v1.Group("/payments")
		{
			payments.GET("/:id", paymentsH.Get)
			payments.POST("/:id/pay", paymentsH.MarkPaid)
			payments.POST("/:id/cancel", middleware.RequireRole("supervisor", "admin"), paymentsH.Cancel)
		}
		v1.POST("/installments/:id/pay", paymentsH.MarkInstallmentPaid)

		registers := v1.Group("/cash-registers")
		{
			registers.POST("", registersH.Open)
			registers.GET("/open", registersH.GetOpen)
			registers.GET("/:id", registersH.Get)
			registers.POST("/:id/movements", registersH.PostMovement)
			registers.GET("/:id/movements", registersH.ListMovements)
			registers.POST("/:id/close", registersH.Close)
		}
		v1.POST("/cash-movements/:id/reverse", middleware.RequireRole("supervisor", "admin"), registersH.ReverseMovement)

		v1.POST("/notifications/dlq/replay", middleware.RequireRole("admin"), handler.ReplayNotifications(d.Redis))
	}

	return r
}
