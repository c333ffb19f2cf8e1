// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/config"
	"github.com/your-org/shoe-pos/internal/domain/analytics"
	"github.com/your-org/shoe-pos/internal/domain/cart"
	"github.com/your-org/shoe-pos/internal/domain/catalog"
	"github.com/your-org/shoe-pos/internal/domain/inventory"
	"github.com/your-org/shoe-pos/internal/domain/sales"
	"github.com/your-org/shoe-pos/internal/interfaces/http/handlers"
	"github.com/your-org/shoe-pos/internal/interfaces/http/middleware"
)

// Dependencies are the services the API exposes
type Dependencies struct {
	Config      *config.Config
	Log         *logrus.Logger
	RedisClient *redis.Client // nil disables carts and idempotent replay

	Catalog   *catalog.Service
	Inventory *inventory.Service
	Sales     *sales.Service
	Analytics *analytics.Service
	Carts     *cart.Service
}

// SetupRoutes registers every API route under rg
func SetupRoutes(rg *gin.RouterGroup, deps *Dependencies) {
	idempotent := idempotencyMiddleware(deps)

	SetupShoeRoutes(rg, deps)
	SetupInventoryRoutes(rg, deps)
	SetupSalesRoutes(rg, deps, idempotent)
	if deps.Carts != nil {
		SetupCartRoutes(rg, deps, idempotent)
	}
}

// SetupShoeRoutes sets up catalog routes
func SetupShoeRoutes(rg *gin.RouterGroup, deps *Dependencies) {
	shoeHandler := handlers.NewShoeHandler(deps.Catalog, deps.Inventory, deps.Log)

	shoes := rg.Group("/shoes")
	{
		shoes.GET("", shoeHandler.GetShoes)
		shoes.GET("/:id", shoeHandler.GetShoe)
		shoes.POST("", shoeHandler.CreateShoe)
		shoes.PUT("/:id", shoeHandler.UpdateShoe)
		shoes.DELETE("/:id", shoeHandler.DeleteShoe)

		// Stock ledger
		shoes.POST("/:id/stock", shoeHandler.AdjustStock)
		shoes.GET("/:id/movements", shoeHandler.GetMovements)
	}
}

// SetupInventoryRoutes sets up stock alert routes
func SetupInventoryRoutes(rg *gin.RouterGroup, deps *Dependencies) {
	inventoryHandler := handlers.NewInventoryHandler(deps.Inventory, deps.Log)

	inventory := rg.Group("/inventory")
	{
		inventory.GET("/alerts", inventoryHandler.GetAlerts)
		inventory.PUT("/alerts/:id/resolve", inventoryHandler.ResolveAlert)
	}
}

// SetupSalesRoutes sets up sale commit and reporting routes
func SetupSalesRoutes(rg *gin.RouterGroup, deps *Dependencies, idempotent gin.HandlerFunc) {
	salesHandler := handlers.NewSalesHandler(deps.Sales, deps.Analytics, deps.Log)

	salesGroup := rg.Group("/sales")
	{
		salesGroup.POST("", idempotent, salesHandler.CreateSale)

		// Reporting
		salesGroup.GET("/report", salesHandler.GetSalesReport)
		salesGroup.GET("/dashboard-stats", salesHandler.GetDashboardStats)
		salesGroup.GET("/analytics", salesHandler.GetSalesAnalytics)

		salesGroup.GET("/:id", salesHandler.GetSale)
	}
}

// SetupCartRoutes sets up session cart routes
func SetupCartRoutes(rg *gin.RouterGroup, deps *Dependencies, idempotent gin.HandlerFunc) {
	cartHandler := handlers.NewCartHandler(deps.Carts, deps.Log)

	carts := rg.Group("/carts")
	{
		carts.POST("", cartHandler.CreateCart)
		carts.GET("/:session", cartHandler.GetCart)
		carts.DELETE("/:session", cartHandler.ClearCart)
		carts.POST("/:session/items", cartHandler.AddItem)
		carts.PUT("/:session/items/:shoeId", cartHandler.UpdateItem)
		carts.DELETE("/:session/items/:shoeId", cartHandler.RemoveItem)
		carts.POST("/:session/checkout", idempotent, cartHandler.Checkout)
	}
}

func idempotencyMiddleware(deps *Dependencies) gin.HandlerFunc {
	var store middleware.IdempotencyStore
	if deps.RedisClient != nil {
		store = middleware.NewRedisIdempotencyStore(deps.RedisClient)
	}
	return middleware.Idempotency(store, deps.Log, deps.Config.Security.IdempotencyTTL)
}
