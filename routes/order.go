package routes

import (
	"github.com/gin-gonic/gin"

	orderControllers "github.com/BrunoLenon/veipecas2025/controllers/order"
	"github.com/BrunoLenon/veipecas2025/middleware"
)

// SetupOrderRoutes registers the back-office "/orders/*" endpoints.
func SetupOrderRoutes(r *gin.Engine, deps Deps) {
	orders := r.Group("/orders")
	orders.Use(middleware.ValidateAPIKey)
	{
		// Fetch orders, optionally filtered by user or seller
		orders.GET("/", orderControllers.GetAllOrdersHandler(deps.Store))

		// Spreadsheet download of orders
		orders.GET("/export", orderControllers.ExportOrdersToExcel(deps.Store))

		// websocket endpoint for real-time order updates
		orders.GET("/ws", orderControllers.OrderWebSocketHandler)

		// Fetch a single order by ID or order number
		orders.GET("/:orderID", orderControllers.GetOrderByIDHandler(deps.Store))

		// Update order status (pending, processing, completed, cancelled)
		orders.PUT("/:orderID/status", orderControllers.UpdateOrderStatusHandler(deps.Store))
	}
}
