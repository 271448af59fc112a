package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BrunoLenon/veipecas2025/cache"
	"github.com/BrunoLenon/veipecas2025/publisher"
	"github.com/BrunoLenon/veipecas2025/services"
	"github.com/BrunoLenon/veipecas2025/store"
)

// Deps holds everything the route handlers need. Cache and Publisher are
// optional; nil disables them.
type Deps struct {
	Store     store.Store
	Carts     *services.CartService
	Checkout  *services.CheckoutService
	Cache     *cache.RedisCache
	Publisher *publisher.OrderPublisher
}

// SetupRoutes is the single entry-point that wires up the User and Order
// route groups.
func SetupRoutes(r *gin.Engine, deps Deps) {
	// User routes (JWT-protected)
	SetupUserRoutes(r, deps)

	// Back-office order routes (API-key-protected)
	SetupOrderRoutes(r, deps)
}
