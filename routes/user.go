package routes

import (
	"github.com/gin-gonic/gin"

	cartControllers "github.com/BrunoLenon/veipecas2025/controllers/cart"
	orderControllers "github.com/BrunoLenon/veipecas2025/controllers/order"
	productcontroller "github.com/BrunoLenon/veipecas2025/controllers/product"
	"github.com/BrunoLenon/veipecas2025/middleware"
)

// SetupUserRoutes registers all "/user/*" endpoints. Requires JWT middleware.
func SetupUserRoutes(r *gin.Engine, deps Deps) {
	userGroup := r.Group("/user")
	userGroup.Use(middleware.ValidateToken)
	{
		// ──────────────── Shopping Cart ────────────────
		cartGroup := userGroup.Group("/cart")
		{
			cartGroup.GET("/", cartControllers.GetUserCart(deps.Carts))                  // GET /user/cart
			cartGroup.POST("/", cartControllers.UpdateCartItem(deps.Carts))              // POST /user/cart
			cartGroup.DELETE("/:product_id", cartControllers.DeleteCartItem(deps.Carts)) // DELETE /user/cart/:product_id
		}

		// ──────────────── Checkout & Orders ────────────────
		userGroup.POST("/checkout", orderControllers.CheckoutHandler(deps.Carts, deps.Checkout, deps.Publisher)) // POST /user/checkout
		userGroup.GET("/orders", orderControllers.GetMyOrdersHandler(deps.Store))                                // GET /user/orders

		// ──────────────── Browse Products ────────────────
		userGroup.GET("/products", productcontroller.GetProducts(deps.Store, deps.Cache))        // GET /user/products
		userGroup.GET("/products/:id", productcontroller.GetProductByID(deps.Store, deps.Cache)) // GET /user/products/:id
	}
}
