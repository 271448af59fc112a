package orderControllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BrunoLenon/veipecas2025/models"
	"github.com/BrunoLenon/veipecas2025/publisher"
	"github.com/BrunoLenon/veipecas2025/services"
	"github.com/BrunoLenon/veipecas2025/store"
)

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// POST /user/checkout
//
// Converts the caller's active cart into a pending order. A failed checkout
// leaves the cart exactly as it was, so the caller can correct and retry.
func CheckoutHandler(carts *services.CartService, checkout *services.CheckoutService, pub *publisher.OrderPublisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		cart, err := carts.GetOrCreateCart(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}

		order, err := checkout.Checkout(c.Request.Context(), cart.ID)
		if err != nil {
			respondCheckoutError(c, err)
			return
		}

		if pub != nil {
			if err := pub.PublishOrderCreated(order); err != nil {
				// Order is already committed; the event is best effort.
				log.Printf("⚠️ Failed to publish order.created for %s: %v", order.OrderNumber, err)
			}
		}
		broadcastNewOrder(*order)

		c.JSON(http.StatusCreated, order)
	}
}

func respondCheckoutError(c *gin.Context, err error) {
	var stockErr *store.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{"error": stockErr.Error(), "product_id": stockErr.ProductID})
	case errors.Is(err, services.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
	case errors.Is(err, store.ErrCartFinalized):
		c.JSON(http.StatusConflict, gin.H{"error": "Cart is already finalized"})
	case errors.Is(err, store.ErrCartNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
	case errors.Is(err, services.ErrOrderNumberExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not allocate an order number, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
	}
}

// GET /user/orders
func GetMyOrdersHandler(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		orders, err := st.Orders().ListOrders(c.Request.Context(), store.OrderFilter{UserID: userID})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /orders?user_id=&seller_id=
//
// Role-based visibility is the caller's responsibility; this endpoint only
// applies the filter it is handed.
func GetAllOrdersHandler(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := store.OrderFilter{
			UserID:   c.Query("user_id"),
			SellerID: c.Query("seller_id"),
		}

		orders, err := st.Orders().ListOrders(c.Request.Context(), filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /orders/:orderID — accepts the internal ID or the order number.
func GetOrderByIDHandler(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("orderID")
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orderID is required"})
			return
		}

		order, err := st.Orders().GetOrder(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// PUT /orders/:orderID/status
func UpdateOrderStatusHandler(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("orderID")
		if orderID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orderID is required"})
			return
		}

		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status, ok := models.ValidStatus(req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order status"})
			return
		}

		if err := st.Orders().UpdateStatus(c.Request.Context(), orderID, status); err != nil {
			if errors.Is(err, store.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update order status"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order status updated successfully"})
	}
}
