package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/BrunoLenon/veipecas2025/models"
)

// Common errors returned by the store
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartFinalized    = errors.New("cart is already finalized")
	ErrActiveCartExists = errors.New("user already has an active cart")
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderNumberTaken = errors.New("order number already taken")
	ErrUserNotFound     = errors.New("user not found")
)

// InsufficientStockError reports a stock shortfall, naming the offending
// product so the caller can act on it.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (%s): requested %d, available %d",
		e.ProductName, e.ProductID, e.Requested, e.Available)
}

// OrderFilter narrows ListOrders. Empty fields match everything; role-based
// filtering is the caller's job.
type OrderFilter struct {
	UserID   string
	SellerID string
}

type ProductStore interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)

	// TryDecrementStock atomically decrements stock by amount, but only if
	// stock >= amount at the moment of the write. It is the only path that
	// reduces stock and is linearizable per product. Returns
	// *InsufficientStockError on shortfall.
	TryDecrementStock(ctx context.Context, productID string, amount int) error
}

type CartStore interface {
	GetCart(ctx context.Context, cartID string) (*models.Cart, error)
	GetActiveCart(ctx context.Context, userID string) (*models.Cart, error)

	// CreateCart fails with ErrActiveCartExists if the user already has a
	// non-finalized cart.
	CreateCart(ctx context.Context, cart *models.Cart) error

	// ReplaceItems rewrites the cart's item list and its derived total in
	// one go, so the two can never diverge.
	ReplaceItems(ctx context.Context, cartID string, items []models.CartItem, total float64) error

	// FinalizeCart performs the one-way active -> finalized transition.
	FinalizeCart(ctx context.Context, cartID string) error
}

type OrderStore interface {
	// CreateOrder fails with ErrOrderNumberTaken when the order number
	// collides with an existing order.
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error)

	// UpdateStatus sets the order status and stamps CompletedAt when the
	// status becomes completed.
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
}

type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Store bundles the persistence surface of the checkout core. Transact runs
// fn against a transactional view: either every write in fn commits, or none
// do.
type Store interface {
	Products() ProductStore
	Carts() CartStore
	Orders() OrderStore
	Users() UserStore

	Transact(ctx context.Context, fn func(tx Store) error) error
}
