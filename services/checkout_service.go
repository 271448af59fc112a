package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/BrunoLenon/veipecas2025/models"
	"github.com/BrunoLenon/veipecas2025/store"
)

// maxOrderNumberAttempts bounds the retries when a generated order number
// collides with an existing order.
const maxOrderNumberAttempts = 5

// CheckoutService converts a cart into an order while reserving inventory.
// The whole transition runs in one transaction: either stock is decremented,
// the order exists and the cart is finalized, or none of it happened.
type CheckoutService struct {
	store store.Store
	seq   OrderSequencer
}

func NewCheckoutService(st store.Store, seq OrderSequencer) *CheckoutService {
	return &CheckoutService{store: st, seq: seq}
}

// Checkout finalizes the cart into a pending order. On an order-number
// collision the entire transaction is rolled back and retried with a fresh
// number, so stock decrements and the order row always commit together.
func (s *CheckoutService) Checkout(ctx context.Context, cartID string) (*models.Order, error) {
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		order, err := s.checkoutOnce(ctx, cartID)
		if errors.Is(err, store.ErrOrderNumberTaken) {
			continue
		}
		return order, err
	}
	return nil, ErrOrderNumberExhausted
}

func (s *CheckoutService) checkoutOnce(ctx context.Context, cartID string) (*models.Order, error) {
	var order *models.Order
	err := s.store.Transact(ctx, func(tx store.Store) error {
		cart, err := tx.Carts().GetCart(ctx, cartID)
		if err != nil {
			return err
		}
		if cart.Finalized {
			return store.ErrCartFinalized
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		// Reserve inventory against live stock. The add-time check is stale
		// by now; the conditional decrement is the authoritative one, and a
		// single shortfall aborts the whole transaction. Decrements run in
		// product ID order so concurrent checkouts sharing products lock the
		// rows in the same order.
		reserve := make([]models.CartItem, len(cart.Items))
		copy(reserve, cart.Items)
		sort.Slice(reserve, func(i, j int) bool { return reserve[i].ProductID < reserve[j].ProductID })
		for _, item := range reserve {
			if err := tx.Products().TryDecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		var sellerID *string
		user, err := tx.Users().GetUser(ctx, cart.UserID)
		if err == nil {
			sellerID = user.SellerID
		} else if !errors.Is(err, store.ErrUserNotFound) {
			return err
		}

		now := time.Now()
		order = &models.Order{
			ID:          uuid.NewString(),
			OrderNumber: s.seq.Next(now),
			UserID:      cart.UserID,
			SellerID:    sellerID,
			Items:       snapshotItems(cart.Items),
			Total:       cart.ComputeTotal(),
			Status:      models.OrderStatusPending,
			CreatedAt:   now,
		}
		if err := tx.Orders().CreateOrder(ctx, order); err != nil {
			return err
		}

		return tx.Carts().FinalizeCart(ctx, cartID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func snapshotItems(items []models.CartItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}
	return out
}
