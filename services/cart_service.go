package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/BrunoLenon/veipecas2025/models"
	"github.com/BrunoLenon/veipecas2025/store"
)

// CartService maintains the single active cart per user. Every mutation
// rewrites the item list together with the recomputed total inside one
// transaction, so the total can never diverge from the items.
type CartService struct {
	store store.Store
}

func NewCartService(st store.Store) *CartService {
	return &CartService{store: st}
}

// GetOrCreateCart returns the user's non-finalized cart, creating an empty
// one if none exists. A racer that loses on the unique active-cart index
// fetches the winner's cart instead.
func (s *CartService) GetOrCreateCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.store.Carts().GetActiveCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, store.ErrCartNotFound) {
		return nil, err
	}

	now := time.Now()
	cart = &models.Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     []models.CartItem{},
		SavedAt:   now,
		CreatedAt: now,
	}
	if err := s.store.Carts().CreateCart(ctx, cart); err != nil {
		if errors.Is(err, store.ErrActiveCartExists) {
			return s.store.Carts().GetActiveCart(ctx, userID)
		}
		return nil, err
	}
	return cart, nil
}

// SetItemQuantity upserts the item at the given quantity. Zero removes the
// item; a quantity above the product's current stock fails with
// *store.InsufficientStockError and leaves the cart unchanged. New items
// snapshot the product's price at add time.
func (s *CartService) SetItemQuantity(ctx context.Context, cartID, productID string, quantity int) (*models.Cart, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	var out *models.Cart
	err := s.store.Transact(ctx, func(tx store.Store) error {
		cart, err := tx.Carts().GetCart(ctx, cartID)
		if err != nil {
			return err
		}
		if cart.Finalized {
			return store.ErrCartFinalized
		}

		if quantity == 0 {
			cart.Items = dropItem(cart.Items, productID)
		} else {
			product, err := tx.Products().GetProduct(ctx, productID)
			if err != nil {
				return err
			}
			if quantity > product.Stock {
				return &store.InsufficientStockError{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   quantity,
					Available:   product.Stock,
				}
			}
			upsertItem(cart, product, quantity)
		}

		if err := tx.Carts().ReplaceItems(ctx, cartID, cart.Items, cart.ComputeTotal()); err != nil {
			return err
		}
		out, err = tx.Carts().GetCart(ctx, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveItem removes the product from the cart. Removing an absent item is a
// no-op, not an error.
func (s *CartService) RemoveItem(ctx context.Context, cartID, productID string) (*models.Cart, error) {
	var out *models.Cart
	err := s.store.Transact(ctx, func(tx store.Store) error {
		cart, err := tx.Carts().GetCart(ctx, cartID)
		if err != nil {
			return err
		}
		if cart.Finalized {
			return store.ErrCartFinalized
		}

		cart.Items = dropItem(cart.Items, productID)
		if err := tx.Carts().ReplaceItems(ctx, cartID, cart.Items, cart.ComputeTotal()); err != nil {
			return err
		}
		out, err = tx.Carts().GetCart(ctx, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func upsertItem(cart *models.Cart, product *models.Product, quantity int) {
	for i := range cart.Items {
		if cart.Items[i].ProductID == product.ID {
			// Quantity changes keep the original price snapshot.
			cart.Items[i].Quantity = quantity
			cart.Items[i].AddedAt = time.Now()
			return
		}
	}
	cart.Items = append(cart.Items, models.CartItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		UnitPrice:   product.UnitPrice(),
		Quantity:    quantity,
		AddedAt:     time.Now(),
	})
}

func dropItem(items []models.CartItem, productID string) []models.CartItem {
	out := items[:0]
	for _, item := range items {
		if item.ProductID != productID {
			out = append(out, item)
		}
	}
	return out
}
