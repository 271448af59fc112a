package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrunoLenon/veipecas2025/models"
	"github.com/BrunoLenon/veipecas2025/store"
)

// stubSequencer hands out a fixed list of numbers, then keeps repeating the
// last one.
type stubSequencer struct {
	mu      sync.Mutex
	numbers []string
	i       int
}

func (s *stubSequencer) Next(time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.i >= len(s.numbers) {
		return s.numbers[len(s.numbers)-1]
	}
	n := s.numbers[s.i]
	s.i++
	return n
}

// failingOrderTx wraps a store so that CreateOrder fails inside the checkout
// transaction.
type failingOrderTx struct {
	store.Store
	err error
}

func (f *failingOrderTx) Transact(ctx context.Context, fn func(store.Store) error) error {
	return f.Store.Transact(ctx, func(tx store.Store) error {
		return fn(&failingOrderView{Store: tx, err: f.err})
	})
}

type failingOrderView struct {
	store.Store
	err error
}

func (f *failingOrderView) Orders() store.OrderStore {
	return failingOrders{OrderStore: f.Store.Orders(), err: f.err}
}

type failingOrders struct {
	store.OrderStore
	err error
}

func (f failingOrders) CreateOrder(context.Context, *models.Order) error { return f.err }

// recordingTx wraps a store and records the product IDs handed to
// TryDecrementStock, in call order.
type recordingTx struct {
	store.Store
	decrements *[]string
}

func (r *recordingTx) Transact(ctx context.Context, fn func(store.Store) error) error {
	return r.Store.Transact(ctx, func(tx store.Store) error {
		return fn(&recordingView{Store: tx, decrements: r.decrements})
	})
}

type recordingView struct {
	store.Store
	decrements *[]string
}

func (r *recordingView) Products() store.ProductStore {
	return recordingProducts{ProductStore: r.Store.Products(), decrements: r.decrements}
}

type recordingProducts struct {
	store.ProductStore
	decrements *[]string
}

func (r recordingProducts) TryDecrementStock(ctx context.Context, productID string, amount int) error {
	*r.decrements = append(*r.decrements, productID)
	return r.ProductStore.TryDecrementStock(ctx, productID, amount)
}

func newCheckoutFixture(t *testing.T) (*store.MemoryStore, *CartService, *CheckoutService) {
	t.Helper()
	st := store.NewMemoryStore()
	st.PutProduct(models.Product{ID: "pX", Name: "Oil filter", Price: price(10), Stock: 5})
	st.PutProduct(models.Product{ID: "pY", Name: "Brake pad", Price: price(40), Stock: 3})
	st.PutProduct(models.Product{ID: "pZ", Name: "Headlight", Price: price(99.9), Stock: 1})
	return st, NewCartService(st), NewCheckoutService(st, RandomSequencer{})
}

func TestCheckoutSuccess(t *testing.T) {
	ctx := context.Background()
	st, carts, checkout := newCheckoutFixture(t)
	seller := "s1"
	st.PutUser(models.User{ID: "u1", Email: "u1@example.com", SellerID: &seller})

	cart, err := carts.GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)
	_, err = carts.SetItemQuantity(ctx, cart.ID, "pX", 3)
	require.NoError(t, err)

	order, err := checkout.Checkout(ctx, cart.ID)
	require.NoError(t, err)

	assert.Equal(t, "u1", order.UserID)
	require.NotNil(t, order.SellerID)
	assert.Equal(t, "s1", *order.SellerID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 30.0, order.Total)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "pX", order.Items[0].ProductID)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, 10.0, order.Items[0].UnitPrice)
	assert.Len(t, order.OrderNumber, 10)

	// Stock reserved, cart finalized, order persisted
	p, err := st.Products().GetProduct(ctx, "pX")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)

	finalized, err := st.Carts().GetCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.True(t, finalized.Finalized)

	persisted, err := st.Orders().GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, persisted.OrderNumber)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	ctx := context.Background()
	st, carts, checkout := newCheckoutFixture(t)

	cart, err := carts.GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)
	_, err = carts.SetItemQuantity(ctx, cart.ID, "pY", 3)
	require.NoError(t, err)

	// Another checkout drains the stock between add and checkout
	require.NoError(t, st.Products().TryDecrementStock(ctx, "pY", 2))

	_, err = checkout.Checkout(ctx, cart.ID)
	var stockErr *store.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "pY", stockErr.ProductID)

	// Nothing happened: stock, cart and order list are untouched
	p, err := st.Products().GetProduct(ctx, "pY")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stock)

	after, err := st.Carts().GetCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.False(t, after.Finalized)
	require.Len(t, after.Items, 1)
	assert.Equal(t, 3, after.Items[0].Quantity)

	orders, err := st.Orders().ListOrders(ctx, store.OrderFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckoutPartialShortfallRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	st, carts, checkout := newCheckoutFixture(t)

	cart, err := carts.GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)
	_, err = carts.SetItemQuantity(ctx, cart.ID, "pX", 2) // plenty
	require.NoError(t, err)
	_, err = carts.SetItemQuantity(ctx, cart.ID, "pY", 3)
	require.NoError(t, err)

	// Drain pY so the second decrement fails after pX already succeeded
	require.NoError(t, st.Products().TryDecrementStock(ctx, "pY", 1))

	_, err = checkout.Checkout(ctx, cart.ID)
	var stockErr *store.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "pY", stockErr.ProductID)

	// The pX decrement was rolled back with the transaction
	p, err := st.Products().GetProduct(ctx, "pX")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

func TestCheckoutEmptyCart(t *testing.T) {
	ctx := context.Background()
	_, carts, checkout := newCheckoutFixture(t)

	cart, err := carts.GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)

	_, err = checkout.Checkout(ctx, cart.ID)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutIsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	st, carts, checkout := newCheckoutFixture(t)

	cart, err := carts.GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)
	_, err = carts.SetItemQuantity(ctx, cart.ID, "pX", 1)
	require.NoError(t, err)

	_, err = checkout.Checkout(ctx, cart.ID)
	require.NoError(t, err)

	// A client retry of the same logical checkout cannot decrement again
	_, err = checkout.Checkout(ctx, cart.ID)
	assert.ErrorIs(t, err, store.ErrCartFinalized)

	p, err := st.Products().GetProduct(ctx, "pX")
	require.NoError(t, err)
	assert.Equal(t, 4, p.Stock)

	orders, err := st.Orders().ListOrders(ctx, store.OrderFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCheckoutConcurrentLastUnit(t *testing.T) {
	ctx := context.Background()
	st, carts, checkout := newCheckoutFixture(t)

	cartA, err := carts.GetOrCreateCart(ctx, "alice")
	require.NoError(t, err)
	_, err = carts.SetItemQuantity(ctx, cartA.ID, "pZ", 1)
	require.NoError(t, err)

	cartB, err := carts.GetOrCreateCart(ctx, "bob")
	require.NoError(t, err)
	_, err = carts.SetItemQuantity(ctx, cartB.ID, "pZ", 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, cartID := range []string{cartA.ID, cartB.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := checkout.Checkout(ctx, id)
			results <- err
		}(cartID)
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var stockErr *store.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, "pZ", stockErr.ProductID)
		insufficient++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)

	p, err := st.Products().GetProduct(ctx, "pZ")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)

	orders, err := st.Orders().ListOrders(ctx, store.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCheckoutRetriesOrderNumberCollision(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	st.PutProduct(models.Product{ID: "pX", Name: "Oil filter", Price: price(10), Stock: 5})
	carts := NewCartService(st)
	checkout := NewCheckoutService(st, &stubSequencer{numbers: []string{"2026091111", "2026091111", "2026092222"}})

	// Occupy the colliding number
	require.NoError(t, st.Orders().CreateOrder(ctx, &models.Order{ID: "o0", OrderNumber: "2026091111", UserID: "other"}))

	cart, err := carts.GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)
	_, err = carts.SetItemQuantity(ctx, cart.ID, "pX", 2)
	require.NoError(t, err)

	order, err := checkout.Checkout(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026092222", order.OrderNumber)

	// Retried attempts rolled back cleanly: only one decrement stuck
	p, err := st.Products().GetProduct(ctx, "pX")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
}

func TestCheckoutGivesUpAfterBoundedCollisions(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	st.PutProduct(models.Product{ID: "pX", Name: "Oil filter", Price: price(10), Stock: 5})
	carts := NewCartService(st)
	checkout := NewCheckoutService(st, &stubSequencer{numbers: []string{"2026091111"}})

	require.NoError(t, st.Orders().CreateOrder(ctx, &models.Order{ID: "o0", OrderNumber: "2026091111", UserID: "other"}))

	cart, err := carts.GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)
	_, err = carts.SetItemQuantity(ctx, cart.ID, "pX", 2)
	require.NoError(t, err)

	_, err = checkout.Checkout(ctx, cart.ID)
	assert.ErrorIs(t, err, ErrOrderNumberExhausted)

	// Every attempt rolled back: stock and cart untouched
	p, err := st.Products().GetProduct(ctx, "pX")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)

	after, err := st.Carts().GetCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.False(t, after.Finalized)
}

func TestCheckoutRollsBackWhenOrderInsertFails(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	st.PutProduct(models.Product{ID: "pX", Name: "Oil filter", Price: price(10), Stock: 5})
	carts := NewCartService(st)

	cart, err := carts.GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)
	_, err = carts.SetItemQuantity(ctx, cart.ID, "pX", 2)
	require.NoError(t, err)

	boom := errors.New("store unavailable")
	checkout := NewCheckoutService(&failingOrderTx{Store: st, err: boom}, RandomSequencer{})

	_, err = checkout.Checkout(ctx, cart.ID)
	require.ErrorIs(t, err, boom)

	// The stock decrement from step 3 did not survive the failed insert
	p, err := st.Products().GetProduct(ctx, "pX")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)

	after, err := st.Carts().GetCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.False(t, after.Finalized)
	require.Len(t, after.Items, 1)
}

func TestCheckoutDecrementsInProductIDOrder(t *testing.T) {
	ctx := context.Background()
	st, carts, _ := newCheckoutFixture(t)

	cart, err := carts.GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)
	// Add in reverse ID order; the reservation loop must not follow it,
	// otherwise two multi-item checkouts can lock product rows in opposite
	// orders and deadlock.
	_, err = carts.SetItemQuantity(ctx, cart.ID, "pZ", 1)
	require.NoError(t, err)
	_, err = carts.SetItemQuantity(ctx, cart.ID, "pY", 2)
	require.NoError(t, err)
	_, err = carts.SetItemQuantity(ctx, cart.ID, "pX", 3)
	require.NoError(t, err)

	var decrements []string
	checkout := NewCheckoutService(&recordingTx{Store: st, decrements: &decrements}, RandomSequencer{})

	order, err := checkout.Checkout(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"pX", "pY", "pZ"}, decrements)

	// The order snapshot keeps the cart's own item order
	require.Len(t, order.Items, 3)
	assert.Equal(t, "pZ", order.Items[0].ProductID)
	assert.Equal(t, "pY", order.Items[1].ProductID)
	assert.Equal(t, "pX", order.Items[2].ProductID)
}

func TestOrderNumbersAreUniqueAcrossCheckouts(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	st.PutProduct(models.Product{ID: "pX", Name: "Oil filter", Price: price(10), Stock: 1000})
	carts := NewCartService(st)
	checkout := NewCheckoutService(st, RandomSequencer{})

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		userID := "user-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		cart, err := carts.GetOrCreateCart(ctx, userID)
		require.NoError(t, err)
		_, err = carts.SetItemQuantity(ctx, cart.ID, "pX", 1)
		require.NoError(t, err)

		order, err := checkout.Checkout(ctx, cart.ID)
		require.NoError(t, err)
		assert.False(t, seen[order.OrderNumber], "duplicate order number %s", order.OrderNumber)
		seen[order.OrderNumber] = true
	}
}
