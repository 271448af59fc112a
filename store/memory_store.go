package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BrunoLenon/veipecas2025/models"
)

// MemoryStore implements Store with in-memory storage. Transact works
// copy-on-commit: fn runs against a deep copy of the state and the copy is
// swapped in only when fn succeeds, so a failed transaction leaves nothing
// behind. A single mutex serializes all operations, which also makes
// TryDecrementStock linearizable per product.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (s *MemoryStore) Products() ProductStore { return memProducts{s} }
func (s *MemoryStore) Carts() CartStore       { return memCarts{s} }
func (s *MemoryStore) Orders() OrderStore     { return memOrders{s} }
func (s *MemoryStore) Users() UserStore       { return memUsers{s} }

func (s *MemoryStore) Transact(_ context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.clone()
	if err := fn(&memView{state: next}); err != nil {
		return err
	}
	s.state = next
	return nil
}

// PutProduct upserts a product row (seeding for tests and dev mode).
func (s *MemoryStore) PutProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[p.ID] = copyProduct(&p)
}

// PutUser upserts a user row.
func (s *MemoryStore) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[u.ID] = copyUser(&u)
}

// memView is the transactional view handed to Transact callbacks. The outer
// MemoryStore already holds the lock, so its methods touch state directly.
// Nested Transact calls run in the enclosing transaction.
type memView struct {
	state *memState
}

func (v *memView) Products() ProductStore { return viewProducts{v.state} }
func (v *memView) Carts() CartStore       { return viewCarts{v.state} }
func (v *memView) Orders() OrderStore     { return viewOrders{v.state} }
func (v *memView) Users() UserStore       { return viewUsers{v.state} }

func (v *memView) Transact(_ context.Context, fn func(tx Store) error) error {
	return fn(v)
}

// -------- locked pass-through accessors --------

type memProducts struct{ s *MemoryStore }

func (p memProducts) GetProduct(_ context.Context, id string) (*models.Product, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.s.state.getProduct(id)
}

func (p memProducts) ListProducts(_ context.Context) ([]models.Product, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.s.state.listProducts()
}

func (p memProducts) TryDecrementStock(_ context.Context, productID string, amount int) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.s.state.tryDecrementStock(productID, amount)
}

type memCarts struct{ s *MemoryStore }

func (c memCarts) GetCart(_ context.Context, cartID string) (*models.Cart, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.state.getCart(cartID)
}

func (c memCarts) GetActiveCart(_ context.Context, userID string) (*models.Cart, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.state.getActiveCart(userID)
}

func (c memCarts) CreateCart(_ context.Context, cart *models.Cart) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.state.createCart(cart)
}

func (c memCarts) ReplaceItems(_ context.Context, cartID string, items []models.CartItem, total float64) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.state.replaceItems(cartID, items, total)
}

func (c memCarts) FinalizeCart(_ context.Context, cartID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.state.finalizeCart(cartID)
}

type memOrders struct{ s *MemoryStore }

func (o memOrders) CreateOrder(_ context.Context, order *models.Order) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return o.s.state.createOrder(order)
}

func (o memOrders) GetOrder(_ context.Context, id string) (*models.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return o.s.state.getOrder(id)
}

func (o memOrders) ListOrders(_ context.Context, filter OrderFilter) ([]models.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return o.s.state.listOrders(filter)
}

func (o memOrders) UpdateStatus(_ context.Context, id string, status models.OrderStatus) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return o.s.state.updateStatus(id, status)
}

type memUsers struct{ s *MemoryStore }

func (u memUsers) GetUser(_ context.Context, id string) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	return u.s.state.getUser(id)
}

// -------- view accessors (lock already held) --------

type viewProducts struct{ st *memState }

func (p viewProducts) GetProduct(_ context.Context, id string) (*models.Product, error) {
	return p.st.getProduct(id)
}
func (p viewProducts) ListProducts(_ context.Context) ([]models.Product, error) {
	return p.st.listProducts()
}
func (p viewProducts) TryDecrementStock(_ context.Context, productID string, amount int) error {
	return p.st.tryDecrementStock(productID, amount)
}

type viewCarts struct{ st *memState }

func (c viewCarts) GetCart(_ context.Context, cartID string) (*models.Cart, error) {
	return c.st.getCart(cartID)
}
func (c viewCarts) GetActiveCart(_ context.Context, userID string) (*models.Cart, error) {
	return c.st.getActiveCart(userID)
}
func (c viewCarts) CreateCart(_ context.Context, cart *models.Cart) error {
	return c.st.createCart(cart)
}
func (c viewCarts) ReplaceItems(_ context.Context, cartID string, items []models.CartItem, total float64) error {
	return c.st.replaceItems(cartID, items, total)
}
func (c viewCarts) FinalizeCart(_ context.Context, cartID string) error {
	return c.st.finalizeCart(cartID)
}

type viewOrders struct{ st *memState }

func (o viewOrders) CreateOrder(_ context.Context, order *models.Order) error {
	return o.st.createOrder(order)
}
func (o viewOrders) GetOrder(_ context.Context, id string) (*models.Order, error) {
	return o.st.getOrder(id)
}
func (o viewOrders) ListOrders(_ context.Context, filter OrderFilter) ([]models.Order, error) {
	return o.st.listOrders(filter)
}
func (o viewOrders) UpdateStatus(_ context.Context, id string, status models.OrderStatus) error {
	return o.st.updateStatus(id, status)
}

type viewUsers struct{ st *memState }

func (u viewUsers) GetUser(_ context.Context, id string) (*models.User, error) {
	return u.st.getUser(id)
}

// -------- state --------

type memState struct {
	products     map[string]*models.Product
	carts        map[string]*models.Cart
	orders       map[string]*models.Order
	orderNumbers map[string]string // order number -> order ID
	users        map[string]*models.User
	nextItemID   uint
}

func newMemState() *memState {
	return &memState{
		products:     make(map[string]*models.Product),
		carts:        make(map[string]*models.Cart),
		orders:       make(map[string]*models.Order),
		orderNumbers: make(map[string]string),
		users:        make(map[string]*models.User),
		nextItemID:   1,
	}
}

func (st *memState) clone() *memState {
	next := newMemState()
	next.nextItemID = st.nextItemID
	for id, p := range st.products {
		next.products[id] = copyProduct(p)
	}
	for id, c := range st.carts {
		next.carts[id] = copyCart(c)
	}
	for id, o := range st.orders {
		next.orders[id] = copyOrder(o)
	}
	for n, id := range st.orderNumbers {
		next.orderNumbers[n] = id
	}
	for id, u := range st.users {
		next.users[id] = copyUser(u)
	}
	return next
}

func (st *memState) getProduct(id string) (*models.Product, error) {
	p, ok := st.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return copyProduct(p), nil
}

func (st *memState) listProducts() ([]models.Product, error) {
	out := make([]models.Product, 0, len(st.products))
	for _, p := range st.products {
		out = append(out, *copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (st *memState) tryDecrementStock(productID string, amount int) error {
	p, ok := st.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	if p.Stock < amount {
		return &InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   amount,
			Available:   p.Stock,
		}
	}
	p.Stock -= amount
	return nil
}

func (st *memState) getCart(cartID string) (*models.Cart, error) {
	c, ok := st.carts[cartID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return copyCart(c), nil
}

func (st *memState) getActiveCart(userID string) (*models.Cart, error) {
	for _, c := range st.carts {
		if c.UserID == userID && !c.Finalized {
			return copyCart(c), nil
		}
	}
	return nil, ErrCartNotFound
}

func (st *memState) createCart(cart *models.Cart) error {
	for _, c := range st.carts {
		if c.UserID == cart.UserID && !c.Finalized {
			return ErrActiveCartExists
		}
	}
	st.carts[cart.ID] = copyCart(cart)
	return nil
}

func (st *memState) replaceItems(cartID string, items []models.CartItem, total float64) error {
	c, ok := st.carts[cartID]
	if !ok {
		return ErrCartNotFound
	}
	if c.Finalized {
		return ErrCartFinalized
	}
	replaced := make([]models.CartItem, len(items))
	copy(replaced, items)
	for i := range replaced {
		replaced[i].ID = st.nextItemID
		replaced[i].CartID = cartID
		st.nextItemID++
	}
	c.Items = replaced
	c.Total = total
	c.SavedAt = time.Now()
	return nil
}

func (st *memState) finalizeCart(cartID string) error {
	c, ok := st.carts[cartID]
	if !ok {
		return ErrCartNotFound
	}
	if c.Finalized {
		return ErrCartFinalized
	}
	c.Finalized = true
	return nil
}

func (st *memState) createOrder(order *models.Order) error {
	if _, taken := st.orderNumbers[order.OrderNumber]; taken {
		return ErrOrderNumberTaken
	}
	st.orders[order.ID] = copyOrder(order)
	st.orderNumbers[order.OrderNumber] = order.ID
	return nil
}

func (st *memState) getOrder(id string) (*models.Order, error) {
	if o, ok := st.orders[id]; ok {
		return copyOrder(o), nil
	}
	if orderID, ok := st.orderNumbers[id]; ok {
		return copyOrder(st.orders[orderID]), nil
	}
	return nil, ErrOrderNotFound
}

func (st *memState) listOrders(filter OrderFilter) ([]models.Order, error) {
	var out []models.Order
	for _, o := range st.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.SellerID != "" && (o.SellerID == nil || *o.SellerID != filter.SellerID) {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (st *memState) updateStatus(id string, status models.OrderStatus) error {
	o, ok := st.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	if status == models.OrderStatusCompleted {
		now := time.Now()
		o.CompletedAt = &now
	}
	return nil
}

func (st *memState) getUser(id string) (*models.User, error) {
	u, ok := st.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

// -------- copies --------

func copyProduct(p *models.Product) *models.Product {
	out := *p
	if p.Price != nil {
		price := *p.Price
		out.Price = &price
	}
	return &out
}

func copyCart(c *models.Cart) *models.Cart {
	out := *c
	out.Items = make([]models.CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}

func copyOrder(o *models.Order) *models.Order {
	out := *o
	out.Items = make([]models.OrderItem, len(o.Items))
	copy(out.Items, o.Items)
	if o.SellerID != nil {
		sellerID := *o.SellerID
		out.SellerID = &sellerID
	}
	if o.CompletedAt != nil {
		completedAt := *o.CompletedAt
		out.CompletedAt = &completedAt
	}
	return &out
}

func copyUser(u *models.User) *models.User {
	out := *u
	if u.SellerID != nil {
		sellerID := *u.SellerID
		out.SellerID = &sellerID
	}
	return &out
}
