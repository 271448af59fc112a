package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/BrunoLenon/veipecas2025/models"
)

// GormStore is the postgres-backed Store. Open the DB with
// gorm.Config{TranslateError: true} so unique violations surface as
// gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Products() ProductStore { return gormProducts{s.db} }
func (s *GormStore) Carts() CartStore       { return gormCarts{s.db} }
func (s *GormStore) Orders() OrderStore     { return gormOrders{s.db} }
func (s *GormStore) Users() UserStore       { return gormUsers{s.db} }

func (s *GormStore) Transact(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// Migrate creates the schema, plus the partial unique index gorm tags cannot
// express: at most one non-finalized cart per user.
func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		return err
	}
	return s.db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_active_user ON carts (user_id) WHERE NOT finalized`,
	).Error
}

// -------- products --------

type gormProducts struct{ db *gorm.DB }

func (p gormProducts) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := p.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (p gormProducts) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := p.db.WithContext(ctx).Order("name ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (p gormProducts) TryDecrementStock(ctx context.Context, productID string, amount int) error {
	// The floor check and the write are one statement; two checkouts racing
	// for the last units serialize on the row and the loser matches no row.
	res := p.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, amount).
		UpdateColumn("stock", gorm.Expr("stock - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var product models.Product
		if err := p.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		return &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   amount,
			Available:   product.Stock,
		}
	}
	return nil
}

// -------- carts --------

type gormCarts struct{ db *gorm.DB }

func (c gormCarts) GetCart(ctx context.Context, cartID string) (*models.Cart, error) {
	var cart models.Cart
	err := c.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id ASC") }).
		First(&cart, "id = ?", cartID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return &cart, nil
}

func (c gormCarts) GetActiveCart(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := c.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id ASC") }).
		Where("user_id = ? AND NOT finalized", userID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return &cart, nil
}

func (c gormCarts) CreateCart(ctx context.Context, cart *models.Cart) error {
	if err := c.db.WithContext(ctx).Create(cart).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrActiveCartExists
		}
		return err
	}
	return nil
}

func (c gormCarts) ReplaceItems(ctx context.Context, cartID string, items []models.CartItem, total float64) error {
	db := c.db.WithContext(ctx)
	if err := db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].ID = 0
		items[i].CartID = cartID
	}
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			return err
		}
	}
	res := db.Model(&models.Cart{}).
		Where("id = ? AND NOT finalized", cartID).
		Updates(map[string]interface{}{"total": total, "saved_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return c.missingCartError(ctx, cartID)
	}
	return nil
}

func (c gormCarts) FinalizeCart(ctx context.Context, cartID string) error {
	res := c.db.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ? AND NOT finalized", cartID).
		Update("finalized", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return c.missingCartError(ctx, cartID)
	}
	return nil
}

// missingCartError tells a vanished cart apart from an already-finalized one
// after a guarded update matched no row.
func (c gormCarts) missingCartError(ctx context.Context, cartID string) error {
	var cart models.Cart
	if err := c.db.WithContext(ctx).First(&cart, "id = ?", cartID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCartNotFound
		}
		return err
	}
	return ErrCartFinalized
}

// -------- orders --------

type gormOrders struct{ db *gorm.DB }

func (o gormOrders) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := o.db.WithContext(ctx).Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrOrderNumberTaken
		}
		return err
	}
	return nil
}

func (o gormOrders) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := o.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? OR order_number = ?", id, id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (o gormOrders) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := o.db.WithContext(ctx).Preload("Items").Order("created_at DESC")
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.SellerID != "" {
		q = q.Where("seller_id = ?", filter.SellerID)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (o gormOrders) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	updates := map[string]interface{}{"status": status}
	if status == models.OrderStatusCompleted {
		updates["completed_at"] = time.Now()
	}
	res := o.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// -------- users --------

type gormUsers struct{ db *gorm.DB }

func (u gormUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
