package models

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"    // created by checkout, awaiting processing
	OrderStatusProcessing OrderStatus = "processing" // picked up by the seller
	OrderStatusCompleted  OrderStatus = "completed"  // fulfilled; CompletedAt is stamped
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ValidStatus reports whether s is one of the known order statuses.
func ValidStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return OrderStatus(s), true
	}
	return "", false
}

type Order struct {
	ID          string      `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID      string      `gorm:"index;not null" json:"user_id"`
	SellerID    *string     `gorm:"index" json:"seller_id,omitempty"`
	Items       []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Total       float64     `json:"total"` // fixed at creation, never recomputed
	Status      OrderStatus `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// OrderItem is a snapshot of a cart item at checkout time; it is copied,
// not linked live to the product.
type OrderItem struct {
	ID          uint    `gorm:"primaryKey" json:"-"`
	OrderID     string  `gorm:"index" json:"-"`
	ProductID   string  `gorm:"not null" json:"product_id"`
	ProductName string  `json:"name"`
	UnitPrice   float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}
