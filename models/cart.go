package models

import "time"

type Cart struct {
	ID        string     `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"index;not null" json:"user_id"` // one non-finalized cart per user, enforced by a partial unique index
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	Total     float64    `json:"total"` // derived from Items, never set independently
	Finalized bool       `gorm:"not null;default:false" json:"is_finalized"`
	SavedAt   time.Time  `json:"saved_at"`
	CreatedAt time.Time  `json:"created_at"`
}

type CartItem struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	CartID      string    `gorm:"index" json:"-"`
	ProductID   string    `gorm:"not null" json:"product_id"`
	ProductName string    `json:"name"`
	UnitPrice   float64   `json:"price"` // snapshot taken when the item is first added
	Quantity    int       `json:"quantity"`
	AddedAt     time.Time `json:"added_at"`
}

// Subtotal is the item's contribution to the cart total.
func (i CartItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// ComputeTotal returns the sum of item subtotals.
func (c *Cart) ComputeTotal() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}
