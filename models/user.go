package models

import "time"

type User struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"unique;not null" json:"email"`
	Name      string    `json:"name"`
	Role      string    `gorm:"type:VARCHAR(20);default:'customer'" json:"role"`
	SellerID  *string   `gorm:"index" json:"seller_id,omitempty"` // seller assigned to this customer's orders
	CreatedAt time.Time `json:"created_at"`
}
