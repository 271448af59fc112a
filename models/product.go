package models

import "time"

type Product struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	Code        string    `gorm:"index" json:"code"`
	Barcode     string    `json:"barcode"`
	Brand       string    `json:"brand"`
	Price       *float64  `json:"price"` // nullable; treated as 0 when absent
	Stock       int       `gorm:"not null;default:0" json:"stock"`
	CategoryID  string    `gorm:"index" json:"category_id"`
	ImageURL    string    `json:"image_url"`
	IsNew       bool      `json:"is_new"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UnitPrice is the price used for cart snapshots and totals.
func (p *Product) UnitPrice() float64 {
	if p.Price == nil {
		return 0
	}
	return *p.Price
}
