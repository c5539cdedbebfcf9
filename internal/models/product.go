package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents an inventory record.
type Product struct {
	ID        uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string          `json:"name" gorm:"type:varchar(255);not null;index" validate:"notblank,max=255"`
	Category  string          `json:"category" gorm:"type:varchar(255);not null;index" validate:"notblank,max=255"`
	Quantity  int             `json:"quantity" gorm:"not null" validate:"gte=0"`
	Stock     int             `json:"stock" gorm:"not null" validate:"gte=0"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null" validate:"price_positive,price_digits"`
	CreatedAt time.Time       `json:"createdAt" gorm:"column:created_at;not null;autoCreateTime:false;<-:create"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty" gorm:"column:updated_at;autoUpdateTime:false"`
}

// TableName specifies the table name
func (Product) TableName() string {
	return "products"
}

// IsNew reports whether the product has not been persisted yet.
func (p *Product) IsNew() bool {
	return p.ID == 0
}

// Stamp sets the audit timestamps for a write happening at now.
// A new product gets createdAt and no updatedAt; an existing product keeps
// createdAt and gets updatedAt, never earlier than createdAt.
func (p *Product) Stamp(now time.Time) {
	if p.IsNew() {
		p.CreatedAt = now
		p.UpdatedAt = nil
		return
	}
	if now.Before(p.CreatedAt) {
		now = p.CreatedAt
	}
	p.UpdatedAt = &now
}

// ReplaceWith overwrites every mutable field with the values from src.
// Identity and timestamps are left untouched.
func (p *Product) ReplaceWith(src Product) {
	p.Name = src.Name
	p.Category = src.Category
	p.Quantity = src.Quantity
	p.Stock = src.Stock
	p.Price = src.Price
}
