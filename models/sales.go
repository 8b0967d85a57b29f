package models

import "time"

// Sales is one (tenant, product, date) observation extracted from an ingested
// file. Rows are bulk-inserted and not deduplicated against prior ingestions.
type Sales struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TenantID  uint      `json:"tenant_id" gorm:"index;not null"`
	ProductID uint      `json:"product_id" gorm:"index;not null"`
	Product   Product   `json:"-" gorm:"foreignKey:ProductID;references:ID"`
	SaleDate  time.Time `json:"sale_date" gorm:"type:date;index;not null"`
	Quantity  float64   `json:"quantity" gorm:"not null"`
	Revenue   float64   `json:"revenue"`
}
