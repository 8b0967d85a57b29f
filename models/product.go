package models

import "time"

// Product is a tenant-scoped SKU catalog entry. Ingestion creates one lazily
// the first time a SKU appears; the unique (tenant_id, sku) index is what makes
// concurrent find-or-create safe.
type Product struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TenantID  uint      `json:"tenant_id" gorm:"not null;uniqueIndex:idx_tenant_sku"`
	SKU       string    `json:"sku" gorm:"size:100;not null;uniqueIndex:idx_tenant_sku"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Category  string    `json:"category" gorm:"size:100"`
	Brand     string    `json:"brand" gorm:"size:100"`
	UnitPrice float64   `json:"unit_price"`
	LeadTime  int       `json:"lead_time" gorm:"default:7"`
}
