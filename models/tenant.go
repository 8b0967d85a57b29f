package models

import "time"

// Tenant is an isolated customer scope. Every domain row carries a tenant id.
type Tenant struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	Code      string    `json:"code" gorm:"size:50;uniqueIndex;not null"`
	IsActive  bool      `json:"is_active" gorm:"default:true;not null"`
}
