package models

import "time"

// User belongs to exactly one tenant. Passwords are stored as bcrypt hashes.
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	TenantID       uint      `json:"tenant_id" gorm:"index;not null"`
	Tenant         Tenant    `json:"-" gorm:"foreignKey:TenantID;references:ID"`
	Email          string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Username       string    `json:"username" gorm:"size:100;not null"`
	HashedPassword []byte    `json:"-" gorm:"not null"`
	Role           string    `json:"role" gorm:"size:50;default:user;not null"`
	IsActive       bool      `json:"is_active" gorm:"default:true;not null"`
}
