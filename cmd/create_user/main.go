package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"smartstock/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("usage: go run ./cmd/create_user <email> <password> [tenant-code]")
		os.Exit(2)
	}
	email := strings.ToLower(strings.TrimSpace(os.Args[1]))
	password := os.Args[2]
	tenantCode := "default"
	if len(os.Args) > 3 {
		tenantCode = os.Args[3]
	}

	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	// ensure the tenant exists
	var tenant models.Tenant
	if err := db.Where("code = ?", tenantCode).First(&tenant).Error; err != nil {
		tenant = models.Tenant{Name: tenantCode, Code: tenantCode, IsActive: true}
		if err := db.Create(&tenant).Error; err != nil {
			log.Fatalf("failed to create tenant %s: %v", tenantCode, err)
		}
		fmt.Printf("created tenant %s id=%d\n", tenantCode, tenant.ID)
	}

	// check existing
	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		fmt.Printf("user %s already exists (id=%d)\n", email, existing.ID)
		os.Exit(0)
	}

	hpw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt failed: %v", err)
	}
	username := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		username = email[:at]
	}
	user := models.User{
		TenantID:       tenant.ID,
		Email:          email,
		Username:       username,
		HashedPassword: hpw,
		Role:           "user",
		IsActive:       true,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created user %s id=%d tenant=%d\n", email, user.ID, tenant.ID)
}
