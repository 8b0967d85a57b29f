package main

import (
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"smartstock/models"
)

var db *gorm.DB

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true). Any permission errors will be logged and ignored.
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	if shouldMigrate {
		// Migrate models individually so a failure on one doesn't block others.
		// Tenants first so the FK-carrying tables can reference them.
		if err := db.AutoMigrate(&models.Tenant{}); err != nil {
			log.Printf("migration warning (tenants): %v", err)
		}
		if err := db.AutoMigrate(&models.User{}); err != nil {
			log.Printf("migration warning (users): %v", err)
		}
		if err := db.AutoMigrate(&models.Product{}); err != nil {
			log.Printf("migration warning (products): %v", err)
		}
		if err := db.AutoMigrate(&models.Sales{}); err != nil {
			log.Printf("migration warning (sales): %v", err)
		}
		if err := db.AutoMigrate(&models.UploadJob{}); err != nil {
			log.Printf("migration warning (upload_jobs): %v", err)
		}
	}
	seedDB()
}

func seedDB() {
	// Ensure the default tenant exists; unauthenticated requests resolve to it.
	var tenant models.Tenant
	if err := db.Where("code = ?", "default").First(&tenant).Error; err != nil {
		tenant = models.Tenant{Name: "Default Tenant", Code: "default", IsActive: true}
		if err := db.Create(&tenant).Error; err != nil {
			log.Printf("failed to seed default tenant: %v", err)
			return
		}
		log.Printf("Seeded default tenant id=%d", tenant.ID)
	}

	// Seed an admin user for the default tenant.
	var count int64
	db.Model(&models.User{}).Where("email = ?", "admin@example.com").Count(&count)
	if count == 0 {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		admin := models.User{
			TenantID:       tenant.ID,
			Email:          "admin@example.com",
			Username:       "admin",
			HashedPassword: hashedPassword,
			Role:           "admin",
		}
		if err := db.Create(&admin).Error; err != nil {
			log.Printf("failed to seed admin user: %v", err)
		} else {
			log.Println("Seeded admin user: email=admin@example.com, password=admin123")
		}
	}

	ensureDataDirs()
}

// ensureDataDirs creates the upload and prediction-download directories.
func ensureDataDirs() {
	for _, dir := range []string{uploadBaseDir(), downloadBaseDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("failed to create data dir %s: %v", dir, err)
		}
	}
}

// uploadBaseDir returns the base directory for stored uploads (configurable via UPLOAD_BASE env)
func uploadBaseDir() string {
	if v := os.Getenv("UPLOAD_BASE"); v != "" {
		return v
	}
	return "uploads"
}

// downloadBaseDir returns the directory prediction exports are written to.
func downloadBaseDir() string {
	if v := os.Getenv("DOWNLOAD_BASE"); v != "" {
		return v
	}
	return "download_prediction"
}
