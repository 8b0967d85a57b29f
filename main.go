package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"smartstock/pkg/chatbot"
	"smartstock/pkg/forecast"
	"smartstock/pkg/ingest"
)

var jwtSecret []byte // loaded from env JWT_SECRET (fallback to dev default)

// shared service singletons, initialized by initServices
var (
	pipeline       *ingest.Pipeline
	chatClient     *chatbot.Client
	chatLimiter    *chatbot.RateLimiter
	forecastClient *forecast.Client
)

func main() {
	// Auto-load ./.env if present (no external dependency) before reading vars
	loadDotEnv()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	jwtSecret = []byte(secret)

	// Support a lightweight migrate command: `./smartstock migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		fmt.Println("migration and seeding completed")
		return
	}

	initDB()
	initServices()

	r := gin.Default()

	setupRoutes(r)

	r.Run(":" + envOr("PORT", "8000"))
}

// initServices wires the ingest pipeline and the external-service clients.
// The chat client stays nil without an API key; its endpoints report that.
func initServices() {
	pipeline = ingest.NewPipeline(db, uploadBaseDir())

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		chatClient = chatbot.NewClient(key, envOr("OPENAI_CHAT_MODEL", chatbot.DefaultModel))
	}
	chatLimiter = chatbot.NewRateLimiter(50, time.Hour)

	forecastClient = forecast.NewClient(envOr("FORECAST_URL", "http://localhost:8501"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
