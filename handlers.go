package main

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"smartstock/models"
	"smartstock/pkg/chatbot"
	"smartstock/pkg/forecast"
	"smartstock/pkg/ingest"
)

func setupRoutes(r *gin.Engine) {
	r.Use(corsMiddleware())
	r.GET("/health", healthHandler)
	r.GET("/api/files", listFilesHandler)
	r.Static("/uploads", uploadBaseDir())

	api := r.Group("/api/v1")
	api.POST("/auth/login", loginHandler)

	scoped := api.Group("")
	scoped.Use(tenantMiddleware())
	scoped.POST("/upload", uploadFileHandler)
	scoped.GET("/upload", listUploadsHandler)
	scoped.GET("/upload/:id", getUploadHandler)
	scoped.DELETE("/upload/:stored_filename", deleteUploadHandler)
	scoped.GET("/analytics/summary", analyticsSummaryHandler)
	scoped.GET("/analytics/products", topProductsHandler)
	scoped.POST("/chatbot/chat", chatHandler)
	scoped.GET("/chatbot/health", chatbotHealthHandler)
	scoped.GET("/chatbot/rate-limit-status", rateLimitStatusHandler)
	scoped.POST("/prediction/predict", predictHandler)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// tenantMiddleware resolves the tenant scope for a request. A valid bearer
// token wins; otherwise the tenant_id query param; otherwise the default
// tenant (1). A present-but-invalid token is rejected rather than silently
// downgraded to the default tenant.
func tenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := uint(1)
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token, err := jwt.Parse(h[7:], func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrInvalidKeyType
				}
				return jwtSecret, nil
			})
			if err != nil || !token.Valid {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				c.Abort()
				return
			}
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				if v, ok := claims["tenant_id"].(float64); ok && v > 0 {
					tenantID = uint(v)
				}
				if v, ok := claims["user_id"].(float64); ok && v > 0 {
					uid := uint(v)
					c.Set("user_id", uid)
				}
			}
		} else if v := c.Query("tenant_id"); v != "" {
			if n, err := strconv.ParseUint(v, 10, 32); err == nil && n > 0 {
				tenantID = uint(n)
			}
		}
		c.Set("tenant_id", tenantID)
		c.Next()
	}
}

func tenantFrom(c *gin.Context) uint {
	if v, ok := c.Get("tenant_id"); ok {
		if id, ok := v.(uint); ok && id > 0 {
			return id
		}
	}
	return 1
}

func userFrom(c *gin.Context) *uint {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			return &id
		}
	}
	return nil
}

func loginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   user.ID,
		"tenant_id": user.TenantID,
		"email":     user.Email,
		"role":      user.Role,
		"exp":       time.Now().Add(24 * time.Hour).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString})
}

// uploadFileHandler ingests one multipart file upload through the pipeline
// and returns the resulting job record.
func uploadFileHandler(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if strings.TrimSpace(file.Filename) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing filename"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open upload"})
		return
	}
	defer src.Close()
	// Read one byte past the cap so the pipeline can reject oversized payloads
	// without this handler buffering the full stream.
	data, err := io.ReadAll(io.LimitReader(src, pipeline.MaxFileSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}

	result, err := pipeline.Process(data, file.Filename, tenantFrom(c), userFrom(c))
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrMissingFilename), errors.Is(err, ingest.ErrUnsupportedFormat):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ingest.ErrPayloadTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, result.Job)
}

// getUploadHandler returns a job plus its parsed profile document.
func getUploadHandler(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}
	job, err := pipeline.GetJob(uint(id), tenantFrom(c))
	if errors.Is(err, ingest.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "upload job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	profile := map[string]any{}
	if job.ProfileData != "" {
		if err := json.Unmarshal([]byte(job.ProfileData), &profile); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "stored profile is corrupt"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"upload_job": job, "profile": profile})
}

// listUploadsHandler returns the tenant's jobs newest-first with pagination.
func listUploadsHandler(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	jobs, err := pipeline.ListJobs(tenantFrom(c), skip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func deleteUploadHandler(c *gin.Context) {
	stored := c.Param("stored_filename")
	err := pipeline.DeleteJob(stored, tenantFrom(c))
	if errors.Is(err, ingest.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no upload job for stored filename " + stored})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed: " + err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// analyticsSummaryHandler returns monthly demand totals for the last N months
// plus a KPI block derived with the same naive forecast rules the dashboard
// expects (forecast = 97% of actual, stock = 60%).
func analyticsSummaryHandler(c *gin.Context) {
	tenantID := tenantFrom(c)
	months, _ := strconv.Atoi(c.DefaultQuery("months", "6"))
	if months <= 0 {
		months = 6
	}
	now := time.Now()
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, -months, 0)

	rows, err := db.Model(&models.Sales{}).
		Select("to_char(sale_date, 'YYYY-MM') as month, sum(quantity) as qty").
		Where("tenant_id = ? AND sale_date >= ? AND sale_date < ?", tenantID, start, end).
		Group("month").Order("month").Rows()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	defer rows.Close()

	chart := []gin.H{}
	var totalActual, totalForecast float64
	for rows.Next() {
		var month string
		var qty float64
		if err := rows.Scan(&month, &qty); err != nil {
			continue
		}
		forecastQty := round2(qty * 0.97)
		stock := math.Max(math.Round(qty*0.6), 0)
		chart = append(chart, gin.H{
			"month":         month,
			"actual_demand": qty,
			"ai_forecast":   forecastQty,
			"stock":         stock,
		})
		totalActual += qty
		totalForecast += forecastQty
	}
	if totalActual == 0 {
		totalActual = 1
	}
	wape := math.Abs(totalActual-totalForecast) / totalActual * 100
	kpi := gin.H{
		"accuracy":     round2(math.Max(0, 100-wape)),
		"wape":         round2(wape),
		"stock_alerts": 0,
		"total_value":  0,
	}
	c.JSON(http.StatusOK, gin.H{"chart_data": chart, "kpi": kpi})
}

// topProductsHandler lists the tenant's highest-volume products over the last
// N months with a naive forecast/stock status per product.
func topProductsHandler(c *gin.Context) {
	tenantID := tenantFrom(c)
	months, _ := strconv.Atoi(c.DefaultQuery("months", "3"))
	if months <= 0 {
		months = 3
	}
	topN, _ := strconv.Atoi(c.DefaultQuery("top_n", "10"))
	if topN <= 0 || topN > 100 {
		topN = 10
	}
	now := time.Now()
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, -months, 0)

	rows, err := db.Model(&models.Sales{}).
		Select("products.name as name, sum(sales.quantity) as qty").
		Joins("JOIN products ON products.id = sales.product_id").
		Where("sales.tenant_id = ? AND sales.sale_date >= ? AND sales.sale_date < ?", tenantID, start, end).
		Group("products.name").
		Order("qty desc").
		Limit(topN).Rows()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	defer rows.Close()

	out := []gin.H{}
	for rows.Next() {
		var name string
		var qty float64
		if err := rows.Scan(&name, &qty); err != nil {
			continue
		}
		forecastQty := round2(qty * 0.95)
		stock := math.Max(math.Round(forecastQty*0.6), 0)
		status := "ok"
		switch {
		case stock < forecastQty*0.5:
			status = "critical"
		case stock < forecastQty*0.8:
			status = "low"
		}
		out = append(out, gin.H{"name": name, "forecast": forecastQty, "stock": stock, "status": status})
	}
	c.JSON(http.StatusOK, out)
}

// chatHandler is a rate-limited passthrough to the completion API.
func chatHandler(c *gin.Context) {
	var req struct {
		Messages    []chatbot.Message `json:"messages"`
		Temperature *float32          `json:"temperature"`
		MaxTokens   *int              `json:"max_tokens"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one message is required"})
		return
	}
	if chatClient == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "OPENAI_API_KEY is not configured"})
		return
	}
	if !chatLimiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, try again later"})
		return
	}

	temperature := float32(chatbot.DefaultTemperature)
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := chatbot.DefaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	answer, err := chatClient.Complete(c.Request.Context(), req.Messages, temperature, maxTokens)
	if err != nil {
		switch {
		case chatbot.IsRateLimitError(err):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "completion API quota exceeded"})
		case chatbot.IsAuthError(err):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "completion API authentication failed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "chat completion failed: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "response": answer})
}

func chatbotHealthHandler(c *gin.Context) {
	if chatClient == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":  "error",
			"message": "OPENAI_API_KEY is not configured",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "chatbot service is running",
		"model":     chatClient.Model(),
		"timestamp": time.Now().Format("2006-01-02 15:04:05"),
	})
}

func rateLimitStatusHandler(c *gin.Context) {
	used, remaining := chatLimiter.Status(c.ClientIP())
	c.JSON(http.StatusOK, gin.H{
		"client_ip":           c.ClientIP(),
		"requests_made":       used,
		"rate_limit":          chatLimiter.Limit(),
		"remaining":           remaining,
		"time_window_seconds": int(chatLimiter.Window().Seconds()),
	})
}

// predictHandler re-reads a stored upload, builds the last 7 observations per
// SKU and forwards them to the external model server. The predictions are also
// exported as CSV and XLSX into the download directory.
func predictHandler(c *gin.Context) {
	var req struct {
		StoredFilename string `json:"stored_filename" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stored := filepath.Base(req.StoredFilename)
	path := filepath.Join(uploadBaseDir(), stored)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "stored file not found"})
		return
	}

	enc := ingest.DetectEncoding(path, ingest.DefaultEncodings)
	table, err := ingest.ReadTable(path, enc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read stored file: " + err.Error()})
		return
	}
	outcome, err := ingest.ExtractSales(table)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to extract sales rows: " + err.Error()})
		return
	}
	if !outcome.Applied {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file lacks a recognizable sales schema (sale_date, sku, quantity)"})
		return
	}

	sequences := buildSequences(outcome.Records)
	if len(sequences) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no SKU has enough history (need at least 7 observations)"})
		return
	}

	resp, err := forecastClient.Predict(c.Request.Context(), &forecast.PredictRequest{
		Sequences: sequences,
		Horizon:   forecast.Horizon,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	rows := forecast.Flatten(resp)
	csvPath := filepath.Join(downloadBaseDir(), stored+"_prediction.csv")
	xlsxPath := filepath.Join(downloadBaseDir(), stored+"_prediction.xlsx")
	if err := forecast.WriteCSV(csvPath, rows); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write prediction csv: " + err.Error()})
		return
	}
	if err := forecast.WriteXLSX(xlsxPath, rows); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write prediction xlsx: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions": resp.Predictions,
		"csv_path":    csvPath,
		"xlsx_path":   xlsxPath,
	})
}

// buildSequences groups records by SKU, orders each group by date and keeps
// the trailing observation window. SKUs with too little history are dropped.
func buildSequences(records []ingest.SalesRecord) map[string][]forecast.Observation {
	bySKU := map[string][]ingest.SalesRecord{}
	for _, rec := range records {
		bySKU[rec.SKU] = append(bySKU[rec.SKU], rec)
	}
	sequences := map[string][]forecast.Observation{}
	for sku, recs := range bySKU {
		if len(recs) < forecast.SeqLength {
			continue
		}
		sort.Slice(recs, func(i, j int) bool { return recs[i].SaleDate.Before(recs[j].SaleDate) })
		window := recs[len(recs)-forecast.SeqLength:]
		obs := make([]forecast.Observation, 0, len(window))
		for _, rec := range window {
			obs = append(obs, forecast.Observation{
				Date:     rec.SaleDate.Format("2006-01-02"),
				Quantity: rec.Quantity,
				Revenue:  rec.Revenue,
			})
		}
		sequences[sku] = obs
	}
	return sequences
}

func healthHandler(c *gin.Context) {
	dbStatus := "connected"
	var one int
	if db == nil {
		dbStatus = "error: not initialized"
	} else if err := db.Raw("SELECT 1").Scan(&one).Error; err != nil {
		dbStatus = "error: " + err.Error()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"message":  "SmartStock API is running",
		"version":  "1.0.0",
		"database": dbStatus,
	})
}

// listFilesHandler returns the names of files currently in the upload dir.
func listFilesHandler(c *gin.Context) {
	entries, err := os.ReadDir(uploadBaseDir())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload directory"})
		return
	}
	files := []string{}
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
