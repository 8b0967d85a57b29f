package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"smartstock/models"
)

// DefaultMaxFileSize caps uploads at 100 MiB.
const DefaultMaxFileSize = 100 << 20

const salesInsertBatch = 500

// Pipeline runs the end-to-end ingestion of one upload: validate, record a
// job row, persist the raw file, profile it, and conditionally extract
// product/sales rows. The clock and encoding candidates are injectable so
// tests can pin them.
type Pipeline struct {
	DB          *gorm.DB
	Dir         string
	MaxFileSize int64
	Encodings   []string
	Now         func() time.Time
}

func NewPipeline(db *gorm.DB, dir string) *Pipeline {
	return &Pipeline{
		DB:          db,
		Dir:         dir,
		MaxFileSize: DefaultMaxFileSize,
		Encodings:   DefaultEncodings,
		Now:         time.Now,
	}
}

// Result reports what one ingestion did. ExtractionApplied distinguishes a
// recognized sales schema from a profile-only ingestion.
type Result struct {
	Job               *models.UploadJob
	Profile           *Profile
	ExtractionApplied bool
	SalesInserted     int
}

// Process ingests one upload. Validation failures (filename, extension, size)
// reject before any persistence: no job row, no file on disk. After the job
// row exists, every failure is recorded on it (status=failed, error message
// captured verbatim) before the error is returned. The physical file is left
// in place on failure for forensic inspection.
func (p *Pipeline) Process(data []byte, originalName string, tenantID uint, userID *uint) (*Result, error) {
	if strings.TrimSpace(originalName) == "" {
		return nil, ErrMissingFilename
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	if !AllowedExtensions[ext] {
		return nil, fmt.Errorf("%w: %s (allowed: csv, xlsx, xls)", ErrUnsupportedFormat, ext)
	}
	if int64(len(data)) > p.maxFileSize() {
		return nil, fmt.Errorf("%w (%d bytes, max %d)", ErrPayloadTooLarge, len(data), p.maxFileSize())
	}

	stored := StoredName(originalName, p.now()())
	job := &models.UploadJob{
		TenantID:         tenantID,
		UserID:           userID,
		OriginalFilename: originalName,
		StoredFilename:   stored,
		FileType:         strings.TrimPrefix(ext, "."),
		Status:           models.JobPending,
	}
	// The pending row is committed before the file write so a crash from here
	// on always leaves an inspectable record.
	if err := p.DB.Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create upload job: %w", err)
	}

	job.Status = models.JobProcessing
	if err := p.DB.Save(job).Error; err != nil {
		return nil, p.fail(job, err)
	}

	path := filepath.Join(p.Dir, stored)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, p.fail(job, err)
	}
	job.FileSize = int64(len(data))

	job.Encoding = DetectEncoding(path, p.Encodings)
	table, err := ReadTable(path, job.Encoding)
	if err != nil {
		return nil, p.fail(job, err)
	}
	profile := BuildProfile(table)

	outcome, err := ExtractSales(table)
	if err != nil {
		return nil, p.fail(job, err)
	}
	inserted := 0
	if outcome.Applied {
		inserted, err = p.insertSales(tenantID, outcome.Records)
		if err != nil {
			return nil, p.fail(job, err)
		}
	}

	job.TotalRows = &profile.TotalRows
	job.TotalColumns = &profile.TotalColumns
	job.NullCount = &profile.NullCount
	job.DuplicateCount = &profile.DuplicateCount
	raw, err := json.Marshal(profile)
	if err != nil {
		return nil, p.fail(job, err)
	}
	job.ProfileData = string(raw)
	job.Status = models.JobCompleted
	if err := p.DB.Save(job).Error; err != nil {
		return nil, p.fail(job, err)
	}

	return &Result{
		Job:               job,
		Profile:           profile,
		ExtractionApplied: outcome.Applied,
		SalesInserted:     inserted,
	}, nil
}

// fail durably records the failure on the job row before handing the error
// back. The job row is the error log; nothing is dropped silently.
func (p *Pipeline) fail(job *models.UploadJob, cause error) error {
	job.Status = models.JobFailed
	job.ErrorMessage = cause.Error()
	if err := p.DB.Save(job).Error; err != nil {
		return fmt.Errorf("%v (additionally failed to record job failure: %v)", cause, err)
	}
	return cause
}

// insertSales find-or-creates a Product per distinct SKU and bulk-inserts the
// sales rows. A duplicate-key failure on product creation means a concurrent
// upload won the race; the row is re-fetched instead of failing the job.
func (p *Pipeline) insertSales(tenantID uint, records []SalesRecord) (int, error) {
	skuToID := make(map[string]uint)
	for _, rec := range records {
		if _, ok := skuToID[rec.SKU]; ok {
			continue
		}
		prod, err := p.findOrCreateProduct(tenantID, rec.SKU)
		if err != nil {
			return 0, err
		}
		skuToID[rec.SKU] = prod.ID
	}

	rows := make([]models.Sales, 0, len(records))
	for _, rec := range records {
		rows = append(rows, models.Sales{
			TenantID:  tenantID,
			ProductID: skuToID[rec.SKU],
			SaleDate:  rec.SaleDate,
			Quantity:  rec.Quantity,
			Revenue:   rec.Revenue,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := p.DB.CreateInBatches(rows, salesInsertBatch).Error; err != nil {
		return 0, fmt.Errorf("failed to insert sales rows: %w", err)
	}
	return len(rows), nil
}

func (p *Pipeline) findOrCreateProduct(tenantID uint, sku string) (*models.Product, error) {
	var prod models.Product
	err := p.DB.Where("tenant_id = ? AND sku = ?", tenantID, sku).First(&prod).Error
	if err == nil {
		return &prod, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	prod = models.Product{TenantID: tenantID, SKU: sku, Name: sku}
	if err := p.DB.Create(&prod).Error; err != nil {
		if isUniqueViolation(err) {
			// Concurrent upload created it between our check and insert.
			var existing models.Product
			if err2 := p.DB.Where("tenant_id = ? AND sku = ?", tenantID, sku).First(&existing).Error; err2 != nil {
				return nil, err2
			}
			return &existing, nil
		}
		return nil, err
	}
	return &prod, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") ||
		strings.Contains(s, "unique constraint") ||
		strings.Contains(s, "UNIQUE constraint") ||
		strings.Contains(s, "already exists")
}

// GetJob fetches one job scoped to a tenant. Cross-tenant ids come back as
// ErrJobNotFound, never as another tenant's data.
func (p *Pipeline) GetJob(id, tenantID uint) (*models.UploadJob, error) {
	var job models.UploadJob
	err := p.DB.Where("id = ? AND tenant_id = ?", id, tenantID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns a tenant's jobs newest-first. The limit is clamped to 100.
func (p *Pipeline) ListJobs(tenantID uint, skip, limit int) ([]models.UploadJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	var jobs []models.UploadJob
	err := p.DB.Where("tenant_id = ?", tenantID).
		Order("created_at desc").
		Offset(skip).Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// DeleteJob removes the physical file (ignored if already absent) and then the
// job row. If the row delete fails after the file is gone, the file is not
// restorable; that trade-off is accepted.
func (p *Pipeline) DeleteJob(storedFilename string, tenantID uint) error {
	var job models.UploadJob
	err := p.DB.Where("stored_filename = ? AND tenant_id = ?", storedFilename, tenantID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrJobNotFound
	}
	if err != nil {
		return err
	}

	path := filepath.Join(p.Dir, storedFilename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stored file: %w", err)
	}
	return p.DB.Delete(&job).Error
}

func (p *Pipeline) maxFileSize() int64 {
	if p.MaxFileSize > 0 {
		return p.MaxFileSize
	}
	return DefaultMaxFileSize
}

func (p *Pipeline) now() func() time.Time {
	if p.Now != nil {
		return p.Now
	}
	return time.Now
}
