package models

import "time"

// Upload job statuses. Transitions are strictly forward:
// pending -> processing -> completed | failed.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// UploadJob records one ingestion attempt. It is never deleted automatically;
// failed jobs stay queryable with their error message.
type UploadJob struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TenantID uint  `json:"tenant_id" gorm:"index;not null"`
	UserID   *uint `json:"user_id" gorm:"index"`

	OriginalFilename string `json:"original_filename" gorm:"size:255;not null"`
	StoredFilename   string `json:"stored_filename" gorm:"size:255;index;not null"`
	FileSize         int64  `json:"file_size"`
	FileType         string `json:"file_type" gorm:"size:50"`
	Encoding         string `json:"encoding" gorm:"size:20"`

	Status       string `json:"status" gorm:"size:50;default:pending;not null"`
	ErrorMessage string `json:"error_message" gorm:"type:text"`

	// Profile counts are nil until the job completes.
	TotalRows      *int   `json:"total_rows"`
	TotalColumns   *int   `json:"total_columns"`
	NullCount      *int   `json:"null_count"`
	DuplicateCount *int   `json:"duplicate_count"`
	ProfileData    string `json:"profile_data" gorm:"type:text"`
}
