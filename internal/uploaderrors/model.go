package uploaderrors

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"

	"miro-api/internal/miroapi"
)

// UploadErrorReport keeps a backend rejection of an upload so the producer
// can reopen it after the upload screen is gone.
type UploadErrorReport struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email               string         `gorm:"size:255;index;not null" json:"email"`
	PublishedTemplateID string         `gorm:"size:64;index" json:"published_template_id"`
	TemplateName        string         `gorm:"size:255" json:"template_name"`
	FileName            string         `gorm:"size:512" json:"file_name"`
	Columns             pq.StringArray `gorm:"type:text[]" json:"columns"`
	Details             datatypes.JSON `json:"details"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (UploadErrorReport) TableName() string {
	return "upload_error_reports"
}

// ErrorRow is one flattened {column, register, message} entry.
type ErrorRow struct {
	Column   string `json:"column"`
	Register int    `json:"register"`
	Message  string `json:"message"`
}

type NewReport struct {
	Email               string
	PublishedTemplateID string
	TemplateName        string
	FileName            string
	Details             []miroapi.ColumnError
}
