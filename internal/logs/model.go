package logs

import (
	"time"

	"github.com/lib/pq"
)

const (
	ActionDownloadTemplate          = "DOWNLOAD_TEMPLATE"
	ActionDownloadPublishedTemplate = "DOWNLOAD_PUBLISHED_TEMPLATE"
	ActionUploadData                = "UPLOAD_DATA"
	ActionUploadRejected            = "UPLOAD_REJECTED"
	ActionDownloadErrorReport       = "DOWNLOAD_ERROR_REPORT"
)

type SystemLog struct {
	ID                  uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Level               string         `gorm:"size:20;not null" json:"level"`
	Service             string         `gorm:"size:100;not null" json:"service"`
	UserEmail           string         `gorm:"size:255;index" json:"user_email"`
	Action              string         `gorm:"size:255;not null" json:"action"`
	Message             string         `gorm:"type:text;not null" json:"message"`
	Filename            *string        `gorm:"size:512" json:"filename,omitempty"`
	PublishedTemplateID *string        `gorm:"size:64;index" json:"published_template_id,omitempty"`
	Columns             pq.StringArray `gorm:"type:text[];column:columns" json:"columns"`
	Metadata            *string        `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

type LogFilterInput struct {
	UserEmail           *string  `json:"user_email"`
	Level               *string  `json:"level"`
	Service             *string  `json:"service"`
	Action              *string  `json:"action"`
	Filename            *string  `json:"filename"`
	PublishedTemplateID *string  `json:"published_template_id"`
	Columns             []string `json:"columns"`

	StartDate *string `json:"start_date"` // "YYYY-MM-DD"
	EndDate   *string `json:"end_date"`   // "YYYY-MM-DD"

	Search   *string `json:"search"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

type AggItem struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type LogAggregates struct {
	ByColumn   []AggItem `json:"by_column"`
	ByFilename []AggItem `json:"by_filename"`
	ByUser     []AggItem `json:"by_user"`
}

func (SystemLog) TableName() string {
	return "logs"
}
