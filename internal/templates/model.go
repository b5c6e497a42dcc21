package templates

import (
	"errors"

	"miro-api/internal/miroapi"
	"miro-api/internal/uploaderrors"
)

// MaxUploadBytes caps the size of an uploaded workbook.
const MaxUploadBytes = 30 << 20

var ErrSuperseded = errors.New("superseded by a newer search")

// Download is a generated workbook ready to be served as an attachment.
type Download struct {
	FileName     string
	TemplateName string
	Data         []byte
	// DaysRemaining is set for published templates; -1 means no end date.
	DaysRemaining *int
}

type UploadInput struct {
	PubTemID string
	Email    string
	FileName string
	Data     []byte
	Edit     bool
}

type UploadResult struct {
	RecordsLoaded int    `json:"recordsLoaded"`
	TemplateName  string `json:"template_name"`
	ArchivedAt    string `json:"archived_at,omitempty"`
	DaysRemaining int    `json:"days_remaining"`
}

// RejectedError is a backend validation rejection that has been stored as a
// report the producer can reopen.
type RejectedError struct {
	Report     *uploaderrors.UploadErrorReport
	Validation *miroapi.ValidationError
}

func (e *RejectedError) Error() string { return e.Validation.Error() }

func (e *RejectedError) Unwrap() error { return e.Validation }

type SearchInput struct {
	Email string
	Query string
	Page  int
	Limit int
	Sort  string
	Seq   uint64
}

type SearchOutput struct {
	Templates  []map[string]any `json:"templates"`
	TotalPages int              `json:"totalPages"`
	Seq        uint64           `json:"seq"`
}
