package miroapi

import (
	"fmt"
	"strings"
	"time"

	"miro-api/internal/workbook"
)

// Template is a template as stored by the backend.
type Template struct {
	ID string `json:"_id"`
	workbook.Template
}

type Period struct {
	Name              string    `json:"name"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	ProducerStartDate time.Time `json:"producer_start_date"`
	ProducerEndDate   time.Time `json:"producer_end_date"`
}

// PublishedTemplate is a template bound to a period and a set of producers.
type PublishedTemplate struct {
	ID       string     `json:"_id"`
	Name     string     `json:"name"`
	Template Template   `json:"template"`
	Period   Period     `json:"period"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

type SearchResult struct {
	Templates  []map[string]any `json:"templates"`
	TotalPages int              `json:"totalPages"`
}

type LoadRequest struct {
	Email    string            `json:"email"`
	PubTemID string            `json:"pubTem_id"`
	Data     []workbook.Record `json:"data"`
	Edit     bool              `json:"edit,omitempty"`
}

type loadResponse struct {
	RecordsLoaded int `json:"recordsLoaded"`
}

// RowError is one rejected cell, identified by its 1-based data row.
type RowError struct {
	Register int    `json:"register"`
	Message  string `json:"message"`
}

type ColumnError struct {
	Column string     `json:"column"`
	Errors []RowError `json:"errors"`
}

// ValidationError carries a 400 rejection of loaded data exactly as sent.
type ValidationError struct {
	Details []ColumnError `json:"details"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("backend rejected data in columns: %s", strings.Join(e.Columns(), ", "))
}

// Columns returns the rejected column names in order.
func (e *ValidationError) Columns() []string {
	out := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		out = append(out, d.Column)
	}
	return out
}

// StatusError is any other non-2xx backend answer.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Message)
}
