package uploaderrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"miro-api/internal/middlewares"
	"miro-api/internal/workbook"
)

var (
	ErrReportNotFound = errors.New("error report not found")
	ErrForbidden      = errors.New("error report belongs to another user")
)

const exportSheet = "Errores"

type ReportService struct {
	DB *gorm.DB
}

func (s *ReportService) Save(in NewReport) (*UploadErrorReport, error) {
	details, err := json.Marshal(in.Details)
	if err != nil {
		return nil, fmt.Errorf("encode details: %w", err)
	}

	columns := make([]string, 0, len(in.Details))
	for _, d := range in.Details {
		columns = append(columns, d.Column)
	}

	report := UploadErrorReport{
		ID:                  uuid.New(),
		Email:               strings.ToLower(strings.TrimSpace(in.Email)),
		PublishedTemplateID: in.PublishedTemplateID,
		TemplateName:        in.TemplateName,
		FileName:            in.FileName,
		Columns:             pq.StringArray(columns),
		Details:             details,
	}
	if err := s.DB.Create(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// Get loads a report for email. Administrators may read any report.
func (s *ReportService) Get(id, email, role string) (*UploadErrorReport, error) {
	rid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrReportNotFound
	}

	var report UploadErrorReport
	if err := s.DB.Where("id = ?", rid).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	if !strings.EqualFold(role, middlewares.RoleAdministrador) &&
		!strings.EqualFold(report.Email, strings.TrimSpace(email)) {
		return nil, ErrForbidden
	}
	return &report, nil
}

// Rows flattens the stored details in the order the backend sent them.
func (r *UploadErrorReport) Rows() ([]ErrorRow, error) {
	var details []struct {
		Column string `json:"column"`
		Errors []struct {
			Register int    `json:"register"`
			Message  string `json:"message"`
		} `json:"errors"`
	}
	if len(r.Details) > 0 {
		if err := json.Unmarshal(r.Details, &details); err != nil {
			return nil, fmt.Errorf("decode details: %w", err)
		}
	}

	var out []ErrorRow
	for _, d := range details {
		for _, e := range d.Errors {
			out = append(out, ErrorRow{Column: d.Column, Register: e.Register, Message: e.Message})
		}
	}
	return out, nil
}

// Export renders the report as a single-sheet workbook with the same header
// look as template workbooks.
func (s *ReportService) Export(report *UploadErrorReport) (*excelize.File, error) {
	rows, err := report.Rows()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	fail := func(err error) (*excelize.File, error) {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fail(err)
	}
	header, err := workbook.HeaderStyle(f)
	if err != nil {
		return fail(err)
	}
	bordered, err := workbook.BorderedStyle(f)
	if err != nil {
		return fail(err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &[]any{"Columna", "Registro", "Mensaje"}); err != nil {
		return fail(err)
	}
	if err := f.SetCellStyle(exportSheet, "A1", "C1", header); err != nil {
		return fail(err)
	}
	if err := f.SetColWidth(exportSheet, "A", "B", workbook.DefaultColumnWidth); err != nil {
		return fail(err)
	}
	if err := f.SetColWidth(exportSheet, "C", "C", 80); err != nil {
		return fail(err)
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &[]any{row.Column, row.Register, row.Message}); err != nil {
			return fail(err)
		}
	}
	if len(rows) > 0 {
		last, _ := excelize.CoordinatesToCellName(3, len(rows)+1)
		if err := f.SetCellStyle(exportSheet, "A2", last, bordered); err != nil {
			return fail(err)
		}
	}
	return f, nil
}

// ExportName is the download name of a report workbook.
func ExportName(report *UploadErrorReport) string {
	name := strings.TrimSpace(report.TemplateName)
	if name == "" {
		name = "carga"
	}
	return "errores_" + name + ".xlsx"
}
