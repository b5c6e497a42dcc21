package uploaderrors

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"miro-api/internal/miroapi"
	"miro-api/internal/middlewares"
)

var testDBSeq uint64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	id := atomic.AddUint64(&testDBSeq, 1)
	dsn := fmt.Sprintf("file:miro_reports_%d?mode=memory&cache=shared", id)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&UploadErrorReport{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func sampleDetails() []miroapi.ColumnError {
	return []miroapi.ColumnError{
		{Column: "Edad", Errors: []miroapi.RowError{
			{Register: 2, Message: "debe ser entero"},
			{Register: 5, Message: "debe ser mayor a 0"},
		}},
		{Column: "Activo", Errors: []miroapi.RowError{
			{Register: 3, Message: "valor no permitido"},
		}},
	}
}

func saveSample(t *testing.T, svc *ReportService) *UploadErrorReport {
	t.Helper()
	report, err := svc.Save(NewReport{
		Email:               " Ana@UNAL.edu.co ",
		PublishedTemplateID: "p1",
		TemplateName:        "Matrícula",
		FileName:            "matricula.xlsx",
		Details:             sampleDetails(),
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return report
}

func TestSave_PersistsColumnsAndDetails(t *testing.T) {
	db := newTestDB(t)
	svc := &ReportService{DB: db}

	report := saveSample(t, svc)
	if report.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}
	if report.Email != "ana@unal.edu.co" {
		t.Fatalf("expected normalized email, got %q", report.Email)
	}

	var stored UploadErrorReport
	if err := db.First(&stored, "id = ?", report.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(stored.Columns) != 2 || stored.Columns[0] != "Edad" || stored.Columns[1] != "Activo" {
		t.Fatalf("unexpected columns %#v", stored.Columns)
	}

	rows, err := stored.Rows()
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	want := []ErrorRow{
		{Column: "Edad", Register: 2, Message: "debe ser entero"},
		{Column: "Edad", Register: 5, Message: "debe ser mayor a 0"},
		{Column: "Activo", Register: 3, Message: "valor no permitido"},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows=%#v", rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("row %d = %#v want %#v", i, rows[i], want[i])
		}
	}
}

func TestGet_OwnerAdminAndOthers(t *testing.T) {
	svc := &ReportService{DB: newTestDB(t)}
	report := saveSample(t, svc)
	id := report.ID.String()

	if _, err := svc.Get(id, "ANA@unal.edu.co", middlewares.RoleProductor); err != nil {
		t.Fatalf("owner should read report: %v", err)
	}
	if _, err := svc.Get(id, "admin@unal.edu.co", middlewares.RoleAdministrador); err != nil {
		t.Fatalf("admin should read report: %v", err)
	}
	if _, err := svc.Get(id, "otro@unal.edu.co", middlewares.RoleProductor); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := &ReportService{DB: newTestDB(t)}

	if _, err := svc.Get("not-a-uuid", "a@b.co", ""); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound for bad id, got %v", err)
	}
	if _, err := svc.Get(uuid.NewString(), "a@b.co", ""); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound for missing id, got %v", err)
	}
}

func TestExport_WritesOneRowPerError(t *testing.T) {
	svc := &ReportService{DB: newTestDB(t)}
	report := saveSample(t, svc)

	f, err := svc.Export(report)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	buf, err := f.WriteToBuffer()
	f.Close()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	out, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer out.Close()

	if sheets := out.GetSheetList(); len(sheets) != 1 || sheets[0] != exportSheet {
		t.Fatalf("unexpected sheets %v", sheets)
	}
	rows, err := out.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d: %v", len(rows), rows)
	}
	if rows[0][0] != "Columna" || rows[0][1] != "Registro" || rows[0][2] != "Mensaje" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[2][0] != "Edad" || rows[2][1] != "5" || rows[2][2] != "debe ser mayor a 0" {
		t.Fatalf("unexpected row %v", rows[2])
	}
}

func TestExport_EmptyDetails(t *testing.T) {
	svc := &ReportService{}
	f, err := svc.Export(&UploadErrorReport{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected only the header, got %v", rows)
	}
}

func TestRows_CorruptDetails(t *testing.T) {
	r := &UploadErrorReport{Details: []byte(`{not json`)}
	if _, err := r.Rows(); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestExportName(t *testing.T) {
	if got := ExportName(&UploadErrorReport{TemplateName: "Matrícula"}); got != "errores_Matrícula.xlsx" {
		t.Fatalf("ExportName=%q", got)
	}
	if got := ExportName(&UploadErrorReport{}); got != "errores_carga.xlsx" {
		t.Fatalf("ExportName=%q", got)
	}
}
