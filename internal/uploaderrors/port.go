package uploaderrors

import "github.com/xuri/excelize/v2"

type ReportServicePort interface {
	Save(in NewReport) (*UploadErrorReport, error)
	Get(id, email, role string) (*UploadErrorReport, error)
	Export(report *UploadErrorReport) (*excelize.File, error)
}
