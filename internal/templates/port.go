package templates

import (
	"context"

	"miro-api/internal/miroapi"
	"miro-api/internal/uploaderrors"
	"miro-api/internal/workbook"
)

// BackendPort is the subset of the MIRÓ backend the feature talks to.
type BackendPort interface {
	GetTemplate(ctx context.Context, id string) (*miroapi.Template, error)
	GetValidators(ctx context.Context, names []string) ([]workbook.Validator, error)
	GetPublishedTemplate(ctx context.Context, id string) (*miroapi.PublishedTemplate, error)
	GetLoadedData(ctx context.Context, pubTemID, email string) (workbook.RowData, error)
	LoadData(ctx context.Context, req miroapi.LoadRequest) (int, error)
	SearchTemplates(ctx context.Context, search string, page, limit int) (*miroapi.SearchResult, error)
}

type ReportSaver interface {
	Save(in uploaderrors.NewReport) (*uploaderrors.UploadErrorReport, error)
}

type TemplateServicePort interface {
	TemplateWorkbook(ctx context.Context, id string) (*Download, error)
	PublishedWorkbook(ctx context.Context, id, email string, withData bool) (*Download, error)
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)
	Search(ctx context.Context, in SearchInput) (*SearchOutput, error)
}
