package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"miro-api/internal/archive"
	"miro-api/internal/listsort"
	"miro-api/internal/logger"
	"miro-api/internal/miroapi"
	"miro-api/internal/period"
	"miro-api/internal/supersede"
	"miro-api/internal/uploaderrors"
	"miro-api/internal/workbook"
)

const defaultSearchLimit = 10

type TemplateService struct {
	Backend  BackendPort
	Reports  ReportSaver
	Archive  archive.Store
	Locale   workbook.DateLocale
	Tracker  *supersede.Tracker
	Builder  *workbook.Builder
	Ingestor *workbook.Ingestor
	Now      func() time.Time
}

func NewTemplateService(backend BackendPort, reports ReportSaver, store archive.Store, locale workbook.DateLocale) *TemplateService {
	return &TemplateService{
		Backend:  backend,
		Reports:  reports,
		Archive:  store,
		Locale:   locale,
		Tracker:  supersede.NewTracker(),
		Builder:  workbook.NewBuilder(locale),
		Ingestor: workbook.NewIngestor(locale),
		Now:      time.Now,
	}
}

func (ts *TemplateService) now() time.Time {
	if ts.Now == nil {
		return time.Now()
	}
	return ts.Now()
}

func (ts *TemplateService) validators(ctx context.Context, tpl workbook.Template) ([]workbook.Validator, error) {
	if len(tpl.Validators) == 0 {
		return nil, nil
	}
	vs, err := ts.Backend.GetValidators(ctx, tpl.Validators)
	if err != nil {
		return nil, err
	}
	for _, v := range vs {
		if err := v.Check(); err != nil {
			logger.Named("templates").Warn("malformed validator", zap.String("validator", v.Name), zap.Error(err))
		}
	}
	return vs, nil
}

func (ts *TemplateService) render(tpl workbook.Template, validators []workbook.Validator, data workbook.RowData) (*Download, error) {
	var buf bytes.Buffer
	err := ts.Builder.WriteTo(&buf, workbook.BuildInput{
		Template:     tpl.WithValidatorTypes(validators),
		Validators:   validators,
		PreviousData: data,
	})
	if err != nil {
		return nil, err
	}
	return &Download{FileName: workbook.FileName(tpl), TemplateName: tpl.Name, Data: buf.Bytes()}, nil
}

// TemplateWorkbook renders an unpublished template for review.
func (ts *TemplateService) TemplateWorkbook(ctx context.Context, id string) (*Download, error) {
	tpl, err := ts.Backend.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	validators, err := ts.validators(ctx, tpl.Template)
	if err != nil {
		return nil, err
	}
	return ts.render(tpl.Template, validators, nil)
}

// PublishedWorkbook renders a published template, pre-filled with what email
// already loaded when withData is set.
func (ts *TemplateService) PublishedWorkbook(ctx context.Context, id, email string, withData bool) (*Download, error) {
	pt, err := ts.Backend.GetPublishedTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	validators, err := ts.validators(ctx, pt.Template.Template)
	if err != nil {
		return nil, err
	}

	var data workbook.RowData
	if withData {
		if data, err = ts.Backend.GetLoadedData(ctx, id, email); err != nil && !errors.Is(err, miroapi.ErrNotFound) {
			return nil, err
		}
	}

	tpl := pt.Template.Template
	if tpl.Name == "" {
		tpl.Name = pt.Name
	}
	d, err := ts.render(tpl, validators, data)
	if err != nil {
		return nil, err
	}
	days := ts.Window(pt).DaysRemaining(ts.now())
	d.DaysRemaining = &days
	return d, nil
}

// Window is the producer upload window of pt in the service locale.
func (ts *TemplateService) Window(pt *miroapi.PublishedTemplate) period.Window {
	start, end := pt.Period.ProducerStartDate, pt.Period.ProducerEndDate
	if start.IsZero() {
		start = pt.Period.StartDate
	}
	if end.IsZero() {
		end = pt.Period.EndDate
	}
	return period.NewWindow(start, end, pt.Deadline, ts.Locale.Location)
}

// Upload checks the window, ingests the workbook against the current field
// list, archives the source file and submits the records. A backend
// validation rejection is stored and returned as *RejectedError.
func (ts *TemplateService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	pt, err := ts.Backend.GetPublishedTemplate(ctx, in.PubTemID)
	if err != nil {
		return nil, err
	}
	window := ts.Window(pt)
	if err := window.Check(ts.now()); err != nil {
		return nil, err
	}

	tpl := pt.Template.Template
	if hasValidatedFields(tpl) {
		validators, err := ts.validators(ctx, tpl)
		if err != nil {
			return nil, err
		}
		tpl = tpl.WithValidatorTypes(validators)
	}

	records, err := ts.Ingestor.Ingest(bytes.NewReader(in.Data), tpl.FieldTypes())
	if err != nil {
		return nil, err
	}

	result := &UploadResult{TemplateName: pt.Name, DaysRemaining: window.DaysRemaining(ts.now())}
	if ts.Archive != nil {
		loc, err := ts.Archive.Save(ctx, archive.Upload{
			PubTemID: in.PubTemID,
			Email:    in.Email,
			FileName: in.FileName,
			Data:     in.Data,
			At:       ts.now(),
		})
		if err != nil {
			logger.Named("templates").Warn("archive upload failed",
				zap.String("published_template", in.PubTemID), zap.Error(err))
		}
		result.ArchivedAt = loc
	}

	n, err := ts.Backend.LoadData(ctx, miroapi.LoadRequest{
		Email:    in.Email,
		PubTemID: in.PubTemID,
		Data:     records,
		Edit:     in.Edit,
	})
	if err != nil {
		var ve *miroapi.ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		report, saveErr := ts.Reports.Save(uploaderrors.NewReport{
			Email:               in.Email,
			PublishedTemplateID: in.PubTemID,
			TemplateName:        pt.Name,
			FileName:            in.FileName,
			Details:             ve.Details,
		})
		if saveErr != nil {
			return nil, fmt.Errorf("store error report: %w", saveErr)
		}
		return nil, &RejectedError{Report: report, Validation: ve}
	}

	result.RecordsLoaded = n
	return result, nil
}

func hasValidatedFields(t workbook.Template) bool {
	for _, f := range t.Fields {
		if f.ValidateWith != "" {
			return true
		}
	}
	return false
}

// Search proxies a template search. Only the newest search of a caller is
// answered; older ones in flight end with ErrSuperseded.
func (ts *TemplateService) Search(ctx context.Context, in SearchInput) (*SearchOutput, error) {
	var ticket supersede.Ticket
	if in.Seq > 0 {
		ticket = ts.Tracker.Observe(in.Email, in.Seq)
	} else {
		ticket = ts.Tracker.Begin(in.Email)
	}
	defer ticket.Done()
	if !ticket.Current() {
		return nil, ErrSuperseded
	}

	if in.Page <= 0 {
		in.Page = 1
	}
	if in.Limit <= 0 {
		in.Limit = defaultSearchLimit
	}

	res, err := ts.Backend.SearchTemplates(ctx, in.Query, in.Page, in.Limit)
	if err != nil {
		return nil, err
	}
	if !ticket.Current() {
		return nil, ErrSuperseded
	}

	items := res.Templates
	if in.Sort != "" {
		sorter := listsort.NewSpanish[map[string]any]()
		sorter.Set(listsort.ParseParam(in.Sort))
		items = sorter.Apply(items)
	}
	if items == nil {
		items = []map[string]any{}
	}

	return &SearchOutput{Templates: items, TotalPages: res.TotalPages, Seq: ticket.Seq()}, nil
}
