package templates

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"miro-api/internal/logger"
	"miro-api/internal/logs"
	"miro-api/internal/middlewares"
	"miro-api/internal/miroapi"
	"miro-api/internal/period"
	"miro-api/internal/workbook"
)

const (
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	daysRemainingHeader = "X-Days-Remaining"
)

type TemplateController struct {
	TemplateService TemplateServicePort
	LogService      logs.Logger
}

func (tc *TemplateController) audit(entry logs.SystemLog, metadata interface{}) {
	entry.Service = "templates"
	if entry.Level == "" {
		entry.Level = "info"
	}
	if err := tc.LogService.Log(entry, metadata); err != nil {
		logger.Named("templates").Warn("audit log failed", zap.String("action", entry.Action), zap.Error(err))
	}
}

// backendError answers with the status that matches err.
func backendError(c *gin.Context, err error) {
	var se *miroapi.StatusError
	switch {
	case errors.Is(err, miroapi.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &se) && se.Code >= 400 && se.Code < 500:
		c.JSON(se.Code, gin.H{"error": se.Message})
	case errors.As(err, &se):
		c.JSON(http.StatusBadGateway, gin.H{"error": se.Message})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func sendWorkbook(c *gin.Context, d *Download) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.FileName}))
	c.Header("Cache-Control", "no-store")
	if d.DaysRemaining != nil {
		c.Header(daysRemainingHeader, strconv.Itoa(*d.DaysRemaining))
	}
	c.Data(http.StatusOK, xlsxContentType, d.Data)
}

// GET /api/templates/:id/workbook
func (tc *TemplateController) DownloadTemplate(c *gin.Context) {
	ctx := miroapi.WithBearer(c.Request.Context(), c.GetString(middlewares.CtxToken))

	d, err := tc.TemplateService.TemplateWorkbook(ctx, c.Param("id"))
	if err != nil {
		backendError(c, err)
		return
	}

	tc.audit(logs.SystemLog{
		UserEmail: c.GetString(middlewares.CtxEmail),
		Action:    logs.ActionDownloadTemplate,
		Message:   fmt.Sprintf("Template downloaded: %s", d.TemplateName),
		Filename:  &d.FileName,
	}, nil)
	sendWorkbook(c, d)
}

// GET /api/published-templates/:id/workbook?with_data=true
func (tc *TemplateController) DownloadPublished(c *gin.Context) {
	ctx := miroapi.WithBearer(c.Request.Context(), c.GetString(middlewares.CtxToken))
	id := c.Param("id")
	email := c.GetString(middlewares.CtxEmail)
	withData, _ := strconv.ParseBool(c.DefaultQuery("with_data", "false"))

	d, err := tc.TemplateService.PublishedWorkbook(ctx, id, email, withData)
	if err != nil {
		backendError(c, err)
		return
	}

	tc.audit(logs.SystemLog{
		UserEmail:           email,
		Action:              logs.ActionDownloadPublishedTemplate,
		Message:             fmt.Sprintf("Published template downloaded: %s", d.TemplateName),
		Filename:            &d.FileName,
		PublishedTemplateID: &id,
	}, gin.H{"with_data": withData})
	sendWorkbook(c, d)
}

func allowedUpload(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xls":
		return true
	}
	return false
}

// POST /api/published-templates/:id/upload
func (tc *TemplateController) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 30 MB"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fh.Size > MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 30 MB"})
		return
	}
	if !allowedUpload(fh.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .xlsx or .xls files are accepted"})
		return
	}

	src, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	data, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}

	id := c.Param("id")
	email := c.GetString(middlewares.CtxEmail)
	edit, _ := strconv.ParseBool(c.DefaultPostForm("edit", "false"))
	filename := filepath.Base(fh.Filename)

	ctx := miroapi.WithBearer(c.Request.Context(), c.GetString(middlewares.CtxToken))
	res, err := tc.TemplateService.Upload(ctx, UploadInput{
		PubTemID: id,
		Email:    email,
		FileName: filename,
		Data:     data,
		Edit:     edit,
	})

	var rejected *RejectedError
	switch {
	case err == nil:
	case errors.As(err, &rejected):
		reportID := rejected.Report.ID.String()
		tc.audit(logs.SystemLog{
			Level:               "warn",
			UserEmail:           email,
			Action:              logs.ActionUploadRejected,
			Message:             rejected.Error(),
			Filename:            &filename,
			PublishedTemplateID: &id,
			Columns:             rejected.Validation.Columns(),
		}, gin.H{"report_id": reportID})
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "the data was rejected",
			"details":   rejected.Validation.Details,
			"report_id": reportID,
		})
		return
	case errors.Is(err, period.ErrNotOpen), errors.Is(err, period.ErrClosed):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case errors.Is(err, workbook.ErrUnreadableWorkbook), errors.Is(err, workbook.ErrEmptyWorkbook):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		backendError(c, err)
		return
	}

	tc.audit(logs.SystemLog{
		UserEmail:           email,
		Action:              logs.ActionUploadData,
		Message:             fmt.Sprintf("Data loaded: %d records", res.RecordsLoaded),
		Filename:            &filename,
		PublishedTemplateID: &id,
	}, gin.H{"records": res.RecordsLoaded, "edit": edit, "archive": res.ArchivedAt})

	c.JSON(http.StatusOK, res)
}

// GET /api/templates/search?q=&page=&limit=&sort=&seq=
func (tc *TemplateController) Search(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	seq, err := strconv.ParseUint(c.DefaultQuery("seq", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seq"})
		return
	}

	ctx := miroapi.WithBearer(c.Request.Context(), c.GetString(middlewares.CtxToken))
	out, err := tc.TemplateService.Search(ctx, SearchInput{
		Email: c.GetString(middlewares.CtxEmail),
		Query: strings.TrimSpace(c.Query("q")),
		Page:  page,
		Limit: limit,
		Sort:  c.Query("sort"),
		Seq:   seq,
	})
	if errors.Is(err, ErrSuperseded) {
		c.JSON(http.StatusConflict, gin.H{"error": "superseded"})
		return
	}
	if err != nil {
		backendError(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}
