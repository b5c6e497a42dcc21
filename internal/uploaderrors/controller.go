package uploaderrors

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"miro-api/internal/logger"
	"miro-api/internal/logs"
	"miro-api/internal/middlewares"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportController struct {
	ReportService ReportServicePort
	LogService    logs.Logger
}

func (rc *ReportController) load(c *gin.Context) (*UploadErrorReport, bool) {
	report, err := rc.ReportService.Get(c.Param("id"), c.GetString(middlewares.CtxEmail), c.GetString(middlewares.CtxRole))
	switch {
	case errors.Is(err, ErrReportNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return nil, false
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return report, true
}

// GET /api/upload-errors/:id
func (rc *ReportController) GetReport(c *gin.Context) {
	report, ok := rc.load(c)
	if !ok {
		return
	}

	rows, err := report.Rows()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report": report,
		"rows":   rows,
		"total":  len(rows),
	})
}

// GET /api/upload-errors/:id/download
func (rc *ReportController) DownloadReport(c *gin.Context) {
	report, ok := rc.load(c)
	if !ok {
		return
	}

	f, err := rc.ReportService.Export(report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	email := c.GetString(middlewares.CtxEmail)
	filename := ExportName(report)
	pubTemID := report.PublishedTemplateID
	if err := rc.LogService.Log(logs.SystemLog{
		Level:               "info",
		Service:             "uploaderrors",
		UserEmail:           email,
		Action:              logs.ActionDownloadErrorReport,
		Message:             fmt.Sprintf("Error report downloaded: %s", report.ID),
		Filename:            &filename,
		PublishedTemplateID: &pubTemID,
		Columns:             report.Columns,
	}, nil); err != nil {
		logger.Named("uploaderrors").Warn("audit log failed", zap.Error(err))
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
