package uploaderrors

import (
	"github.com/gin-gonic/gin"

	"miro-api/internal/logs"
	"miro-api/internal/middlewares"
)

func RegisterRoutes(r *gin.Engine, reportService ReportServicePort, logService logs.Logger, jwtSecret string) {
	reportController := &ReportController{ReportService: reportService, LogService: logService}

	group := r.Group("/api/upload-errors")
	group.Use(middlewares.AuthMiddleware(jwtSecret))
	{
		group.GET("/:id", reportController.GetReport)
		group.GET("/:id/download", reportController.DownloadReport)
	}
}
