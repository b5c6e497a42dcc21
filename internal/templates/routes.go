package templates

import (
	"github.com/gin-gonic/gin"

	"miro-api/internal/logs"
	"miro-api/internal/middlewares"
)

func RegisterRoutes(r *gin.Engine, templateService TemplateServicePort, logService logs.Logger, jwtSecret string) {
	templateController := &TemplateController{TemplateService: templateService, LogService: logService}

	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware(jwtSecret))
	{
		api.GET("/templates/search", templateController.Search)
		api.GET("/templates/:id/workbook",
			middlewares.RequireRole(middlewares.RoleAdministrador, middlewares.RoleResponsable),
			templateController.DownloadTemplate)

		api.GET("/published-templates/:id/workbook", templateController.DownloadPublished)
		api.POST("/published-templates/:id/upload",
			middlewares.RequireRole(middlewares.RoleProductor),
			templateController.Upload)
	}
}
