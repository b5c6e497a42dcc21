package logs

import (
	"miro-api/internal/middlewares"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, ls LogServiceAPI, jwtSecret string) {
	lc := &LogController{LogService: ls}

	group := r.Group("/api/logs")
	group.Use(middlewares.AuthMiddleware(jwtSecret), middlewares.RequireRole(middlewares.RoleAdministrador))
	{
		group.POST("", lc.GetLogs)
	}
}
