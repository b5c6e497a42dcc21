package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"miro-api/config"
	"miro-api/internal/archive"
	"miro-api/internal/logger"
	"miro-api/internal/logs"
	"miro-api/internal/miroapi"
	"miro-api/internal/templates"
	"miro-api/internal/uploaderrors"
)

func openDB(cfg config.Config) (*gorm.DB, error) {
	if cfg.DBDriver == "sqlite" {
		return gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{})
	}
	return gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{})
}

func main() {
	cfg := config.LoadConfig()

	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.JWTSecret == "" || cfg.MiroAPIURL == "" {
		logger.Fatal("JWT_SECRET and MIRO_API_URL are required")
	}

	db, err := openDB(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}

	if err := db.AutoMigrate(&logs.SystemLog{}, &uploaderrors.UploadErrorReport{}); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	backend := miroapi.New(cfg.MiroAPIURL,
		miroapi.WithClientCredentials(cfg.MiroAPIClientID, cfg.MiroAPIClientSecret, cfg.MiroAPITokenURL))

	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Days-Remaining"},
		AllowCredentials: true,
	}))

	dateLocale := cfg.DateLocale()
	logService := &logs.LogService{DB: db, Location: dateLocale.Location}
	logs.RegisterRoutes(r, logService, cfg.JWTSecret)

	reportService := &uploaderrors.ReportService{DB: db}
	uploaderrors.RegisterRoutes(r, reportService, logService, cfg.JWTSecret)

	templateService := templates.NewTemplateService(backend, reportService, archive.New(cfg.ArchiveBucket), dateLocale)
	templates.RegisterRoutes(r, templateService, logService, cfg.JWTSecret)

	// --- Cloud Run expects plain HTTP, on $PORT, bind to 0.0.0.0 ---
	port := cfg.Port
	logger.Info("starting server", zap.String("addr", "0.0.0.0:"+port))
	if err := r.Run("0.0.0.0:" + port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
