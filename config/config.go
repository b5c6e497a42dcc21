package config

import (
	"os"
	"strings"
	"time"

	"miro-api/internal/util"
	"miro-api/internal/workbook"
)

type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	JWTSecret string

	MiroAPIURL          string
	MiroAPIClientID     string
	MiroAPIClientSecret string
	MiroAPITokenURL     string

	ArchiveBucket  string
	AllowedOrigins []string

	LogLevel  string
	LogFormat string

	DateLayout string
	Timezone   string

	Port string
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func LoadConfig() Config {
	return Config{
		DBDriver:   getenv("DB_DRIVER", "postgres"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		SQLitePath: getenv("SQLITE_PATH", "miro.db"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		MiroAPIURL:          os.Getenv("MIRO_API_URL"),
		MiroAPIClientID:     os.Getenv("MIRO_API_CLIENT_ID"),
		MiroAPIClientSecret: os.Getenv("MIRO_API_CLIENT_SECRET"),
		MiroAPITokenURL:     os.Getenv("MIRO_API_TOKEN_URL"),

		ArchiveBucket:  os.Getenv("ARCHIVE_BUCKET"),
		AllowedOrigins: util.SplitList(getenv("ALLOWED_ORIGINS", "http://localhost:3000")),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		DateLayout: getenv("DATE_LAYOUT", workbook.DefaultDateLocale().DisplayLayout),
		Timezone:   getenv("TIMEZONE", "America/Bogota"),

		Port: getenv("PORT", "8080"),
	}
}

// PostgresDSN builds the key=value connection string for gorm's postgres driver.
func (c Config) PostgresDSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=disable"
}

// DateLocale resolves the configured layout and timezone. An unknown
// timezone falls back to UTC.
func (c Config) DateLocale() workbook.DateLocale {
	loc := workbook.DefaultDateLocale().WithLayout(c.DateLayout)
	if c.Timezone != "" {
		if tz, err := time.LoadLocation(c.Timezone); err == nil {
			loc.Location = tz
		} else {
			loc.Location = time.UTC
		}
	}
	return loc
}
