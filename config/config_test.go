package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		os.Setenv(k, v)
		t.Cleanup(func(key string) func() {
			return func() { os.Unsetenv(key) }
		}(k))
	}
}

func TestLoadConfig_ReadsEnvVars(t *testing.T) {
	env := map[string]string{
		"DB_DRIVER":              "sqlite",
		"DB_HOST":                "localhost",
		"DB_PORT":                "5432",
		"DB_USER":                "user1",
		"DB_PASSWORD":            "pass1",
		"DB_NAME":                "db1",
		"SQLITE_PATH":            "/tmp/x.db",
		"JWT_SECRET":             "secret",
		"MIRO_API_URL":           "https://miro.example/api",
		"MIRO_API_CLIENT_ID":     "cid",
		"MIRO_API_CLIENT_SECRET": "csecret",
		"MIRO_API_TOKEN_URL":     "https://idp.example/token",
		"ARCHIVE_BUCKET":         "miro-uploads",
		"ALLOWED_ORIGINS":        "http://a.test, http://b.test ,",
		"LOG_LEVEL":              "debug",
		"LOG_FORMAT":             "console",
		"DATE_LAYOUT":            "2006/01/02",
		"TIMEZONE":               "America/Bogota",
		"PORT":                   "9090",
	}
	setEnv(t, env)

	cfg := LoadConfig()

	checks := map[string][2]string{
		"DBDriver":            {cfg.DBDriver, env["DB_DRIVER"]},
		"DBHost":              {cfg.DBHost, env["DB_HOST"]},
		"DBPort":              {cfg.DBPort, env["DB_PORT"]},
		"DBUser":              {cfg.DBUser, env["DB_USER"]},
		"DBPassword":          {cfg.DBPassword, env["DB_PASSWORD"]},
		"DBName":              {cfg.DBName, env["DB_NAME"]},
		"SQLitePath":          {cfg.SQLitePath, env["SQLITE_PATH"]},
		"JWTSecret":           {cfg.JWTSecret, env["JWT_SECRET"]},
		"MiroAPIURL":          {cfg.MiroAPIURL, env["MIRO_API_URL"]},
		"MiroAPIClientID":     {cfg.MiroAPIClientID, env["MIRO_API_CLIENT_ID"]},
		"MiroAPIClientSecret": {cfg.MiroAPIClientSecret, env["MIRO_API_CLIENT_SECRET"]},
		"MiroAPITokenURL":     {cfg.MiroAPITokenURL, env["MIRO_API_TOKEN_URL"]},
		"ArchiveBucket":       {cfg.ArchiveBucket, env["ARCHIVE_BUCKET"]},
		"LogLevel":            {cfg.LogLevel, env["LOG_LEVEL"]},
		"LogFormat":           {cfg.LogFormat, env["LOG_FORMAT"]},
		"DateLayout":          {cfg.DateLayout, env["DATE_LAYOUT"]},
		"Timezone":            {cfg.Timezone, env["TIMEZONE"]},
		"Port":                {cfg.Port, env["PORT"]},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Fatalf("%s=%q want %q", name, c[0], c[1])
		}
	}

	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "http://a.test" || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("AllowedOrigins=%v", cfg.AllowedOrigins)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	keys := []string{
		"DB_DRIVER", "DB_HOST", "JWT_SECRET", "SQLITE_PATH", "ALLOWED_ORIGINS",
		"LOG_LEVEL", "LOG_FORMAT", "DATE_LAYOUT", "TIMEZONE", "PORT", "ARCHIVE_BUCKET",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}

	cfg := LoadConfig()

	if cfg.DBDriver != "postgres" || cfg.SQLitePath != "miro.db" || cfg.Port != "8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected log defaults: %q %q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.DateLayout != "02/01/2006" {
		t.Fatalf("DateLayout=%q", cfg.DateLayout)
	}
	if cfg.DBHost != "" || cfg.JWTSecret != "" || cfg.ArchiveBucket != "" {
		t.Fatalf("expected empty strings, got: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("AllowedOrigins=%v", cfg.AllowedOrigins)
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := Config{DBHost: "h", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "1"}
	want := "host=h user=u password=p dbname=n port=1 sslmode=disable"
	if got := cfg.PostgresDSN(); got != want {
		t.Fatalf("PostgresDSN=%q want %q", got, want)
	}
}

func TestDateLocale(t *testing.T) {
	loc := Config{DateLayout: "2006/01/02", Timezone: "America/Bogota"}.DateLocale()
	if loc.DisplayLayout != "2006/01/02" {
		t.Fatalf("DisplayLayout=%q", loc.DisplayLayout)
	}
	if loc.NumFmt != "yyyy/mm/dd" {
		t.Fatalf("NumFmt=%q", loc.NumFmt)
	}
	if loc.Location == nil || loc.Location.String() != "America/Bogota" {
		t.Fatalf("Location=%v", loc.Location)
	}

	loc = Config{Timezone: "Nowhere/Atlantis"}.DateLocale()
	if loc.Location != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", loc.Location)
	}
	if loc.DisplayLayout != "02/01/2006" {
		t.Fatalf("expected default layout, got %q", loc.DisplayLayout)
	}
}
