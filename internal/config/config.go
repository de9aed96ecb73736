package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	// Ingestion tuning
	CatalogPageSize int           // items per catalog request
	PageDelay       time.Duration // politeness pause between pages

	// Fallback when the report_path parameter is not set
	DefaultReportDir string

	LogFile string // empty disables file logging
}

func Load() *Config {
	defaultDSN := "root:root@tcp(127.0.0.1:3306)/ozon_monitor?charset=utf8mb4&parseTime=True&loc=Local"

	return &Config{
		DatabaseURL:      getEnv("DATABASE_URL", defaultDSN),
		Port:             getEnv("PORT", "8080"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		CatalogPageSize:  getEnvInt("CATALOG_PAGE_SIZE", 50),
		PageDelay:        time.Duration(getEnvInt("PAGE_DELAY_MS", 500)) * time.Millisecond,
		DefaultReportDir: getEnv("REPORT_DIR", "."),
		LogFile:          getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
