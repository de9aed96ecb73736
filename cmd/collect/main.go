package main

import (
	"context"
	"flag"
	"time"

	"ozon-monitor/internal/config"
	"ozon-monitor/internal/database"
	"ozon-monitor/internal/services"
	"ozon-monitor/internal/services/ozon"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// One-shot runner: ingest today's prices for one company and produce
// the report, without the HTTP server or the scheduler.
func main() {
	companyID := flag.String("company", "", "company id to collect")
	date := flag.String("date", time.Now().Format(database.DateFormat), "target date (YYYY-MM-DD)")
	skipReport := flag.Bool("no-report", false, "skip report generation")
	flag.Parse()

	if *companyID == "" {
		logrus.Fatal("-company is required")
	}
	if _, err := time.Parse(database.DateFormat, *date); err != nil {
		logrus.WithError(err).Fatal("-date must be YYYY-MM-DD")
	}

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}

	prices := services.NewPriceService(db, ozon.NewClient(), cfg)

	if err := prices.CollectPrices(context.Background(), *companyID, *date); err != nil {
		logrus.WithError(err).Fatal("ingestion failed")
	}
	logrus.WithField("company_id", *companyID).Info("ingestion finished")

	if *skipReport {
		return
	}
	path, err := prices.GenerateReport(*date, *companyID, "")
	if err != nil {
		logrus.WithError(err).Fatal("report generation failed")
	}
	if path == "" {
		logrus.Warn("no price changes, report skipped")
		return
	}
	logrus.WithField("file", path).Info("report written")
}
