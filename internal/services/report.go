package services

import (
	"fmt"
	"path/filepath"
	"time"

	"ozon-monitor/internal/database"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const (
	reportSheet       = "Price Changes"
	reportPageSize    = 50
	ratioColumn       = "K"
	todayPriceCol     = "H"
	yesterdayPriceCol = "E"
)

// GenerateReport writes the price changes for one date into a new xlsx
// file and returns its path. Returns "" without touching the filesystem
// when there are no changes to report.
func (s *PriceService) GenerateReport(date, companyID, offerID string) (string, error) {
	probe, err := s.GetPriceChange(date, 1, 0, companyID, offerID)
	if err != nil {
		return "", err
	}
	if len(probe.PriceChanges) == 0 {
		s.log.WithFields(logrus.Fields{
			"date":       date,
			"company_id": companyID,
		}).Warn("no price changes found, skipping report")
		return "", nil
	}

	basePath, err := database.GetReportPath(s.db)
	if err != nil {
		return "", err
	}
	if basePath == "" {
		basePath = s.reportDir
	}
	filename := filepath.Join(basePath, fmt.Sprintf(
		"price_changes_report_%s_%s.xlsx",
		time.Now().Format("2006-01-02_15-04-05"), companyID,
	))

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), reportSheet); err != nil {
		return "", fmt.Errorf("failed to name report sheet: %w", err)
	}

	yesterday := mustPreviousDay(date)
	header := []interface{}{
		"date", "company_id", "offer_id", "name",
		"seller_price " + yesterday, "spp " + yesterday, "ozon_card " + yesterday,
		"seller_price " + date, "spp " + date, "ozon_card " + date,
		"price change",
	}
	if err := f.SetSheetRow(reportSheet, "A1", &header); err != nil {
		return "", fmt.Errorf("failed to write report header: %w", err)
	}

	// The total captured on the first full page decides when to stop;
	// rows upserted mid-export belong to the next run.
	var total int64
	offset := 0
	row := 2
	for {
		page, err := s.GetPriceChange(date, reportPageSize, offset, companyID, offerID)
		if err != nil {
			return "", err
		}
		if len(page.PriceChanges) == 0 {
			break
		}
		if offset == 0 {
			total = page.Total
		}

		for _, change := range page.PriceChanges {
			values := []interface{}{
				change.Date, change.CompanyID, change.OfferID, change.Name,
				optional(change.YesterdaySellerPrice),
				optional(change.YesterdaySPP),
				optional(change.YesterdayOzonCard),
				change.TodaySellerPrice,
				change.TodaySPP,
				change.TodayOzonCard,
			}
			cell := fmt.Sprintf("A%d", row)
			if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
				return "", fmt.Errorf("failed to write report row %d: %w", row, err)
			}
			// Left as a formula so the consumer can edit prices and
			// re-derive; column positions are fixed by the header order.
			formula := fmt.Sprintf("%s%d/%s%d", todayPriceCol, row, yesterdayPriceCol, row)
			if err := f.SetCellFormula(reportSheet, fmt.Sprintf("%s%d", ratioColumn, row), formula); err != nil {
				return "", fmt.Errorf("failed to set ratio formula at row %d: %w", row, err)
			}
			row++
		}

		offset += reportPageSize
		s.log.WithFields(logrus.Fields{
			"written": row - 2,
			"total":   total,
		}).Info("report page written")
		if int64(offset) >= total {
			break
		}
	}

	if err := f.SaveAs(filename); err != nil {
		return "", fmt.Errorf("failed to save report %s: %w", filename, err)
	}
	s.log.WithField("file", filename).Info("report saved")
	return filename, nil
}

func optional(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func mustPreviousDay(date string) string {
	day, err := time.Parse(database.DateFormat, date)
	if err != nil {
		return ""
	}
	return day.AddDate(0, 0, -1).Format(database.DateFormat)
}
