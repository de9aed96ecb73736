package database

import (
	"fmt"
	"time"

	"ozon-monitor/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DateFormat is the calendar-day key format used throughout the store.
const DateFormat = "2006-01-02"

// SaveSnapshots bulk-upserts one page of snapshots in a single
// transaction. A conflict on (company_id, offer_id, date) overwrites the
// name and the four price fields, so re-running a day is idempotent.
func SaveSnapshots(db *gorm.DB, snapshots []models.PriceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "company_id"}, {Name: "offer_id"}, {Name: "date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"item_id", "name", "seller_price", "list_price", "promo_price", "promo_card_price",
		}),
	}).Create(&snapshots).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d snapshots: %w", len(snapshots), err)
	}
	return nil
}

type priceChangeRow struct {
	CompanyID            string
	OfferID              string
	Name                 string
	TodaySellerPrice     float64
	TodaySPP             float64
	TodayOzonCard        float64
	YesterdaySellerPrice *float64
	YesterdaySPP         *float64
	YesterdayOzonCard    *float64
}

// GetPriceChanges returns one page of day-over-day changes anchored on
// snapshots at date, outer-joined to the same (company_id, offer_id) at
// date-1. Ordered by item_id so pagination stays deterministic while
// rows are being upserted concurrently.
func GetPriceChanges(db *gorm.DB, date string, limit, offset int, companyID, offerID string) ([]models.PriceChange, error) {
	yesterday, err := previousDay(date)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT
			today.company_id AS company_id,
			today.offer_id AS offer_id,
			today.name AS name,
			today.seller_price AS today_seller_price,
			today.promo_price AS today_spp,
			today.promo_card_price AS today_ozon_card,
			prev.seller_price AS yesterday_seller_price,
			prev.promo_price AS yesterday_spp,
			prev.promo_card_price AS yesterday_ozon_card
		FROM price_snapshots today
		LEFT JOIN price_snapshots prev
			ON prev.company_id = today.company_id
			AND prev.offer_id = today.offer_id
			AND prev.date = ?
		WHERE today.date = ?`
	args := []interface{}{yesterday, date}
	if companyID != "" {
		query += " AND today.company_id = ?"
		args = append(args, companyID)
	}
	if offerID != "" {
		query += " AND today.offer_id = ?"
		args = append(args, offerID)
	}
	query += " ORDER BY today.item_id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []priceChangeRow
	if err := db.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query price changes: %w", err)
	}

	changes := make([]models.PriceChange, 0, len(rows))
	for _, row := range rows {
		changes = append(changes, models.PriceChange{
			Date:                 date,
			CompanyID:            row.CompanyID,
			OfferID:              row.OfferID,
			Name:                 row.Name,
			TodaySellerPrice:     row.TodaySellerPrice,
			TodaySPP:             row.TodaySPP,
			TodayOzonCard:        row.TodayOzonCard,
			YesterdaySellerPrice: row.YesterdaySellerPrice,
			YesterdaySPP:         row.YesterdaySPP,
			YesterdayOzonCard:    row.YesterdayOzonCard,
		})
	}
	return changes, nil
}

// CountPriceChanges counts the anchor rows at date matching the
// filters, independent of pagination.
func CountPriceChanges(db *gorm.DB, date string, companyID, offerID string) (int64, error) {
	q := db.Model(&models.PriceSnapshot{}).Where("date = ?", date)
	if companyID != "" {
		q = q.Where("company_id = ?", companyID)
	}
	if offerID != "" {
		q = q.Where("offer_id = ?", offerID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count price changes: %w", err)
	}
	return total, nil
}

func previousDay(date string) (string, error) {
	day, err := time.Parse(DateFormat, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return day.AddDate(0, 0, -1).Format(DateFormat), nil
}
