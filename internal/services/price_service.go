package services

import (
	"context"
	"fmt"
	"time"

	"ozon-monitor/internal/config"
	"ozon-monitor/internal/database"
	"ozon-monitor/internal/models"
	"ozon-monitor/internal/services/ozon"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MarketAPI is the slice of the seller API the pipeline needs. The
// session cookie blob is passed in per run by the orchestrator.
type MarketAPI interface {
	OpenSession(ctx context.Context, cookies string) error
	CloseSession()
	FetchCatalogPage(ctx context.Context, companyID string, limit, offset int) ([]ozon.Item, error)
	FetchPrices(ctx context.Context, companyID string, itemIDs []string) ([]ozon.Price, error)
}

// PriceService owns the ingestion pipeline and the day-over-day
// price-change queries on top of the snapshot store.
type PriceService struct {
	db        *gorm.DB
	api       MarketAPI
	pageSize  int
	pageDelay time.Duration
	reportDir string

	log *logrus.Entry
}

func NewPriceService(db *gorm.DB, api MarketAPI, cfg *config.Config) *PriceService {
	return &PriceService{
		db:        db,
		api:       api,
		pageSize:  cfg.CatalogPageSize,
		pageDelay: cfg.PageDelay,
		reportDir: cfg.DefaultReportDir,
		log:       logrus.WithField("component", "price_service"),
	}
}

// CollectPrices walks the whole catalog of one company and records a
// snapshot row per item for the given day. Pages already upserted stay
// committed when a later page fails; the pipeline is idempotent and a
// re-run simply overwrites them.
func (s *PriceService) CollectPrices(ctx context.Context, companyID, date string) error {
	cookies, err := database.GetCookies(s.db)
	if err != nil {
		return err
	}
	if err := s.api.OpenSession(ctx, cookies); err != nil {
		return fmt.Errorf("failed to open seller session: %w", err)
	}
	defer s.api.CloseSession()

	// Offset is the running count of items fetched so far, not
	// page*limit: a short page must shift the next request by exactly
	// what came back.
	offset := 0
	page := 1
	for {
		items, err := s.api.FetchCatalogPage(ctx, companyID, s.pageSize, offset)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			break
		}

		itemIDs := make([]string, 0, len(items))
		for _, item := range items {
			itemIDs = append(itemIDs, item.ItemID)
		}
		prices, err := s.api.FetchPrices(ctx, companyID, itemIDs)
		if err != nil {
			return err
		}

		snapshots := s.mergeSnapshots(items, prices, date)
		if err := database.SaveSnapshots(s.db, snapshots); err != nil {
			return err
		}

		offset += len(items)
		s.log.WithFields(logrus.Fields{
			"company_id": companyID,
			"page":       page,
			"items":      len(items),
			"saved":      len(snapshots),
		}).Info("catalog page ingested")
		page++

		// A short page means the catalog is exhausted; only a full one
		// warrants another request.
		if len(items) < s.pageSize {
			break
		}
		if s.pageDelay > 0 {
			time.Sleep(s.pageDelay)
		}
	}
	return nil
}

// mergeSnapshots pairs catalog items with their fetched prices by item
// id. An item without a price is logged and skipped; a snapshot with
// made-up zero prices would be worse than a missing one.
func (s *PriceService) mergeSnapshots(items []ozon.Item, prices []ozon.Price, date string) []models.PriceSnapshot {
	priceByItem := make(map[string]ozon.Price, len(prices))
	for _, price := range prices {
		priceByItem[price.ItemID] = price
	}

	snapshots := make([]models.PriceSnapshot, 0, len(items))
	for _, item := range items {
		price, ok := priceByItem[item.ItemID]
		if !ok {
			s.log.WithFields(logrus.Fields{
				"item_id":  item.ItemID,
				"offer_id": item.PartItem.OfferID,
			}).Warn("no price returned for catalog item, skipping")
			continue
		}
		snapshots = append(snapshots, models.PriceSnapshot{
			CompanyID:      item.CompanyID,
			ItemID:         item.ItemID,
			OfferID:        item.PartItem.OfferID,
			Name:           item.PartItem.Name,
			Date:           date,
			SellerPrice:    price.MarketingSellerPrice,
			ListPrice:      price.OldPrice,
			PromoPrice:     price.MarketingPrice,
			PromoCardPrice: price.MarketingOaPrice,
		})
	}
	return snapshots
}

// GetPriceChange returns one page of today-vs-yesterday changes plus
// the filter-matching total for pagination.
func (s *PriceService) GetPriceChange(date string, limit, offset int, companyID, offerID string) (*models.PriceChangeResponse, error) {
	changes, err := database.GetPriceChanges(s.db, date, limit, offset, companyID, offerID)
	if err != nil {
		return nil, err
	}
	total, err := database.CountPriceChanges(s.db, date, companyID, offerID)
	if err != nil {
		return nil, err
	}
	return &models.PriceChangeResponse{PriceChanges: changes, Total: total}, nil
}
