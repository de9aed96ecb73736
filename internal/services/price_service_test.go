package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ozon-monitor/internal/config"
	"ozon-monitor/internal/database"
	"ozon-monitor/internal/models"
	"ozon-monitor/internal/services/ozon"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.UpsertCookies(db, "session=test"); err != nil {
		t.Fatalf("seed cookies: %v", err)
	}
	return db
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		CatalogPageSize:  50,
		PageDelay:        0,
		DefaultReportDir: t.TempDir(),
	}
}

// fakeAPI serves a scripted catalog and price book.
type fakeAPI struct {
	mu sync.Mutex

	catalog     map[string][]ozon.Item
	priceByItem map[string]ozon.Price

	failCompany map[string]error
	failAtCall  int // 1-based catalog call index to fail on, 0 disables
	priceErr    error

	block chan struct{} // catalog calls wait on this when non-nil

	opens, closes int
	catalogCalls  int
	offsets       []int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		catalog:     make(map[string][]ozon.Item),
		priceByItem: make(map[string]ozon.Price),
		failCompany: make(map[string]error),
	}
}

// addItems registers n catalog items for a company, with prices unless
// withoutPrice lists the item's 1-based index.
func (f *fakeAPI) addItems(companyID string, n int, withoutPrice ...int) {
	skip := make(map[int]bool, len(withoutPrice))
	for _, idx := range withoutPrice {
		skip[idx] = true
	}
	for i := 1; i <= n; i++ {
		itemID := fmt.Sprintf("%s-%04d", companyID, i)
		f.catalog[companyID] = append(f.catalog[companyID], ozon.Item{
			ItemID:    itemID,
			CompanyID: companyID,
			PartItem:  ozon.PartItem{OfferID: fmt.Sprintf("OF-%s-%d", companyID, i), Name: fmt.Sprintf("item %d", i)},
		})
		if skip[i] {
			continue
		}
		f.priceByItem[itemID] = ozon.Price{
			ItemID:               itemID,
			Price:                float64(100 + i),
			OldPrice:             float64(200 + i),
			MarketingPrice:       float64(90 + i),
			MarketingOaPrice:     float64(80 + i),
			MarketingSellerPrice: float64(100 + i),
		}
	}
}

func (f *fakeAPI) OpenSession(ctx context.Context, cookies string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cookies == "" {
		return fmt.Errorf("no session cookies configured")
	}
	f.opens++
	return nil
}

func (f *fakeAPI) CloseSession() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
}

func (f *fakeAPI) FetchCatalogPage(ctx context.Context, companyID string, limit, offset int) ([]ozon.Item, error) {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalogCalls++
	f.offsets = append(f.offsets, offset)
	if err := f.failCompany[companyID]; err != nil {
		return nil, err
	}
	if f.failAtCall > 0 && f.catalogCalls == f.failAtCall {
		return nil, fmt.Errorf("remote fetch failed on call %d", f.catalogCalls)
	}

	items := f.catalog[companyID]
	if offset >= len(items) {
		return nil, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

func (f *fakeAPI) FetchPrices(ctx context.Context, companyID string, itemIDs []string) ([]ozon.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	var prices []ozon.Price
	for _, id := range itemIDs {
		if price, ok := f.priceByItem[id]; ok {
			prices = append(prices, price)
		}
	}
	return prices, nil
}

func countSnapshots(t *testing.T, db *gorm.DB, companyID, date string) int64 {
	t.Helper()
	var n int64
	err := db.Model(&models.PriceSnapshot{}).
		Where("company_id = ? AND date = ?", companyID, date).
		Count(&n).Error
	if err != nil {
		t.Fatalf("count snapshots: %v", err)
	}
	return n
}

func TestCollectPricesPagination(t *testing.T) {
	db := testDB(t)
	fake := newFakeAPI()
	fake.addItems("1", 120)
	svc := NewPriceService(db, fake, testConfig(t))

	if err := svc.CollectPrices(context.Background(), "1", "2024-05-02"); err != nil {
		t.Fatalf("collect: %v", err)
	}

	// 120 items at page size 50: three fetches, offsets tracking the
	// cumulative item count.
	if fake.catalogCalls != 3 {
		t.Fatalf("expected 3 catalog fetches, got %d", fake.catalogCalls)
	}
	wantOffsets := []int{0, 50, 100}
	for i, offset := range fake.offsets {
		if offset != wantOffsets[i] {
			t.Fatalf("call %d: expected offset %d, got %d", i+1, wantOffsets[i], offset)
		}
	}
	if n := countSnapshots(t, db, "1", "2024-05-02"); n != 120 {
		t.Fatalf("expected 120 snapshots, got %d", n)
	}
	if fake.opens != 1 || fake.closes != 1 {
		t.Fatalf("expected one open/close cycle, got %d/%d", fake.opens, fake.closes)
	}
}

func TestCollectPricesExactPageBoundary(t *testing.T) {
	db := testDB(t)
	fake := newFakeAPI()
	fake.addItems("1", 100)
	svc := NewPriceService(db, fake, testConfig(t))

	if err := svc.CollectPrices(context.Background(), "1", "2024-05-02"); err != nil {
		t.Fatalf("collect: %v", err)
	}

	// Two full pages, then the empty page that terminates the loop.
	if fake.catalogCalls != 3 {
		t.Fatalf("expected 3 catalog fetches, got %d", fake.catalogCalls)
	}
	if fake.offsets[2] != 100 {
		t.Fatalf("expected final offset 100, got %d", fake.offsets[2])
	}
	if n := countSnapshots(t, db, "1", "2024-05-02"); n != 100 {
		t.Fatalf("expected 100 snapshots, got %d", n)
	}
}

func TestCollectPricesSkipsItemsWithoutPrice(t *testing.T) {
	db := testDB(t)
	fake := newFakeAPI()
	fake.addItems("1", 3, 2) // item 2 has no price
	svc := NewPriceService(db, fake, testConfig(t))

	if err := svc.CollectPrices(context.Background(), "1", "2024-05-02"); err != nil {
		t.Fatalf("collect: %v", err)
	}

	if n := countSnapshots(t, db, "1", "2024-05-02"); n != 2 {
		t.Fatalf("expected 2 snapshots, got %d", n)
	}
	var missing int64
	db.Model(&models.PriceSnapshot{}).Where("item_id = ?", "1-0002").Count(&missing)
	if missing != 0 {
		t.Fatal("item without a price must not be persisted")
	}
}

func TestCollectPricesPartialFailureKeepsCommittedPages(t *testing.T) {
	db := testDB(t)
	fake := newFakeAPI()
	fake.addItems("1", 120)
	fake.failAtCall = 2
	svc := NewPriceService(db, fake, testConfig(t))

	if err := svc.CollectPrices(context.Background(), "1", "2024-05-02"); err == nil {
		t.Fatal("expected error from second page fetch")
	}

	if n := countSnapshots(t, db, "1", "2024-05-02"); n != 50 {
		t.Fatalf("expected first page to stay committed, got %d snapshots", n)
	}
	if fake.closes != 1 {
		t.Fatalf("session must be closed on failure, closes=%d", fake.closes)
	}
}

func TestCollectPricesWithoutCookies(t *testing.T) {
	db := testDB(t)
	if err := db.Where("name = ?", models.ParamCookies).Delete(&models.Parameter{}).Error; err != nil {
		t.Fatalf("clear cookies: %v", err)
	}
	fake := newFakeAPI()
	fake.addItems("1", 1)
	svc := NewPriceService(db, fake, testConfig(t))

	if err := svc.CollectPrices(context.Background(), "1", "2024-05-02"); err == nil {
		t.Fatal("expected session open to fail without cookies")
	}
	if fake.catalogCalls != 0 {
		t.Fatal("no catalog fetches should happen without a session")
	}
}

func TestGetPriceChangeTotals(t *testing.T) {
	db := testDB(t)
	fake := newFakeAPI()
	fake.addItems("1", 7)
	svc := NewPriceService(db, fake, testConfig(t))

	if err := svc.CollectPrices(context.Background(), "1", "2024-05-02"); err != nil {
		t.Fatalf("collect: %v", err)
	}

	response, err := svc.GetPriceChange("2024-05-02", 3, 0, "1", "")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(response.PriceChanges) != 3 {
		t.Fatalf("expected page of 3, got %d", len(response.PriceChanges))
	}
	if response.Total != 7 {
		t.Fatalf("total must ignore pagination, got %d", response.Total)
	}
}

// Guards against regressions in the sleep-free test setup: a page delay
// of zero must not sleep between pages.
func TestCollectPricesNoDelayInTests(t *testing.T) {
	db := testDB(t)
	fake := newFakeAPI()
	fake.addItems("1", 150)
	svc := NewPriceService(db, fake, testConfig(t))

	start := time.Now()
	if err := svc.CollectPrices(context.Background(), "1", "2024-05-02"); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("collection took too long: %v", elapsed)
	}
}
