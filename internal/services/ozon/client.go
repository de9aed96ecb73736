package ozon

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const baseURL = "https://seller.ozon.ru"

// Client talks to the Ozon seller API with the session cookies uploaded
// by the operator. The cookie blob is run-scoped: the orchestrator
// passes it to OpenSession before each company's ingestion and the
// session is dropped again on CloseSession.
type Client struct {
	http *resty.Client

	mu      sync.Mutex
	cookies string
	open    bool
}

func NewClient() *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(60 * time.Second)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")

	return &Client{http: client}
}

// OpenSession arms the client with the stored cookie blob. The session
// is a singleton over one seller account, so a second open while one is
// active is refused.
func (c *Client) OpenSession(ctx context.Context, cookies string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		return fmt.Errorf("session already open")
	}
	if cookies == "" {
		return fmt.Errorf("no session cookies configured")
	}
	c.cookies = cookies
	c.open = true
	return nil
}

// CloseSession drops the session state. Safe to call when no session is
// open, so callers can defer it unconditionally.
func (c *Client) CloseSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = ""
	c.open = false
}

// FetchCatalogPage loads one page of the seller's catalog. Callers must
// pass the cumulative number of items already fetched as offset.
func (c *Client) FetchCatalogPage(ctx context.Context, companyID string, limit, offset int) ([]Item, error) {
	payload := listByFilterRequest{
		CompanyID: companyID,
		Filters:   itemFilters{Search: "", Categories: []string{}},
		Aggregate: aggregate{
			Parts:        []string{"PART_ITEM"},
			AttributeIDs: []string{"4194", "8229"},
			HumanTexts:   true,
		},
		ReturnTotalItems: true,
		Visibility:       "ALL",
		SortBy:           "SORT_BY_CREATED_AT",
		SortDir:          "SORT_DIRECTION_DESC",
		Limit:            limit,
		Offset:           offset,
	}

	var response ItemResponse
	if err := c.post(ctx, "/api/v1/products/list-by-filter", payload, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch catalog page (offset %d): %w", offset, err)
	}
	return response.Products, nil
}

// FetchPrices loads current prices for the given item ids in one call.
func (c *Client) FetchPrices(ctx context.Context, companyID string, itemIDs []string) ([]Price, error) {
	payload := commonPricesRequest{CompanyID: companyID, ItemIDs: itemIDs}

	var response PriceResponse
	if err := c.post(ctx, "/api/pricing-bff-service/v3/get-common-prices", payload, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch prices for %d items: %w", len(itemIDs), err)
	}
	return response.Items, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	c.mu.Lock()
	cookies, open := c.cookies, c.open
	c.mu.Unlock()
	if !open {
		return fmt.Errorf("session is not open")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Cookie", cookies).
		SetBody(payload).
		Post(path)
	if err != nil {
		return err
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), resp.String())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
