package ozon

// PartItem carries the human-facing attributes of a catalog item.
type PartItem struct {
	OfferID string `json:"offer_id"`
	Name    string `json:"name"`
}

// Item is one catalog entry from the list-by-filter endpoint.
type Item struct {
	ItemID    string   `json:"item_id"`
	CompanyID string   `json:"company_id"`
	PartItem  PartItem `json:"part_item"`
}

// ItemResponse is a page of the seller's catalog.
type ItemResponse struct {
	Products       []Item        `json:"products"`
	Cursor         string        `json:"cursor"`
	TotalItems     int           `json:"total_items"`
	ProviderErrors []interface{} `json:"provider_errors"`
}

// Price holds the current price set for one item.
type Price struct {
	ItemID               string  `json:"item_id"`
	CurrencyCode         string  `json:"currency_code"`
	Price                float64 `json:"price"`
	OldPrice             float64 `json:"old_price"`
	MarketingPrice       float64 `json:"marketing_price"`
	MarketingOaPrice     float64 `json:"marketing_oa_price"`
	MarketingSellerPrice float64 `json:"marketing_seller_price"`
}

// PriceResponse is the bulk answer of get-common-prices.
type PriceResponse struct {
	Items  []Price       `json:"items"`
	Errors []interface{} `json:"errors"`
}

type listByFilterRequest struct {
	CompanyID        string      `json:"company_id"`
	Filters          itemFilters `json:"filters"`
	Aggregate        aggregate   `json:"aggregate"`
	ReturnTotalItems bool        `json:"return_total_items"`
	Visibility       string      `json:"visibility"`
	SortBy           string      `json:"sort_by"`
	SortDir          string      `json:"sort_dir"`
	Limit            int         `json:"limit"`
	Offset           int         `json:"offset"`
}

type itemFilters struct {
	Search     string   `json:"search"`
	Categories []string `json:"categories"`
}

type aggregate struct {
	Parts        []string `json:"parts"`
	AttributeIDs []string `json:"attribute_ids"`
	HumanTexts   bool     `json:"human_texts"`
}

type commonPricesRequest struct {
	CompanyID string   `json:"company_id"`
	ItemIDs   []string `json:"item_ids"`
}
