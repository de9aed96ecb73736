package models

// PriceChange joins a snapshot row with the row for the same
// (company_id, offer_id) one day earlier. Yesterday fields are nil when
// no prior-day snapshot exists, which is distinct from a zero price.
type PriceChange struct {
	Date      string `json:"date"`
	CompanyID string `json:"company_id"`
	OfferID   string `json:"offer_id"`
	Name      string `json:"name"`

	TodaySellerPrice float64 `json:"today_seller_price"`
	TodaySPP         float64 `json:"today_spp"`
	TodayOzonCard    float64 `json:"today_ozon_card"`

	YesterdaySellerPrice *float64 `json:"yesterday_seller_price"`
	YesterdaySPP         *float64 `json:"yesterday_spp"`
	YesterdayOzonCard    *float64 `json:"yesterday_ozon_card"`
}

// PriceChangeResponse is one page of changes plus the total number of
// snapshot rows matching the filters at the target date.
type PriceChangeResponse struct {
	PriceChanges []PriceChange `json:"price_changes"`
	Total        int64         `json:"total"`
}
