package models

import "time"

// Parameter names used by the application-level key/value config.
const (
	ParamCompanyID     = "company_id"
	ParamScheduledTime = "scheduled_time"
	ParamCookies       = "cookies"
	ParamReportPath    = "report_path"
)

// Task statuses for one scheduled run attempt of one company.
const (
	TaskStatusGettingPrices    = "getting prices"
	TaskStatusGeneratingReport = "generating report"
	TaskStatusFinished         = "FINISHED"
)

// PriceSnapshot stores one catalog item's prices for one calendar day.
// Re-ingesting the same (company, offer, date) overwrites the price
// fields instead of adding a row.
type PriceSnapshot struct {
	CompanyID      string  `json:"company_id" gorm:"primaryKey;size:64"`
	OfferID        string  `json:"offer_id" gorm:"primaryKey;size:128"`
	Date           string  `json:"date" gorm:"primaryKey;size:10"` // YYYY-MM-DD
	ItemID         string  `json:"item_id" gorm:"index;size:64"`
	Name           string  `json:"name"`
	SellerPrice    float64 `json:"seller_price"`
	ListPrice      float64 `json:"list_price"`
	PromoPrice     float64 `json:"promo_price"`
	PromoCardPrice float64 `json:"promo_card_price"`
}

// Task is one run attempt for one company, mutated in place through
// its status transitions until FINISHED or ERROR.
type Task struct {
	TaskID    uint      `json:"task_id" gorm:"primaryKey"`
	Name      string    `json:"name"` // company id
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Parameter is a name/value config row. No uniqueness at the storage
// level; dedup of set-valued names is an application rule.
type Parameter struct {
	ParameterID uint   `json:"parameter_id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"index;size:64"`
	Value       string `json:"value"`
}
