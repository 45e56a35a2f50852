package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LocationRevenue struct {
	Location string          `json:"location"`
	Lat      float64         `json:"lat"`
	Lon      float64         `json:"lon"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type LocationCount struct {
	Location string  `json:"location"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Count    int     `json:"count"`
}

// MonthlyRevenue is one calendar-month bucket. Period is the last day of the
// month, matching a month-end grouper.
type MonthlyRevenue struct {
	Period  time.Time       `json:"period"`
	Year    int             `json:"year"`
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

type MonthlyCount struct {
	Period time.Time `json:"period"`
	Year   int       `json:"year"`
	Month  string    `json:"month"`
	Count  int       `json:"count"`
}

type CategoryRevenue struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// SellerStats carries both measures for a seller; callers rank by either.
type SellerStats struct {
	Seller  string          `json:"seller"`
	Revenue decimal.Decimal `json:"revenue"`
	Count   int             `json:"count"`
}

// Metrics are the headline numbers shown above every dashboard tab.
type Metrics struct {
	Revenue          decimal.Decimal `json:"revenue"`
	Count            int             `json:"count"`
	RevenueFormatted string          `json:"revenue_formatted"`
	CountFormatted   string          `json:"count_formatted"`
}

// Report is the output of one pipeline run.
type Report struct {
	Metrics           Metrics           `json:"metrics"`
	RevenueByLocation []LocationRevenue `json:"revenue_by_location"`
	CountByLocation   []LocationCount   `json:"count_by_location"`
	RevenueByMonth    []MonthlyRevenue  `json:"revenue_by_month"`
	CountByMonth      []MonthlyCount    `json:"count_by_month"`
	RevenueByCategory []CategoryRevenue `json:"revenue_by_category"`
	CountByCategory   []CategoryCount   `json:"count_by_category"`
	TopSellersRevenue []SellerStats     `json:"top_sellers_revenue"`
	TopSellersCount   []SellerStats     `json:"top_sellers_count"`
	TopK              int               `json:"top_k"`
	GeneratedAt       time.Time         `json:"generated_at"`
}
