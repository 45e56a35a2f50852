// Package filter narrows the normalized sales table with the user's sidebar
// selections. Params is a plain value: the engine never reads widget or
// session state directly.
package filter

import (
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/region"
)

// DecimalRange is a closed interval over a money column.
type DecimalRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

func (r DecimalRange) contains(v decimal.Decimal) bool {
	return v.GreaterThanOrEqual(r.Min) && v.LessThanOrEqual(r.Max)
}

// IntRange is a closed interval over an integer column.
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max" validate:"gtefield=Min"`
}

func (r IntRange) contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// DateRange is a closed interval over purchase dates.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to" validate:"gtefield=From"`
}

func (r DateRange) contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// Params holds every filter dimension. A nil range or empty set leaves the
// column unconstrained; Year == nil means the whole period.
type Params struct {
	Regions      []region.Region `json:"regions,omitempty" validate:"dive,region"`
	Year         *int            `json:"year,omitempty" validate:"omitempty,min=1900,max=9999"`
	Sellers      []string        `json:"sellers,omitempty"`
	Products     []string        `json:"products,omitempty"`
	Categories   []string        `json:"categories,omitempty"`
	Locations    []string        `json:"locations,omitempty"`
	PaymentTypes []string        `json:"payment_types,omitempty"`
	Price        *DecimalRange   `json:"price,omitempty"`
	Freight      *DecimalRange   `json:"freight,omitempty"`
	PurchaseDate *DateRange      `json:"purchase_date,omitempty"`
	Rating       *IntRange       `json:"rating,omitempty"`
	Installments *IntRange       `json:"installments,omitempty"`
	Columns      []string        `json:"columns,omitempty" validate:"dive,column"`
}

// RegionYear keeps only the region and year selections. The dashboard's
// seller list is built from data narrowed by these two.
func (p Params) RegionYear() Params {
	return Params{Regions: p.Regions, Year: p.Year}
}

// IsZero reports whether p constrains nothing.
func (p Params) IsZero() bool {
	return len(p.Regions) == 0 && p.Year == nil && len(p.Sellers) == 0 &&
		len(p.Products) == 0 && len(p.Categories) == 0 && len(p.Locations) == 0 &&
		len(p.PaymentTypes) == 0 && p.Price == nil && p.Freight == nil &&
		p.PurchaseDate == nil && p.Rating == nil && p.Installments == nil
}
