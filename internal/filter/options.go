package filter

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/region"
)

// Options lists the selectable values for each sidebar widget, taken from
// the data the widget filters. Lists keep first-seen order.
type Options struct {
	Regions         []region.Region `json:"regions"`
	Years           []int           `json:"years"`
	Sellers         []string        `json:"sellers"`
	Products        []string        `json:"products"`
	Categories      []string        `json:"categories"`
	Locations       []string        `json:"locations"`
	PaymentTypes    []string        `json:"payment_types"`
	Columns         []string        `json:"columns"`
	PriceMin        decimal.Decimal `json:"price_min"`
	PriceMax        decimal.Decimal `json:"price_max"`
	FreightMin      decimal.Decimal `json:"freight_min"`
	FreightMax      decimal.Decimal `json:"freight_max"`
	DateMin         time.Time       `json:"date_min"`
	DateMax         time.Time       `json:"date_max"`
	InstallmentsMin int             `json:"installments_min"`
	InstallmentsMax int             `json:"installments_max"`
}

type distinct struct {
	seen   map[string]bool
	values []string
}

func (d *distinct) add(v string) {
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if !d.seen[v] {
		d.seen[v] = true
		d.values = append(d.values, v)
	}
}

func (d *distinct) list() []string {
	if d.values == nil {
		return []string{}
	}
	return d.values
}

// OptionsFor collects widget options from sales.
func OptionsFor(sales []models.Sale) Options {
	var sellers, products, categories, locations, payments distinct
	years := make([]int, 0)

	opts := Options{
		Regions: region.All(),
		Columns: slices.Clone(models.Columns),
	}

	for i, s := range sales {
		sellers.add(s.Seller)
		products.add(s.Product)
		categories.add(s.Category)
		locations.add(s.Location)
		payments.add(s.PaymentType)
		if !slices.Contains(years, s.PurchaseDate.Year()) {
			years = append(years, s.PurchaseDate.Year())
		}

		if i == 0 {
			opts.PriceMin, opts.PriceMax = s.Price, s.Price
			opts.FreightMin, opts.FreightMax = s.Freight, s.Freight
			opts.DateMin, opts.DateMax = s.PurchaseDate, s.PurchaseDate
			opts.InstallmentsMin, opts.InstallmentsMax = s.Installments, s.Installments
			continue
		}
		opts.PriceMin = decimal.Min(opts.PriceMin, s.Price)
		opts.PriceMax = decimal.Max(opts.PriceMax, s.Price)
		opts.FreightMin = decimal.Min(opts.FreightMin, s.Freight)
		opts.FreightMax = decimal.Max(opts.FreightMax, s.Freight)
		if s.PurchaseDate.Before(opts.DateMin) {
			opts.DateMin = s.PurchaseDate
		}
		if s.PurchaseDate.After(opts.DateMax) {
			opts.DateMax = s.PurchaseDate
		}
		opts.InstallmentsMin = min(opts.InstallmentsMin, s.Installments)
		opts.InstallmentsMax = max(opts.InstallmentsMax, s.Installments)
	}

	slices.Sort(years)
	opts.Years = years
	opts.Sellers = sellers.list()
	opts.Products = products.list()
	opts.Categories = categories.list()
	opts.Locations = locations.list()
	opts.PaymentTypes = payments.list()
	return opts
}
