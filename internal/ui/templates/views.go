package templates

import (
	"strconv"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/filter"
	"sales-dashboard/internal/models"
)

// BarsShown is how many locations and categories the bar charts show.
const BarsShown = 5

// Bar is one horizontal bar: a label, the displayed value and its width as a
// percentage of the largest bar.
type Bar struct {
	Label string
	Value string
	Width int
}

type MonthRow struct {
	Year  int
	Month string
	Value string
}

// DashboardView is everything the three dashboard tabs display for one
// pipeline run.
type DashboardView struct {
	Metrics         models.Metrics
	LocationRevenue []Bar
	LocationCount   []Bar
	CategoryRevenue []Bar
	CategoryCount   []Bar
	MonthlyRevenue  []MonthRow
	MonthlyCount    []MonthRow
	SellerRevenue   []Bar
	SellerCount     []Bar
	TopK            int
	SellerChoices   []string
	SelectedSellers []string
}

func NewDashboardView(r *models.Report, sellerChoices, selected []string) DashboardView {
	v := DashboardView{
		Metrics:         r.Metrics,
		TopK:            r.TopK,
		SellerChoices:   sellerChoices,
		SelectedSellers: selected,
	}

	v.LocationRevenue = decimalBars(head(r.RevenueByLocation, BarsShown),
		func(x models.LocationRevenue) (string, decimal.Decimal) { return x.Location, x.Revenue })
	v.LocationCount = intBars(head(r.CountByLocation, BarsShown),
		func(x models.LocationCount) (string, int) { return x.Location, x.Count })
	v.CategoryRevenue = decimalBars(head(r.RevenueByCategory, BarsShown),
		func(x models.CategoryRevenue) (string, decimal.Decimal) { return x.Category, x.Revenue })
	v.CategoryCount = intBars(head(r.CountByCategory, BarsShown),
		func(x models.CategoryCount) (string, int) { return x.Category, x.Count })
	v.SellerRevenue = decimalBars(r.TopSellersRevenue,
		func(x models.SellerStats) (string, decimal.Decimal) { return x.Seller, x.Revenue })
	v.SellerCount = intBars(r.TopSellersCount,
		func(x models.SellerStats) (string, int) { return x.Seller, x.Count })

	for _, m := range r.RevenueByMonth {
		v.MonthlyRevenue = append(v.MonthlyRevenue, MonthRow{Year: m.Year, Month: m.Month, Value: m.Revenue.StringFixed(2)})
	}
	for _, m := range r.CountByMonth {
		v.MonthlyCount = append(v.MonthlyCount, MonthRow{Year: m.Year, Month: m.Month, Value: strconv.Itoa(m.Count)})
	}
	return v
}

func head[T any](rows []T, n int) []T {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}

// Input tables are sorted descending, so the first row is the widest bar.
func decimalBars[T any](rows []T, get func(T) (string, decimal.Decimal)) []Bar {
	bars := make([]Bar, 0, len(rows))
	var top decimal.Decimal
	for i, row := range rows {
		label, v := get(row)
		if i == 0 {
			top = v
		}
		width := 0
		if top.IsPositive() {
			width = int(v.Div(top).Mul(decimal.NewFromInt(100)).IntPart())
		}
		bars = append(bars, Bar{Label: label, Value: v.StringFixed(2), Width: width})
	}
	return bars
}

func intBars[T any](rows []T, get func(T) (string, int)) []Bar {
	bars := make([]Bar, 0, len(rows))
	top := 0
	for i, row := range rows {
		label, v := get(row)
		if i == 0 {
			top = v
		}
		width := 0
		if top > 0 {
			width = v * 100 / top
		}
		bars = append(bars, Bar{Label: label, Value: strconv.Itoa(v), Width: width})
	}
	return bars
}

// DashboardPage is the initial render of the dashboard.
type DashboardPage struct {
	Regions []string
	Years   []int
	Signals string
	View    DashboardView
	MinTopK int
	MaxTopK int
}

// RawView is the filtered, projected table of the raw-data page.
type RawView struct {
	Columns   []string
	Rows      [][]string
	RowCount  int
	Truncated bool
}

// NewRawView renders at most limit rows; RowCount always reflects the full
// table.
func NewRawView(t filter.Table, limit int) RawView {
	shown := t
	if limit > 0 && len(t.Rows) > limit {
		shown.Rows = t.Rows[:limit]
	}
	return RawView{
		Columns:   t.Columns,
		Rows:      shown.Records(),
		RowCount:  len(t.Rows),
		Truncated: len(shown.Rows) < len(t.Rows),
	}
}

// RawPage is the initial render of the raw-data page.
type RawPage struct {
	Options filter.Options
	Signals string
	View    RawView
}
