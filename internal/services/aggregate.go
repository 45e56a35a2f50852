package services

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

// Groups are emitted in ascending key order before ranking, so rows with an
// equal measure keep that order after the stable descending sort.

type group struct {
	key     string
	lat     float64
	lon     float64
	revenue decimal.Decimal
	count   int
}

func groupBy(sales []models.Sale, key func(models.Sale) string) []group {
	index := make(map[string]int)
	var groups []group
	for _, s := range sales {
		k := key(s)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, group{key: k, lat: s.Lat, lon: s.Lon})
		}
		groups[i].revenue = groups[i].revenue.Add(s.Price)
		groups[i].count++
	}
	slices.SortFunc(groups, func(a, b group) int { return cmp.Compare(a.key, b.key) })
	return groups
}

func byRevenueDesc(a, b group) int { return b.revenue.Cmp(a.revenue) }
func byCountDesc(a, b group) int   { return cmp.Compare(b.count, a.count) }

func ranked(sales []models.Sale, key func(models.Sale) string, less func(a, b group) int) []group {
	groups := groupBy(sales, key)
	slices.SortStableFunc(groups, less)
	return groups
}

func location(s models.Sale) string { return s.Location }
func category(s models.Sale) string { return s.Category }
func seller(s models.Sale) string   { return s.Seller }

// RevenueByLocation sums price per location, paired with the coordinates of
// the first sale seen for that location, highest revenue first.
func RevenueByLocation(sales []models.Sale) []models.LocationRevenue {
	groups := ranked(sales, location, byRevenueDesc)
	out := make([]models.LocationRevenue, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.LocationRevenue{Location: g.key, Lat: g.lat, Lon: g.lon, Revenue: g.revenue})
	}
	return out
}

func CountByLocation(sales []models.Sale) []models.LocationCount {
	groups := ranked(sales, location, byCountDesc)
	out := make([]models.LocationCount, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.LocationCount{Location: g.key, Lat: g.lat, Lon: g.lon, Count: g.count})
	}
	return out
}

func RevenueByCategory(sales []models.Sale) []models.CategoryRevenue {
	groups := ranked(sales, category, byRevenueDesc)
	out := make([]models.CategoryRevenue, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.CategoryRevenue{Category: g.key, Revenue: g.revenue})
	}
	return out
}

func CountByCategory(sales []models.Sale) []models.CategoryCount {
	groups := ranked(sales, category, byCountDesc)
	out := make([]models.CategoryCount, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.CategoryCount{Category: g.key, Count: g.count})
	}
	return out
}

// SellerStats returns both measures per seller, ordered by seller name.
func SellerStats(sales []models.Sale) []models.SellerStats {
	groups := groupBy(sales, seller)
	out := make([]models.SellerStats, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.SellerStats{Seller: g.key, Revenue: g.revenue, Count: g.count})
	}
	return out
}

func TopSellersByRevenue(sales []models.Sale, k int) []models.SellerStats {
	return topSellers(sales, k, func(a, b models.SellerStats) int { return b.Revenue.Cmp(a.Revenue) })
}

func TopSellersByCount(sales []models.Sale, k int) []models.SellerStats {
	return topSellers(sales, k, func(a, b models.SellerStats) int { return cmp.Compare(b.Count, a.Count) })
}

func topSellers(sales []models.Sale, k int, order func(a, b models.SellerStats) int) []models.SellerStats {
	stats := SellerStats(sales)
	slices.SortStableFunc(stats, order)
	if k >= 0 && len(stats) > k {
		stats = stats[:k]
	}
	return stats
}

const (
	MinTopK     = 2
	MaxTopK     = 10
	DefaultTopK = 5
)

// ClampTopK bounds the number of sellers shown. Zero or negative picks the
// default.
func ClampTopK(k int) int {
	if k <= 0 {
		return DefaultTopK
	}
	return min(max(k, MinTopK), MaxTopK)
}

type monthBucket struct {
	revenue decimal.Decimal
	count   int
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthEnd(start time.Time) time.Time {
	return start.AddDate(0, 1, -1)
}

// months buckets sales by calendar month, covering every month between the
// first and the last purchase.
func months(sales []models.Sale) ([]time.Time, map[time.Time]*monthBucket) {
	if len(sales) == 0 {
		return nil, nil
	}

	buckets := make(map[time.Time]*monthBucket)
	first, last := monthStart(sales[0].PurchaseDate), monthStart(sales[0].PurchaseDate)
	for _, s := range sales {
		m := monthStart(s.PurchaseDate)
		b, ok := buckets[m]
		if !ok {
			b = &monthBucket{}
			buckets[m] = b
		}
		b.revenue = b.revenue.Add(s.Price)
		b.count++
		if m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
	}

	var keys []time.Time
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		if _, ok := buckets[m]; !ok {
			buckets[m] = &monthBucket{}
		}
		keys = append(keys, m)
	}
	return keys, buckets
}

// RevenueByMonth sums price per month-end bucket in chronological order.
// Months without sales inside the covered span are reported with zero.
func RevenueByMonth(sales []models.Sale) []models.MonthlyRevenue {
	keys, buckets := months(sales)
	out := make([]models.MonthlyRevenue, 0, len(keys))
	for _, m := range keys {
		out = append(out, models.MonthlyRevenue{
			Period:  monthEnd(m),
			Year:    m.Year(),
			Month:   m.Month().String(),
			Revenue: buckets[m].revenue,
		})
	}
	return out
}

func CountByMonth(sales []models.Sale) []models.MonthlyCount {
	keys, buckets := months(sales)
	out := make([]models.MonthlyCount, 0, len(keys))
	for _, m := range keys {
		out = append(out, models.MonthlyCount{
			Period: monthEnd(m),
			Year:   m.Year(),
			Month:  m.Month().String(),
			Count:  buckets[m].count,
		})
	}
	return out
}

// TotalRevenue sums price over sales.
func TotalRevenue(sales []models.Sale) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.Price)
	}
	return total
}
