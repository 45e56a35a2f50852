package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/filter"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/region"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var coords = map[string][2]float64{
	"SP": {-22.19, -48.79},
	"AM": {-3.07, -61.66},
	"RJ": {-22.25, -42.66},
}

func sale(location, category, seller, price string, date time.Time) models.Sale {
	return models.Sale{
		Product:      category + " item",
		Category:     category,
		Price:        decimal.RequireFromString(price),
		Freight:      decimal.NewFromInt(10),
		PurchaseDate: date,
		Seller:       seller,
		Location:     location,
		Rating:       5,
		PaymentType:  "cartao_credito",
		Installments: 1,
		Lat:          coords[location][0],
		Lon:          coords[location][1],
		Region:       region.Classify(location),
	}
}

// fixture holds four Southeast sales in SP and two North sales in AM.
func fixture() []models.Sale {
	return []models.Sale{
		sale("SP", "eletrodomesticos", "Ana", "1800", day(2021, time.January, 5)),
		sale("AM", "eletronicos", "Bruno", "950", day(2021, time.January, 20)),
		sale("SP", "moveis", "Ana", "300", day(2021, time.March, 2)),
		sale("SP", "moveis", "Carla", "80.50", day(2021, time.March, 31)),
		sale("AM", "eletronicos", "Ana", "120", day(2021, time.April, 1)),
		sale("SP", "moveis", "Bruno", "2500", day(2021, time.June, 30)),
	}
}

func newTestAnalytics(sales []models.Sale) *Analytics {
	a := NewAnalytics(&dataset.Dataset{
		Sales:  sales,
		Stats:  dataset.Stats{Total: len(sales) + 1, Loaded: len(sales), DroppedDate: 1},
		Source: "vendas.json",
	}, nil, nil)
	a.now = func() time.Time { return day(2024, time.May, 1) }
	return a
}

func decimalEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestRevenueByLocation(t *testing.T) {
	got := RevenueByLocation(fixture())
	require.Len(t, got, 2)

	assert.Equal(t, "SP", got[0].Location)
	decimalEqual(t, "4680.50", got[0].Revenue)
	assert.Equal(t, -22.19, got[0].Lat)
	assert.Equal(t, -48.79, got[0].Lon)
	assert.Equal(t, "AM", got[1].Location)
	decimalEqual(t, "1070", got[1].Revenue)
}

func TestRevenueByLocation_MatchesIndependentSum(t *testing.T) {
	sales := fixture()
	for _, row := range RevenueByLocation(sales) {
		want := decimal.Zero
		for _, s := range sales {
			if s.Location == row.Location {
				want = want.Add(s.Price)
			}
		}
		assert.True(t, want.Equal(row.Revenue), "location %s", row.Location)
	}
}

func TestRevenueByLocation_FirstSeenCoordinates(t *testing.T) {
	first := sale("SP", "moveis", "Ana", "10", day(2021, time.January, 1))
	second := sale("SP", "moveis", "Ana", "20", day(2021, time.January, 2))
	second.Lat, second.Lon = 1, 1

	got := RevenueByLocation([]models.Sale{first, second})
	require.Len(t, got, 1)
	assert.Equal(t, first.Lat, got[0].Lat)
	assert.Equal(t, first.Lon, got[0].Lon)
}

func TestCountByLocation(t *testing.T) {
	got := CountByLocation(fixture())
	require.Len(t, got, 2)
	assert.Equal(t, models.LocationCount{Location: "SP", Lat: -22.19, Lon: -48.79, Count: 4}, got[0])
	assert.Equal(t, models.LocationCount{Location: "AM", Lat: -3.07, Lon: -61.66, Count: 2}, got[1])
}

func TestCountByLocation_TiesOrderedByKey(t *testing.T) {
	sales := []models.Sale{
		sale("SP", "a", "x", "1", day(2021, 1, 1)),
		sale("RJ", "a", "x", "1", day(2021, 1, 1)),
		sale("AM", "a", "x", "1", day(2021, 1, 1)),
	}
	got := CountByLocation(sales)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"AM", "RJ", "SP"}, []string{got[0].Location, got[1].Location, got[2].Location})
}

func TestByCategory(t *testing.T) {
	sales := fixture()

	revenue := RevenueByCategory(sales)
	require.Len(t, revenue, 3)
	assert.Equal(t, "moveis", revenue[0].Category)
	decimalEqual(t, "2880.50", revenue[0].Revenue)
	assert.Equal(t, "eletrodomesticos", revenue[1].Category)
	assert.Equal(t, "eletronicos", revenue[2].Category)

	count := CountByCategory(sales)
	assert.Equal(t, []models.CategoryCount{
		{Category: "moveis", Count: 3},
		{Category: "eletronicos", Count: 2},
		{Category: "eletrodomesticos", Count: 1},
	}, count)
}

func TestByMonth_FillsGapsChronologically(t *testing.T) {
	sales := fixture()

	revenue := RevenueByMonth(sales)
	require.Len(t, revenue, 6)

	wantMonths := []string{"January", "February", "March", "April", "May", "June"}
	for i, row := range revenue {
		assert.Equal(t, wantMonths[i], row.Month)
		assert.Equal(t, 2021, row.Year)
	}
	assert.Equal(t, day(2021, time.January, 31), revenue[0].Period)
	assert.Equal(t, day(2021, time.February, 28), revenue[1].Period)
	decimalEqual(t, "2750", revenue[0].Revenue)
	decimalEqual(t, "0", revenue[1].Revenue)
	decimalEqual(t, "380.50", revenue[2].Revenue)
	decimalEqual(t, "0", revenue[4].Revenue)

	count := CountByMonth(sales)
	require.Len(t, count, 6)
	got := make([]int, len(count))
	for i, row := range count {
		got[i] = row.Count
		assert.Equal(t, revenue[i].Period, row.Period)
	}
	assert.Equal(t, []int{2, 0, 2, 1, 0, 1}, got)
}

func TestByMonth_SpansYears(t *testing.T) {
	sales := []models.Sale{
		sale("SP", "a", "x", "1", day(2021, time.December, 15)),
		sale("SP", "a", "x", "2", day(2022, time.January, 3)),
	}
	got := RevenueByMonth(sales)
	require.Len(t, got, 2)
	assert.Equal(t, 2021, got[0].Year)
	assert.Equal(t, "December", got[0].Month)
	assert.Equal(t, 2022, got[1].Year)
	assert.Equal(t, "January", got[1].Month)
}

func TestSellers(t *testing.T) {
	sales := fixture()

	stats := SellerStats(sales)
	require.Len(t, stats, 3)
	assert.Equal(t, "Ana", stats[0].Seller)
	assert.Equal(t, 3, stats[0].Count)
	decimalEqual(t, "2220", stats[0].Revenue)

	byRevenue := TopSellersByRevenue(sales, 2)
	require.Len(t, byRevenue, 2)
	assert.Equal(t, "Bruno", byRevenue[0].Seller)
	assert.Equal(t, "Ana", byRevenue[1].Seller)

	byCount := TopSellersByCount(sales, 10)
	require.Len(t, byCount, 3)
	assert.Equal(t, []string{"Ana", "Bruno", "Carla"}, []string{byCount[0].Seller, byCount[1].Seller, byCount[2].Seller})
}

func TestTopSellers_SmallerKIsPrefix(t *testing.T) {
	var sales []models.Sale
	for i := range 8 {
		for j := 0; j <= i%3; j++ {
			sales = append(sales, sale("SP", "a", fmt.Sprintf("seller-%d", i), "100", day(2021, 1, 1)))
		}
	}

	top3 := TopSellersByCount(sales, 3)
	top5 := TopSellersByCount(sales, 5)
	require.Len(t, top3, 3)
	require.Len(t, top5, 5)
	assert.Equal(t, top3, top5[:3])

	rev3 := TopSellersByRevenue(sales, 3)
	rev5 := TopSellersByRevenue(sales, 5)
	assert.Equal(t, rev3, rev5[:3])
}

func TestClampTopK(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultTopK},
		{-3, DefaultTopK},
		{1, MinTopK},
		{2, 2},
		{7, 7},
		{10, 10},
		{50, MaxTopK},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, ClampTopK(tt.in))
		})
	}
}

func TestAggregations_EmptyInput(t *testing.T) {
	assert.Empty(t, RevenueByLocation(nil))
	assert.NotNil(t, RevenueByLocation(nil))
	assert.Empty(t, CountByLocation(nil))
	assert.Empty(t, RevenueByMonth(nil))
	assert.NotNil(t, CountByMonth(nil))
	assert.Empty(t, RevenueByCategory(nil))
	assert.Empty(t, CountByCategory(nil))
	assert.Empty(t, TopSellersByRevenue(nil, 5))
	assert.True(t, TotalRevenue(nil).IsZero())
}

func TestAnalytics_Run(t *testing.T) {
	a := newTestAnalytics(fixture())

	report, err := a.Run(context.Background(), filter.Params{}, 3)
	require.NoError(t, err)

	assert.Equal(t, 6, report.Metrics.Count)
	decimalEqual(t, "5750.50", report.Metrics.Revenue)
	assert.Equal(t, "R$ 5.75 thousand", report.Metrics.RevenueFormatted)
	assert.Equal(t, "6.00", report.Metrics.CountFormatted)
	assert.Equal(t, 3, report.TopK)
	assert.Len(t, report.TopSellersRevenue, 3)
	assert.Len(t, report.RevenueByMonth, 6)
	assert.Equal(t, day(2024, time.May, 1), report.GeneratedAt)
}

func TestAnalytics_Run_RegionScenario(t *testing.T) {
	a := newTestAnalytics(fixture())

	report, err := a.Run(context.Background(), filter.Params{Regions: []region.Region{region.Southeast}}, 5)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Metrics.Count)
	require.Len(t, report.RevenueByLocation, 1)
	assert.Equal(t, "SP", report.RevenueByLocation[0].Location)
	decimalEqual(t, "4680.50", report.RevenueByLocation[0].Revenue)
	assert.Equal(t, "R$ 4.68 thousand", report.Metrics.RevenueFormatted)

	north, err := a.Run(context.Background(), filter.Params{Regions: []region.Region{region.North}}, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, north.Metrics.Count)
}

func TestAnalytics_Run_UnknownValueYieldsEmptyTables(t *testing.T) {
	a := newTestAnalytics(fixture())

	report, err := a.Run(context.Background(), filter.Params{Sellers: []string{"nobody"}}, 5)
	require.NoError(t, err)
	assert.Zero(t, report.Metrics.Count)
	assert.Equal(t, "R$ 0.00", report.Metrics.RevenueFormatted)
	assert.Empty(t, report.RevenueByLocation)
	assert.Empty(t, report.RevenueByMonth)
	assert.Empty(t, report.TopSellersCount)
}

func TestAnalytics_Run_InvalidParams(t *testing.T) {
	a := newTestAnalytics(fixture())

	_, err := a.Run(context.Background(), filter.Params{Rating: &filter.IntRange{Min: 4, Max: 2}}, 5)
	require.Error(t, err)

	var invalid *filter.InvalidParamsError
	assert.True(t, errors.As(err, &invalid))
}

func TestAnalytics_Run_CancelledContext(t *testing.T) {
	a := newTestAnalytics(fixture())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Run(ctx, filter.Params{}, 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalytics_Table(t *testing.T) {
	a := newTestAnalytics(fixture())

	table, err := a.Table(context.Background(), filter.Params{
		Regions: []region.Region{region.North},
		Columns: []string{models.ColSeller, models.ColPrice},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{models.ColSeller, models.ColPrice}, table.Columns)
	assert.Equal(t, [][]string{{"Bruno", "950"}, {"Ana", "120"}}, table.Records())
}

func TestAnalytics_Options_NarrowedByRegion(t *testing.T) {
	a := newTestAnalytics(fixture())

	opts, err := a.Options(filter.Params{Regions: []region.Region{region.North}, Sellers: []string{"Bruno"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bruno", "Ana"}, opts.Sellers)
}

func TestAnalytics_Stats(t *testing.T) {
	a := newTestAnalytics(fixture())
	_, err := a.Run(context.Background(), filter.Params{}, 5)
	require.NoError(t, err)

	stats := a.Stats()
	assert.Equal(t, 6, stats["record_count"])
	assert.Equal(t, 1, stats["dropped_date"])
	assert.Equal(t, int64(1), stats["pipeline_runs"])
	assert.Equal(t, "vendas.json", stats["source"])
}
