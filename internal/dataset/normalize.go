package dataset

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/region"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

// dateLayout accepts one- or two-digit day and month, day first.
// A month-first source date like 03/04/2021 parses as 3 April: such rows are
// kept with a wrong date rather than dropped.
const dateLayout = "2/1/2006"

var (
	errBadDate  = errors.New("unparseable purchase date")
	errBadField = errors.New("malformed field")
)

// ParseDate parses a purchase date with the dataset's day-first layout.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errBadDate
	}
	return t, nil
}

type batchResult struct {
	sales          []models.Sale
	droppedDate    int
	droppedInvalid int
}

// Normalize converts raw records into sales, preserving source order.
// Batches run concurrently; ErrNoValidRows is returned when nothing survives.
func Normalize(ctx context.Context, raws []RawRecord) ([]models.Sale, Stats, error) {
	stats := Stats{Total: len(raws)}

	nBatches := (len(raws) + batchSize - 1) / batchSize
	results := make([]batchResult, nBatches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for b := range nBatches {
		lo := b * batchSize
		hi := min(lo+batchSize, len(raws))
		g.Go(func() error {
			res := batchResult{sales: make([]models.Sale, 0, hi-lo)}
			for _, raw := range raws[lo:hi] {
				if err := gctx.Err(); err != nil {
					return err
				}
				sale, err := normalizeRecord(raw)
				switch {
				case errors.Is(err, errBadDate):
					res.droppedDate++
				case err != nil:
					res.droppedInvalid++
				default:
					res.sales = append(res.sales, sale)
				}
			}
			results[b] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	sales := make([]models.Sale, 0, len(raws))
	for _, res := range results {
		sales = append(sales, res.sales...)
		stats.DroppedDate += res.droppedDate
		stats.DroppedInvalid += res.droppedInvalid
	}
	stats.Loaded = len(sales)

	if len(sales) == 0 {
		return nil, stats, ErrNoValidRows
	}
	return sales, stats, nil
}

func normalizeRecord(raw RawRecord) (models.Sale, error) {
	date, err := ParseDate(raw[models.ColPurchaseDate])
	if err != nil {
		return models.Sale{}, err
	}

	price, err := parseAmount(raw[models.ColPrice])
	if err != nil {
		return models.Sale{}, err
	}
	freight, err := parseAmount(raw[models.ColFreight])
	if err != nil {
		return models.Sale{}, err
	}
	rating, err := parseWhole(raw[models.ColRating])
	if err != nil || rating < 1 || rating > 5 {
		return models.Sale{}, errBadField
	}
	installments, err := parseWhole(raw[models.ColInstallments])
	if err != nil || installments < 1 {
		return models.Sale{}, errBadField
	}
	lat, err := parseCoordinate(raw[models.ColLat])
	if err != nil {
		return models.Sale{}, err
	}
	lon, err := parseCoordinate(raw[models.ColLon])
	if err != nil {
		return models.Sale{}, err
	}

	location := strings.TrimSpace(raw[models.ColLocation])
	return models.Sale{
		Product:      strings.TrimSpace(raw[models.ColProduct]),
		Category:     strings.TrimSpace(raw[models.ColCategory]),
		Price:        price,
		Freight:      freight,
		PurchaseDate: date,
		Seller:       strings.TrimSpace(raw[models.ColSeller]),
		Location:     location,
		Rating:       rating,
		PaymentType:  strings.TrimSpace(raw[models.ColPaymentType]),
		Installments: installments,
		Lat:          lat,
		Lon:          lon,
		Region:       region.Classify(location),
	}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero, errBadField
	}
	return d, nil
}

// parseWhole accepts "3" and integral floats such as "3.0".
func parseWhole(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, errBadField
	}
	return int(f), nil
}

func parseCoordinate(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errBadField
	}
	return f, nil
}
