package handlers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/filter"
	"sales-dashboard/internal/region"
)

// Query parameter names accepted by the JSON API and the export endpoints.
const (
	paramRegion          = "region"
	paramYear            = "year"
	paramSeller          = "seller"
	paramProduct         = "product"
	paramCategory        = "category"
	paramLocation        = "location"
	paramPaymentType     = "payment_type"
	paramPriceMin        = "price_min"
	paramPriceMax        = "price_max"
	paramFreightMin      = "freight_min"
	paramFreightMax      = "freight_max"
	paramDateFrom        = "date_from"
	paramDateTo          = "date_to"
	paramRatingMin       = "rating_min"
	paramRatingMax       = "rating_max"
	paramInstallmentsMin = "installments_min"
	paramInstallmentsMax = "installments_max"
	paramColumn          = "column"
	paramTop             = "top"
	paramBy              = "by"
	paramName            = "name"
)

var filterParams = []string{
	paramRegion, paramYear, paramSeller, paramProduct, paramCategory, paramLocation,
	paramPaymentType, paramPriceMin, paramPriceMax, paramFreightMin, paramFreightMax,
	paramDateFrom, paramDateTo, paramRatingMin, paramRatingMax, paramInstallmentsMin,
	paramInstallmentsMax, paramColumn,
}

// inputDateLayout is the value format of HTML date inputs.
const inputDateLayout = "2006-01-02"

// hasFilterParams reports whether q carries any filter selection.
func hasFilterParams(q url.Values) bool {
	for _, name := range filterParams {
		if q.Has(name) {
			return true
		}
	}
	return false
}

// paramParser collects every malformed value instead of stopping at the
// first, so the response lists all of them.
type paramParser struct {
	fields []filter.FieldError
}

func (pp *paramParser) fail(field, format string, args ...any) {
	pp.fields = append(pp.fields, filter.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (pp *paramParser) err() error {
	if len(pp.fields) == 0 {
		return nil
	}
	return &filter.InvalidParamsError{Fields: pp.fields}
}

func (pp *paramParser) regions(names []string) []region.Region {
	var out []region.Region
	for _, name := range names {
		if r, ok := filter.RegionOrAll(name); ok {
			out = append(out, r)
		}
	}
	return out
}

// year reads the year selector; "" and "all" mean the whole period.
func (pp *paramParser) year(v string) *int {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "all") {
		return nil
	}
	y, err := strconv.Atoi(v)
	if err != nil {
		pp.fail("year", "must be a year or \"all\"")
		return nil
	}
	return &y
}

func (pp *paramParser) decimalRange(field, lo, hi string) *filter.DecimalRange {
	lo, hi = strings.TrimSpace(lo), strings.TrimSpace(hi)
	if lo == "" && hi == "" {
		return nil
	}
	if lo == "" || hi == "" {
		pp.fail(field, "min and max must be given together")
		return nil
	}
	minV, errMin := decimal.NewFromString(lo)
	maxV, errMax := decimal.NewFromString(hi)
	if errMin != nil {
		pp.fail(field+".min", "must be a number")
	}
	if errMax != nil {
		pp.fail(field+".max", "must be a number")
	}
	if errMin != nil || errMax != nil {
		return nil
	}
	return &filter.DecimalRange{Min: minV, Max: maxV}
}

func (pp *paramParser) intRange(field, lo, hi string) *filter.IntRange {
	lo, hi = strings.TrimSpace(lo), strings.TrimSpace(hi)
	if lo == "" && hi == "" {
		return nil
	}
	if lo == "" || hi == "" {
		pp.fail(field, "min and max must be given together")
		return nil
	}
	minV, errMin := strconv.Atoi(lo)
	maxV, errMax := strconv.Atoi(hi)
	if errMin != nil {
		pp.fail(field+".min", "must be a whole number")
	}
	if errMax != nil {
		pp.fail(field+".max", "must be a whole number")
	}
	if errMin != nil || errMax != nil {
		return nil
	}
	return &filter.IntRange{Min: minV, Max: maxV}
}

func (pp *paramParser) dateRange(field, from, to string) *filter.DateRange {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return nil
	}
	if from == "" || to == "" {
		pp.fail(field, "from and to must be given together")
		return nil
	}
	start, errFrom := time.Parse(inputDateLayout, from)
	end, errTo := time.Parse(inputDateLayout, to)
	if errFrom != nil {
		pp.fail(field+".from", "must be a date (YYYY-MM-DD)")
	}
	if errTo != nil {
		pp.fail(field+".to", "must be a date (YYYY-MM-DD)")
	}
	if errFrom != nil || errTo != nil {
		return nil
	}
	return &filter.DateRange{From: start, To: end}
}

func (pp *paramParser) topK(v string) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	k, err := strconv.Atoi(v)
	if err != nil {
		pp.fail("top", "must be a whole number")
		return 0
	}
	return k
}

// values drops empty entries from a repeated query parameter.
func values(q url.Values, name string) []string {
	var out []string
	for _, v := range q[name] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ParseQuery reads filter parameters from a query string. Categorical
// parameters repeat (?seller=Ana&seller=Bruno); ranges take a _min/_max or
// _from/_to pair.
func ParseQuery(q url.Values) (filter.Params, error) {
	var pp paramParser
	p := filter.Params{
		Regions:      pp.regions(q[paramRegion]),
		Year:         pp.year(q.Get(paramYear)),
		Sellers:      values(q, paramSeller),
		Products:     values(q, paramProduct),
		Categories:   values(q, paramCategory),
		Locations:    values(q, paramLocation),
		PaymentTypes: values(q, paramPaymentType),
		Price:        pp.decimalRange("price", q.Get(paramPriceMin), q.Get(paramPriceMax)),
		Freight:      pp.decimalRange("freight", q.Get(paramFreightMin), q.Get(paramFreightMax)),
		PurchaseDate: pp.dateRange("purchase_date", q.Get(paramDateFrom), q.Get(paramDateTo)),
		Rating:       pp.intRange("rating", q.Get(paramRatingMin), q.Get(paramRatingMax)),
		Installments: pp.intRange("installments", q.Get(paramInstallmentsMin), q.Get(paramInstallmentsMax)),
		Columns:      values(q, paramColumn),
	}
	if err := pp.err(); err != nil {
		return filter.Params{}, err
	}
	return p, filter.Validate(p)
}

// flex holds a bound input value. Inputs report strings or numbers
// depending on their type, so both are accepted.
type flex string

func (f *flex) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flex(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flex(n.String())
	return nil
}

// wholeCountry is the region selector entry that applies no region filter.
const wholeCountry = "Brasil"

// dashboardSignals mirrors the dashboard sidebar.
type dashboardSignals struct {
	Tab      string   `json:"tab"`
	Region   string   `json:"region"`
	AllYears bool     `json:"allyears"`
	Year     flex     `json:"year"`
	Sellers  []string `json:"sellers"`
	TopK     flex     `json:"topk"`
}

func (s dashboardSignals) params() (filter.Params, int, error) {
	var pp paramParser
	p := filter.Params{
		Regions: pp.regions([]string{s.Region}),
		Sellers: s.Sellers,
	}
	if !s.AllYears {
		p.Year = pp.year(string(s.Year))
	}
	topK := pp.topK(string(s.TopK))
	if err := pp.err(); err != nil {
		return filter.Params{}, 0, err
	}
	return p, topK, filter.Validate(p)
}

func newDashboardSignals(p filter.Params, topK int, defaultYear int) dashboardSignals {
	s := dashboardSignals{
		Tab:      "revenue",
		Region:   wholeCountry,
		AllYears: p.Year == nil,
		Year:     flex(strconv.Itoa(defaultYear)),
		Sellers:  p.Sellers,
		TopK:     flex(strconv.Itoa(topK)),
	}
	if len(p.Regions) > 0 {
		s.Region = p.Regions[0].String()
	}
	if p.Year != nil {
		s.Year = flex(strconv.Itoa(*p.Year))
	}
	if s.Sellers == nil {
		s.Sellers = []string{}
	}
	return s
}

// rawSignals mirrors the raw-data sidebar and column chooser.
type rawSignals struct {
	Columns         []string `json:"columns"`
	Products        []string `json:"products"`
	Categories      []string `json:"categories"`
	Sellers         []string `json:"sellers"`
	Locations       []string `json:"locations"`
	PaymentTypes    []string `json:"paymenttypes"`
	PriceMin        flex     `json:"pricemin"`
	PriceMax        flex     `json:"pricemax"`
	FreightMin      flex     `json:"freightmin"`
	FreightMax      flex     `json:"freightmax"`
	DateFrom        flex     `json:"datefrom"`
	DateTo          flex     `json:"dateto"`
	RatingMin       flex     `json:"ratingmin"`
	RatingMax       flex     `json:"ratingmax"`
	InstallmentsMin flex     `json:"installmentsmin"`
	InstallmentsMax flex     `json:"installmentsmax"`
	FileName        string   `json:"filename"`
}

func (s rawSignals) params() (filter.Params, error) {
	var pp paramParser
	p := filter.Params{
		Products:     s.Products,
		Categories:   s.Categories,
		Sellers:      s.Sellers,
		Locations:    s.Locations,
		PaymentTypes: s.PaymentTypes,
		Price:        pp.decimalRange("price", string(s.PriceMin), string(s.PriceMax)),
		Freight:      pp.decimalRange("freight", string(s.FreightMin), string(s.FreightMax)),
		PurchaseDate: pp.dateRange("purchase_date", string(s.DateFrom), string(s.DateTo)),
		Rating:       pp.intRange("rating", string(s.RatingMin), string(s.RatingMax)),
		Installments: pp.intRange("installments", string(s.InstallmentsMin), string(s.InstallmentsMax)),
		Columns:      s.Columns,
	}
	if err := pp.err(); err != nil {
		return filter.Params{}, err
	}
	return p, filter.Validate(p)
}

// newRawSignals fills the sidebar from stored selections, falling back to
// the full extent of the data for unset ranges.
func newRawSignals(p filter.Params, opts filter.Options, fileName string) rawSignals {
	s := rawSignals{
		Columns:         orEmpty(p.Columns),
		Products:        orEmpty(p.Products),
		Categories:      orEmpty(p.Categories),
		Sellers:         orEmpty(p.Sellers),
		Locations:       orEmpty(p.Locations),
		PaymentTypes:    orEmpty(p.PaymentTypes),
		PriceMin:        flex(opts.PriceMin.String()),
		PriceMax:        flex(opts.PriceMax.String()),
		FreightMin:      flex(opts.FreightMin.String()),
		FreightMax:      flex(opts.FreightMax.String()),
		RatingMin:       "1",
		RatingMax:       "5",
		InstallmentsMin: flex(strconv.Itoa(opts.InstallmentsMin)),
		InstallmentsMax: flex(strconv.Itoa(opts.InstallmentsMax)),
		FileName:        fileName,
	}
	if len(s.Columns) == 0 {
		s.Columns = orEmpty(opts.Columns)
	}
	if !opts.DateMin.IsZero() {
		s.DateFrom = flex(opts.DateMin.Format(inputDateLayout))
		s.DateTo = flex(opts.DateMax.Format(inputDateLayout))
	}
	if p.Price != nil {
		s.PriceMin, s.PriceMax = flex(p.Price.Min.String()), flex(p.Price.Max.String())
	}
	if p.Freight != nil {
		s.FreightMin, s.FreightMax = flex(p.Freight.Min.String()), flex(p.Freight.Max.String())
	}
	if p.PurchaseDate != nil {
		s.DateFrom = flex(p.PurchaseDate.From.Format(inputDateLayout))
		s.DateTo = flex(p.PurchaseDate.To.Format(inputDateLayout))
	}
	if p.Rating != nil {
		s.RatingMin, s.RatingMax = flex(strconv.Itoa(p.Rating.Min)), flex(strconv.Itoa(p.Rating.Max))
	}
	if p.Installments != nil {
		s.InstallmentsMin = flex(strconv.Itoa(p.Installments.Min))
		s.InstallmentsMax = flex(strconv.Itoa(p.Installments.Max))
	}
	return s
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
