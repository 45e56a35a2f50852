package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/region"
)

// DateLayout is the single day-first layout used for purchase dates, both
// when reading the source file and when writing exports.
const DateLayout = "02/01/2006"

// Source column names. Exports use the same headers so a filtered export can
// be loaded back as a dataset.
const (
	ColProduct      = "Produto"
	ColCategory     = "Categoria do Produto"
	ColPrice        = "Preço"
	ColFreight      = "Frete"
	ColPurchaseDate = "Data da Compra"
	ColSeller       = "Vendedor"
	ColLocation     = "Local de compra"
	ColRating       = "Avaliação da compra"
	ColPaymentType  = "Tipo de pagamento"
	ColInstallments = "Quantidade de parcelas"
	ColLat          = "lat"
	ColLon          = "lon"
	ColRegion       = "Região"
)

// Columns lists every column of a normalized sale in canonical order.
var Columns = []string{
	ColProduct, ColCategory, ColPrice, ColFreight, ColPurchaseDate, ColSeller,
	ColLocation, ColRating, ColPaymentType, ColInstallments, ColLat, ColLon,
	ColRegion,
}

// IsColumn reports whether name is one of Columns.
func IsColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Sale is one normalized transaction.
type Sale struct {
	Product      string          `json:"product"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	Freight      decimal.Decimal `json:"freight"`
	PurchaseDate time.Time       `json:"purchase_date"`
	Seller       string          `json:"seller"`
	Location     string          `json:"location"`
	Rating       int             `json:"rating"`
	PaymentType  string          `json:"payment_type"`
	Installments int             `json:"installments"`
	Lat          float64         `json:"lat"`
	Lon          float64         `json:"lon"`
	Region       region.Region   `json:"region"`
}

// Text returns the textual form of column col, as written to CSV exports.
func (s Sale) Text(col string) (string, bool) {
	switch col {
	case ColProduct:
		return s.Product, true
	case ColCategory:
		return s.Category, true
	case ColPrice:
		return s.Price.String(), true
	case ColFreight:
		return s.Freight.String(), true
	case ColPurchaseDate:
		return s.PurchaseDate.Format(DateLayout), true
	case ColSeller:
		return s.Seller, true
	case ColLocation:
		return s.Location, true
	case ColRating:
		return strconv.Itoa(s.Rating), true
	case ColPaymentType:
		return s.PaymentType, true
	case ColInstallments:
		return strconv.Itoa(s.Installments), true
	case ColLat:
		return strconv.FormatFloat(s.Lat, 'f', -1, 64), true
	case ColLon:
		return strconv.FormatFloat(s.Lon, 'f', -1, 64), true
	case ColRegion:
		return s.Region.String(), true
	}
	return "", false
}

// Value returns column col as a typed value for spreadsheet cells.
func (s Sale) Value(col string) (any, bool) {
	switch col {
	case ColPrice:
		return s.Price.InexactFloat64(), true
	case ColFreight:
		return s.Freight.InexactFloat64(), true
	case ColRating:
		return s.Rating, true
	case ColInstallments:
		return s.Installments, true
	case ColLat:
		return s.Lat, true
	case ColLon:
		return s.Lon, true
	}
	return s.Text(col)
}
