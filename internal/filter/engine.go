package filter

import (
	"strings"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/region"
)

type stringSet map[string]struct{}

// newSet returns nil for an empty selection so the column stays unconstrained.
func newSet[T ~string](values []T) stringSet {
	if len(values) == 0 {
		return nil
	}
	s := make(stringSet, len(values))
	for _, v := range values {
		s[string(v)] = struct{}{}
	}
	return s
}

func (s stringSet) allows(v string) bool {
	if s == nil {
		return true
	}
	_, ok := s[v]
	return ok
}

type predicate struct {
	regions      stringSet
	sellers      stringSet
	products     stringSet
	categories   stringSet
	locations    stringSet
	paymentTypes stringSet
	p            Params
}

func compile(p Params) predicate {
	return predicate{
		regions:      newSet(p.Regions),
		sellers:      newSet(p.Sellers),
		products:     newSet(p.Products),
		categories:   newSet(p.Categories),
		locations:    newSet(p.Locations),
		paymentTypes: newSet(p.PaymentTypes),
		p:            p,
	}
}

func (pr predicate) match(s models.Sale) bool {
	p := pr.p
	switch {
	case !pr.regions.allows(string(s.Region)),
		!pr.sellers.allows(s.Seller),
		!pr.products.allows(s.Product),
		!pr.categories.allows(s.Category),
		!pr.locations.allows(s.Location),
		!pr.paymentTypes.allows(s.PaymentType):
		return false
	case p.Year != nil && s.PurchaseDate.Year() != *p.Year:
		return false
	case p.Price != nil && !p.Price.contains(s.Price):
		return false
	case p.Freight != nil && !p.Freight.contains(s.Freight):
		return false
	case p.PurchaseDate != nil && !p.PurchaseDate.contains(s.PurchaseDate):
		return false
	case p.Rating != nil && !p.Rating.contains(s.Rating):
		return false
	case p.Installments != nil && !p.Installments.contains(s.Installments):
		return false
	}
	return true
}

// Apply returns the sales matching every constraint of p, in input order.
// The input slice is never modified and the result never aliases it.
func Apply(sales []models.Sale, p Params) []models.Sale {
	if p.IsZero() {
		return append(make([]models.Sale, 0, len(sales)), sales...)
	}
	pr := compile(p)
	out := make([]models.Sale, 0, len(sales))
	for _, s := range sales {
		if pr.match(s) {
			out = append(out, s)
		}
	}
	return out
}

// Table is a filtered view restricted to a column selection.
type Table struct {
	Columns []string
	Rows    []models.Sale
}

// Project selects columns after row filtering. Unknown and repeated names
// are skipped; an empty selection keeps every column.
func Project(rows []models.Sale, columns []string) Table {
	selected := make([]string, 0, len(columns))
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if models.IsColumn(c) && !seen[c] {
			seen[c] = true
			selected = append(selected, c)
		}
	}
	if len(selected) == 0 {
		selected = append(selected, models.Columns...)
	}
	return Table{Columns: selected, Rows: rows}
}

// Records renders the table as text cells, one slice per row.
func (t Table) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, s := range t.Rows {
		row := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			row[j], _ = s.Text(c)
		}
		out[i] = row
	}
	return out
}

// RegionOrAll reads a region selector value. "Brasil", "all" and "" select
// the whole country and return ok == false. Unknown names are passed through
// unchanged so Validate can report them.
func RegionOrAll(name string) (r region.Region, ok bool) {
	switch strings.TrimSpace(name) {
	case "", "Brasil", "Brazil", "all":
		return "", false
	}
	if r, ok := region.Parse(name); ok {
		return r, true
	}
	return region.Region(name), true
}
