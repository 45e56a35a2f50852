// Package format renders headline metrics in human-readable magnitudes.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

var thousand = decimal.NewFromInt(1000)

// Two steps only: 1.2 billion is shown as "1200.00 million".
var units = []string{"", "thousand"}

// Magnitude divides v by 1000 while it is at least 1000, up to two times,
// and labels the result. Two decimal places are always shown, rounded half
// to even: 2505 is "2.50 thousand" and 2515 is "2.52 thousand".
//
//	500            -> "500.00"
//	2500           -> "2.50 thousand"
//	3200000        -> "3.20 million"
//	1200000000     -> "1200.00 million"
func Magnitude(v decimal.Decimal, prefix string) string {
	for _, unit := range units {
		if v.LessThan(thousand) {
			return join(prefix, v.StringFixedBank(2), unit)
		}
		v = v.Div(thousand)
	}
	return join(prefix, v.StringFixedBank(2), "million")
}

// Count formats a record count with the same scaling rule.
func Count(n int) string {
	return Magnitude(decimal.NewFromInt(int64(n)), "")
}

func join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
