// Package region maps Brazilian state codes (UF) to the five macro regions
// used by the dashboard. Both entry points share this single table.
package region

import "strings"

type Region string

const (
	North       Region = "North"
	Northeast   Region = "Northeast"
	CentralWest Region = "Central-West"
	Southeast   Region = "Southeast"
	South       Region = "South"
	Undefined   Region = "Undefined"
)

// regionCodes is the canonical UF table. Order matters only for All().
var regionCodes = []struct {
	region Region
	codes  []string
}{
	{North, []string{"AC", "AP", "AM", "PA", "RO", "RR", "TO"}},
	{Northeast, []string{"AL", "BA", "CE", "MA", "PB", "PE", "PI", "RN", "SE"}},
	{CentralWest, []string{"DF", "GO", "MT", "MS"}},
	{Southeast, []string{"ES", "MG", "RJ", "SP"}},
	{South, []string{"PR", "RS", "SC"}},
}

var byCode = func() map[string]Region {
	m := make(map[string]Region, 27)
	for _, rc := range regionCodes {
		for _, code := range rc.codes {
			m[code] = rc.region
		}
	}
	return m
}()

// Classify returns the region containing code, or Undefined.
// Codes are matched exactly; callers trim input before classifying.
func Classify(code string) Region {
	if r, ok := byCode[code]; ok {
		return r
	}
	return Undefined
}

// All returns the five selectable regions in table order.
func All() []Region {
	out := make([]Region, 0, len(regionCodes))
	for _, rc := range regionCodes {
		out = append(out, rc.region)
	}
	return out
}

// Codes returns a copy of the state codes of r. Undefined has none.
func Codes(r Region) []string {
	for _, rc := range regionCodes {
		if rc.region == r {
			return append([]string(nil), rc.codes...)
		}
	}
	return nil
}

// Parse resolves a region name case-insensitively, including Undefined.
func Parse(name string) (Region, bool) {
	name = strings.TrimSpace(name)
	for _, r := range append(All(), Undefined) {
		if strings.EqualFold(name, string(r)) {
			return r, true
		}
	}
	return "", false
}

func (r Region) String() string {
	return string(r)
}

// UnmarshalText accepts region names in any case and stores the canonical
// spelling. Unknown names are kept verbatim so validation can report them.
func (r *Region) UnmarshalText(text []byte) error {
	if parsed, ok := Parse(string(text)); ok {
		*r = parsed
		return nil
	}
	*r = Region(text)
	return nil
}
