package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/gocarina/gocsv"
)

// RawRecord is one source row keyed by source column name.
type RawRecord map[string]string

// Decode reads every raw record from r.
func Decode(r io.Reader, format Format) ([]RawRecord, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(r)
	case FormatCSV:
		return decodeCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func decodeCSV(r io.Reader) ([]RawRecord, error) {
	rows, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	out := make([]RawRecord, len(rows))
	for i, row := range rows {
		out[i] = RawRecord(row)
	}
	return out, nil
}

// decodeJSON accepts a records array ([{"col": v}, ...]) or the columnar
// layout ({"col": {"0": v, "1": v}}) written by dataframe tools.
func decodeJSON(r io.Reader) ([]RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	switch data[0] {
	case '[':
		var rows []map[string]any
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("parse records: %w", err)
		}
		out := make([]RawRecord, 0, len(rows))
		for _, row := range rows {
			rec := make(RawRecord, len(row))
			for k, v := range row {
				rec[k] = stringify(v)
			}
			out = append(out, rec)
		}
		return out, nil

	case '{':
		var columns map[string]map[string]any
		if err := dec.Decode(&columns); err != nil {
			return nil, fmt.Errorf("parse columns: %w", err)
		}
		return pivotColumns(columns), nil

	default:
		return nil, fmt.Errorf("unexpected json document starting with %q", data[0])
	}
}

func pivotColumns(columns map[string]map[string]any) []RawRecord {
	indexSet := make(map[string]struct{})
	for _, values := range columns {
		for idx := range values {
			indexSet[idx] = struct{}{}
		}
	}

	indexes := make([]string, 0, len(indexSet))
	for idx := range indexSet {
		indexes = append(indexes, idx)
	}
	slices.SortFunc(indexes, compareIndex)

	out := make([]RawRecord, 0, len(indexes))
	for _, idx := range indexes {
		rec := make(RawRecord, len(columns))
		for col, values := range columns {
			if v, ok := values[idx]; ok {
				rec[col] = stringify(v)
			}
		}
		out = append(out, rec)
	}
	return out
}

// compareIndex orders numeric row labels numerically, others lexically.
func compareIndex(a, b string) int {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return ai - bi
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
