// Package export turns a filtered, column-projected table into downloadable
// CSV or XLSX payloads.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"sales-dashboard/internal/filter"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrInvalidText       = errors.New("value is not valid UTF-8")
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DefaultFileName is used when the user leaves the name empty.
const DefaultFileName = "dados"

const sheetName = "dados"

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FileName appends the format extension to the user-chosen name. Directory
// parts and characters unsafe in a Content-Disposition header are dropped.
func FileName(name string, f Format) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\\', '/', '\r', '\n':
			return -1
		}
		return r
	}, filepath.Base("/"+name))
	if name == "" || name == "." {
		name = DefaultFileName
	}
	ext := "." + string(f)
	if strings.HasSuffix(strings.ToLower(name), ext) {
		return name
	}
	return name + ext
}

// CSV encodes t as UTF-8, comma separated, with a header row and no index
// column. A table without rows yields just the header.
func CSV(t filter.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := gocsv.NewSafeCSVWriter(csv.NewWriter(&buf))

	if err := writeRecord(w, t.Columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, record := range t.Records() {
		if err := writeRecord(w, record); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRecord(w *gocsv.SafeCSVWriter, record []string) error {
	for _, v := range record {
		if !utf8.ValidString(v) {
			return fmt.Errorf("%w: %q", ErrInvalidText, v)
		}
	}
	return w.Write(record)
}

// XLSX writes t to a single sheet, keeping numeric columns numeric.
func XLSX(t filter.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, sale := range t.Rows {
		row := make([]any, len(t.Columns))
		for j, col := range t.Columns {
			v, _ := sale.Value(col)
			if s, ok := v.(string); ok && !utf8.ValidString(s) {
				return nil, fmt.Errorf("write row %d: %w: %q", i+1, ErrInvalidText, s)
			}
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode dispatches on f.
func Encode(t filter.Table, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return CSV(t)
	case FormatXLSX:
		return XLSX(t)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}
