// Package dataset reads the sales file and normalizes it into models.Sale
// values: it derives the region column, parses purchase dates day-first and
// drops rows that cannot be normalized.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sales-dashboard/internal/models"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	ErrNoValidRows       = errors.New("no valid records found")
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// FormatFromPath picks the decoder from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Stats describes what normalization kept and dropped.
type Stats struct {
	Total          int `json:"total"`
	Loaded         int `json:"loaded"`
	DroppedDate    int `json:"dropped_date"`
	DroppedInvalid int `json:"dropped_invalid"`
}

// Dataset is the normalized, read-only table shared by every pipeline run.
type Dataset struct {
	Sales    []models.Sale
	Stats    Stats
	Source   string
	LoadedAt time.Time
}

type Loader struct {
	logger *slog.Logger
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load reads and normalizes the file at path. Any error returned here means
// the source as a whole is unusable; individual bad rows never fail a load.
func (l *Loader) Load(ctx context.Context, path string) (*Dataset, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	l.logger.Info("loading dataset", "path", path, "format", format)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	raws, err := Decode(file, format)
	if err != nil {
		return nil, fmt.Errorf("decode %s dataset: %w", format, err)
	}

	sales, stats, err := Normalize(ctx, raws)
	if err != nil {
		return nil, err
	}

	if stats.DroppedDate > 0 || stats.DroppedInvalid > 0 {
		l.logger.Warn("dropped rows during normalization",
			"dropped_date", stats.DroppedDate,
			"dropped_invalid", stats.DroppedInvalid,
		)
	}

	duration := time.Since(start)
	l.logger.Info("dataset loaded",
		"records", stats.Loaded,
		"total", stats.Total,
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(stats.Total)/duration.Seconds()))

	return &Dataset{
		Sales:    sales,
		Stats:    stats,
		Source:   path,
		LoadedAt: time.Now(),
	}, nil
}
