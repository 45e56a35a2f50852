package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/filter"
	"sales-dashboard/internal/format"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

// RevenuePrefix is the currency prefix of the formatted revenue metric.
const RevenuePrefix = "R$"

// Analytics runs the aggregation pipeline over a loaded dataset. The dataset is
// never modified, so one Analytics serves any number of concurrent requests.
type Analytics struct {
	data    *dataset.Dataset
	logger  *slog.Logger
	metrics *observability.Metrics
	runs    atomic.Int64
	now     func() time.Time
}

func NewAnalytics(data *dataset.Dataset, logger *slog.Logger, metrics *observability.Metrics) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	if data == nil {
		data = &dataset.Dataset{}
	}
	return &Analytics{
		data:    data,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Sales returns the normalized table. Callers must not modify it.
func (a *Analytics) Sales() []models.Sale {
	return a.data.Sales
}

// Filter validates p and applies it to the dataset.
func (a *Analytics) Filter(p filter.Params) ([]models.Sale, error) {
	if err := filter.Validate(p); err != nil {
		return nil, err
	}
	return filter.Apply(a.data.Sales, p), nil
}

// Table filters the dataset and projects it onto p.Columns.
func (a *Analytics) Table(ctx context.Context, p filter.Params) (filter.Table, error) {
	_, span := observability.StartSpan(ctx, "analytics.Table")
	defer span.End()

	rows, err := a.Filter(p)
	if err != nil {
		observability.SetError(span, err)
		return filter.Table{}, err
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return filter.Project(rows, p.Columns), nil
}

// Options lists the selectable filter values. Region and year narrow the
// candidates the same way the dashboard seller selector does.
func (a *Analytics) Options(p filter.Params) (filter.Options, error) {
	rows, err := a.Filter(p.RegionYear())
	if err != nil {
		return filter.Options{}, err
	}
	return filter.OptionsFor(rows), nil
}

// Run filters the dataset with p and computes every summary table plus the
// headline metrics. Nothing is kept between runs.
func (a *Analytics) Run(ctx context.Context, p filter.Params, topK int) (*models.Report, error) {
	ctx, span := observability.StartSpan(ctx, "analytics.Run", attribute.Int("top_k", topK))
	defer span.End()

	start := time.Now()
	report, err := a.run(ctx, p, topK)
	rows := 0
	if report != nil {
		rows = report.Metrics.Count
	}
	a.metrics.PipelineRun(ctx, time.Since(start), rows, err)
	if err != nil {
		observability.SetError(span, err)
		return nil, err
	}

	a.runs.Add(1)
	span.SetAttributes(attribute.Int("rows", rows))
	observability.LoggerFrom(ctx, a.logger).Debug("pipeline run",
		"rows", rows,
		"top_k", report.TopK,
		"duration", time.Since(start))
	return report, nil
}

func (a *Analytics) run(ctx context.Context, p filter.Params, topK int) (*models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := a.Filter(p)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}

	k := ClampTopK(topK)
	revenue := TotalRevenue(rows)

	return &models.Report{
		Metrics: models.Metrics{
			Revenue:          revenue,
			Count:            len(rows),
			RevenueFormatted: format.Magnitude(revenue, RevenuePrefix),
			CountFormatted:   format.Count(len(rows)),
		},
		RevenueByLocation: RevenueByLocation(rows),
		CountByLocation:   CountByLocation(rows),
		RevenueByMonth:    RevenueByMonth(rows),
		CountByMonth:      CountByMonth(rows),
		RevenueByCategory: RevenueByCategory(rows),
		CountByCategory:   CountByCategory(rows),
		TopSellersRevenue: TopSellersByRevenue(rows, k),
		TopSellersCount:   TopSellersByCount(rows, k),
		TopK:              k,
		GeneratedAt:       a.now().UTC(),
	}, nil
}

// Stats reports dataset and usage figures for the admin endpoint.
func (a *Analytics) Stats() map[string]any {
	return map[string]any{
		"source":          a.data.Source,
		"loaded_at":       a.data.LoadedAt,
		"record_count":    a.data.Stats.Loaded,
		"total_rows":      a.data.Stats.Total,
		"dropped_date":    a.data.Stats.DroppedDate,
		"dropped_invalid": a.data.Stats.DroppedInvalid,
		"pipeline_runs":   a.runs.Load(),
	}
}
