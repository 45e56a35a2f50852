package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/filter"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
	"sales-dashboard/internal/ui/templates"
)

// datastarQuery is the query parameter carrying signals on @get requests.
const datastarQuery = "datastar"

type SSEHandlers struct {
	analytics *services.Analytics
	sessions  *session.Store
	logger    *slog.Logger
	maxRows   int
}

func NewSSEHandlers(analytics *services.Analytics, sessions *session.Store, logger *slog.Logger, maxRows int) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		sessions:  sessions,
		logger:    logger,
		maxRows:   maxRows,
	}
}

// readSignals decodes the signals of a datastar request into v. It reports
// false when the request carries none, in which case the stored session
// state is rendered unchanged.
func readSignals(r *http.Request, v any) (bool, error) {
	if r.Method == http.MethodGet && !r.URL.Query().Has(datastarQuery) {
		return false, nil
	}
	if err := datastar.ReadSignals(r, v); err != nil {
		return false, errors.BadRequestWrap(err, "malformed signals")
	}
	return true, nil
}

// flashMessage turns a pipeline error into text for the flash area.
func flashMessage(err error) string {
	var invalid *filter.InvalidParamsError
	if stderrors.As(err, &invalid) {
		return invalid.Error()
	}
	return "The dashboard could not be updated. Please try again."
}

func patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, components ...templ.Component) error {
	for _, c := range components {
		html, err := templates.String(ctx, c)
		if err != nil {
			return fmt.Errorf("render fragment: %w", err)
		}
		if err := sse.PatchElements(html); err != nil {
			return fmt.Errorf("patch fragment: %w", err)
		}
	}
	return nil
}

// chartData is patched into the $charts signal for client-side charts.
func chartData(report *models.Report) map[string]any {
	return map[string]any{
		"charts": map[string]any{
			"revenueByLocation": report.RevenueByLocation,
			"countByLocation":   report.CountByLocation,
			"revenueByMonth":    report.RevenueByMonth,
			"countByMonth":      report.CountByMonth,
			"revenueByCategory": report.RevenueByCategory,
			"countByCategory":   report.CountByCategory,
			"topSellersRevenue": report.TopSellersRevenue,
			"topSellersCount":   report.TopSellersCount,
		},
	}
}

// HandleDashboard stores the sidebar selections, reruns the pipeline and
// patches every dashboard fragment.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFrom(ctx, h.logger)

	id := h.sessions.ID(w, r)
	state, _ := h.sessions.Get(id)

	var sig dashboardSignals
	ok, err := readSignals(r, &sig)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sse := datastar.NewSSE(w, r)

	if ok {
		p, topK, err := sig.params()
		if err != nil {
			h.flash(ctx, sse, logger, err)
			return
		}
		state.Params = p
		state.TopK = services.ClampTopK(topK)
		h.sessions.Put(id, state)
	}

	report, err := h.analytics.Run(ctx, state.Params, state.TopK)
	if err != nil {
		h.flash(ctx, sse, logger, err)
		return
	}
	opts, err := h.analytics.Options(state.Params.RegionYear())
	if err != nil {
		h.flash(ctx, sse, logger, err)
		return
	}

	view := templates.NewDashboardView(report, opts.Sellers, state.Params.Sellers)
	err = patch(ctx, sse,
		templates.Flash(""),
		templates.Metrics(view),
		templates.SellerOptions(view),
		templates.RevenueTab(view),
		templates.CountTab(view),
		templates.SellersTab(view),
	)
	if err != nil {
		logger.Error("patch dashboard", "error", err)
		return
	}

	signals, err := json.Marshal(chartData(report))
	if err != nil {
		logger.Error("marshal chart data", "error", err)
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		logger.Error("patch chart data", "error", err)
	}
}

// HandleRaw stores the raw-page selections and patches the table.
func (h *SSEHandlers) HandleRaw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFrom(ctx, h.logger)

	id := h.sessions.ID(w, r)
	state, _ := h.sessions.Get(id)

	var sig rawSignals
	ok, err := readSignals(r, &sig)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sse := datastar.NewSSE(w, r)

	if ok {
		p, err := sig.params()
		if err != nil {
			h.flash(ctx, sse, logger, err)
			return
		}
		state.Raw = p
		state.FileName = sig.FileName
		h.sessions.Put(id, state)
	}

	table, err := h.analytics.Table(ctx, state.Raw)
	if err != nil {
		h.flash(ctx, sse, logger, err)
		return
	}

	view := templates.NewRawView(table, h.maxRows)
	if err := patch(ctx, sse, templates.Flash(""), templates.RawTable(view)); err != nil {
		logger.Error("patch raw table", "error", err)
	}
}

func (h *SSEHandlers) flash(ctx context.Context, sse *datastar.ServerSentEventGenerator, logger *slog.Logger, err error) {
	var invalid *filter.InvalidParamsError
	if stderrors.As(err, &invalid) {
		logger.Warn("rejected selections", "fields", invalid.Fields)
	} else {
		logger.Error("update failed", "error", err)
	}
	if perr := patch(ctx, sse, templates.Flash(flashMessage(err))); perr != nil {
		logger.Error("patch flash", "error", perr)
	}
}
