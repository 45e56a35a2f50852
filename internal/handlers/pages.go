package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/filter"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/region"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
	"sales-dashboard/internal/ui/templates"
)

const renderTimeout = 10 * time.Second

// PageHandlers render the full HTML pages. Later updates arrive over SSE.
type PageHandlers struct {
	analytics *services.Analytics
	sessions  *session.Store
	logger    *slog.Logger
	maxRows   int
}

func NewPageHandlers(analytics *services.Analytics, sessions *session.Store, logger *slog.Logger, maxRows int) *PageHandlers {
	return &PageHandlers{
		analytics: analytics,
		sessions:  sessions,
		logger:    logger,
		maxRows:   maxRows,
	}
}

func regionChoices() []string {
	out := []string{wholeCountry}
	for _, r := range region.All() {
		out = append(out, r.String())
	}
	return out
}

func marshalSignals(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

// Dashboard renders the dashboard with the caller's stored selections.
// Selections that no longer validate are reset.
func (h *PageHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	id := h.sessions.ID(w, r)
	state, _ := h.sessions.Get(id)

	report, err := h.analytics.Run(ctx, state.Params, state.TopK)
	if err != nil {
		observability.LoggerFrom(ctx, h.logger).Warn("reset dashboard selections", "error", err)
		state.Params, state.TopK = filter.Params{}, 0
		h.sessions.Put(id, state)
		if report, err = h.analytics.Run(ctx, state.Params, state.TopK); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	sellers, err := h.analytics.Options(state.Params.RegionYear())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	all, err := h.analytics.Options(filter.Params{})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	years := slices.Clone(all.Years)
	slices.Sort(years)
	defaultYear := 0
	if len(years) > 0 {
		defaultYear = years[len(years)-1]
	}

	signals, err := marshalSignals(newDashboardSignals(state.Params, report.TopK, defaultYear))
	if err != nil {
		writeError(w, r, h.logger, errors.InternalWrap(err, "encode signals"))
		return
	}

	page := templates.DashboardPage{
		Regions: regionChoices(),
		Years:   years,
		Signals: signals,
		View:    templates.NewDashboardView(report, sellers.Sellers, state.Params.Sellers),
		MinTopK: services.MinTopK,
		MaxTopK: services.MaxTopK,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := templates.Dashboard(page).Render(ctx, w); err != nil {
		h.logger.Error("render dashboard", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// Raw renders the raw-data page with the caller's stored selections.
func (h *PageHandlers) Raw(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	id := h.sessions.ID(w, r)
	state, _ := h.sessions.Get(id)

	table, err := h.analytics.Table(ctx, state.Raw)
	if err != nil {
		observability.LoggerFrom(ctx, h.logger).Warn("reset raw selections", "error", err)
		state.Raw = filter.Params{}
		h.sessions.Put(id, state)
		if table, err = h.analytics.Table(ctx, state.Raw); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	opts, err := h.analytics.Options(filter.Params{})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	signals, err := marshalSignals(newRawSignals(state.Raw, opts, state.FileName))
	if err != nil {
		writeError(w, r, h.logger, errors.InternalWrap(err, "encode signals"))
		return
	}

	page := templates.RawPage{
		Options: opts,
		Signals: signals,
		View:    templates.NewRawView(table, h.maxRows),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := templates.Raw(page).Render(ctx, w); err != nil {
		h.logger.Error("render raw page", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}
