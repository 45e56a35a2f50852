package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/filter"
	"sales-dashboard/internal/region"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
)

const (
	measureRevenue = "revenue"
	measureCount   = "count"
)

type APIHandlers struct {
	analytics *services.Analytics
	sessions  *session.Store
	logger    *slog.Logger
	version   string
}

func NewAPIHandlers(analytics *services.Analytics, sessions *session.Store, logger *slog.Logger, version string) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		sessions:  sessions,
		logger:    logger,
		version:   version,
	}
}

// reportRequest is the body of POST /api/report.
type reportRequest struct {
	Params filter.Params `json:"params"`
	TopK   int           `json:"top_k"`
}

// HandleReport runs the pipeline with filters from the query string.
func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := ParseQuery(q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var pp paramParser
	topK := pp.topK(q.Get(paramTop))
	if err := pp.err(); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.report(w, r, p, topK)
}

// HandleReportJSON runs the pipeline with a JSON-encoded Params body.
func (h *APIHandlers) HandleReportJSON(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, h.logger, errors.BadRequestWrap(err, "request body must be a JSON report request"))
		return
	}
	h.report(w, r, req.Params, req.TopK)
}

func (h *APIHandlers) report(w http.ResponseWriter, r *http.Request, p filter.Params, topK int) {
	report, err := h.analytics.Run(r.Context(), p, topK)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	errors.WriteSuccess(w, report)
}

// filtered parses the query string and applies it to the dataset.
func (h *APIHandlers) filtered(w http.ResponseWriter, r *http.Request) (filter.Params, bool) {
	p, err := ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, h.logger, err)
		return filter.Params{}, false
	}
	return p, true
}

func (h *APIHandlers) HandleLocations(w http.ResponseWriter, r *http.Request) {
	p, ok := h.filtered(w, r)
	if !ok {
		return
	}
	sales, err := h.analytics.Filter(p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	switch chi.URLParam(r, "measure") {
	case measureRevenue:
		errors.WriteSuccess(w, services.RevenueByLocation(sales))
	case measureCount:
		errors.WriteSuccess(w, services.CountByLocation(sales))
	default:
		writeError(w, r, h.logger, errors.NotFound("unknown measure"))
	}
}

func (h *APIHandlers) HandleMonths(w http.ResponseWriter, r *http.Request) {
	p, ok := h.filtered(w, r)
	if !ok {
		return
	}
	sales, err := h.analytics.Filter(p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	switch chi.URLParam(r, "measure") {
	case measureRevenue:
		errors.WriteSuccess(w, services.RevenueByMonth(sales))
	case measureCount:
		errors.WriteSuccess(w, services.CountByMonth(sales))
	default:
		writeError(w, r, h.logger, errors.NotFound("unknown measure"))
	}
}

func (h *APIHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	p, ok := h.filtered(w, r)
	if !ok {
		return
	}
	sales, err := h.analytics.Filter(p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	switch chi.URLParam(r, "measure") {
	case measureRevenue:
		errors.WriteSuccess(w, services.RevenueByCategory(sales))
	case measureCount:
		errors.WriteSuccess(w, services.CountByCategory(sales))
	default:
		writeError(w, r, h.logger, errors.NotFound("unknown measure"))
	}
}

// HandleSellers ranks sellers by ?by=revenue|count, keeping ?top of them.
func (h *APIHandlers) HandleSellers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, ok := h.filtered(w, r)
	if !ok {
		return
	}
	var pp paramParser
	topK := services.ClampTopK(pp.topK(q.Get(paramTop)))
	by := q.Get(paramBy)
	if by != "" && by != measureRevenue && by != measureCount {
		pp.fail("by", "must be revenue or count")
	}
	if err := pp.err(); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sales, err := h.analytics.Filter(p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if by == measureCount {
		errors.WriteSuccess(w, services.TopSellersByCount(sales, topK))
		return
	}
	errors.WriteSuccess(w, services.TopSellersByRevenue(sales, topK))
}

// HandleOptions lists widget choices for the data matching the query.
func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.filtered(w, r)
	if !ok {
		return
	}
	opts, err := h.analytics.Options(p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	errors.WriteSuccess(w, opts)
}

type regionEntry struct {
	Region region.Region `json:"region"`
	Codes  []string      `json:"codes"`
}

func (h *APIHandlers) HandleRegions(w http.ResponseWriter, r *http.Request) {
	all := region.All()
	out := make([]regionEntry, 0, len(all))
	for _, rg := range all {
		out = append(out, regionEntry{Region: rg, Codes: region.Codes(rg)})
	}
	errors.WriteSuccessWithHeaders(w, out, map[string]string{"Cache-Control": cacheMaxAge})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   h.version,
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.analytics.Stats()
	stats["sessions"] = h.sessions.Size()

	errors.WriteSuccess(w, stats)
}

// HandleGetSession returns the caller's stored selections.
func (h *APIHandlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.ID(w, r)
	state, _ := h.sessions.Get(id)
	errors.WriteSuccess(w, state)
}

type sessionRequest struct {
	Params   filter.Params `json:"params"`
	TopK     int           `json:"top_k"`
	Raw      filter.Params `json:"raw"`
	FileName string        `json:"file_name"`
}

// HandlePutSession replaces the caller's stored selections.
func (h *APIHandlers) HandlePutSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, h.logger, errors.BadRequestWrap(err, "request body must be a JSON session state"))
		return
	}
	for _, p := range []filter.Params{req.Params, req.Raw} {
		if err := filter.Validate(p); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	id := h.sessions.ID(w, r)
	state := session.State{
		Params:   req.Params,
		TopK:     services.ClampTopK(req.TopK),
		Raw:      req.Raw,
		FileName: req.FileName,
	}
	h.sessions.Put(id, state)
	state, _ = h.sessions.Get(id)
	errors.WriteSuccess(w, state)
}

// HandleDeleteSession forgets the caller's selections. Pages fall back to
// the unfiltered defaults on the next render.
func (h *APIHandlers) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Delete(h.sessions.ID(w, r))
	errors.WriteSuccess(w, session.State{})
}
