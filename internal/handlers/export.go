package handlers

import (
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
)

type ExportHandlers struct {
	analytics   *services.Analytics
	exporter    *export.Exporter
	sessions    *session.Store
	defaultName string
	logger      *slog.Logger
}

func NewExportHandlers(analytics *services.Analytics, exporter *export.Exporter, sessions *session.Store, defaultName string, logger *slog.Logger) *ExportHandlers {
	if defaultName == "" {
		defaultName = export.DefaultFileName
	}
	return &ExportHandlers{
		analytics:   analytics,
		exporter:    exporter,
		sessions:    sessions,
		defaultName: defaultName,
		logger:      logger,
	}
}

func (h *ExportHandlers) HandleCSV(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, export.FormatCSV)
}

func (h *ExportHandlers) HandleXLSX(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, export.FormatXLSX)
}

// handle exports the raw-page table. Filters in the query string take
// precedence over the caller's stored raw-page selections.
func (h *ExportHandlers) handle(w http.ResponseWriter, r *http.Request, f export.Format) {
	q := r.URL.Query()
	id := h.sessions.ID(w, r)
	state, _ := h.sessions.Get(id)

	p := state.Raw
	if hasFilterParams(q) {
		var err error
		if p, err = ParseQuery(q); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	name := q.Get(paramName)
	if name == "" {
		name = state.FileName
	}
	if name == "" {
		name = h.defaultName
	}

	table, err := h.analytics.Table(r.Context(), p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	payload, err := h.exporter.Export(r.Context(), table, f, name)
	if err != nil {
		writeError(w, r, h.logger, errors.Export(err))
		return
	}

	cacheStatus := "miss"
	if payload.Cached {
		cacheStatus = "hit"
	}
	w.Header().Set("Content-Type", payload.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": payload.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(payload.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Export-Cache", cacheStatus)
	w.Header().Set("X-Export-Rows", strconv.Itoa(payload.Rows))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload.Data); err != nil {
		h.logger.Warn("write export", "error", err, "file", payload.FileName)
	}
}
