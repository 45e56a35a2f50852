package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/filter"
	"sales-dashboard/internal/observability"
)

// cacheMaxAge applies to responses that depend only on the loaded dataset.
const cacheMaxAge = "public, max-age=300"

// writeError maps domain errors onto the API error envelope.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var invalid *filter.InvalidParamsError
	if stderrors.As(err, &invalid) {
		err = errors.Validation("invalid filter parameters").WithFields(invalid.Fields)
	}
	errors.WriteError(w, observability.LoggerFrom(r.Context(), logger), err, observability.GetRequestID(r.Context()))
}
