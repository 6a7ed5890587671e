package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"crm-billing/go_backend/internal/domain/quote"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

// writeQuoteError maps repository and validation failures to HTTP statuses.
func (h *Handlers) writeQuoteError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *quote.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"ok":     false,
			"error":  "validation failed",
			"fields": fieldMessages(verr),
		})
	case errors.Is(err, quote.ErrNumberConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, quote.ErrNotFound):
		writeError(w, http.StatusNotFound, quote.ErrNotFound.Error())
	default:
		h.Log.ErrorContext(r.Context(), "quote request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func fieldMessages(verr *quote.ValidationError) map[string]string {
	out := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		if prev, ok := out[f.Path()]; ok {
			out[f.Path()] = prev + "; " + f.Message
			continue
		}
		out[f.Path()] = f.Message
	}
	return out
}
