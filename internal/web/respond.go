package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"spotify-export-stats/internal/apperr"
)

// errorBody is the JSON shape of every API error response.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON writes v as a JSON response with the given status.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response", "err", err)
	}
}

// writeError maps an error onto its HTTP status and writes a JSON error
// body. Missing sessions get a 401 telling the client to upload; missing
// data files get 404; unparseable data files get 422; bad uploads get
// 400; anything else is a 500 with a generic message.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, apperr.ErrMalformed):
		h.writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, apperr.ErrBadUpload):
		h.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		h.logger.Error("internal error", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "an unexpected error occurred"})
	}
}

// writeNoSession writes the uniform response for requests without a
// usable upload session.
func (h *Handlers) writeNoSession(w http.ResponseWriter) {
	h.writeJSON(w, http.StatusUnauthorized, errorBody{Error: "no data uploaded; upload an export first"})
}
