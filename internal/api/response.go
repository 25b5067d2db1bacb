package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Sankethhn/Farmlink/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// storeError maps a store failure class to an HTTP response. Unclassified
// errors become opaque 500s so internals don't leak.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrForbidden):
		jsonError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrInsufficientQuantity),
		errors.Is(err, store.ErrNotAvailable),
		errors.Is(err, store.ErrAlreadyCancelled),
		errors.Is(err, store.ErrEmailTaken):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrHasOpenOrders):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrConflict):
		jsonError(w, http.StatusServiceUnavailable, "temporary write conflict, retry the request")
	default:
		slog.Error("store operation failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
