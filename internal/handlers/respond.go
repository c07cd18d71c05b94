package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/healthcare-ab/careapi/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps core errors onto HTTP statuses. Anything it does not
// recognize is a 500 with a generic message.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *scheduling.ValidationError
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, scheduling.ErrSlotUnavailable):
		http.Error(w, "slot unavailable", http.StatusConflict)
	case errors.Is(err, scheduling.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, scheduling.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
