package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"taskboard/sync-service/models"
)

// writeError maps the error taxonomy to HTTP statuses and emits the
// structured {kind, message} payload the view layer renders as a toast.
func writeError(w http.ResponseWriter, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewRemoteError("unexpected error", err)
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case models.KindValidation:
		status = http.StatusBadRequest
	case models.KindAuthz:
		status = http.StatusForbidden
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(appErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
