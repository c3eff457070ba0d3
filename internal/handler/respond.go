// Package handler exposes the JSON REST API. Handlers decode requests,
// call the service layer and translate its errors to HTTP status codes;
// all domain rules live below this package.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tripsplit/tripsplit/internal/auth"
	"github.com/tripsplit/tripsplit/internal/calculator"
	"github.com/tripsplit/tripsplit/internal/models"
	"github.com/tripsplit/tripsplit/internal/service"
	"github.com/tripsplit/tripsplit/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes. Unrecognized
// errors become 500 with a generic message so internals do not leak.
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr calculator.ValidationError
		invalidErr    *service.InvalidInputError
	)

	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &invalidErr),
		errors.Is(err, models.ErrInvalidParticipant),
		errors.Is(err, auth.ErrWeakPassword):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})

	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})

	case errors.Is(err, auth.ErrEmailExists),
		errors.Is(err, auth.ErrUsernameExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})

	default:
		slog.Error("Unhandled error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &service.InvalidInputError{Field: "body", Reason: "malformed JSON: " + err.Error()}
	}
	return nil
}
