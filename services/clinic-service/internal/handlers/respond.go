package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pawdesk/pawdesk/services/clinic-service/internal/booking"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/storage"
)

// envelope is the uniform response shape for every endpoint, success or not.
type envelope struct {
	IsSuccess bool   `json:"is_success"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
}

func respond(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		IsSuccess: status < 400,
		Message:   message,
		Data:      data,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, message, nil)
}

// respondServiceError maps booking errors onto the API's status taxonomy:
// ownership and missing rows are 404 (existence is not disclosed), domain
// rejections are 422, anything else is a 500 that logs the cause but not
// the details to the client.
func respondServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		respond(w, http.StatusUnprocessableEntity, verr.Message, map[string]string{"field": verr.Field})
		return
	}
	var oerr *booking.OwnershipError
	if errors.As(err, &oerr) {
		respondError(w, http.StatusNotFound, oerr.Message)
		return
	}
	if errors.Is(err, booking.ErrAppointmentNotFound) {
		respondError(w, http.StatusNotFound, "Appointment not found")
		return
	}
	var aerr *booking.AvailabilityError
	if errors.As(err, &aerr) {
		respondError(w, http.StatusUnprocessableEntity, aerr.Message)
		return
	}
	var cerr *booking.SlotConflictError
	if errors.As(err, &cerr) {
		respondError(w, http.StatusUnprocessableEntity, cerr.Message)
		return
	}
	var serr *booking.InvalidStateError
	if errors.As(err, &serr) {
		respondError(w, http.StatusUnprocessableEntity, serr.Message)
		return
	}
	if storage.IsNotFound(err) {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}
	logger.Error("request failed", "err", err)
	respondError(w, http.StatusInternalServerError, "Internal server error")
}
