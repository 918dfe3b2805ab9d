package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/guildops/recruit/internal/application"
	"github.com/guildops/recruit/internal/booking"
)

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "err", err)
	}
}

// writeError emits the {"error": ...} body the UI renders directly, so the
// message must be actionable, not just a status code.
func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, map[string]string{"error": msg}, status)
}

// writeDomainError maps the expected, recoverable domain conditions onto
// HTTP statuses. Anything unmapped is an unexpected storage failure: it is
// logged and surfaced as an opaque 500, never silently swallowed.
func writeDomainError(w http.ResponseWriter, err error) {
	var gate *application.SubmitError
	if errors.As(err, &gate) {
		writeJSON(w, map[string]any{
			"error":          gate.Error(),
			"missing_fields": gate.MissingFields,
			"over_limit":     gate.OverLimit,
		}, http.StatusBadRequest)
		return
	}

	switch {
	case errors.Is(err, booking.ErrSlotNotFound),
		errors.Is(err, booking.ErrBookingNotFound),
		errors.Is(err, application.ErrNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, application.ErrNoActiveCycle):
		// Portal closed is a well-known condition, not a server fault.
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, booking.ErrSlotFull),
		errors.Is(err, booking.ErrAlreadyBooked),
		errors.Is(err, application.ErrAlreadySubmitted):
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, booking.ErrNotWhitelisted),
		errors.Is(err, booking.ErrNotOwner):
		writeError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, booking.ErrSlotInPast),
		errors.Is(err, booking.ErrTooLateToCancel),
		errors.Is(err, application.ErrDeadlinePassed),
		errors.Is(err, application.ErrInvalidStage):
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Error("internal error", "err", err)
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}
