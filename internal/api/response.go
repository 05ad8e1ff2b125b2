package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ms-travel-sales/internal/models"
	"ms-travel-sales/internal/users"
)

type APIResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func SuccessResponse(message string, data any) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, err string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     err,
		Timestamp: time.Now(),
	}
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInsufficientInventory),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrAmountMismatch):
		return http.StatusConflict
	case errors.Is(err, models.ErrEmptyPurchase):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, users.ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (h *Handler) ok(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, SuccessResponse(message, data))
}

// fail writes err with its mapped status. Storage failures are logged and
// hidden from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := StatusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		h.Logger.Error("API", r.Method+" "+r.URL.Path+": "+detail)
		detail = "internal error"
	}
	writeJSON(w, status, ErrorResponse(message, detail))
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", models.ErrValidation, err)
	}
	return nil
}
