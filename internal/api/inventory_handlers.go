package api

import (
	"fmt"
	"net/http"
	"time"

	"ms-travel-sales/internal/auth"
	"ms-travel-sales/internal/inventory"
	"ms-travel-sales/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type scheduleRequest struct {
	DepartsAt time.Time `json:"departs_at"`
}

func (req scheduleRequest) validate() error {
	if req.DepartsAt.IsZero() {
		return fmt.Errorf("%w: departs_at is required", models.ErrValidation)
	}
	return nil
}

type surchargeRequest struct {
	ExtraFee    decimal.Decimal `json:"extra_fee"`
	Description string          `json:"description"`
}

func (h *Handler) ListDestinations(w http.ResponseWriter, r *http.Request) {
	list, err := h.Inventory.ListDestinations(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list destinations", err)
		return
	}
	h.ok(w, http.StatusOK, "Destinations", list)
}

func (h *Handler) GetDestination(w http.ResponseWriter, r *http.Request) {
	dest, err := h.Inventory.GetDestination(r.Context(), chi.URLParam(r, "destinationId"))
	if err != nil {
		h.fail(w, r, "Failed to load destination", err)
		return
	}
	h.ok(w, http.StatusOK, "Destination", dest)
}

func (h *Handler) CreateDestination(w http.ResponseWriter, r *http.Request) {
	var in inventory.DestinationInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, "Failed to create destination", err)
		return
	}
	dest, err := h.Inventory.CreateDestination(r.Context(), auth.Actor(r.Context()), in)
	if err != nil {
		h.fail(w, r, "Failed to create destination", err)
		return
	}
	h.ok(w, http.StatusCreated, "Destination created", dest)
}

func (h *Handler) UpdateDestination(w http.ResponseWriter, r *http.Request) {
	var in inventory.DestinationInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, "Failed to update destination", err)
		return
	}
	dest, err := h.Inventory.UpdateDestination(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "destinationId"), in)
	if err != nil {
		h.fail(w, r, "Failed to update destination", err)
		return
	}
	h.ok(w, http.StatusOK, "Destination updated", dest)
}

func (h *Handler) DeleteDestination(w http.ResponseWriter, r *http.Request) {
	if err := h.Inventory.DeleteDestination(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "destinationId")); err != nil {
		h.fail(w, r, "Failed to delete destination", err)
		return
	}
	h.ok(w, http.StatusOK, "Destination deleted", nil)
}

func (h *Handler) SetSurcharge(w http.ResponseWriter, r *http.Request) {
	var req surchargeRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Failed to set surcharge", err)
		return
	}
	sur, err := h.Inventory.SetSurcharge(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "destinationId"), req.ExtraFee, req.Description)
	if err != nil {
		h.fail(w, r, "Failed to set surcharge", err)
		return
	}
	h.ok(w, http.StatusOK, "Surcharge saved", sur)
}

func (h *Handler) RemoveSurcharge(w http.ResponseWriter, r *http.Request) {
	if err := h.Inventory.RemoveSurcharge(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "destinationId")); err != nil {
		h.fail(w, r, "Failed to remove surcharge", err)
		return
	}
	h.ok(w, http.StatusOK, "Surcharge removed", nil)
}

func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	list, err := h.Inventory.ListSchedules(r.Context(), chi.URLParam(r, "destinationId"))
	if err != nil {
		h.fail(w, r, "Failed to list schedules", err)
		return
	}
	h.ok(w, http.StatusOK, "Schedules", list)
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	sch, err := h.Inventory.GetSchedule(r.Context(), chi.URLParam(r, "scheduleId"))
	if err != nil {
		h.fail(w, r, "Failed to load schedule", err)
		return
	}
	h.ok(w, http.StatusOK, "Schedule", sch)
}

func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Failed to create schedule", err)
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, "Failed to create schedule", err)
		return
	}
	sch, err := h.Inventory.CreateSchedule(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "destinationId"), req.DepartsAt)
	if err != nil {
		h.fail(w, r, "Failed to create schedule", err)
		return
	}
	h.ok(w, http.StatusCreated, "Schedule created", sch)
}

func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Failed to update schedule", err)
		return
	}
	if err := req.validate(); err != nil {
		h.fail(w, r, "Failed to update schedule", err)
		return
	}
	sch, err := h.Inventory.UpdateSchedule(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "scheduleId"), req.DepartsAt)
	if err != nil {
		h.fail(w, r, "Failed to update schedule", err)
		return
	}
	h.ok(w, http.StatusOK, "Schedule updated", sch)
}

func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.Inventory.DeleteSchedule(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "scheduleId")); err != nil {
		h.fail(w, r, "Failed to delete schedule", err)
		return
	}
	h.ok(w, http.StatusOK, "Schedule deleted", nil)
}

func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	av, err := h.Inventory.Availability(r.Context(), chi.URLParam(r, "scheduleId"))
	if err != nil {
		h.fail(w, r, "Failed to load availability", err)
		return
	}
	h.ok(w, http.StatusOK, "Availability", av)
}
