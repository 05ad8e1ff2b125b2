package api

import (
	"fmt"
	"net/http"
	"time"

	"ms-travel-sales/internal/auth"
	"ms-travel-sales/internal/models"
	"ms-travel-sales/internal/payment"
	"ms-travel-sales/internal/sse"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req payment.SubmitRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Failed to submit payment", err)
		return
	}
	p, err := h.Payments.Submit(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		h.fail(w, r, "Failed to submit payment", err)
		return
	}
	h.ok(w, http.StatusCreated, "Payment submitted for review", p)
}

func (h *Handler) MyPayments(w http.ResponseWriter, r *http.Request) {
	list, err := h.Payments.ListForUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, "Failed to list payments", err)
		return
	}
	h.ok(w, http.StatusOK, "Payments", list)
}

func (h *Handler) PendingPayments(w http.ResponseWriter, r *http.Request) {
	list, err := h.Payments.ListPending(r.Context(), auth.Actor(r.Context()))
	if err != nil {
		h.fail(w, r, "Failed to list payments", err)
		return
	}
	h.ok(w, http.StatusOK, "Pending payments", list)
}

func (h *Handler) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	res, err := h.Payments.Approve(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "paymentId"))
	if err != nil {
		h.fail(w, r, "Failed to approve payment", err)
		return
	}
	h.ok(w, http.StatusOK, "Payment approved", res)
}

func (h *Handler) RejectPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.Payments.Reject(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "paymentId"))
	if err != nil {
		h.fail(w, r, "Failed to reject payment", err)
		return
	}
	h.ok(w, http.StatusOK, "Payment rejected", p)
}

// PaymentStream pushes payment events to a reviewer as server-sent events
// until the client goes away.
func (h *Handler) PaymentStream(w http.ResponseWriter, r *http.Request) {
	if h.Stream == nil {
		h.fail(w, r, "Payment stream unavailable", fmt.Errorf("%w: stream disabled", models.ErrNotFound))
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.Logger.Warn("SSE", fmt.Sprintf("Streaming not supported: %v", err))
		return
	}
	// The stream outlives the server write timeout.
	rc.SetWriteDeadline(time.Time{})

	h.Logger.Info("SSE", "Reviewer "+auth.UserID(r.Context())+" connected")
	for msg := range h.Stream.Subscribe(r.Context(), h.StreamTopics...) {
		if err := sse.Write(w, msg); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
