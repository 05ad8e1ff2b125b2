package api

import (
	"fmt"
	"net/http"
	"strconv"

	"ms-travel-sales/internal/auth"
	"ms-travel-sales/internal/models"
	"ms-travel-sales/internal/sales"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := sales.Filter{Query: q.Get("q"), Kind: sales.Kind(q.Get("kind"))}
	if p := q.Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil {
			h.fail(w, r, "Failed to load sales", fmt.Errorf("%w: page must be a number", models.ErrValidation))
			return
		}
		f.Page = page
	}

	page, err := h.Sales.History(r.Context(), auth.Actor(r.Context()), f)
	if err != nil {
		h.fail(w, r, "Failed to load sales", err)
		return
	}
	h.ok(w, http.StatusOK, "Sales", page)
}

func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Sales.Invoice(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "saleId"))
	if err != nil {
		h.fail(w, r, "Failed to load invoice", err)
		return
	}
	h.ok(w, http.StatusOK, "Invoice", inv)
}

func (h *Handler) InvoiceQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.Sales.InvoiceQR(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "saleId"))
	if err != nil {
		h.fail(w, r, "Failed to render invoice QR", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) MyTickets(w http.ResponseWriter, r *http.Request) {
	list, err := h.Sales.MyTickets(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, "Failed to list tickets", err)
		return
	}
	h.ok(w, http.StatusOK, "Tickets", list)
}

func (h *Handler) MyPackages(w http.ResponseWriter, r *http.Request) {
	list, err := h.Sales.MyPackages(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, "Failed to list packages", err)
		return
	}
	h.ok(w, http.StatusOK, "Packages", list)
}

// Checkout settles a customer's carts at the counter, without a payment
// review.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	res, err := h.Engine.Settle(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "Checkout failed", err)
		return
	}
	h.Logger.LogSale("COUNTER", res.Sale.ID, "settled by "+auth.UserID(r.Context()))
	h.ok(w, http.StatusCreated, "Purchase completed", res.Sale)
}
