package api

import (
	"net/http"

	"ms-travel-sales/internal/auth"
	"ms-travel-sales/internal/cart"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ViewCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.Carts.View(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, "Failed to load cart", err)
		return
	}
	h.ok(w, http.StatusOK, "Cart", view)
}

func (h *Handler) ReserveTickets(w http.ResponseWriter, r *http.Request) {
	var req cart.ReserveRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Failed to reserve tickets", err)
		return
	}
	c, err := h.Carts.ReserveTickets(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		h.fail(w, r, "Failed to reserve tickets", err)
		return
	}
	h.ok(w, http.StatusCreated, "Tickets reserved", c)
}

func (h *Handler) RemoveTicket(w http.ResponseWriter, r *http.Request) {
	if err := h.Carts.RemoveTicket(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "ticketId")); err != nil {
		h.fail(w, r, "Failed to remove ticket", err)
		return
	}
	h.ok(w, http.StatusOK, "Ticket released", nil)
}

func (h *Handler) AddPackage(w http.ResponseWriter, r *http.Request) {
	var req cart.PackageRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Failed to add package", err)
		return
	}
	pkg, err := h.Carts.AddPackage(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		h.fail(w, r, "Failed to add package", err)
		return
	}
	h.ok(w, http.StatusCreated, "Package added", pkg)
}

func (h *Handler) UpdatePackage(w http.ResponseWriter, r *http.Request) {
	var req cart.PackageRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, "Failed to update package", err)
		return
	}
	pkg, err := h.Carts.UpdatePackage(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "packageId"), req)
	if err != nil {
		h.fail(w, r, "Failed to update package", err)
		return
	}
	h.ok(w, http.StatusOK, "Package updated", pkg)
}

func (h *Handler) RemovePackage(w http.ResponseWriter, r *http.Request) {
	if err := h.Carts.RemovePackage(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "packageId")); err != nil {
		h.fail(w, r, "Failed to remove package", err)
		return
	}
	h.ok(w, http.StatusOK, "Package removed", nil)
}

func (h *Handler) RemoveCart(w http.ResponseWriter, r *http.Request) {
	if err := h.Carts.RemoveCart(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "cartId")); err != nil {
		h.fail(w, r, "Failed to remove cart", err)
		return
	}
	h.ok(w, http.StatusOK, "Cart removed", nil)
}

func (h *Handler) EmptyCart(w http.ResponseWriter, r *http.Request) {
	n, err := h.Carts.Empty(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, "Failed to empty cart", err)
		return
	}
	h.ok(w, http.StatusOK, "Cart emptied", map[string]int{"released": n})
}
