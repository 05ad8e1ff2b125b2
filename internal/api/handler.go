// Package api exposes the travel sales services over HTTP.
package api

import (
	"net/http"
	"strconv"
	"time"

	"ms-travel-sales/internal/auth"
	"ms-travel-sales/internal/cart"
	"ms-travel-sales/internal/inventory"
	"ms-travel-sales/internal/logger"
	"ms-travel-sales/internal/metrics"
	"ms-travel-sales/internal/models"
	"ms-travel-sales/internal/payment"
	"ms-travel-sales/internal/sales"
	"ms-travel-sales/internal/settlement"
	"ms-travel-sales/internal/sse"
	"ms-travel-sales/internal/users"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handler struct {
	Inventory *inventory.Service
	Carts     *cart.Service
	Engine    *settlement.Engine
	Payments  *payment.Service
	Sales     *sales.Service
	Users     *users.Service
	Issuer    *auth.Issuer
	Revoked   *auth.RevocationList
	Logger    *logger.Logger

	// Stream and StreamTopics feed the payment review stream. A nil Stream
	// disables the route.
	Stream       *sse.Broker
	StreamTopics []string
}

// Router wires every route. Reads of the catalogue are public, everything
// else needs a bearer token.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(h.logRequests)

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)
		r.Post("/auth/register", h.Register)

		r.Get("/destinations", h.ListDestinations)
		r.Get("/destinations/{destinationId}", h.GetDestination)
		r.Get("/destinations/{destinationId}/schedules", h.ListSchedules)
		r.Get("/schedules/{scheduleId}", h.GetSchedule)
		r.Get("/schedules/{scheduleId}/availability", h.Availability)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(h.Issuer, h.Revoked, h.Logger))

			r.Post("/auth/logout", h.Logout)
			r.Get("/me", h.Me)
			r.Get("/me/tickets", h.MyTickets)
			r.Get("/me/packages", h.MyPackages)
			r.Get("/me/payments", h.MyPayments)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(models.RoleEmployee, models.RoleAdmin))
				r.Post("/destinations", h.CreateDestination)
				r.Put("/destinations/{destinationId}", h.UpdateDestination)
				r.Delete("/destinations/{destinationId}", h.DeleteDestination)
				r.Put("/destinations/{destinationId}/surcharge", h.SetSurcharge)
				r.Delete("/destinations/{destinationId}/surcharge", h.RemoveSurcharge)
				r.Post("/destinations/{destinationId}/schedules", h.CreateSchedule)
				r.Put("/schedules/{scheduleId}", h.UpdateSchedule)
				r.Delete("/schedules/{scheduleId}", h.DeleteSchedule)
				r.Post("/checkout/{userId}", h.Checkout)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.ViewCart)
				r.Delete("/", h.EmptyCart)
				r.Post("/tickets", h.ReserveTickets)
				r.Delete("/tickets/{ticketId}", h.RemoveTicket)
				r.Post("/packages", h.AddPackage)
				r.Put("/packages/{packageId}", h.UpdatePackage)
				r.Delete("/packages/{packageId}", h.RemovePackage)
				r.Delete("/{cartId}", h.RemoveCart)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/", h.SubmitPayment)
				r.Get("/pending", h.PendingPayments)
				r.With(auth.RequireRole(models.RoleAdmin)).Get("/stream", h.PaymentStream)
				r.Post("/{paymentId}/approve", h.ApprovePayment)
				r.Post("/{paymentId}/reject", h.RejectPayment)
			})

			r.Route("/sales", func(r chi.Router) {
				r.Get("/", h.History)
				r.Get("/{saleId}/invoice", h.Invoice)
				r.Get("/{saleId}/invoice/qr", h.InvoiceQR)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.ListUsers)
				r.Post("/", h.CreateUser)
			})
		})
	})
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.Logger.LogAPI(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start).String())
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, "ok", nil)
}
