package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

var (
	TicketsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travel_tickets_generated_total",
			Help: "Tickets created by pool generation",
		},
	)

	TicketsReserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_tickets_reserved_total",
			Help: "Tickets moved into a cart",
		},
		[]string{"type"},
	)

	ReservationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_reservation_failures_total",
			Help: "Rejected reservations by reason",
		},
		[]string{"reason"},
	)

	ItemsReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_cart_items_released_total",
			Help: "Cart items returned to inventory or discarded",
		},
		[]string{"kind"},
	)

	SalesCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travel_sales_completed_total",
			Help: "Settled sales",
		},
	)

	SalesAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travel_sales_amount_total",
			Help: "Sum of settled sale totals",
		},
	)

	Payments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_payments_total",
			Help: "Payment state transitions",
		},
		[]string{"state"},
	)

	LockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "travel_cart_lock_wait_seconds",
			Help:    "Time spent acquiring the per-user cart lock",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	httpRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "travel_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveSale records one settled sale.
func ObserveSale(total decimal.Decimal) {
	SalesCompleted.Inc()
	SalesAmount.Add(total.InexactFloat64())
}

func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Middleware records request latency labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}
