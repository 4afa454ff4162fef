// Package metrics provides Prometheus instrumentation for the auction engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BidsPlaced counts accepted bids.
	BidsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_bids_placed_total",
		Help: "Total number of bids accepted into the ledger",
	})

	// BidsRejected counts rejected bids, partitioned by reason.
	BidsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_bids_rejected_total",
		Help: "Total number of bids rejected",
	}, []string{"reason"})

	// CloseLatency tracks how long closing an auction and invoicing takes.
	CloseLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "auction_close_latency_seconds",
		Help:    "Auction close and invoice generation latency in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// InvoicesCreated counts invoices persisted by the generator.
	InvoicesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_invoices_created_total",
		Help: "Total number of invoices created",
	})

	// InvoiceGroups counts per-winner invoice groups by outcome
	// (created, skipped, failed).
	InvoiceGroups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_invoice_groups_total",
		Help: "Invoice groups processed during auction close, by outcome",
	}, []string{"outcome"})

	// Settlements counts settlement status changes by resulting status.
	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_settlements_total",
		Help: "Settlement lifecycle events by resulting status",
	}, []string{"status"})

	// SettlementPayout tracks the net payout of generated settlements.
	SettlementPayout = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "auction_settlement_net_payout",
		Help:    "Net payout of generated settlements in currency units",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auction_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
// Paths are labelled with the chi route pattern so IDs do not explode
// cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
