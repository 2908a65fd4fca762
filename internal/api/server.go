// Package api provides the HTTP surface for the credit ledger: the admin and
// reporting endpoints, the collaborator endpoints used by checkout and the
// payment gateway callback, and the Prometheus metrics endpoint.
//
// The ledger itself is a library; this server is how out-of-process
// collaborators reach it.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tradecore/creditledger/internal/domain"
	"github.com/tradecore/creditledger/internal/ledger"
)

// Server is the credit ledger HTTP API server.
type Server struct {
	ledger         *ledger.Ledger
	metricsEnabled bool
}

// NewServer creates a new API server over the given ledger.
func NewServer(l *ledger.Ledger) *Server {
	return &Server{ledger: l}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/api", func(r chi.Router) {
		// Admin & reporting
		r.Get("/accounts/{customerID}", s.handleGetAccount)
		r.Get("/accounts/{customerID}/invoices", s.handleListInvoices)
		r.Get("/accounts/{customerID}/payments", s.handlePaymentHistory)
		r.Post("/accounts/{customerID}/limit", s.handleSetLimit)
		r.Post("/accounts/{customerID}/unblock", s.handleUnblock)

		// Checkout collaborator
		r.Post("/orders/check", s.handleCheckOrder)
		r.Post("/orders/reserve", s.handleReserve)
		r.Post("/orders/release", s.handleRelease)

		// Payment collaborator
		r.Post("/payments", s.handleRecordPayment)

		// Scheduler collaborator (manual trigger)
		r.Post("/sweep", s.handleSweep)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeLedgerError maps domain errors onto HTTP status codes. Business-rule
// violations are client errors, not server faults.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrReservationNotFound),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrInvoiceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientCredit),
		errors.Is(err, domain.ErrAccountBlocked),
		errors.Is(err, domain.ErrDuplicateOrder),
		errors.Is(err, domain.ErrInvoicePartiallyPaid):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// corsMiddleware adds CORS headers for the admin panel.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
