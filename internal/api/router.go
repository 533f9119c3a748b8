// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"payflow/internal/api/handler"
)

// NewRouter sets up and returns a new HTTP router.
func NewRouter(ledgerHandler *handler.LedgerHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.DefaultTimeout))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Session start: account resolution plus lazy interest accrual.
	r.Post("/sessions", ledgerHandler.StartSession)

	// Account API routes
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/{accountID}", ledgerHandler.GetAccount)
		r.Get("/{accountID}/entries", ledgerHandler.GetStatement)
		r.Get("/{accountID}/summary", ledgerHandler.GetSummary)
	})

	// Payment identifier resolution
	r.Get("/lookup", ledgerHandler.Lookup)

	// Transfers are a separate top-level resource as they involve two accounts
	r.Post("/transfers", ledgerHandler.Transfer)
	r.Get("/transfers/{requestID}", ledgerHandler.GetTransferStatus)

	// Admin surface
	r.Get("/admin/stats", ledgerHandler.GetAdminStats)

	return r
}
