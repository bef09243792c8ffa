package router

import (
	"net/http"

	"save-the-fridge/internal/handler"
	"save-the-fridge/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	inventoryHandler *handler.InventoryHandler,
	scanHandler *handler.ScanHandler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Apply middleware in order: Recovery -> Logging -> CorrelationID -> CORS -> APIKeyAuth
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.CORS)
	r.Use(middleware.APIKeyAuth(apiKey, logger))

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", inventoryHandler.List)
			r.Post("/", inventoryHandler.Add)
			r.Get("/{id}", inventoryHandler.Get)
			r.Patch("/{id}", inventoryHandler.Update)
			r.Delete("/{id}", inventoryHandler.Remove)
		})

		r.Get("/notifications", inventoryHandler.Notifications)
		r.Get("/lookup/{barcode}", scanHandler.Lookup)

		r.Route("/scan", func(r chi.Router) {
			r.Get("/", scanHandler.Status)
			r.Post("/start", scanHandler.Start)
			r.Post("/stop", scanHandler.Stop)
		})
	})

	return r
}
