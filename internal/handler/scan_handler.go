package handler

import (
	"net/http"

	"save-the-fridge/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ScanHandler handles barcode lookup and scanner HTTP requests.
type ScanHandler struct {
	service service.ScanService
	logger  zerolog.Logger
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(service service.ScanService, logger zerolog.Logger) *ScanHandler {
	return &ScanHandler{
		service: service,
		logger:  logger.With().Str("handler", "scan").Logger(),
	}
}

// Lookup handles GET /api/lookup/{barcode} requests.
func (h *ScanHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Lookup(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// Start handles POST /api/scan/start requests.
func (h *ScanHandler) Start(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Start(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusAccepted, status)
}

// Stop handles POST /api/scan/stop requests.
func (h *ScanHandler) Stop(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Stop(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Status handles GET /api/scan requests.
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Status(r.Context()))
}
