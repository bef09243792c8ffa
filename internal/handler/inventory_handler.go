package handler

import (
	"net/http"
	"strconv"

	"save-the-fridge/internal/model"
	"save-the-fridge/internal/service"

	"github.com/rs/zerolog"
)

// InventoryHandler handles product and notification HTTP requests.
type InventoryHandler struct {
	service service.InventoryService
	logger  zerolog.Logger
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(service service.InventoryService, logger zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: service,
		logger:  logger.With().Str("handler", "inventory").Logger(),
	}
}

// List handles GET /api/products requests.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// Get handles GET /api/products/{id} requests.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Add handles POST /api/products requests.
func (h *InventoryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req model.AddProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	product, err := h.service.Add(r.Context(), &req)
	if err != nil && (product == nil || !warnUnsaved(w, r, err, h.logger)) {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// Update handles PATCH /api/products/{id} requests.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	var update model.ProductUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	product, err := h.service.Update(r.Context(), id, &update)
	if err != nil && (product == nil || !warnUnsaved(w, r, err, h.logger)) {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Remove handles DELETE /api/products/{id}?confirm=true requests.
func (h *InventoryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	// An absent or unparsable flag counts as not confirmed
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	if err := h.service.Remove(r.Context(), id, confirmed); err != nil && !warnUnsaved(w, r, err, h.logger) {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Notifications handles GET /api/notifications requests.
func (h *InventoryHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	notifications := h.service.Notifications(r.Context())
	if notifications == nil {
		notifications = []model.Notification{}
	}

	writeJSON(w, http.StatusOK, notifications)
}
