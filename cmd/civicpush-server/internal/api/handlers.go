// Package api provides HTTP handlers for the civicpush server REST API.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/coregx/civicpush"
	"github.com/coregx/civicpush/model"
	"github.com/go-chi/chi/v5"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Handler holds dependencies for API handlers.
type Handler struct {
	inbox     *civicpush.Inbox
	registry  *civicpush.DeviceRegistry
	publisher *civicpush.Publisher
	logger    civicpush.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	inbox *civicpush.Inbox,
	registry *civicpush.DeviceRegistry,
	publisher *civicpush.Publisher,
	logger civicpush.Logger,
) *Handler {
	return &Handler{
		inbox:     inbox,
		registry:  registry,
		publisher: publisher,
		logger:    logger,
	}
}

// Routes returns the /api/v1 routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/messages", h.HandleListMessages)
		r.Post("/messages", h.HandlePublishMessage)
		r.Get("/banners", h.HandleBanners)
		r.Post("/devices", h.HandleRegisterDevice)
		r.Get("/devices/{deviceID}", h.HandleGetDevice)
		r.Put("/devices/{deviceID}/opt-in", h.HandleSetOptIn)
		r.Get("/health", h.HandleHealth)
	})
	return r
}

// OptInRequest is the body of PUT /api/v1/devices/{deviceID}/opt-in.
type OptInRequest struct {
	OptIn *bool `json:"optIn"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HandleListMessages handles GET /api/v1/messages
func (h *Handler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.inbox.Messages(r.Context(), userContextFrom(r))
	if err != nil {
		h.respondServiceError(w, err, "Failed to list messages")
		return
	}

	h.respondSuccess(w, http.StatusOK, msgs, "")
}

// HandleBanners handles GET /api/v1/banners?screen=
func (h *Handler) HandleBanners(w http.ResponseWriter, r *http.Request) {
	screen := model.Screen(r.URL.Query().Get("screen"))

	banners, err := h.inbox.Banners(r.Context(), userContextFrom(r), screen)
	if err != nil {
		h.respondServiceError(w, err, "Failed to select banners")
		return
	}

	h.respondSuccess(w, http.StatusOK, banners, "")
}

// HandlePublishMessage handles POST /api/v1/messages
func (h *Handler) HandlePublishMessage(w http.ResponseWriter, r *http.Request) {
	var rec model.MessageRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	result, err := h.publisher.Publish(r.Context(), rec)
	if err != nil {
		h.respondServiceError(w, err, "Failed to publish message")
		return
	}

	h.respondSuccess(w, http.StatusCreated, result, "Message stored successfully")
}

// HandleRegisterDevice handles POST /api/v1/devices
func (h *Handler) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req civicpush.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	device, created, err := h.registry.Register(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err, "Failed to register device")
		return
	}

	if created {
		h.respondSuccess(w, http.StatusCreated, device, "Device registered successfully")
		return
	}
	h.respondSuccess(w, http.StatusOK, device, "Device updated successfully")
}

// HandleGetDevice handles GET /api/v1/devices/{deviceID}
func (h *Handler) HandleGetDevice(w http.ResponseWriter, r *http.Request) {
	device, err := h.registry.Get(r.Context(), chi.URLParam(r, "deviceID"))
	if err != nil {
		h.respondServiceError(w, err, "Failed to load device")
		return
	}

	h.respondSuccess(w, http.StatusOK, device, "")
}

// HandleSetOptIn handles PUT /api/v1/devices/{deviceID}/opt-in
func (h *Handler) HandleSetOptIn(w http.ResponseWriter, r *http.Request) {
	var req OptInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	device, err := h.registry.SetOptIn(r.Context(), civicpush.SetOptInRequest{
		DeviceID: chi.URLParam(r, "deviceID"),
		OptIn:    req.OptIn,
	})
	if err != nil {
		h.respondServiceError(w, err, "Failed to update opt-in")
		return
	}

	h.respondSuccess(w, http.StatusOK, device, "Opt-in updated successfully")
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
	}

	h.respondSuccess(w, http.StatusOK, health, "")
}

// userContextFrom reads userMode and municipality query parameters.
// A missing userMode is left empty for validation to reject.
func userContextFrom(r *http.Request) model.UserContext {
	q := r.URL.Query()
	user := model.UserContext{Mode: model.UserMode(q.Get("userMode"))}
	if q.Has("municipality") {
		m := model.Municipality(q.Get("municipality"))
		user.Municipality = &m
	}
	return user
}

// respondServiceError maps categorized errors onto HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case civicpush.IsValidation(err):
		h.respondError(w, http.StatusBadRequest, err.Error(), civicpush.ErrCodeValidation)
	case civicpush.IsNotFound(err):
		h.respondError(w, http.StatusNotFound, err.Error(), civicpush.ErrCodeNotFound)
	default:
		h.logger.Errorf("%s: %v", fallback, err)
		h.respondError(w, http.StatusInternalServerError, fallback, "INTERNAL_ERROR")
	}
}

// respondError sends an error response.
func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    code,
		Message: message,
	})
}

// respondSuccess sends a success response.
func (h *Handler) respondSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}
