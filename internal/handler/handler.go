package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"deal-stats-api/internal/database"
	"deal-stats-api/internal/models"
	"deal-stats-api/internal/service"
	"deal-stats-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 10 << 20, // 10MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// CreateDeal handles POST /deals
func (h *Handler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.CreateDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	req.SellerID = validation.SanitizeString(req.SellerID)
	req.CustomerOrganisationNumber = validation.SanitizeString(req.CustomerOrganisationNumber)

	deal, err := h.service.CreateDeal(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, deal)
}

// ListDeals handles GET /deals
func (h *Handler) ListDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := h.service.ListDeals(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to list deals")
		return
	}

	if deals == nil {
		deals = []models.Deal{}
	}

	h.respondJSON(w, http.StatusOK, deals)
}

// UpdateDealExpiry handles PATCH /deals/{id}/expiry
func (h *Handler) UpdateDealExpiry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	id := validation.SanitizeString(chi.URLParam(r, "id"))
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	var req models.UpdateDealExpiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	deal, err := h.service.UpdateDealExpiry(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, database.ErrDealNotFound) {
			h.respondError(w, http.StatusNotFound, "deal not found")
			return
		}
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, deal)
}

// GetDailyStats handles GET /stats/daily
func (h *Handler) GetDailyStats(w http.ResponseWriter, r *http.Request) {
	// Defaults to the current day when no date parameter is given.
	date := time.Now()
	if dateParam := r.URL.Query().Get("date"); dateParam != "" {
		dateParam = validation.SanitizeString(dateParam)
		parsed, err := validation.ValidateDateString(dateParam)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid 'date' parameter, must be YYYY-MM-DD format")
			return
		}
		date = parsed
	}

	response, err := h.service.GetDailyStats(r.Context(), date)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to get daily stats")
		return
	}

	if response.Stats == nil {
		response.Stats = []models.DailyCustomerStat{}
	}

	h.respondJSON(w, http.StatusOK, response)
}

// GetCustomerStats handles GET /customers/{customer_organisation_number}/stats
func (h *Handler) GetCustomerStats(w http.ResponseWriter, r *http.Request) {
	org := validation.SanitizeString(chi.URLParam(r, "customer_organisation_number"))
	if org == "" {
		h.respondError(w, http.StatusBadRequest, "customer_organisation_number is required")
		return
	}

	rows, err := h.service.GetCustomerStats(r.Context(), org)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	if rows == nil {
		rows = []models.DailyCustomerStat{}
	}

	h.respondJSON(w, http.StatusOK, rows)
}

// respondServiceError maps service errors to status codes: validation failures
// are the client's fault, everything else is a 500.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var validationErr *validation.ValidationError
	if errors.As(err, &validationErr) {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondError(w, http.StatusInternalServerError, "unexpected error")
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
