package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nvoss/amazon-shoptools/internal/browser"
	"github.com/nvoss/amazon-shoptools/internal/query"
	"github.com/nvoss/amazon-shoptools/internal/scraper"
)

// Handler exposes the scraper operations over HTTP.
type Handler struct {
	service *scraper.Service
	logger  *slog.Logger
}

func NewHandler(service *scraper.Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With("component", "api"),
	}
}

type searchRequest struct {
	Term    string          `json:"term"`
	Filters query.FilterSet `json:"filters"`
}

type dealsRequest struct {
	Category string          `json:"category"`
	Filters  query.FilterSet `json:"filters"`
}

type bestsellersRequest struct {
	Category string          `json:"category"`
	Filters  query.FilterSet `json:"filters"`
}

type productRequest struct {
	Product    string `json:"product"`
	MaxReviews int    `json:"max_reviews"`
}

type compareRequest struct {
	Products []string `json:"products"`
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	products, err := h.service.SearchWithFilters(r.Context(), req.Term, req.Filters)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"term":     req.Term,
		"count":    len(products),
		"products": products,
	})
}

func (h *Handler) Deals(w http.ResponseWriter, r *http.Request) {
	var req dealsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	products, err := h.service.FindDeals(r.Context(), req.Category, req.Filters)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"category": req.Category,
		"count":    len(products),
		"products": products,
	})
}

func (h *Handler) Bestsellers(w http.ResponseWriter, r *http.Request) {
	var req bestsellersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	products, err := h.service.FindBestsellers(r.Context(), req.Category, req.Filters)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"category": req.Category,
		"count":    len(products),
		"products": products,
	})
}

func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	detail, err := h.service.GetDetails(r.Context(), req.Product)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

func (h *Handler) Reviews(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reviews, err := h.service.GetReviews(r.Context(), req.Product, req.MaxReviews)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(reviews),
		"reviews": reviews,
	})
}

func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.Compare(r.Context(), req.Products)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// respondServiceError maps the error taxonomy to HTTP statuses: invalid
// input is the caller's fault, upstream navigation trouble is a bad gateway,
// and a browser that cannot start means the service is unavailable.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var (
		valErr   *query.ValidationError
		navErr   *browser.NavigationError
		startErr *browser.StartupError
	)

	switch {
	case errors.As(err, &valErr):
		respondError(w, http.StatusBadRequest, valErr.Error())
	case errors.As(err, &navErr):
		h.logger.Error("navigation failed", "url", navErr.URL, "attempts", navErr.Attempts, "error", navErr.Err)
		respondError(w, http.StatusBadGateway, "failed to reach product pages")
	case errors.As(err, &startErr):
		h.logger.Error("browser unavailable", "error", startErr.Err)
		respondError(w, http.StatusServiceUnavailable, "browser unavailable")
	default:
		h.logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
