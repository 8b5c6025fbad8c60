package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"fund-report-rag/internal/metrics"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type createFundRequest struct {
	Name string `json:"name"`
}

// CreateFund handles POST /funds.
func (h *Handler) CreateFund(w http.ResponseWriter, r *http.Request) {
	var req createFundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Name == "" {
		h.respondError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	fund, err := h.funds.Create(r.Context(), req.Name)
	if err != nil {
		h.handleStoreError(w, err)
		return
	}

	h.logger.Info("fund created", zap.Int64("fund_id", fund.ID), zap.String("name", fund.Name))
	h.respondJSON(w, http.StatusCreated, fund)
}

// ListFunds handles GET /funds.
func (h *Handler) ListFunds(w http.ResponseWriter, r *http.Request) {
	funds, err := h.funds.List(r.Context())
	if err != nil {
		h.handleStoreError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"funds": funds})
}

// FundMetrics handles GET /funds/{fund_id}/metrics.
func (h *Handler) FundMetrics(w http.ResponseWriter, r *http.Request) {
	fundID, err := h.fundIDParam(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid fund id", err)
		return
	}
	if _, err := h.funds.Get(r.Context(), fundID); err != nil {
		h.handleStoreError(w, err)
		return
	}

	result, err := h.metrics.CalculateAll(r.Context(), fundID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "metrics calculation failed", err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// FundMetricsBreakdown handles GET /funds/{fund_id}/metrics/breakdown. The
// metric query parameter selects which calculation to explain.
func (h *Handler) FundMetricsBreakdown(w http.ResponseWriter, r *http.Request) {
	fundID, err := h.fundIDParam(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid fund id", err)
		return
	}
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		h.respondError(w, http.StatusBadRequest, "metric query parameter is required", nil)
		return
	}
	if _, err := h.funds.Get(r.Context(), fundID); err != nil {
		h.handleStoreError(w, err)
		return
	}

	breakdown, err := h.metrics.CalculationBreakdown(r.Context(), fundID, metric)
	if err != nil {
		if errors.Is(err, metrics.ErrUnknownMetric) {
			h.respondError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		h.respondError(w, http.StatusInternalServerError, "metrics breakdown failed", err)
		return
	}
	h.respondJSON(w, http.StatusOK, breakdown)
}

func (h *Handler) fundIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "fund_id"), 10, 64)
}
