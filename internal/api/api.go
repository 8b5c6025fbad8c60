package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"fund-report-rag/internal/config"
	"fund-report-rag/internal/metrics"
	"fund-report-rag/internal/models"
	"fund-report-rag/internal/queryengine"
	"fund-report-rag/internal/store"
	"fund-report-rag/internal/tasks"
	"fund-report-rag/internal/vectorstore"

	"go.uber.org/zap"
)

// QueryProcessor answers fund questions.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, req queryengine.Request) (*models.QueryResponse, error)
}

// MetricsCalculator computes and explains fund performance metrics.
type MetricsCalculator interface {
	CalculateAll(ctx context.Context, fundID int64) (*models.Metrics, error)
	CalculationBreakdown(ctx context.Context, fundID int64, metric string) (*metrics.Breakdown, error)
}

// Enqueuer submits documents for asynchronous ingestion.
type Enqueuer interface {
	Enqueue(job tasks.Job) error
}

// Handler serves the HTTP API.
type Handler struct {
	cfg           *config.Config
	funds         *store.FundStore
	documents     *store.DocumentStore
	conversations *store.ConversationStore
	vectors       *vectorstore.Store
	dispatcher    Enqueuer
	engine        QueryProcessor
	metrics       MetricsCalculator
	logger        *zap.Logger
}

func NewHandler(
	cfg *config.Config,
	funds *store.FundStore,
	documents *store.DocumentStore,
	conversations *store.ConversationStore,
	vectors *vectorstore.Store,
	dispatcher Enqueuer,
	engine QueryProcessor,
	metrics MetricsCalculator,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		cfg:           cfg,
		funds:         funds,
		documents:     documents,
		conversations: conversations,
		vectors:       vectors,
		dispatcher:    dispatcher,
		engine:        engine,
		metrics:       metrics,
		logger:        logger,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("encode response failed", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		h.logger.Error(message, zap.Error(err))
	} else {
		h.logger.Warn(message)
	}
	h.respondJSON(w, status, errorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func (h *Handler) handleStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrFundNotFound),
		errors.Is(err, models.ErrDocumentNotFound),
		errors.Is(err, models.ErrConversationNotFound):
		h.respondError(w, http.StatusNotFound, "resource not found", err)
	default:
		h.respondError(w, http.StatusInternalServerError, "internal server error", err)
	}
}
