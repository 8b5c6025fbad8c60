package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

type rebuildIndexRequest struct {
	// Lists <= 0 auto-derives the partition count from the row count.
	Lists int `json:"lists"`
}

// RebuildIndex handles POST /admin/index/rebuild. Must not run while
// ingestion is active.
func (h *Handler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	var req rebuildIndexRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}

	if err := h.vectors.RebuildIndex(r.Context(), req.Lists); err != nil {
		h.respondError(w, http.StatusInternalServerError, "index rebuild failed", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}

// IndexStats handles GET /admin/index/stats.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.vectors.GetIndexStats(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "index stats failed", err)
		return
	}
	h.respondJSON(w, http.StatusOK, stats)
}

// ClearEmbeddings handles DELETE /admin/embeddings. An optional fund_id
// query parameter restricts the clear to one fund; without it everything
// goes.
func (h *Handler) ClearEmbeddings(w http.ResponseWriter, r *http.Request) {
	var fundID int64
	if raw := r.URL.Query().Get("fund_id"); raw != "" {
		var err error
		fundID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid fund id", err)
			return
		}
	}

	h.vectors.Clear(r.Context(), fundID)
	h.logger.Info("embeddings cleared", zap.Int64("fund_id", fundID))
	w.WriteHeader(http.StatusNoContent)
}
