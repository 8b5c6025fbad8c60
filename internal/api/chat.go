package api

import (
	"encoding/json"
	"net/http"

	"fund-report-rag/internal/models"
	"fund-report-rag/internal/queryengine"

	"go.uber.org/zap"
)

// Keep prompts bounded on long-running conversations.
const historyLimit = 20

type chatRequest struct {
	Query          string                `json:"query"`
	FundID         int64                 `json:"fund_id"`
	ConversationID string                `json:"conversation_id,omitempty"`
	DocumentIDs    []int64               `json:"document_ids,omitempty"`
	Weights        *models.SearchWeights `json:"weights,omitempty"`
}

type chatResponse struct {
	ConversationID string                `json:"conversation_id"`
	Answer         string                `json:"answer"`
	Intent         models.QueryIntent    `json:"intent"`
	Metrics        *models.Metrics       `json:"metrics,omitempty"`
	Sources        []models.SearchResult `json:"sources"`
}

// Chat handles POST /chat: one question-answer turn within a persisted
// conversation.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Query == "" {
		h.respondError(w, http.StatusBadRequest, "query is required", nil)
		return
	}
	if _, err := h.funds.Get(r.Context(), req.FundID); err != nil {
		h.handleStoreError(w, err)
		return
	}

	ctx := r.Context()

	var history []models.ChatMessage
	conversationID := req.ConversationID
	if conversationID != "" {
		conv, err := h.conversations.Get(ctx, conversationID)
		if err != nil {
			h.handleStoreError(w, err)
			return
		}
		history, err = h.conversations.History(ctx, conv.ID, historyLimit)
		if err != nil {
			h.handleStoreError(w, err)
			return
		}
	} else {
		conv, err := h.conversations.Create(ctx, req.FundID)
		if err != nil {
			h.handleStoreError(w, err)
			return
		}
		conversationID = conv.ID
	}

	resp, err := h.engine.ProcessQuery(ctx, queryengine.Request{
		Query:       req.Query,
		FundID:      req.FundID,
		DocumentIDs: req.DocumentIDs,
		History:     history,
		Weights:     req.Weights,
	})
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "query processing failed", err)
		return
	}

	// Persist the turn. A storage failure here loses history but not the
	// answer, so it is logged rather than surfaced.
	if err := h.conversations.AppendMessage(ctx, conversationID, "user", req.Query); err != nil {
		h.logger.Error("persist user message failed", zap.String("conversation_id", conversationID), zap.Error(err))
	}
	if err := h.conversations.AppendMessage(ctx, conversationID, "assistant", resp.Answer); err != nil {
		h.logger.Error("persist assistant message failed", zap.String("conversation_id", conversationID), zap.Error(err))
	}

	h.respondJSON(w, http.StatusOK, chatResponse{
		ConversationID: conversationID,
		Answer:         resp.Answer,
		Intent:         resp.Intent,
		Metrics:        resp.Metrics,
		Sources:        resp.Sources,
	})
}
