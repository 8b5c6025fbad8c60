package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fund-report-rag/internal/models"
	"fund-report-rag/internal/tasks"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UploadDocument handles POST /funds/{fund_id}/documents. The PDF is saved
// to the upload directory, a pending document record is created, and
// ingestion is dispatched asynchronously.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	fundID, err := h.fundIDParam(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid fund id", err)
		return
	}
	if _, err := h.funds.Get(r.Context(), fundID); err != nil {
		h.handleStoreError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid form data or file too large", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "file is required", err)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		h.respondError(w, http.StatusBadRequest, "only PDF files are accepted", nil)
		return
	}

	filePath, err := h.saveUpload(file, header.Filename)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "save upload failed", err)
		return
	}

	doc, err := h.documents.Create(r.Context(), fundID, header.Filename, filePath)
	if err != nil {
		h.handleStoreError(w, err)
		return
	}

	if err := h.dispatcher.Enqueue(tasks.Job{
		DocumentID: doc.ID,
		FilePath:   filePath,
		FundID:     fundID,
	}); err != nil {
		h.logger.Error("enqueue document failed", zap.Int64("document_id", doc.ID), zap.Error(err))
		if serr := h.documents.SetStatus(r.Context(), doc.ID, models.StatusFailed, "processing queue unavailable"); serr != nil {
			h.logger.Error("mark document failed", zap.Int64("document_id", doc.ID), zap.Error(serr))
		}
		h.respondError(w, http.StatusServiceUnavailable, "processing queue unavailable", err)
		return
	}

	h.logger.Info("document accepted",
		zap.Int64("document_id", doc.ID),
		zap.Int64("fund_id", fundID),
		zap.String("file_name", header.Filename))
	h.respondJSON(w, http.StatusAccepted, doc)
}

// saveUpload writes the uploaded file under the upload directory with a
// timestamped name so repeated uploads never collide.
func (h *Handler) saveUpload(src io.Reader, fileName string) (string, error) {
	if err := os.MkdirAll(h.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(fileName))
	path := filepath.Join(h.cfg.UploadDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}

// GetDocument handles GET /documents/{document_id}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "document_id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid document id", err)
		return
	}

	doc, err := h.documents.Get(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, doc)
}

// ListDocuments handles GET /funds/{fund_id}/documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	fundID, err := h.fundIDParam(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid fund id", err)
		return
	}

	docs, err := h.documents.ListByFund(r.Context(), fundID)
	if err != nil {
		h.handleStoreError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}
