package store

import (
	"context"
	"errors"
	"fmt"

	"fund-report-rag/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentStore persists uploaded documents and their parsing state.
type DocumentStore struct {
	pool *pgxpool.Pool
}

func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// Create inserts a pending document record for an uploaded file.
func (s *DocumentStore) Create(ctx context.Context, fundID int64, fileName, filePath string) (*models.Document, error) {
	doc := &models.Document{
		FundID:        fundID,
		FileName:      fileName,
		FilePath:      filePath,
		ParsingStatus: models.StatusPending,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO documents (fund_id, file_name, file_path, parsing_status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, uploaded_at
	`, fundID, fileName, filePath, models.StatusPending).Scan(&doc.ID, &doc.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// Get returns the document with the given id.
func (s *DocumentStore) Get(ctx context.Context, id int64) (*models.Document, error) {
	doc := &models.Document{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, fund_id, file_name, file_path, parsing_status, error_message, uploaded_at
		FROM documents WHERE id = $1
	`, id).Scan(&doc.ID, &doc.FundID, &doc.FileName, &doc.FilePath,
		&doc.ParsingStatus, &doc.ErrorMessage, &doc.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListByFund returns a fund's documents, newest first.
func (s *DocumentStore) ListByFund(ctx context.Context, fundID int64) ([]models.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, fund_id, file_name, file_path, parsing_status, error_message, uploaded_at
		FROM documents WHERE fund_id = $1 ORDER BY uploaded_at DESC
	`, fundID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.FundID, &doc.FileName, &doc.FilePath,
			&doc.ParsingStatus, &doc.ErrorMessage, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// SetStatus updates a document's parsing status and error message. An empty
// errMsg clears any previous error.
func (s *DocumentStore) SetStatus(ctx context.Context, id int64, status, errMsg string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET parsing_status = $2, error_message = $3 WHERE id = $1
	`, id, status, errMsg)
	if err != nil {
		return fmt.Errorf("set document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrDocumentNotFound
	}
	return nil
}
