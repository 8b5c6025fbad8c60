package store

import (
	"context"
	"errors"
	"fmt"

	"fund-report-rag/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationStore persists chat conversations and their messages.
type ConversationStore struct {
	pool *pgxpool.Pool
}

func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{pool: pool}
}

// Create starts a new conversation for a fund.
func (s *ConversationStore) Create(ctx context.Context, fundID int64) (*models.Conversation, error) {
	conv := &models.Conversation{
		ID:     uuid.NewString(),
		FundID: fundID,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, fund_id) VALUES ($1, $2)
		RETURNING created_at, updated_at
	`, conv.ID, fundID).Scan(&conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// Get returns the conversation with the given id.
func (s *ConversationStore) Get(ctx context.Context, id string) (*models.Conversation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrConversationNotFound
	}
	conv := &models.Conversation{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, fund_id, created_at, updated_at FROM conversations WHERE id = $1
	`, id).Scan(&conv.ID, &conv.FundID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrConversationNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// AppendMessage stores one chat turn and bumps the conversation's
// updated_at.
func (s *ConversationStore) AppendMessage(ctx context.Context, conversationID, role, content string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO chat_messages (conversation_id, role, content) VALUES ($1, $2, $3)
	`, conversationID, role, content); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE conversations SET updated_at = now() WHERE id = $1
	`, conversationID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return tx.Commit(ctx)
}

// History returns a conversation's messages in chronological order, capped
// at limit (0 means no cap).
func (s *ConversationStore) History(ctx context.Context, conversationID string, limit int) ([]models.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM chat_messages WHERE conversation_id = $1 ORDER BY created_at, id
	`
	args := []any{conversationID}
	if limit > 0 {
		// Keep the most recent turns but return them oldest first.
		query = `
			SELECT id, conversation_id, role, content, created_at FROM (
				SELECT id, conversation_id, role, content, created_at
				FROM chat_messages WHERE conversation_id = $1
				ORDER BY created_at DESC, id DESC LIMIT $2
			) recent ORDER BY created_at, id
		`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
