package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/tribal-market/internal/domain/models"
)

// ConversationFilter условия выборки обращений
type ConversationFilter struct {
	UserID *int64
	Status *models.ConversationStatus
}

// ChatStorage хранит обращения в поддержку и сообщения к ним.
type ChatStorage interface {
	CreateConversationTx(ctx context.Context, tx *sql.Tx, conv *models.ChatConversation) (int64, error)
	AddMessageTx(ctx context.Context, tx *sql.Tx, msg *models.ChatMessage) (int64, error)
	// TouchConversationTx поднимает обращение наверх списка после нового сообщения
	TouchConversationTx(ctx context.Context, tx *sql.Tx, id int64) error
	GetConversation(ctx context.Context, id int64) (*models.ChatConversation, error)
	// ListConversations считает непрочитанные сообщения с точки зрения viewerID
	ListConversations(ctx context.Context, filter ConversationFilter, viewerID int64, page models.Page) ([]*models.ChatConversation, int, error)
	ListMessages(ctx context.Context, conversationID, afterID int64, limit int) ([]*models.ChatMessage, error)
	// MarkRead отмечает прочитанными все чужие сообщения обращения
	MarkRead(ctx context.Context, conversationID, readerID int64) error
	SetStatus(ctx context.Context, id int64, status models.ConversationStatus) error
}

type chatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) ChatStorage {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateConversationTx(ctx context.Context, tx *sql.Tx, conv *models.ChatConversation) (int64, error) {
	err := tx.QueryRowContext(ctx,
		"INSERT INTO chat_conversations (user_id, subject, status) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at",
		conv.UserID, conv.Subject, conv.Status,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv.ID, nil
}

func (r *chatRepository) AddMessageTx(ctx context.Context, tx *sql.Tx, msg *models.ChatMessage) (int64, error) {
	err := tx.QueryRowContext(ctx,
		"INSERT INTO chat_messages (conversation_id, sender_id, body) VALUES ($1, $2, $3) RETURNING id, created_at",
		msg.ConversationID, msg.SenderID, msg.Body,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to add message: %w", err)
	}
	return msg.ID, nil
}

func (r *chatRepository) TouchConversationTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, "UPDATE chat_conversations SET updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrConversationNotFound)
}

func (r *chatRepository) GetConversation(ctx context.Context, id int64) (*models.ChatConversation, error) {
	conv := &models.ChatConversation{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, subject, status, created_at, updated_at FROM chat_conversations WHERE id = $1", id,
	).Scan(&conv.ID, &conv.UserID, &conv.Subject, &conv.Status, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return conv, nil
}

func (r *chatRepository) ListConversations(ctx context.Context, filter ConversationFilter, viewerID int64, page models.Page) ([]*models.ChatConversation, int, error) {
	page = page.Normalize()
	var wb whereBuilder
	if filter.UserID != nil {
		wb.add("c.user_id = $%d", *filter.UserID)
	}
	if filter.Status != nil {
		wb.add("c.status = $%d", *filter.Status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chat_conversations c"+wb.sql(), wb.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}

	// viewerID идёт последним параметром перед LIMIT/OFFSET
	wb.args = append(wb.args, viewerID)
	viewerParam := len(wb.args)
	limit, args := wb.limitOffset(page.Limit, page.Offset())
	query := fmt.Sprintf(`
		SELECT c.id, c.user_id, c.subject, c.status, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM chat_messages m
		        WHERE m.conversation_id = c.id AND NOT m.is_read AND m.sender_id <> $%d)
		FROM chat_conversations c`, viewerParam) + wb.sql() + " ORDER BY c.updated_at DESC, c.id DESC" + limit
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	convs := make([]*models.ChatConversation, 0)
	for rows.Next() {
		c := &models.ChatConversation{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Subject, &c.Status, &c.CreatedAt, &c.UpdatedAt, &c.UnreadCount); err != nil {
			return nil, 0, err
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return convs, total, nil
}

func (r *chatRepository) ListMessages(ctx context.Context, conversationID, afterID int64, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, sender_id, body, is_read, created_at
		FROM chat_messages
		WHERE conversation_id = $1 AND id > $2
		ORDER BY id
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, conversationID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]*models.ChatMessage, 0)
	for rows.Next() {
		m := &models.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *chatRepository) MarkRead(ctx context.Context, conversationID, readerID int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE chat_messages SET is_read = TRUE WHERE conversation_id = $1 AND sender_id <> $2 AND NOT is_read",
		conversationID, readerID)
	return err
}

func (r *chatRepository) SetStatus(ctx context.Context, id int64, status models.ConversationStatus) error {
	res, err := r.db.ExecContext(ctx, "UPDATE chat_conversations SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrConversationNotFound)
}
