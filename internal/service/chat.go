package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/storage"
)

// messagesPollLimit сколько сообщений отдаём за один опрос
const messagesPollLimit = 100

type ChatService interface {
	Start(ctx context.Context, actor Actor, subject, body string) (*models.ChatConversation, error)
	List(ctx context.Context, actor Actor, status *models.ConversationStatus, page models.Page) ([]*models.ChatConversation, int, error)
	// Messages возвращает сообщения с id больше afterID и отмечает чужие прочитанными
	Messages(ctx context.Context, actor Actor, conversationID, afterID int64) ([]*models.ChatMessage, error)
	Send(ctx context.Context, actor Actor, conversationID int64, body string) (*models.ChatMessage, error)
	Close(ctx context.Context, actor Actor, conversationID int64) error
}

type chatService struct {
	log      *slog.Logger
	db       *sql.DB
	chatRepo storage.ChatStorage
}

func NewChatService(log *slog.Logger, db *sql.DB, chatRepo storage.ChatStorage) ChatService {
	return &chatService{log: log, db: db, chatRepo: chatRepo}
}

// Start открывает обращение вместе с первым сообщением
func (s *chatService) Start(ctx context.Context, actor Actor, subject, body string) (*models.ChatConversation, error) {
	const op = "service.ChatService.Start"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", actor.UserID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	conv := &models.ChatConversation{UserID: actor.UserID, Subject: subject, Status: models.ConversationOpen}
	if _, err := s.chatRepo.CreateConversationTx(ctx, tx, conv); err != nil {
		rollback(tx, logger)
		logger.Error("failed to create conversation", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	msg := &models.ChatMessage{ConversationID: conv.ID, SenderID: actor.UserID, Body: body}
	if _, err := s.chatRepo.AddMessageTx(ctx, tx, msg); err != nil {
		rollback(tx, logger)
		logger.Error("failed to add first message", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("conversation started", slog.Int64("conversationID", conv.ID))
	return conv, nil
}

func (s *chatService) List(ctx context.Context, actor Actor, status *models.ConversationStatus, page models.Page) ([]*models.ChatConversation, int, error) {
	const op = "service.ChatService.List"
	filter := storage.ConversationFilter{Status: status}
	if !actor.IsAdmin() {
		filter.UserID = &actor.UserID
	}
	convs, total, err := s.chatRepo.ListConversations(ctx, filter, actor.UserID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return convs, total, nil
}

// access владелец обращения или администратор
func (s *chatService) access(ctx context.Context, actor Actor, id int64) (*models.ChatConversation, error) {
	conv, err := s.chatRepo.GetConversation(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if conv.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrNotOwner
	}
	return conv, nil
}

func (s *chatService) Messages(ctx context.Context, actor Actor, conversationID, afterID int64) ([]*models.ChatMessage, error) {
	const op = "service.ChatService.Messages"
	if _, err := s.access(ctx, actor, conversationID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if afterID < 0 {
		afterID = 0
	}

	msgs, err := s.chatRepo.ListMessages(ctx, conversationID, afterID, messagesPollLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.chatRepo.MarkRead(ctx, conversationID, actor.UserID); err != nil {
		// отметка о прочтении не критична для ответа
		s.log.Warn("failed to mark messages read", slog.String("op", op), slog.Any("error", err))
	}
	return msgs, nil
}

func (s *chatService) Send(ctx context.Context, actor Actor, conversationID int64, body string) (*models.ChatMessage, error) {
	const op = "service.ChatService.Send"
	logger := s.log.With(slog.String("op", op), slog.Int64("conversationID", conversationID))

	conv, err := s.access(ctx, actor, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if conv.Status == models.ConversationClosed {
		return nil, ErrConversationClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	msg := &models.ChatMessage{ConversationID: conversationID, SenderID: actor.UserID, Body: body}
	if _, err := s.chatRepo.AddMessageTx(ctx, tx, msg); err != nil {
		rollback(tx, logger)
		logger.Error("failed to add message", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.chatRepo.TouchConversationTx(ctx, tx, conversationID); err != nil {
		rollback(tx, logger)
		logger.Error("failed to touch conversation", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	return msg, nil
}

func (s *chatService) Close(ctx context.Context, actor Actor, conversationID int64) error {
	const op = "service.ChatService.Close"
	if _, err := s.access(ctx, actor, conversationID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.chatRepo.SetStatus(ctx, conversationID, models.ConversationClosed); err != nil {
		return fmt.Errorf("%s: %w", op, translate(err))
	}
	s.log.Info("conversation closed", slog.String("op", op), slog.Int64("conversationID", conversationID))
	return nil
}
